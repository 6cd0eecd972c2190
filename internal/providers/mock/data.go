package mock

import (
	"fmt"
	"math/rand"
	"strings"
)

var (
	firstNames = []string{
		"ANA", "JOAO", "MARIA", "JOSE", "ANTONIO", "FRANCISCA", "CARLOS", "PAULO",
		"LUCAS", "JULIANA", "FERNANDA", "RAFAEL", "MARCOS", "PATRICIA", "ADRIANA", "RICARDO",
	}
	lastNames = []string{
		"SILVA", "SANTOS", "OLIVEIRA", "SOUZA", "RODRIGUES", "FERREIRA", "ALVES", "PEREIRA",
		"LIMA", "GOMES", "COSTA", "RIBEIRO", "MARTINS", "CARVALHO", "ALMEIDA", "LOPES",
	}
	companyWords = []string{
		"AGRO", "CONSTRUTORA", "COMERCIO", "DISTRIBUIDORA", "LOGISTICA", "INCORPORADORA",
		"TECNOLOGIA", "TRANSPORTES", "PARTICIPACOES", "ALIMENTOS", "SERVICOS", "METALURGICA",
	}
	companySuffixes = []string{"LTDA", "S/A", "EIRELI", "LTDA ME", "SPE LTDA"}

	activities = []string{
		"4120-4/00 - Construção de edifícios",
		"4930-2/02 - Transporte rodoviário de carga",
		"6462-0/00 - Holdings de instituições não-financeiras",
		"0115-6/00 - Cultivo de soja",
		"4711-3/02 - Comércio varejista de mercadorias em geral",
	}

	partnerRoles = []string{"SOCIO-ADMINISTRADOR", "SOCIO", "SOCIO", "ADMINISTRADOR", "SOCIO-GERENTE"}

	cities = []struct{ City, UF string }{
		{"SAO PAULO", "SP"}, {"CAMPINAS", "SP"}, {"RIO DE JANEIRO", "RJ"}, {"BELO HORIZONTE", "MG"},
		{"CURITIBA", "PR"}, {"GOIANIA", "GO"}, {"CUIABA", "MT"}, {"PORTO ALEGRE", "RS"},
	}

	courts = []struct {
		Name    string
		Segment int
		Region  int
	}{
		{"TJSP", 8, 26}, {"TJRJ", 8, 19}, {"TJMG", 8, 13}, {"TRF3", 4, 3},
		{"TRT2", 5, 2}, {"TJPR", 8, 16}, {"TRF1", 4, 1},
	}

	lawsuitSubjects = []string{
		"Execução de Título Extrajudicial", "Cobrança", "Reclamação Trabalhista",
		"Execução Fiscal", "Indenização por Dano Moral", "Despejo por Falta de Pagamento",
		"Ação Monitória", "Busca e Apreensão",
	}

	creditors = []string{
		"BANCO DO BRASIL S/A", "ITAU UNIBANCO S/A", "CAIXA ECONOMICA FEDERAL",
		"BANCO BRADESCO S/A", "BANCO SANTANDER S/A", "COOPERATIVA DE CREDITO SICREDI",
	}
	debtKinds = []string{"EMPRESTIMO", "FINANCIAMENTO", "CARTAO_CREDITO", "CHEQUE_SEM_FUNDO"}

	taxes = []string{"IRPJ", "CSLL", "COFINS", "PIS", "IRPF", "SIMPLES NACIONAL"}

	vehicles = []struct {
		Model string
		Value int64
	}{
		{"VW/GOL 1.0", 45000}, {"FIAT/STRADA FREEDOM", 98000}, {"TOYOTA/HILUX SRV", 230000},
		{"CHEVROLET/ONIX LT", 78000}, {"SCANIA/R450 A6X4", 520000}, {"HONDA/CG 160 FAN", 16000},
	}
	restrictions = []string{"ALIENACAO FIDUCIARIA", "RESTRICAO JUDICIAL RENAJUD", "ARRENDAMENTO"}

	landUses = []string{"AGRICULTURA", "PASTAGEM", "FORMACAO FLORESTAL", "SILVICULTURA", "AREA NAO VEGETADA"}
)

func pick(list []string) string {
	return list[rand.Intn(len(list))]
}

func personName() string {
	return pick(firstNames) + " " + pick(lastNames) + " " + pick(lastNames)
}

func companyName() string {
	return pick(lastNames) + " " + pick(companyWords) + " " + pick(companySuffixes)
}

func city() (string, string) {
	c := cities[rand.Intn(len(cities))]
	return c.City, c.UF
}

// between returns a random integer in [min, max]
func between(min, max int) int {
	return min + rand.Intn(max-min+1)
}

// plate returns a Mercosul-format plate (ABC1D23)
func plate() string {
	letters := "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	var b strings.Builder
	for i := 0; i < 3; i++ {
		b.WriteByte(letters[rand.Intn(26)])
	}
	b.WriteByte(byte('0' + rand.Intn(10)))
	b.WriteByte(letters[rand.Intn(26)])
	fmt.Fprintf(&b, "%02d", rand.Intn(100))
	return b.String()
}

// caseNumber returns a CNJ unified case number (NNNNNNN-DD.AAAA.J.TR.OOOO)
// with valid mod-97 check digits
func caseNumber(segment, region int) string {
	seq := fmt.Sprintf("%07d", rand.Intn(10000000))
	year := fmt.Sprintf("%04d", between(2012, 2025))
	origin := fmt.Sprintf("%04d", rand.Intn(10000))
	jtr := fmt.Sprintf("%d%02d", segment, region)

	check := 98 - mod97(seq+year+jtr+origin+"00")
	return fmt.Sprintf("%s-%02d.%s.%d.%02d.%s", seq, check, year, segment, region, origin)
}

// ValidCaseNumber verifies the check digits of a CNJ case number
func ValidCaseNumber(number string) bool {
	var digits strings.Builder
	for _, r := range number {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) != 20 {
		return false
	}
	// NNNNNNN DD AAAA J TR OOOO -> NNNNNNN AAAA J TR OOOO DD
	return mod97(d[:7]+d[9:]+d[7:9]) == 1
}

func mod97(digits string) int {
	rem := 0
	for _, r := range digits {
		rem = (rem*10 + int(r-'0')) % 97
	}
	return rem
}
