// Package mock generates synthetic provider results. Output has the same
// normalized shape as real adapters so downstream code only tells them apart
// by the IsMock flag.
package mock

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/utils"
)

var hundred = decimal.NewFromInt(100)

// Generate builds a synthetic result for the query. Unknown query types
// produce Success=false.
func Generate(provider models.ProviderID, query models.ProviderQuery) *models.ProviderResult {
	res := &models.ProviderResult{
		Success:   true,
		Provider:  provider,
		QueryType: query.QueryType,
		IsMock:    true,
		Cost:      decimal.Zero,
	}

	doc := query.TargetDocument

	switch query.QueryType {
	case models.QueryCPF:
		res.Data = personRecord(doc)
	case models.QueryCNPJ:
		res.Data = companyRecord(doc)
	case models.QueryQuadroSocietario:
		company := newCompany(orCNPJ(doc), "", "")
		res.Data = company.data()
		res.CorporateLinks = company.links(provider)
	case models.QueryVinculosSocietarios:
		res.Data, res.CorporateLinks = partnerships(provider, orCPF(doc))
	case models.QueryProcesso:
		res.Lawsuits = lawsuits(provider)
		res.Data = map[string]interface{}{"total": len(res.Lawsuits)}
	case models.QueryScoreCredito:
		res.Data = creditScore(doc)
	case models.QueryDividas:
		res.Debts = bankDebts(provider)
		res.Data = debtSummary(res.Debts)
	case models.QueryProtestos:
		res.Debts = protests(provider)
		res.Data = debtSummary(res.Debts)
	case models.QueryDividaAtiva:
		res.Debts = taxDebts(provider, doc)
		res.Data = debtSummary(res.Debts)
	case models.QueryVeiculos:
		res.Assets = vehicleAssets(provider)
		res.Data = map[string]interface{}{"total": len(res.Assets)}
	case models.QueryImoveis:
		res.Assets = realEstate(provider)
		res.Data = map[string]interface{}{"total": len(res.Assets)}
	case models.QueryImoveisRurais:
		res.Assets = ruralProperties(provider)
		res.Data = map[string]interface{}{"total": len(res.Assets)}
	case models.QueryUsoSolo:
		res.Data, res.Assets = landUse(provider)
	default:
		res.Success = false
		res.ErrorMessage = fmt.Sprintf("no synthetic data for query type %q", query.QueryType)
		return res
	}

	res.EnsureCollections()
	res.RawResponse = models.MustJSON(res.Data)
	return res
}

func orCPF(doc string) string {
	if utils.IsValidCPF(doc) {
		return utils.CleanDocument(doc)
	}
	return utils.GenerateCPF()
}

func orCNPJ(doc string) string {
	if utils.IsValidCNPJ(doc) {
		return utils.CleanDocument(doc)
	}
	return utils.GenerateCNPJ()
}

func money(min, max int) decimal.Decimal {
	cents := int64(between(min*100, max*100))
	return decimal.New(cents, -2)
}

func personRecord(doc string) map[string]interface{} {
	cityName, uf := city()
	birth := time.Date(between(1950, 2000), time.Month(between(1, 12)), between(1, 28), 0, 0, 0, 0, time.UTC)
	return map[string]interface{}{
		"cpf":             orCPF(doc),
		"nome":            personName(),
		"situacao":        "REGULAR",
		"data_nascimento": birth.Format("2006-01-02"),
		"municipio":       cityName,
		"uf":              uf,
	}
}

func companyRecord(doc string) map[string]interface{} {
	cityName, uf := city()
	opened := time.Date(between(1985, 2022), time.Month(between(1, 12)), between(1, 28), 0, 0, 0, 0, time.UTC)
	return map[string]interface{}{
		"cnpj":                orCNPJ(doc),
		"razao_social":        companyName(),
		"situacao":            "ATIVA",
		"data_abertura":       opened.Format("2006-01-02"),
		"capital_social":      money(10000, 5000000).StringFixed(2),
		"atividade_principal": pick(activities),
		"municipio":           cityName,
		"uf":                  uf,
	}
}

type partner struct {
	Document string
	Name     string
	Role     string
	Share    decimal.Decimal
}

type company struct {
	Document string
	Name     string
	Partners []partner
}

// splitShares divides 100% into n positive shares with two decimals whose
// sum is exactly 100
func splitShares(n int) []decimal.Decimal {
	shares := make([]decimal.Decimal, n)
	remaining := 10000 // basis points
	for i := 0; i < n-1; i++ {
		maxTake := remaining - (n - 1 - i)
		take := 1 + rand.Intn(maxTake)
		if i == 0 && n > 1 {
			// majority partner is the common case
			take = between(min(5000, maxTake), maxTake)
		}
		shares[i] = decimal.New(int64(take), -2)
		remaining -= take
	}
	shares[n-1] = decimal.New(int64(remaining), -2)
	return shares
}

// newCompany creates a company whose partner shares sum to 100%. When
// partnerDoc is set that person is included among the partners.
func newCompany(doc, partnerDoc, partnerName string) company {
	c := company{Document: doc, Name: companyName()}
	n := between(1, 4)
	shares := splitShares(n)
	for i := 0; i < n; i++ {
		p := partner{
			Document: utils.GenerateCPF(),
			Name:     personName(),
			Role:     pick(partnerRoles),
			Share:    shares[i],
		}
		if i == 0 {
			p.Role = "SOCIO-ADMINISTRADOR"
			if partnerDoc != "" {
				p.Document = partnerDoc
				p.Name = partnerName
			}
		}
		c.Partners = append(c.Partners, p)
	}
	return c
}

func (c company) data() map[string]interface{} {
	partners := make([]map[string]interface{}, 0, len(c.Partners))
	for _, p := range c.Partners {
		partners = append(partners, map[string]interface{}{
			"cpf":          p.Document,
			"nome":         p.Name,
			"qualificacao": p.Role,
			"participacao": p.Share.StringFixed(2),
		})
	}
	return map[string]interface{}{
		"cnpj":         c.Document,
		"razao_social": c.Name,
		"socios":       partners,
	}
}

func (c company) links(provider models.ProviderID) []models.NormalizedCorporateLink {
	links := make([]models.NormalizedCorporateLink, 0, len(c.Partners))
	for _, p := range c.Partners {
		links = append(links, models.NormalizedCorporateLink{
			CompanyDocument: c.Document,
			CompanyName:     c.Name,
			PartnerDocument: p.Document,
			PartnerName:     p.Name,
			Role:            p.Role,
			SharePercent:    p.Share,
			SourceProvider:  provider,
			RawPayload: models.MustJSON(map[string]interface{}{
				"cnpj": c.Document, "cpf_socio": p.Document, "participacao": p.Share.StringFixed(2),
			}),
		})
	}
	return links
}

// partnerships lists companies where the target person is a partner. Only the
// target's own link is normalized; the full partner table stays in Data.
func partnerships(provider models.ProviderID, cpf string) (map[string]interface{}, []models.NormalizedCorporateLink) {
	name := personName()
	n := between(0, 3)
	companies := make([]interface{}, 0, n)
	links := make([]models.NormalizedCorporateLink, 0, n)

	for i := 0; i < n; i++ {
		c := newCompany(utils.GenerateCNPJ(), cpf, name)
		companies = append(companies, c.data())

		link := c.links(provider)[0]
		if rand.Intn(5) == 0 {
			link.HasIrregularity = true
			link.IrregularityNote = "EMPRESA INAPTA - OMISSAO DE DECLARACOES"
		}
		links = append(links, link)
	}

	return map[string]interface{}{"cpf": cpf, "empresas": companies}, links
}

func lawsuits(provider models.ProviderID) []models.NormalizedLawsuit {
	n := between(0, 4)
	out := make([]models.NormalizedLawsuit, 0, n)
	for i := 0; i < n; i++ {
		court := courts[rand.Intn(len(courts))]
		number := caseNumber(court.Segment, court.Region)
		claim := money(5000, 800000)
		role := models.RoleReu
		if rand.Intn(3) == 0 {
			role = models.RoleAutor
		}
		relevance := models.RelevanceBaixa
		switch {
		case claim.GreaterThan(decimal.NewFromInt(300000)):
			relevance = models.RelevanceAlta
		case claim.GreaterThan(decimal.NewFromInt(50000)):
			relevance = models.RelevanceMedia
		}
		subject := pick(lawsuitSubjects)

		out = append(out, models.NormalizedLawsuit{
			CaseNumber:     number,
			Court:          court.Name,
			Role:           role,
			Subject:        subject,
			ClaimValue:     claim,
			Relevance:      relevance,
			HasAssetFreeze: role == models.RoleReu && rand.Intn(4) == 0,
			SourceProvider: provider,
			RawPayload: models.MustJSON(map[string]interface{}{
				"numeroProcesso": number, "tribunal": court.Name, "assunto": subject, "valorCausa": claim.StringFixed(2),
			}),
		})
	}
	return out
}

func creditScore(doc string) map[string]interface{} {
	score := between(150, 980)
	band := "BAIXO RISCO"
	switch {
	case score < 300:
		band = "ALTO RISCO"
	case score < 600:
		band = "MEDIO RISCO"
	}
	return map[string]interface{}{
		"documento":                   doc,
		"score":                       score,
		"faixa":                       band,
		"probabilidade_inadimplencia": fmt.Sprintf("%.1f%%", float64(1000-score)/10),
	}
}

func bankDebts(provider models.ProviderID) []models.NormalizedDebt {
	n := between(0, 3)
	out := make([]models.NormalizedDebt, 0, n)
	for i := 0; i < n; i++ {
		creditor := pick(creditors)
		kind := pick(debtKinds)
		value := money(500, 250000)
		status := models.DebtAtiva
		if rand.Intn(4) == 0 {
			status = models.DebtNegociada
		}
		out = append(out, models.NormalizedDebt{
			Creditor:       creditor,
			Description:    fmt.Sprintf("%s - contrato %d", kind, between(100000, 999999)),
			DebtType:       kind,
			Value:          value,
			Status:         status,
			SourceProvider: provider,
			RawPayload:     models.MustJSON(map[string]interface{}{"credor": creditor, "valor": value.StringFixed(2)}),
		})
	}
	return out
}

func protests(provider models.ProviderID) []models.NormalizedDebt {
	n := between(0, 3)
	out := make([]models.NormalizedDebt, 0, n)
	for i := 0; i < n; i++ {
		cityName, uf := city()
		value := money(200, 90000)
		creditor := pick(creditors)
		out = append(out, models.NormalizedDebt{
			Creditor:       creditor,
			Description:    fmt.Sprintf("Protesto - %d TABELIAO DE PROTESTO DE %s/%s", between(1, 10), cityName, uf),
			DebtType:       "PROTESTO",
			Value:          value,
			Status:         models.DebtProtestada,
			SourceProvider: provider,
			RawPayload:     models.MustJSON(map[string]interface{}{"apresentante": creditor, "valor": value.StringFixed(2), "uf": uf}),
		})
	}
	return out
}

func taxDebts(provider models.ProviderID, doc string) []models.NormalizedDebt {
	n := between(0, 2)
	out := make([]models.NormalizedDebt, 0, n)
	for i := 0; i < n; i++ {
		inscription := fmt.Sprintf("%d %d %06d-%02d", between(10, 80), between(1, 7), rand.Intn(1000000), rand.Intn(100))
		value := money(1000, 1500000)
		tax := pick(taxes)
		out = append(out, models.NormalizedDebt{
			Creditor:       "UNIAO - FAZENDA NACIONAL",
			Description:    fmt.Sprintf("Inscricao %s - %s", inscription, tax),
			DebtType:       "DIVIDA_ATIVA",
			Value:          value,
			Status:         models.DebtAtiva,
			SourceProvider: provider,
			RawPayload: models.MustJSON(map[string]interface{}{
				"numero_inscricao": inscription, "receita": tax, "valor_consolidado": value.StringFixed(2), "documento": doc,
			}),
		})
	}
	return out
}

func debtSummary(debts []models.NormalizedDebt) map[string]interface{} {
	total := decimal.Zero
	for _, d := range debts {
		total = total.Add(d.Value)
	}
	return map[string]interface{}{
		"total":       len(debts),
		"valor_total": total.StringFixed(2),
	}
}

func vehicleAssets(provider models.ProviderID) []models.NormalizedAsset {
	n := between(0, 3)
	out := make([]models.NormalizedAsset, 0, n)
	for i := 0; i < n; i++ {
		v := vehicles[rand.Intn(len(vehicles))]
		p := plate()
		year := between(2008, 2025)
		restricted := rand.Intn(3) == 0
		description := fmt.Sprintf("%s %d", v.Model, year)
		if restricted {
			description += " - " + pick(restrictions)
		}
		value := decimal.NewFromInt(v.Value).Mul(decimal.NewFromFloat(0.6 + rand.Float64()*0.4)).Round(2)
		out = append(out, models.NormalizedAsset{
			Category:       models.AssetVeiculo,
			Description:    description,
			Identifier:     p,
			EstimatedValue: value,
			HasRestriction: restricted,
			IsSeizable:     true,
			SourceProvider: provider,
			RawPayload:     models.MustJSON(map[string]interface{}{"placa": p, "modelo": v.Model, "ano": year}),
		})
	}
	return out
}

func realEstate(provider models.ProviderID) []models.NormalizedAsset {
	n := between(0, 3)
	out := make([]models.NormalizedAsset, 0, n)
	for i := 0; i < n; i++ {
		cityName, uf := city()
		registry := fmt.Sprintf("%d CRI %s/%s", between(1, 18), cityName, uf)
		matricula := fmt.Sprintf("%d", between(1000, 250000))
		restricted := rand.Intn(4) == 0
		// a single residential property may be protected as bem de familia
		seizable := !(n == 1 && rand.Intn(2) == 0)
		value := money(150000, 3500000)
		out = append(out, models.NormalizedAsset{
			Category:       models.AssetImovel,
			Description:    fmt.Sprintf("Imóvel matrícula %s - %s", matricula, registry),
			Identifier:     registry + " " + matricula,
			EstimatedValue: value,
			HasRestriction: restricted,
			IsSeizable:     seizable,
			SourceProvider: provider,
			RawPayload:     models.MustJSON(map[string]interface{}{"matricula": matricula, "cartorio": registry}),
		})
	}
	return out
}

func ruralProperties(provider models.ProviderID) []models.NormalizedAsset {
	n := between(0, 2)
	out := make([]models.NormalizedAsset, 0, n)
	for i := 0; i < n; i++ {
		_, uf := city()
		hectares := decimal.New(int64(between(1000, 500000)), -2)
		code := fmt.Sprintf("%08x-%04x-%04x", rand.Uint32(), rand.Intn(0x10000), rand.Intn(0x10000))
		value := hectares.Mul(decimal.NewFromInt(int64(between(8000, 35000)))).Round(2)
		out = append(out, models.NormalizedAsset{
			Category:       models.AssetImovelRural,
			Description:    fmt.Sprintf("Parcela SIGEF %s ha - %s", hectares.StringFixed(2), uf),
			Identifier:     code,
			EstimatedValue: value,
			HasRestriction: rand.Intn(5) == 0,
			IsSeizable:     true,
			SourceProvider: provider,
			RawPayload:     models.MustJSON(map[string]interface{}{"codigo_parcela": code, "area_ha": hectares.StringFixed(2), "uf": uf}),
		})
	}
	return out
}

// landUse reports land cover for the target's rural areas. Percentages across
// classes sum to 100.
func landUse(provider models.ProviderID) (map[string]interface{}, []models.NormalizedAsset) {
	n := between(0, 2)
	assets := make([]models.NormalizedAsset, 0, n)
	areas := make([]interface{}, 0, n)

	for i := 0; i < n; i++ {
		code := fmt.Sprintf("CAR-%s-%d", pickUF(), between(1000000, 9999999))
		hectares := decimal.New(int64(between(5000, 300000)), -2)
		shares := splitShares(len(landUses))
		cover := make(map[string]string, len(landUses))
		for j, use := range landUses {
			cover[use] = shares[j].StringFixed(2)
		}
		deforestation := rand.Intn(6) == 0
		description := fmt.Sprintf("Área rural %s ha - uso predominante %s", hectares.StringFixed(2), landUses[0])
		if deforestation {
			description += " - alerta de desmatamento"
		}

		areas = append(areas, map[string]interface{}{"car": code, "area_ha": hectares.StringFixed(2), "cobertura": cover})
		assets = append(assets, models.NormalizedAsset{
			Category:       models.AssetAreaRural,
			Description:    description,
			Identifier:     code,
			EstimatedValue: hectares.Mul(decimal.NewFromInt(int64(between(6000, 25000)))).Round(2),
			HasRestriction: deforestation,
			IsSeizable:     !deforestation,
			SourceProvider: provider,
			RawPayload:     models.MustJSON(map[string]interface{}{"car": code, "cobertura": cover}),
		})
	}

	return map[string]interface{}{"areas": areas, "total": n}, assets
}

func pickUF() string {
	_, uf := city()
	return uf
}

// SharesTotal sums share percentages; used to check generated companies
func SharesTotal(links []models.NormalizedCorporateLink) decimal.Decimal {
	total := decimal.Zero
	for _, l := range links {
		total = total.Add(l.SharePercent)
	}
	return total
}

// IsFullOwnership reports whether the shares add up to exactly 100%
func IsFullOwnership(links []models.NormalizedCorporateLink) bool {
	return SharesTotal(links).Equal(hundred)
}
