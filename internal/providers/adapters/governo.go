package adapters

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nexconsult/investigacao-api/internal/models"
)

// ReceitaFederal answers company registry and partnership lookups
type ReceitaFederal struct{ base }

// NewReceitaFederal creates the Receita Federal (CNPJ registry) adapter
func NewReceitaFederal(opts Options) *ReceitaFederal {
	return &ReceitaFederal{newBase(opts, models.ProviderReceitaFederal, "Receita Federal - CNPJ",
		models.CategoryGoverno, "https://brasilapi.com.br/api",
		models.QueryCNPJ, models.QueryQuadroSocietario, models.QueryVinculosSocietarios)}
}

type rfPartner struct {
	Name          string          `json:"nome_socio"`
	Document      string          `json:"cnpj_cpf_do_socio"`
	Qualification string          `json:"qualificacao_socio"`
	SharePercent  decimal.Decimal `json:"percentual_capital_social"`
}

type rfCompany struct {
	CNPJ     string          `json:"cnpj"`
	Name     string          `json:"razao_social"`
	Status   string          `json:"descricao_situacao_cadastral"`
	Capital  decimal.Decimal `json:"capital_social"`
	Partners []rfPartner     `json:"qsa"`
}

type rfPartnership struct {
	CNPJ          string          `json:"cnpj"`
	Name          string          `json:"razao_social"`
	Qualification string          `json:"qualificacao"`
	SharePercent  decimal.Decimal `json:"percentual_capital_social"`
	Status        string          `json:"situacao_cadastral"`
}

// ExecuteReal implements providers.Source
func (p *ReceitaFederal) ExecuteReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (*models.ProviderResult, error) {
	client := p.prepare(cfg)
	auth := Bearer(cfg.Credential("token"))

	switch query.QueryType {
	case models.QueryCNPJ, models.QueryQuadroSocietario:
		var company rfCompany
		body, err := client.GetJSON(ctx, p.endpoint(cfg, "/cnpj/v1/"+query.TargetDocument, nil), auth, &company)
		if err != nil {
			return nil, err
		}
		res := result(body)
		if query.QueryType == models.QueryQuadroSocietario {
			res.CorporateLinks = rfPartnerLinks(company)
		}
		return res, nil

	case models.QueryVinculosSocietarios:
		var resp struct {
			Companies []rfPartnership `json:"empresas"`
		}
		body, err := client.GetJSON(ctx, p.endpoint(cfg, "/socios/v1/"+query.TargetDocument, nil), auth, &resp)
		if errors.Is(err, ErrNotFound) {
			return empty(body), nil
		}
		if err != nil {
			return nil, err
		}
		res := result(body)
		for _, c := range resp.Companies {
			link := models.NormalizedCorporateLink{
				CompanyDocument: c.CNPJ,
				CompanyName:     c.Name,
				PartnerDocument: query.TargetDocument,
				Role:            c.Qualification,
				SharePercent:    c.SharePercent,
				RawPayload:      models.MustJSON(c),
			}
			if status := strings.ToUpper(c.Status); status != "" && status != "ATIVA" {
				link.HasIrregularity = true
				link.IrregularityNote = "SITUACAO CADASTRAL " + status
			}
			res.CorporateLinks = append(res.CorporateLinks, link)
		}
		return res, nil
	}

	return nil, p.unsupported(query)
}

func rfPartnerLinks(company rfCompany) []models.NormalizedCorporateLink {
	links := make([]models.NormalizedCorporateLink, 0, len(company.Partners))
	for _, partner := range company.Partners {
		links = append(links, models.NormalizedCorporateLink{
			CompanyDocument: company.CNPJ,
			CompanyName:     company.Name,
			PartnerDocument: strings.Trim(partner.Document, "*"),
			PartnerName:     partner.Name,
			Role:            partner.Qualification,
			SharePercent:    partner.SharePercent,
			RawPayload:      models.MustJSON(partner),
		})
	}
	return links
}

// SerproCPF answers CPF registry lookups
type SerproCPF struct{ base }

// NewSerproCPF creates the SERPRO Consulta CPF adapter
func NewSerproCPF(opts Options) *SerproCPF {
	return &SerproCPF{newBase(opts, models.ProviderSerproCPF, "SERPRO - Consulta CPF",
		models.CategoryGoverno, "https://gateway.apiserpro.serpro.gov.br/consulta-cpf-df/v1",
		models.QueryCPF)}
}

// ExecuteReal implements providers.Source
func (p *SerproCPF) ExecuteReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (*models.ProviderResult, error) {
	if query.QueryType != models.QueryCPF {
		return nil, p.unsupported(query)
	}

	var person struct {
		NI       string `json:"ni"`
		Name     string `json:"nome"`
		Birth    string `json:"nascimento"`
		Situacao struct {
			Code        string `json:"codigo"`
			Description string `json:"descricao"`
		} `json:"situacao"`
	}
	body, err := p.prepare(cfg).GetJSON(ctx, p.endpoint(cfg, "/cpf/"+query.TargetDocument, nil), Bearer(cfg.Credential("token")), &person)
	if err != nil {
		return nil, err
	}

	res := result(body)
	res.Data = map[string]interface{}{
		"cpf":             person.NI,
		"nome":            person.Name,
		"data_nascimento": person.Birth,
		"situacao":        person.Situacao.Description,
	}
	return res, nil
}

// PGFN answers federal tax debt (divida ativa) lookups
type PGFN struct{ base }

// NewPGFN creates the PGFN adapter
func NewPGFN(opts Options) *PGFN {
	return &PGFN{newBase(opts, models.ProviderPGFN, "PGFN - Dívida Ativa da União",
		models.CategoryGoverno, "https://api.pgfn.fazenda.gov.br/divida-ativa/v1",
		models.QueryDividaAtiva)}
}

type pgfnInscription struct {
	Number   string          `json:"numero_inscricao"`
	Revenue  string          `json:"receita_principal"`
	Value    decimal.Decimal `json:"valor_consolidado"`
	Status   string          `json:"situacao_inscricao"`
	Judicial bool            `json:"indicador_ajuizado"`
}

// ExecuteReal implements providers.Source
func (p *PGFN) ExecuteReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (*models.ProviderResult, error) {
	if query.QueryType != models.QueryDividaAtiva {
		return nil, p.unsupported(query)
	}

	var resp struct {
		Inscriptions []pgfnInscription `json:"inscricoes"`
	}
	body, err := p.prepare(cfg).GetJSON(ctx, p.endpoint(cfg, "/devedores/"+query.TargetDocument, nil),
		HeaderKey("X-Api-Key", cfg.Credential("api_key")), &resp)
	if errors.Is(err, ErrNotFound) {
		return empty(body), nil
	}
	if err != nil {
		return nil, err
	}

	res := result(body)
	for _, ins := range resp.Inscriptions {
		status := models.DebtAtiva
		if strings.Contains(strings.ToUpper(ins.Status), "PARCEL") || strings.Contains(strings.ToUpper(ins.Status), "NEGOCIA") {
			status = models.DebtNegociada
		}
		description := "Inscricao " + ins.Number + " - " + ins.Revenue
		if ins.Judicial {
			description += " (ajuizada)"
		}
		res.Debts = append(res.Debts, models.NormalizedDebt{
			Creditor:    "UNIAO - FAZENDA NACIONAL",
			Description: description,
			DebtType:    "DIVIDA_ATIVA",
			Value:       ins.Value,
			Status:      status,
			RawPayload:  models.MustJSON(ins),
		})
	}
	return res, nil
}
