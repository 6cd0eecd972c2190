package adapters

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/nexconsult/investigacao-api/internal/models"
)

var (
	highClaim   = decimal.NewFromInt(300000)
	mediumClaim = decimal.NewFromInt(50000)

	freezeMarkers = []string{"BLOQUEIO", "PENHORA", "INDISPONIBILIDADE", "ARRESTO", "SISBAJUD"}
)

func lawsuitRelevance(claim decimal.Decimal) string {
	switch {
	case claim.GreaterThan(highClaim):
		return models.RelevanceAlta
	case claim.GreaterThan(mediumClaim):
		return models.RelevanceMedia
	default:
		return models.RelevanceBaixa
	}
}

func poleRole(pole string) string {
	switch strings.ToUpper(strings.TrimSpace(pole)) {
	case "ATIVO", "AUTOR", "REQUERENTE", "EXEQUENTE", "RECLAMANTE":
		return models.RoleAutor
	default:
		return models.RoleReu
	}
}

func mentionsFreeze(texts ...string) bool {
	for _, t := range texts {
		upper := strings.ToUpper(t)
		for _, marker := range freezeMarkers {
			if strings.Contains(upper, marker) {
				return true
			}
		}
	}
	return false
}

// Datajud queries the CNJ public court-records API (Elasticsearch based)
type Datajud struct{ base }

// NewDatajud creates the CNJ DataJud adapter
func NewDatajud(opts Options) *Datajud {
	return &Datajud{newBase(opts, models.ProviderDatajud, "CNJ - DataJud",
		models.CategoryJudicial, "https://api-publica.datajud.cnj.jus.br",
		models.QueryProcesso)}
}

type datajudHit struct {
	Source struct {
		Number string `json:"numeroProcesso"`
		Court  string `json:"tribunal"`
		Class  struct {
			Name string `json:"nome"`
		} `json:"classe"`
		Subjects []struct {
			Name string `json:"nome"`
		} `json:"assuntos"`
		ClaimValue decimal.Decimal `json:"valorCausa"`
		Parties    []struct {
			Document string `json:"documento"`
			Pole     string `json:"polo"`
		} `json:"partes"`
		Movements []struct {
			Name string `json:"nome"`
		} `json:"movimentos"`
	} `json:"_source"`
}

// ExecuteReal implements providers.Source. The tribunal alias comes from the
// "tribunal" parameter and defaults to the national index.
func (p *Datajud) ExecuteReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (*models.ProviderResult, error) {
	if query.QueryType != models.QueryProcesso {
		return nil, p.unsupported(query)
	}

	alias := strings.ToLower(query.Param("tribunal"))
	if alias == "" {
		alias = "cnj"
	}
	search := map[string]interface{}{
		"size": 100,
		"query": map[string]interface{}{
			"match": map[string]interface{}{"partes.documento": query.TargetDocument},
		},
	}

	var resp struct {
		Hits struct {
			Hits []datajudHit `json:"hits"`
		} `json:"hits"`
	}
	body, err := p.prepare(cfg).PostJSON(ctx, p.endpoint(cfg, "/api_publica_"+alias+"/_search", nil),
		HeaderKey("Authorization", "APIKey "+cfg.Credential("api_key")), search, &resp)
	if errors.Is(err, ErrNotFound) {
		return empty(body), nil
	}
	if err != nil {
		return nil, err
	}

	res := result(body)
	for _, hit := range resp.Hits.Hits {
		src := hit.Source
		role := models.RoleReu
		for _, party := range src.Parties {
			if party.Document == query.TargetDocument {
				role = poleRole(party.Pole)
				break
			}
		}
		subject := src.Class.Name
		if len(src.Subjects) > 0 {
			subject = src.Subjects[0].Name
		}
		movements := make([]string, 0, len(src.Movements))
		for _, m := range src.Movements {
			movements = append(movements, m.Name)
		}

		res.Lawsuits = append(res.Lawsuits, models.NormalizedLawsuit{
			CaseNumber:     src.Number,
			Court:          src.Court,
			Role:           role,
			Subject:        subject,
			ClaimValue:     src.ClaimValue,
			Relevance:      lawsuitRelevance(src.ClaimValue),
			HasAssetFreeze: mentionsFreeze(movements...),
			RawPayload:     models.MustJSON(hit),
		})
	}
	return res, nil
}

// Escavador queries the Escavador lawsuit and people API
type Escavador struct{ base }

// NewEscavador creates the Escavador adapter
func NewEscavador(opts Options) *Escavador {
	return &Escavador{newBase(opts, models.ProviderEscavador, "Escavador",
		models.CategoryJudicial, "https://api.escavador.com/api/v2",
		models.QueryProcesso, models.QueryVinculosSocietarios)}
}

type escavadorLawsuit struct {
	Number     string          `json:"numero_cnj"`
	Court      string          `json:"tribunal_sigla"`
	Subject    string          `json:"assunto_principal"`
	ClaimValue decimal.Decimal `json:"valor_causa"`
	Pole       string          `json:"polo_envolvido"`
	LastUpdate string          `json:"ultima_movimentacao"`
}

type escavadorCompany struct {
	CNPJ   string          `json:"cnpj"`
	Name   string          `json:"razao_social"`
	Role   string          `json:"cargo"`
	Share  decimal.Decimal `json:"participacao"`
	Status string          `json:"situacao"`
}

// ExecuteReal implements providers.Source
func (p *Escavador) ExecuteReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (*models.ProviderResult, error) {
	client := p.prepare(cfg)
	auth := Bearer(cfg.Credential("token"))

	switch query.QueryType {
	case models.QueryProcesso:
		var resp struct {
			Items []escavadorLawsuit `json:"items"`
		}
		params := url.Values{"cpf_cnpj": {query.TargetDocument}}
		body, err := client.GetJSON(ctx, p.endpoint(cfg, "/envolvido/processos", params), auth, &resp)
		if errors.Is(err, ErrNotFound) {
			return empty(body), nil
		}
		if err != nil {
			return nil, err
		}
		res := result(body)
		for _, item := range resp.Items {
			res.Lawsuits = append(res.Lawsuits, models.NormalizedLawsuit{
				CaseNumber:     item.Number,
				Court:          item.Court,
				Role:           poleRole(item.Pole),
				Subject:        item.Subject,
				ClaimValue:     item.ClaimValue,
				Relevance:      lawsuitRelevance(item.ClaimValue),
				HasAssetFreeze: mentionsFreeze(item.LastUpdate),
				RawPayload:     models.MustJSON(item),
			})
		}
		return res, nil

	case models.QueryVinculosSocietarios:
		var resp struct {
			Items []escavadorCompany `json:"items"`
		}
		body, err := client.GetJSON(ctx, p.endpoint(cfg, "/pessoas/"+query.TargetDocument+"/empresas", nil), auth, &resp)
		if errors.Is(err, ErrNotFound) {
			return empty(body), nil
		}
		if err != nil {
			return nil, err
		}
		res := result(body)
		for _, c := range resp.Items {
			link := models.NormalizedCorporateLink{
				CompanyDocument: c.CNPJ,
				CompanyName:     c.Name,
				PartnerDocument: query.TargetDocument,
				Role:            c.Role,
				SharePercent:    c.Share,
				RawPayload:      models.MustJSON(c),
			}
			if s := strings.ToUpper(c.Status); s != "" && s != "ATIVA" {
				link.HasIrregularity = true
				link.IrregularityNote = "SITUACAO " + s
			}
			res.CorporateLinks = append(res.CorporateLinks, link)
		}
		return res, nil
	}

	return nil, p.unsupported(query)
}

// Jusbrasil scrapes the Jusbrasil lawsuit search page. There is no JSON API
// for this product, so results are parsed from HTML.
type Jusbrasil struct{ base }

// NewJusbrasil creates the Jusbrasil adapter
func NewJusbrasil(opts Options) *Jusbrasil {
	return &Jusbrasil{newBase(opts, models.ProviderJusbrasil, "Jusbrasil",
		models.CategoryJudicial, "https://www.jusbrasil.com.br",
		models.QueryProcesso)}
}

// ExecuteReal implements providers.Source
func (p *Jusbrasil) ExecuteReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (*models.ProviderResult, error) {
	if query.QueryType != models.QueryProcesso {
		return nil, p.unsupported(query)
	}

	params := url.Values{"q": {query.TargetDocument}}
	doc, _, err := p.prepare(cfg).GetHTML(ctx, p.endpoint(cfg, "/consulta-processual/busca", params),
		HeaderKey("X-Api-Key", cfg.Credential("api_key")))
	if errors.Is(err, ErrNotFound) {
		return empty(nil), nil
	}
	if err != nil {
		return nil, err
	}

	lawsuits := ParseJusbrasilLawsuits(doc)
	res := &models.ProviderResult{
		Success:     true,
		Lawsuits:    lawsuits,
		Data:        map[string]interface{}{"total": len(lawsuits)},
		RawResponse: models.MustJSON(lawsuits),
	}
	res.EnsureCollections()
	return res, nil
}

// ParseJusbrasilLawsuits extracts lawsuit cards from a search result page
func ParseJusbrasilLawsuits(doc *goquery.Document) []models.NormalizedLawsuit {
	var out []models.NormalizedLawsuit

	doc.Find("article.lawsuit-card").Each(func(_ int, card *goquery.Selection) {
		number := strings.TrimSpace(card.Find(".lawsuit-number").Text())
		if number == "" {
			return
		}
		claim := parseMoney(card.Find(".lawsuit-value").Text())
		court := strings.TrimSpace(card.Find(".lawsuit-court").Text())
		subject := strings.TrimSpace(card.Find(".lawsuit-subject").Text())
		role := poleRole(card.Find(".lawsuit-role").AttrOr("data-pole", ""))

		var events []string
		card.Find(".lawsuit-events li").Each(func(_ int, li *goquery.Selection) {
			events = append(events, li.Text())
		})

		out = append(out, models.NormalizedLawsuit{
			CaseNumber:     number,
			Court:          court,
			Role:           role,
			Subject:        subject,
			ClaimValue:     claim,
			Relevance:      lawsuitRelevance(claim),
			HasAssetFreeze: mentionsFreeze(events...),
			RawPayload: models.MustJSON(map[string]interface{}{
				"numero": number, "tribunal": court, "assunto": subject, "valor": claim.StringFixed(2),
			}),
		})
	})

	return out
}
