package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/nexconsult/investigacao-api/internal/models"
)

type bureauDebt struct {
	Creditor string          `json:"credor"`
	Contract string          `json:"contrato"`
	Nature   string          `json:"natureza"`
	Value    decimal.Decimal `json:"valor"`
	Status   string          `json:"status"`
	Date     string          `json:"data_ocorrencia"`
}

type bureauProtest struct {
	Presenter string          `json:"apresentante"`
	Notary    string          `json:"cartorio"`
	City      string          `json:"cidade"`
	UF        string          `json:"uf"`
	Value     decimal.Decimal `json:"valor"`
	Date      string          `json:"data_protesto"`
}

func bureauDebts(items []bureauDebt) []models.NormalizedDebt {
	out := make([]models.NormalizedDebt, 0, len(items))
	for _, d := range items {
		status := models.DebtAtiva
		if strings.Contains(strings.ToUpper(d.Status), "NEGOCIAD") {
			status = models.DebtNegociada
		}
		kind := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(d.Nature), " ", "_"))
		if kind == "" {
			kind = "PENDENCIA_FINANCEIRA"
		}
		out = append(out, models.NormalizedDebt{
			Creditor:    d.Creditor,
			Description: fmt.Sprintf("%s - contrato %s (%s)", kind, d.Contract, d.Date),
			DebtType:    kind,
			Value:       d.Value,
			Status:      status,
			RawPayload:  models.MustJSON(d),
		})
	}
	return out
}

func protestDebts(items []bureauProtest) []models.NormalizedDebt {
	out := make([]models.NormalizedDebt, 0, len(items))
	for _, p := range items {
		out = append(out, models.NormalizedDebt{
			Creditor:    p.Presenter,
			Description: fmt.Sprintf("Protesto - %s %s/%s em %s", p.Notary, p.City, p.UF, p.Date),
			DebtType:    "PROTESTO",
			Value:       p.Value,
			Status:      models.DebtProtestada,
			RawPayload:  models.MustJSON(p),
		})
	}
	return out
}

// Serasa queries Serasa Experian credit reports
type Serasa struct{ base }

// NewSerasa creates the Serasa Experian adapter
func NewSerasa(opts Options) *Serasa {
	return &Serasa{newBase(opts, models.ProviderSerasa, "Serasa Experian",
		models.CategoryCredito, "https://api.serasaexperian.com.br/credit-services/v1",
		models.QueryScoreCredito, models.QueryDividas, models.QueryProtestos)}
}

// ExecuteReal implements providers.Source
func (p *Serasa) ExecuteReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (*models.ProviderResult, error) {
	client := p.prepare(cfg)
	auth := Bearer(cfg.Credential("token"))
	params := url.Values{"documento": {query.TargetDocument}}

	switch query.QueryType {
	case models.QueryScoreCredito:
		var resp struct {
			Score int    `json:"score"`
			Range string `json:"faixa_risco"`
		}
		body, err := client.GetJSON(ctx, p.endpoint(cfg, "/score", params), auth, &resp)
		if err != nil {
			return nil, err
		}
		res := result(body)
		res.Data = map[string]interface{}{"score": resp.Score, "faixa": resp.Range}
		return res, nil

	case models.QueryDividas:
		var resp struct {
			Debts []bureauDebt `json:"pendencias_financeiras"`
		}
		body, err := client.GetJSON(ctx, p.endpoint(cfg, "/pendencias", params), auth, &resp)
		if errors.Is(err, ErrNotFound) {
			return empty(body), nil
		}
		if err != nil {
			return nil, err
		}
		res := result(body)
		res.Debts = bureauDebts(resp.Debts)
		return res, nil

	case models.QueryProtestos:
		var resp struct {
			Protests []bureauProtest `json:"protestos"`
		}
		body, err := client.GetJSON(ctx, p.endpoint(cfg, "/protestos", params), auth, &resp)
		if errors.Is(err, ErrNotFound) {
			return empty(body), nil
		}
		if err != nil {
			return nil, err
		}
		res := result(body)
		res.Debts = protestDebts(resp.Protests)
		return res, nil
	}

	return nil, p.unsupported(query)
}

// BoaVista queries Boa Vista SCPC
type BoaVista struct{ base }

// NewBoaVista creates the Boa Vista SCPC adapter
func NewBoaVista(opts Options) *BoaVista {
	return &BoaVista{newBase(opts, models.ProviderBoaVista, "Boa Vista SCPC",
		models.CategoryCredito, "https://api.boavistaservicos.com.br/scpc/v2",
		models.QueryScoreCredito, models.QueryDividas)}
}

// ExecuteReal implements providers.Source
func (p *BoaVista) ExecuteReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (*models.ProviderResult, error) {
	if query.QueryType != models.QueryScoreCredito && query.QueryType != models.QueryDividas {
		return nil, p.unsupported(query)
	}

	var resp struct {
		Score int          `json:"score_positivo"`
		Debts []bureauDebt `json:"debitos"`
	}
	request := map[string]string{"documento": query.TargetDocument, "produto": string(query.QueryType)}
	body, err := p.prepare(cfg).PostJSON(ctx, p.endpoint(cfg, "/consultas", nil),
		HeaderKey("X-Api-Key", cfg.Credential("api_key")), request, &resp)
	if err != nil {
		return nil, err
	}

	res := result(body)
	if query.QueryType == models.QueryScoreCredito {
		res.Data = map[string]interface{}{"score": resp.Score}
		return res, nil
	}
	res.Debts = bureauDebts(resp.Debts)
	return res, nil
}

// Cenprot queries the national notary protest registry
type Cenprot struct{ base }

// NewCenprot creates the CENPROT adapter
func NewCenprot(opts Options) *Cenprot {
	return &Cenprot{newBase(opts, models.ProviderCenprot, "CENPROT - Central de Protestos",
		models.CategoryCredito, "https://api.cenprotnacional.org.br/v1",
		models.QueryProtestos)}
}

// ExecuteReal implements providers.Source
func (p *Cenprot) ExecuteReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (*models.ProviderResult, error) {
	if query.QueryType != models.QueryProtestos {
		return nil, p.unsupported(query)
	}

	var resp struct {
		Notaries []struct {
			Name     string          `json:"nome"`
			City     string          `json:"cidade"`
			UF       string          `json:"uf"`
			Protests []bureauProtest `json:"titulos"`
		} `json:"cartorios"`
	}
	body, err := p.prepare(cfg).GetJSON(ctx, p.endpoint(cfg, "/protestos/"+query.TargetDocument, nil),
		Bearer(cfg.Credential("token")), &resp)
	if errors.Is(err, ErrNotFound) {
		return empty(body), nil
	}
	if err != nil {
		return nil, err
	}

	res := result(body)
	for _, notary := range resp.Notaries {
		items := make([]bureauProtest, 0, len(notary.Protests))
		for _, p := range notary.Protests {
			if p.Notary == "" {
				p.Notary = notary.Name
			}
			if p.City == "" {
				p.City, p.UF = notary.City, notary.UF
			}
			items = append(items, p)
		}
		res.Debts = append(res.Debts, protestDebts(items)...)
	}
	return res, nil
}
