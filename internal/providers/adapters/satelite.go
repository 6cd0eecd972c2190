package adapters

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/nexconsult/investigacao-api/internal/models"
)

// MapBiomas queries land cover and deforestation alerts for rural areas
// registered (CAR) under the target's document
type MapBiomas struct{ base }

// NewMapBiomas creates the MapBiomas adapter
func NewMapBiomas(opts Options) *MapBiomas {
	return &MapBiomas{newBase(opts, models.ProviderMapBiomas, "MapBiomas",
		models.CategorySatelite, "https://plataforma.alerta.mapbiomas.org/api/v2",
		models.QueryUsoSolo)}
}

type mapbiomasArea struct {
	CAR        string                     `json:"car"`
	AreaHa     decimal.Decimal            `json:"area_ha"`
	Coverage   map[string]decimal.Decimal `json:"cobertura"`
	Alerts     int                        `json:"alertas_desmatamento"`
	ValuePerHa decimal.Decimal            `json:"valor_referencia_ha"`
}

func (a mapbiomasArea) dominantUse() string {
	uses := make([]string, 0, len(a.Coverage))
	for use := range a.Coverage {
		uses = append(uses, use)
	}
	sort.Strings(uses)

	best := ""
	for _, use := range uses {
		if best == "" || a.Coverage[use].GreaterThan(a.Coverage[best]) {
			best = use
		}
	}
	return best
}

// ExecuteReal implements providers.Source
func (p *MapBiomas) ExecuteReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (*models.ProviderResult, error) {
	if query.QueryType != models.QueryUsoSolo {
		return nil, p.unsupported(query)
	}

	var resp struct {
		Areas []mapbiomasArea `json:"areas"`
	}
	params := url.Values{"documento": {query.TargetDocument}}
	body, err := p.prepare(cfg).GetJSON(ctx, p.endpoint(cfg, "/propriedades", params),
		Bearer(cfg.Credential("token")), &resp)
	if errors.Is(err, ErrNotFound) {
		return empty(body), nil
	}
	if err != nil {
		return nil, err
	}

	res := result(body)
	for _, area := range resp.Areas {
		description := fmt.Sprintf("Área rural %s ha - uso predominante %s", area.AreaHa.StringFixed(2), area.dominantUse())
		if area.Alerts > 0 {
			description += fmt.Sprintf(" - %d alerta(s) de desmatamento", area.Alerts)
		}
		res.Assets = append(res.Assets, models.NormalizedAsset{
			Category:       models.AssetAreaRural,
			Description:    description,
			Identifier:     area.CAR,
			EstimatedValue: area.AreaHa.Mul(area.ValuePerHa).Round(2),
			HasRestriction: area.Alerts > 0,
			IsSeizable:     area.Alerts == 0,
			RawPayload:     models.MustJSON(area),
		})
	}
	return res, nil
}
