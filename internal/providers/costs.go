package providers

import (
	"github.com/shopspring/decimal"

	"github.com/nexconsult/investigacao-api/internal/models"
)

// defaultCosts is charged per successful real query when the provider has no
// configured per-query cost. Values are in BRL and follow the public price
// tables of the bureaus; free government sources cost nothing.
var defaultCosts = map[models.QueryType]decimal.Decimal{
	models.QueryCPF:                 decimal.RequireFromString("0.66"),
	models.QueryCNPJ:                decimal.Zero,
	models.QueryQuadroSocietario:    decimal.Zero,
	models.QueryVinculosSocietarios: decimal.RequireFromString("1.50"),
	models.QueryProcesso:            decimal.RequireFromString("0.50"),
	models.QueryScoreCredito:        decimal.RequireFromString("4.90"),
	models.QueryDividas:             decimal.RequireFromString("3.20"),
	models.QueryProtestos:           decimal.RequireFromString("2.00"),
	models.QueryDividaAtiva:         decimal.Zero,
	models.QueryVeiculos:            decimal.RequireFromString("2.50"),
	models.QueryImoveis:             decimal.RequireFromString("8.00"),
	models.QueryImoveisRurais:       decimal.RequireFromString("1.00"),
	models.QueryUsoSolo:             decimal.Zero,
}

// DefaultCost returns the fallback price for a query type
func DefaultCost(queryType models.QueryType) decimal.Decimal {
	if cost, ok := defaultCosts[queryType]; ok {
		return cost
	}
	return decimal.Zero
}

// QueryCost is the amount charged for one successful real query
func QueryCost(cfg *models.ProviderConfig, queryType models.QueryType) decimal.Decimal {
	if cfg != nil && cfg.CostPerQuery.Valid {
		return cfg.CostPerQuery.Decimal
	}
	return DefaultCost(queryType)
}
