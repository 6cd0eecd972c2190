package planner

import "github.com/nexconsult/investigacao-api/internal/models"

// Default tiers are cumulative: each tier keeps every provider and query type
// of the previous one.
//
// Priorities:
//
//	10-19  government registries (authoritative, free)
//	20-29  court records (every listed source runs, lawsuits are multi-source)
//	30-39  tax debt
//	40-49  credit bureaus (SERASA wins score and debts; BOA_VISTA is the backup)
//	50-59  vehicle and real-estate registries
//	60-69  rural land and satellite sources
var (
	basicProviders = []ProviderPriority{
		{Provider: models.ProviderReceitaFederal, Priority: 10},
		{Provider: models.ProviderSerproCPF, Priority: 11},
		{Provider: models.ProviderDatajud, Priority: 20},
		{Provider: models.ProviderEscavador, Priority: 21},
	}
	basicQueryTypes = []models.QueryType{
		models.QueryCPF,
		models.QueryCNPJ,
		models.QueryQuadroSocietario,
		models.QueryProcesso,
	}

	intermediateProviders = []ProviderPriority{
		{Provider: models.ProviderJusbrasil, Priority: 22},
		{Provider: models.ProviderPGFN, Priority: 30},
		{Provider: models.ProviderSerasa, Priority: 40},
		{Provider: models.ProviderCenprot, Priority: 41},
	}
	intermediateQueryTypes = []models.QueryType{
		models.QueryVinculosSocietarios,
		models.QueryScoreCredito,
		models.QueryDividas,
		models.QueryProtestos,
		models.QueryDividaAtiva,
	}

	advancedProviders = []ProviderPriority{
		{Provider: models.ProviderBoaVista, Priority: 45},
		{Provider: models.ProviderDetran, Priority: 50},
		{Provider: models.ProviderONRImoveis, Priority: 51},
	}
	advancedQueryTypes = []models.QueryType{
		models.QueryVeiculos,
		models.QueryImoveis,
	}

	completeProviders = []ProviderPriority{
		{Provider: models.ProviderIncraSigef, Priority: 60},
		{Provider: models.ProviderMapBiomas, Priority: 61},
	}
	completeQueryTypes = []models.QueryType{
		models.QueryImoveisRurais,
		models.QueryUsoSolo,
	}
)

// DefaultDepthMap returns a fresh copy of the built-in tier configuration
func DefaultDepthMap() DepthProviderMap {
	basica := TierPlan{
		Providers:  concatProviders(basicProviders),
		QueryTypes: concatQueryTypes(basicQueryTypes),
	}
	intermediaria := TierPlan{
		Providers:  concatProviders(basica.Providers, intermediateProviders),
		QueryTypes: concatQueryTypes(basica.QueryTypes, intermediateQueryTypes),
	}
	avancada := TierPlan{
		Providers:  concatProviders(intermediaria.Providers, advancedProviders),
		QueryTypes: concatQueryTypes(intermediaria.QueryTypes, advancedQueryTypes),
	}
	completa := TierPlan{
		Providers:  concatProviders(avancada.Providers, completeProviders),
		QueryTypes: concatQueryTypes(avancada.QueryTypes, completeQueryTypes),
	}

	return DepthProviderMap{
		models.DepthBasica:        basica,
		models.DepthIntermediaria: intermediaria,
		models.DepthAvancada:      avancada,
		models.DepthCompleta:      completa,
	}
}

func concatProviders(parts ...[]ProviderPriority) []ProviderPriority {
	var out []ProviderPriority
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func concatQueryTypes(parts ...[]models.QueryType) []models.QueryType {
	var out []models.QueryType
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
