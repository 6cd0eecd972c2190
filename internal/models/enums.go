package models

import "fmt"

// ProviderID identifies an external data provider. Values are stable and
// shared between the planner, the registry and persistence.
type ProviderID string

const (
	ProviderReceitaFederal ProviderID = "RECEITA_FEDERAL"
	ProviderSerproCPF      ProviderID = "SERPRO_CPF"
	ProviderDatajud        ProviderID = "DATAJUD"
	ProviderEscavador      ProviderID = "ESCAVADOR"
	ProviderJusbrasil      ProviderID = "JUSBRASIL"
	ProviderSerasa         ProviderID = "SERASA"
	ProviderBoaVista       ProviderID = "BOA_VISTA"
	ProviderCenprot        ProviderID = "CENPROT"
	ProviderPGFN           ProviderID = "PGFN"
	ProviderDetran         ProviderID = "DETRAN"
	ProviderONRImoveis     ProviderID = "ONR_IMOVEIS"
	ProviderIncraSigef     ProviderID = "INCRA_SIGEF"
	ProviderMapBiomas      ProviderID = "MAPBIOMAS"
)

// ProviderCategory groups providers by the kind of source they query
type ProviderCategory string

const (
	CategoryGoverno    ProviderCategory = "GOVERNO"
	CategoryJudicial   ProviderCategory = "JUDICIAL"
	CategoryCredito    ProviderCategory = "CREDITO"
	CategoryPatrimonio ProviderCategory = "PATRIMONIO"
	CategorySatelite   ProviderCategory = "SATELITE"
)

// QueryType identifies a kind of lookup a provider can answer
type QueryType string

const (
	QueryCPF                 QueryType = "CONSULTA_CPF"
	QueryCNPJ                QueryType = "CONSULTA_CNPJ"
	QueryQuadroSocietario    QueryType = "QUADRO_SOCIETARIO"
	QueryVinculosSocietarios QueryType = "VINCULOS_SOCIETARIOS"
	QueryProcesso            QueryType = "CONSULTA_PROCESSO"
	QueryScoreCredito        QueryType = "SCORE_CREDITO"
	QueryDividas             QueryType = "CONSULTA_DIVIDAS"
	QueryProtestos           QueryType = "PROTESTOS"
	QueryDividaAtiva         QueryType = "DIVIDA_ATIVA"
	QueryVeiculos            QueryType = "VEICULOS"
	QueryImoveis             QueryType = "IMOVEIS"
	QueryImoveisRurais       QueryType = "IMOVEIS_RURAIS"
	QueryUsoSolo             QueryType = "USO_SOLO"
)

// AllQueryTypes lists every query type in a stable order
var AllQueryTypes = []QueryType{
	QueryCPF, QueryCNPJ, QueryQuadroSocietario, QueryVinculosSocietarios,
	QueryProcesso, QueryScoreCredito, QueryDividas, QueryProtestos,
	QueryDividaAtiva, QueryVeiculos, QueryImoveis, QueryImoveisRurais, QueryUsoSolo,
}

// IsMultiSource reports whether the planner may assign the query type to
// more than one provider. Court records are spread across tribunals, so
// lawsuits are cross-referenced between sources.
func (q QueryType) IsMultiSource() bool {
	return q == QueryProcesso
}

// AppliesTo reports whether the query type makes sense for the target type.
// Person-identity lookups never run against companies and vice versa.
func (q QueryType) AppliesTo(t TargetType) bool {
	switch q {
	case QueryCPF, QueryVinculosSocietarios:
		return t == TargetPF
	case QueryCNPJ, QueryQuadroSocietario:
		return t == TargetPJ
	default:
		return true
	}
}

// Valid reports whether q is a known query type
func (q QueryType) Valid() bool {
	for _, known := range AllQueryTypes {
		if q == known {
			return true
		}
	}
	return false
}

// TargetType distinguishes natural persons (CPF) from companies (CNPJ)
type TargetType string

const (
	TargetPF TargetType = "PF"
	TargetPJ TargetType = "PJ"
)

// ParseTargetType converts a string into a TargetType
func ParseTargetType(s string) (TargetType, error) {
	switch TargetType(s) {
	case TargetPF, TargetPJ:
		return TargetType(s), nil
	default:
		return "", fmt.Errorf("invalid target type %q", s)
	}
}

// DepthTier is the thoroughness level of an investigation
type DepthTier string

const (
	DepthBasica        DepthTier = "BASICA"
	DepthIntermediaria DepthTier = "INTERMEDIARIA"
	DepthAvancada      DepthTier = "AVANCADA"
	DepthCompleta      DepthTier = "COMPLETA"
)

// ParseDepthTier converts a string into a DepthTier
func ParseDepthTier(s string) (DepthTier, error) {
	switch DepthTier(s) {
	case DepthBasica, DepthIntermediaria, DepthAvancada, DepthCompleta:
		return DepthTier(s), nil
	default:
		return "", fmt.Errorf("invalid depth tier %q", s)
	}
}

// AlertSeverity is the severity of a budget alert
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "WARNING"
	SeverityCritical AlertSeverity = "CRITICAL"
)
