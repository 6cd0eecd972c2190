package models

import "github.com/shopspring/decimal"

// CreateInvestigationRequest representa a abertura de uma investigação
// @Description Dados do alvo para abrir uma investigação patrimonial
type CreateInvestigationRequest struct {
	// Nome ou razão social do alvo
	TargetName string `json:"target_name" example:"EMPRESA EXEMPLO LTDA"`
	// CPF (11 dígitos) ou CNPJ (14 dígitos), com ou sem formatação
	TargetDocument string `json:"target_document" binding:"required" example:"11222333000181"`
	// Profundidade da investigação (BASICA, INTERMEDIARIA, AVANCADA, COMPLETA)
	Depth string `json:"depth" binding:"required" example:"BASICA"`
	// Usuário responsável
	UserID string `json:"user_id" binding:"required" example:"advogado@escritorio.com.br"`
	// Base legal que justifica a consulta (LGPD art. 7º)
	LegalBasis string `json:"legal_basis" binding:"required" example:"EXERCICIO_REGULAR_DE_DIREITOS"`
}

// ScanRequest representa o disparo de uma varredura
type ScanRequest struct {
	// Profundidade opcional; quando vazia usa a da investigação
	Depth string `json:"depth,omitempty" example:"COMPLETA"`
	// Quando true a varredura roda em background e a resposta é 202
	Async bool `json:"async" example:"false"`
}

// SingleQueryRequest representa a execução pontual de uma consulta
type SingleQueryRequest struct {
	Provider  string            `json:"provider" binding:"required" example:"DATAJUD"`
	QueryType string            `json:"query_type" binding:"required" example:"CONSULTA_PROCESSO"`
	Params    map[string]string `json:"params,omitempty"`
}

// ConfigureProviderRequest representa a configuração de um provedor
type ConfigureProviderRequest struct {
	Credentials        map[string]string `json:"credentials"`
	BaseURL            string            `json:"base_url,omitempty" example:"https://api-publica.datajud.cnj.jus.br"`
	MonthlyBudget      *decimal.Decimal  `json:"monthly_budget,omitempty" swaggertype:"number" example:"500.00"`
	CostPerQuery       *decimal.Decimal  `json:"cost_per_query,omitempty" swaggertype:"number" example:"0.35"`
	RateLimitPerMinute int               `json:"rate_limit_per_minute" example:"60"`
	RateLimitPerDay    int               `json:"rate_limit_per_day" example:"5000"`
	Active             bool              `json:"active" example:"true"`
}
