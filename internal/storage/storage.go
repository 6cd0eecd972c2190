// Package storage defines the persistence the engine needs. The memory
// implementation backs tests and database-less runs; the postgres package
// implements it with gorm.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nexconsult/investigacao-api/internal/models"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// InvestigationStore persists investigations
type InvestigationStore interface {
	CreateInvestigation(ctx context.Context, inv *models.Investigation) error
	GetInvestigation(ctx context.Context, id uuid.UUID) (*models.Investigation, error)
	UpdateInvestigation(ctx context.Context, inv *models.Investigation) error
	ListInvestigations(ctx context.Context, limit, offset int) ([]models.Investigation, error)
}

// ExecutionStore persists query executions
type ExecutionStore interface {
	CreateExecution(ctx context.Context, exec *models.QueryExecution) error
	UpdateExecution(ctx context.Context, exec *models.QueryExecution) error
	ListExecutions(ctx context.Context, investigationID uuid.UUID) ([]models.QueryExecution, error)
}

// FindingStore persists normalized records. Inserts skip rows whose
// (investigation, dedup key) already exists and report how many were new.
type FindingStore interface {
	InsertAssets(ctx context.Context, records []models.NormalizedAsset) (int, error)
	InsertDebts(ctx context.Context, records []models.NormalizedDebt) (int, error)
	InsertLawsuits(ctx context.Context, records []models.NormalizedLawsuit) (int, error)
	InsertCorporateLinks(ctx context.Context, records []models.NormalizedCorporateLink) (int, error)

	Findings(ctx context.Context, investigationID uuid.UUID) (*Findings, error)
	Totals(ctx context.Context, investigationID uuid.UUID) (Totals, error)
}

// ProviderConfigStore persists provider configuration and monthly spend
type ProviderConfigStore interface {
	// GetProviderConfig returns an unconfigured, inactive config when the
	// provider has no row yet
	GetProviderConfig(ctx context.Context, id models.ProviderID) (*models.ProviderConfig, error)
	ListProviderConfigs(ctx context.Context) ([]models.ProviderConfig, error)
	UpsertProviderConfig(ctx context.Context, cfg *models.ProviderConfig) error
	// IncrementMonthlySpend adds amount atomically and returns the new state
	IncrementMonthlySpend(ctx context.Context, id models.ProviderID, amount decimal.Decimal) (*models.ProviderConfig, error)
	ResetMonthlySpend(ctx context.Context) (int64, error)
}

// ComplianceStore persists the audit trail
type ComplianceStore interface {
	SaveComplianceLog(ctx context.Context, entry *models.ComplianceLog) error
	ListComplianceLogs(ctx context.Context, investigationID uuid.UUID) ([]models.ComplianceLog, error)
}

// Store is the full persistence surface
type Store interface {
	InvestigationStore
	ExecutionStore
	FindingStore
	ProviderConfigStore
	ComplianceStore

	Ping(ctx context.Context) error
	Close() error
}

// Findings groups every normalized record of an investigation
type Findings struct {
	Assets         []models.NormalizedAsset         `json:"assets"`
	Debts          []models.NormalizedDebt          `json:"debts"`
	Lawsuits       []models.NormalizedLawsuit       `json:"lawsuits"`
	CorporateLinks []models.NormalizedCorporateLink `json:"corporate_links"`
}

// Totals are the aggregates recomputed after every scan or targeted query
type Totals struct {
	Assets decimal.Decimal `json:"total_assets"`
	Debts  decimal.Decimal `json:"total_debts"`
	Cost   decimal.Decimal `json:"total_cost"`
}

// CountsDebt reports whether a debt status is included in the debt total.
// Negotiated debts are excluded; they are being paid down under agreement.
func CountsDebt(status string) bool {
	return status != models.DebtNegociada
}

// UnconfiguredProvider is the config reported for providers with no row
func UnconfiguredProvider(id models.ProviderID) *models.ProviderConfig {
	return &models.ProviderConfig{ProviderID: id}
}
