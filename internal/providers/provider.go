// Package providers defines the contract every external data source satisfies
// and the runtime that layers configuration, rate limiting, retries, cost
// tracking and mock fallback over it.
package providers

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nexconsult/investigacao-api/internal/models"
)

// Source is implemented by each integration. It only knows how to make the
// real call and how to synthesize a structurally identical mock.
type Source interface {
	ID() models.ProviderID
	Name() string
	Category() models.ProviderCategory
	QueryTypes() []models.QueryType

	// ExecuteReal performs one attempt against the provider. cfg is never nil.
	ExecuteReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (*models.ProviderResult, error)

	// GenerateMock must not perform I/O
	GenerateMock(query models.ProviderQuery) *models.ProviderResult
}

// Provider is the contract consumed by the registry and the orchestrator
type Provider interface {
	ID() models.ProviderID
	Name() string
	Category() models.ProviderCategory
	QueryTypes() []models.QueryType
	Supports(queryType models.QueryType) bool

	// Execute is total: it always returns a result and never panics
	Execute(ctx context.Context, query models.ProviderQuery) *models.ProviderResult

	IsConfigured(ctx context.Context) (bool, error)
	EstimateCost(ctx context.Context, queryType models.QueryType) decimal.Decimal
	RateLimitStatus(ctx context.Context) models.RateLimitInfo
	InvalidateConfig()
}

// ConfigLoader reads provider configuration from persistence
type ConfigLoader interface {
	GetProviderConfig(ctx context.Context, id models.ProviderID) (*models.ProviderConfig, error)
}

// UsageCounter records real calls and reports the trailing-minute and
// since-midnight counts
type UsageCounter interface {
	Record(ctx context.Context, provider models.ProviderID, at time.Time) error
	Counts(ctx context.Context, provider models.ProviderID, now time.Time) (minute int64, day int64, err error)
}

// ResultCache stores successful real results
type ResultCache interface {
	Get(ctx context.Context, provider models.ProviderID, query models.ProviderQuery) (*models.ProviderResult, bool)
	Put(ctx context.Context, provider models.ProviderID, query models.ProviderQuery, result *models.ProviderResult)
}

// SpendTracker atomically adds to a provider's monthly spend and reports a
// budget alert when a threshold is crossed
type SpendTracker interface {
	TrackCost(ctx context.Context, provider models.ProviderID, amount decimal.Decimal) (*models.BudgetAlert, error)
}

// Observer receives one event per executed query
type Observer interface {
	ObserveQuery(provider models.ProviderID, queryType models.QueryType, outcome Outcome, elapsed time.Duration)
}

// Outcome labels how a query was answered
type Outcome string

const (
	OutcomeReal          Outcome = "real"
	OutcomeCached        Outcome = "cached"
	OutcomeNotConfigured Outcome = "not_configured"
	OutcomeRateLimited   Outcome = "rate_limited"
	OutcomeOverBudget    Outcome = "over_budget"
	OutcomeFallback      Outcome = "fallback"
	OutcomeUnsupported   Outcome = "unsupported"
	OutcomePanic         Outcome = "panic"
)

// Info builds the listing entry for a provider
func Info(ctx context.Context, p Provider) models.ProviderInfo {
	configured, err := p.IsConfigured(ctx)
	if err != nil {
		configured = false
	}
	return models.ProviderInfo{
		ID:         p.ID(),
		Name:       p.Name(),
		Category:   p.Category(),
		QueryTypes: p.QueryTypes(),
		Configured: configured,
	}
}
