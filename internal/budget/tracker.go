// Package budget tracks monthly provider spend and derives threshold alerts
package budget

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/investigacao-api/internal/models"
)

var (
	warningRatio  = decimal.RequireFromString("0.8")
	criticalRatio = decimal.NewFromInt(1)
	hundred       = decimal.NewFromInt(100)
)

// Store is the persistence the tracker needs. IncrementMonthlySpend must be
// atomic so concurrent increments for one provider are never lost.
type Store interface {
	GetProviderConfig(ctx context.Context, id models.ProviderID) (*models.ProviderConfig, error)
	ListProviderConfigs(ctx context.Context) ([]models.ProviderConfig, error)
	IncrementMonthlySpend(ctx context.Context, id models.ProviderID, amount decimal.Decimal) (*models.ProviderConfig, error)
	ResetMonthlySpend(ctx context.Context) (int64, error)
}

// SpendObserver receives the spend after every change
type SpendObserver interface {
	SetSpend(provider models.ProviderID, spent float64)
}

// ConfigInvalidator drops cached provider configuration.
// registry.Registry implements it.
type ConfigInvalidator interface {
	InvalidateConfigs()
}

// Tracker implements providers.SpendTracker
type Tracker struct {
	store       Store
	observer    SpendObserver
	invalidator ConfigInvalidator
	logger      *logrus.Logger
}

// SetInvalidator registers what ResetMonthly invalidates so providers blocked
// by an exhausted budget resume immediately. Call it before the tracker is
// shared.
func (t *Tracker) SetInvalidator(inv ConfigInvalidator) {
	t.invalidator = inv
}

// NewTracker creates a tracker. observer may be nil.
func NewTracker(store Store, observer SpendObserver, logger *logrus.Logger) *Tracker {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Tracker{store: store, observer: observer, logger: logger}
}

// TrackCost adds amount to the provider's monthly spend and returns the alert
// the new total triggers, if any. Non-positive amounts are ignored.
func (t *Tracker) TrackCost(ctx context.Context, provider models.ProviderID, amount decimal.Decimal) (*models.BudgetAlert, error) {
	if !amount.IsPositive() {
		return nil, nil
	}

	cfg, err := t.store.IncrementMonthlySpend(ctx, provider, amount)
	if err != nil {
		return nil, fmt.Errorf("increment %s spend: %w", provider, err)
	}
	if t.observer != nil {
		spent, _ := cfg.MonthlySpent.Float64()
		t.observer.SetSpend(provider, spent)
	}

	alert := Evaluate(cfg)
	if alert != nil {
		t.logAlert(alert)
	}
	return alert, nil
}

func (t *Tracker) logAlert(alert *models.BudgetAlert) {
	entry := t.logger.WithFields(logrus.Fields{
		"provider":     alert.Provider,
		"percent_used": alert.PercentUsed.StringFixed(2),
		"spent":        alert.Spent.StringFixed(2),
		"budget":       alert.Budget.StringFixed(2),
	})
	if alert.Severity == models.SeverityCritical {
		entry.Error(alert.Message)
		return
	}
	entry.Warn(alert.Message)
}

// Evaluate derives the alert for a configuration. It returns nil when no
// budget is set or spend is below the warning threshold.
func Evaluate(cfg *models.ProviderConfig) *models.BudgetAlert {
	if cfg == nil || !cfg.MonthlyBudget.Valid || !cfg.MonthlyBudget.Decimal.IsPositive() {
		return nil
	}

	budget := cfg.MonthlyBudget.Decimal
	ratio := cfg.MonthlySpent.Div(budget)
	alert := &models.BudgetAlert{
		Provider:    cfg.ProviderID,
		PercentUsed: ratio.Mul(hundred).Round(2),
		Budget:      budget,
		Spent:       cfg.MonthlySpent,
	}

	switch {
	case ratio.GreaterThanOrEqual(criticalRatio):
		alert.Severity = models.SeverityCritical
		alert.Message = fmt.Sprintf("%s budget exhausted, queries will be blocked until next period", cfg.ProviderID)
	case ratio.GreaterThanOrEqual(warningRatio):
		alert.Severity = models.SeverityWarning
		alert.Message = fmt.Sprintf("%s has used %s%% of its monthly budget", cfg.ProviderID, alert.PercentUsed.StringFixed(1))
	default:
		return nil
	}
	return alert
}

// Alerts returns the current alerts across active providers
func (t *Tracker) Alerts(ctx context.Context) ([]models.BudgetAlert, error) {
	configs, err := t.store.ListProviderConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list provider configs: %w", err)
	}

	alerts := []models.BudgetAlert{}
	for i := range configs {
		if !configs[i].IsActive {
			continue
		}
		if alert := Evaluate(&configs[i]); alert != nil {
			alerts = append(alerts, *alert)
		}
	}
	return alerts, nil
}

// AlertsFor returns the current alert for one provider, if any
func (t *Tracker) AlertsFor(ctx context.Context, provider models.ProviderID) ([]models.BudgetAlert, error) {
	cfg, err := t.store.GetProviderConfig(ctx, provider)
	if err != nil {
		return nil, fmt.Errorf("load %s config: %w", provider, err)
	}
	alerts := []models.BudgetAlert{}
	if alert := Evaluate(cfg); alert != nil {
		alerts = append(alerts, *alert)
	}
	return alerts, nil
}

// ResetMonthly zeroes every provider's spend and returns how many configs
// were reset
func (t *Tracker) ResetMonthly(ctx context.Context) (int64, error) {
	n, err := t.store.ResetMonthlySpend(ctx)
	if err != nil {
		return 0, fmt.Errorf("reset monthly spend: %w", err)
	}

	if t.observer != nil {
		if configs, err := t.store.ListProviderConfigs(ctx); err == nil {
			for _, cfg := range configs {
				t.observer.SetSpend(cfg.ProviderID, 0)
			}
		}
	}
	if t.invalidator != nil {
		t.invalidator.InvalidateConfigs()
	}
	t.logger.WithField("providers", n).Info("Monthly provider spend reset")
	return n, nil
}

// Spend summarizes current spend per configured provider
func (t *Tracker) Spend(ctx context.Context) ([]models.ProviderSpend, error) {
	configs, err := t.store.ListProviderConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list provider configs: %w", err)
	}

	out := make([]models.ProviderSpend, 0, len(configs))
	for _, cfg := range configs {
		s := models.ProviderSpend{
			Provider: cfg.ProviderID,
			Spent:    cfg.MonthlySpent,
			Budget:   cfg.MonthlyBudget,
			IsActive: cfg.IsActive,
		}
		if cfg.MonthlyBudget.Valid && cfg.MonthlyBudget.Decimal.IsPositive() {
			s.PercentUsed = decimal.NewNullDecimal(cfg.MonthlySpent.Div(cfg.MonthlyBudget.Decimal).Mul(hundred).Round(2))
		}
		out = append(out, s)
	}
	return out, nil
}

// Total returns the sum of every provider's monthly spend
func Total(spend []models.ProviderSpend) decimal.Decimal {
	total := decimal.Zero
	for _, s := range spend {
		total = total.Add(s.Spent)
	}
	return total
}
