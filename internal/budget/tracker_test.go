package budget

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/storage/memory"
)

type gaugeRecorder struct {
	mu    sync.Mutex
	spend map[models.ProviderID]float64
}

func (g *gaugeRecorder) SetSpend(provider models.ProviderID, spent float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.spend == nil {
		g.spend = make(map[models.ProviderID]float64)
	}
	g.spend[provider] = spent
}

func budgeted(t *testing.T, store *memory.Store, id models.ProviderID, budget int64, active bool) {
	t.Helper()
	require.NoError(t, store.UpsertProviderConfig(context.Background(), &models.ProviderConfig{
		ProviderID:    id,
		IsActive:      active,
		IsConfigured:  true,
		MonthlyBudget: decimal.NewNullDecimal(decimal.NewFromInt(budget)),
	}))
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateConfigs() { c.calls++ }

func newTracker(store Store) (*Tracker, *gaugeRecorder, *test.Hook) {
	logger, hook := test.NewNullLogger()
	gauges := &gaugeRecorder{}
	return NewTracker(store, gauges, logger), gauges, hook
}

func TestTrackCostIgnoresNonPositive(t *testing.T) {
	store := memory.New()
	tracker, gauges, _ := newTracker(store)

	alert, err := tracker.TrackCost(context.Background(), models.ProviderSerasa, decimal.Zero)
	require.NoError(t, err)
	assert.Nil(t, alert)

	alert, err = tracker.TrackCost(context.Background(), models.ProviderSerasa, decimal.NewFromInt(-3))
	require.NoError(t, err)
	assert.Nil(t, alert)

	configs, err := store.ListProviderConfigs(context.Background())
	require.NoError(t, err)
	assert.Empty(t, configs)
	assert.Empty(t, gauges.spend)
}

func TestTrackCostWarningAtEightyPercent(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	budgeted(t, store, models.ProviderSerasa, 100, true)
	tracker, gauges, hook := newTracker(store)

	alert, err := tracker.TrackCost(ctx, models.ProviderSerasa, decimal.NewFromInt(79))
	require.NoError(t, err)
	assert.Nil(t, alert)

	alert, err = tracker.TrackCost(ctx, models.ProviderSerasa, decimal.NewFromInt(1))
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.SeverityWarning, alert.Severity)
	assert.Equal(t, "80.00", alert.PercentUsed.StringFixed(2))
	assert.Equal(t, 80.0, gauges.spend[models.ProviderSerasa])

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)
}

func TestTrackCostCriticalWhenExhausted(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	budgeted(t, store, models.ProviderBoaVista, 10, true)
	tracker, _, hook := newTracker(store)

	alert, err := tracker.TrackCost(ctx, models.ProviderBoaVista, decimal.NewFromInt(12))
	require.NoError(t, err)
	require.NotNil(t, alert)
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	assert.Contains(t, alert.Message, "exhausted")
	assert.Equal(t, logrus.ErrorLevel, hook.LastEntry().Level)

	cfg, err := store.GetProviderConfig(ctx, models.ProviderBoaVista)
	require.NoError(t, err)
	assert.True(t, cfg.BudgetExhausted())
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		budget   decimal.NullDecimal
		spent    string
		severity models.AlertSeverity
	}{
		{"no budget", decimal.NullDecimal{}, "1000", ""},
		{"zero budget", decimal.NewNullDecimal(decimal.Zero), "1", ""},
		{"below warning", decimal.NewNullDecimal(decimal.NewFromInt(100)), "79.99", ""},
		{"warning", decimal.NewNullDecimal(decimal.NewFromInt(100)), "80", models.SeverityWarning},
		{"critical", decimal.NewNullDecimal(decimal.NewFromInt(100)), "100", models.SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alert := Evaluate(&models.ProviderConfig{
				ProviderID:    models.ProviderPGFN,
				MonthlyBudget: tt.budget,
				MonthlySpent:  decimal.RequireFromString(tt.spent),
			})
			if tt.severity == "" {
				assert.Nil(t, alert)
				return
			}
			require.NotNil(t, alert)
			assert.Equal(t, tt.severity, alert.Severity)
		})
	}
	assert.Nil(t, Evaluate(nil))
}

func TestConcurrentTrackCost(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	tracker, _, _ := newTracker(store)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := tracker.TrackCost(ctx, models.ProviderDatajud, decimal.RequireFromString("0.25"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cfg, err := store.GetProviderConfig(ctx, models.ProviderDatajud)
	require.NoError(t, err)
	assert.Equal(t, "10.00", cfg.MonthlySpent.StringFixed(2))
}

func TestAlertsSkipInactiveProviders(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	budgeted(t, store, models.ProviderSerasa, 10, true)
	budgeted(t, store, models.ProviderCenprot, 10, false)
	tracker, _, _ := newTracker(store)

	_, err := tracker.TrackCost(ctx, models.ProviderSerasa, decimal.NewFromInt(9))
	require.NoError(t, err)
	_, err = tracker.TrackCost(ctx, models.ProviderCenprot, decimal.NewFromInt(10))
	require.NoError(t, err)

	alerts, err := tracker.Alerts(ctx)
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.ProviderSerasa, alerts[0].Provider)

	forCenprot, err := tracker.AlertsFor(ctx, models.ProviderCenprot)
	require.NoError(t, err)
	require.Len(t, forCenprot, 1)
	assert.Equal(t, models.SeverityCritical, forCenprot[0].Severity)
}

func TestSpendAndReset(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	budgeted(t, store, models.ProviderSerasa, 200, true)
	tracker, gauges, _ := newTracker(store)

	_, err := tracker.TrackCost(ctx, models.ProviderSerasa, decimal.NewFromInt(50))
	require.NoError(t, err)
	_, err = tracker.TrackCost(ctx, models.ProviderPGFN, decimal.NewFromInt(5))
	require.NoError(t, err)

	spend, err := tracker.Spend(ctx)
	require.NoError(t, err)
	require.Len(t, spend, 2)
	assert.Equal(t, "55", Total(spend).String())

	for _, s := range spend {
		switch s.Provider {
		case models.ProviderSerasa:
			require.True(t, s.PercentUsed.Valid)
			assert.Equal(t, "25.00", s.PercentUsed.Decimal.StringFixed(2))
		case models.ProviderPGFN:
			assert.False(t, s.PercentUsed.Valid)
		}
	}

	n, err := tracker.ResetMonthly(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, 0.0, gauges.spend[models.ProviderSerasa])

	spend, err = tracker.Spend(ctx)
	require.NoError(t, err)
	assert.True(t, Total(spend).IsZero())
}

func TestResetMonthlyInvalidatesCachedConfigs(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	budgeted(t, store, models.ProviderSerasa, 10, true)
	tracker, _, _ := newTracker(store)

	inv := &countingInvalidator{}
	tracker.SetInvalidator(inv)

	_, err := tracker.TrackCost(ctx, models.ProviderSerasa, decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Zero(t, inv.calls)

	_, err = tracker.ResetMonthly(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, inv.calls)
}

func TestResetMonthlyFailureSkipsInvalidation(t *testing.T) {
	tracker, _, _ := newTracker(failingResetStore{memory.New()})
	inv := &countingInvalidator{}
	tracker.SetInvalidator(inv)

	_, err := tracker.ResetMonthly(context.Background())
	require.Error(t, err)
	assert.Zero(t, inv.calls)
}

type failingResetStore struct{ *memory.Store }

func (failingResetStore) ResetMonthlySpend(context.Context) (int64, error) {
	return 0, errors.New("db down")
}
