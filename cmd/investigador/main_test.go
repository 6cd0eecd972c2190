package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexconsult/investigacao-api/internal/config"
	"github.com/nexconsult/investigacao-api/internal/logger"
	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/orchestrator"
	"github.com/nexconsult/investigacao-api/internal/registry"
	"github.com/nexconsult/investigacao-api/internal/services"
)

// useTestContainer points every command at one in-memory container for the
// duration of the test
func useTestContainer(t *testing.T) *services.Container {
	t.Helper()

	cfg := &config.Config{
		Log: config.LogConfig{Level: "error", Format: "json"},
		Engine: config.EngineConfig{
			BatchSize:      5,
			QueryTimeout:   5 * time.Second,
			ConfigCacheTTL: time.Minute,
			Workers:        2,
			QueueSize:      100,
			MaxAttempts:    1,
			BaseDelay:      time.Millisecond,
		},
	}
	c, err := services.NewContainer(cfg, logger.Discard())
	require.NoError(t, err)

	previous := buildContainer
	buildContainer = func(bool) (*services.Container, error) { return c, nil }
	t.Cleanup(func() {
		buildContainer = previous
		app = nil
		_ = c.Close(2 * time.Second)
	})
	return c
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScanCommands(t *testing.T) {
	useTestContainer(t)

	out, err := execute(t, "create", "--json", "--name", "Empresa Exemplo Ltda",
		"--document", "11.222.333/0001-81", "--depth", "basica", "--legal-basis", "EXERCICIO_REGULAR_DE_DIREITOS")
	require.NoError(t, err, out)
	var inv models.Investigation
	require.NoError(t, json.Unmarshal([]byte(out), &inv))
	assert.Equal(t, models.TargetPJ, inv.TargetType)
	assert.Equal(t, "11222333000181", inv.TargetDocument)
	id := inv.ID.String()

	out, err = execute(t, "scan", id, "--json", "--depth", "")
	require.NoError(t, err, out)
	var scan orchestrator.ScanResult
	require.NoError(t, json.Unmarshal([]byte(out), &scan))
	assert.Equal(t, models.InvestigationCompleted, scan.Investigation.Status)
	assert.Equal(t, 4, scan.Progress.TotalQueries)
	assert.Equal(t, 4, scan.Progress.CompletedQueries)

	out, err = execute(t, "progress", id, "--json")
	require.NoError(t, err, out)
	var progress models.InvestigationProgress
	require.NoError(t, json.Unmarshal([]byte(out), &progress))
	assert.Equal(t, models.ProgressCompleted, progress.Status)
	assert.Equal(t, 4, progress.Resolved())

	out, err = execute(t, "retry", id, "--json=false")
	require.NoError(t, err, out)
	assert.Contains(t, out, "No failed queries to retry")

	out, err = execute(t, "progress", id, "--json=false")
	require.NoError(t, err, out)
	assert.Contains(t, out, "4/4 resolved")
}

func TestScanCommandErrors(t *testing.T) {
	useTestContainer(t)

	_, err := execute(t, "scan", "not-a-uuid", "--depth", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid investigation id")

	_, err = execute(t, "scan", "7d1f0a4e-9a44-4c5e-8f0b-4b6f3b7f2a10", "--depth", "")
	assert.ErrorIs(t, err, orchestrator.ErrInvestigationNotFound)

	_, err = execute(t, "create", "--document", "123", "--depth", "basica")
	assert.ErrorIs(t, err, orchestrator.ErrInvalidDocument)

	_, err = execute(t, "retry")
	assert.Error(t, err)
}

func TestProviderCommands(t *testing.T) {
	useTestContainer(t)

	out, err := execute(t, "providers", "--json", "--configured=false")
	require.NoError(t, err, out)
	var infos []models.ProviderInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	assert.Len(t, infos, 13)

	out, err = execute(t, "providers", "--json", "--configured")
	require.NoError(t, err, out)
	assert.JSONEq(t, "[]", out)

	out, err = execute(t, "providers", "--json=false", "--configured=false")
	require.NoError(t, err, out)
	assert.Contains(t, out, "DATAJUD")
	assert.Contains(t, out, "CONFIGURED")

	out, err = execute(t, "providers", "rate-limit", "datajud", "--json")
	require.NoError(t, err, out)
	var status models.RateLimitInfo
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.Equal(t, models.ProviderID("DATAJUD"), status.Provider)
	assert.False(t, status.IsLimited)

	_, err = execute(t, "providers", "rate-limit", "nope")
	assert.ErrorIs(t, err, registry.ErrProviderNotFound)
}

func TestBudgetCommands(t *testing.T) {
	c := useTestContainer(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	budget := decimal.NewFromInt(100)
	_, err := c.Orchestrator.ConfigureProvider(ctx, "SERASA", orchestrator.ProviderSettings{
		Credentials:   map[string]string{"api_key": "k"},
		MonthlyBudget: &budget,
		Active:        true,
	})
	require.NoError(t, err)
	alert, err := c.Budget.TrackCost(ctx, "SERASA", decimal.NewFromInt(85))
	require.NoError(t, err)
	require.NotNil(t, alert)

	out, err := execute(t, "alerts", "--json")
	require.NoError(t, err, out)
	var alerts []models.BudgetAlert
	require.NoError(t, json.Unmarshal([]byte(out), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, models.SeverityWarning, alerts[0].Severity)

	out, err = execute(t, "alerts", "serasa", "--json=false")
	require.NoError(t, err, out)
	assert.Contains(t, out, "WARNING SERASA")

	_, err = execute(t, "alerts", "nope")
	assert.ErrorIs(t, err, registry.ErrProviderNotFound)

	out, err = execute(t, "spend", "--json=false")
	require.NoError(t, err, out)
	assert.Contains(t, out, "85.00")
	assert.Contains(t, out, "Total: 85.00")

	out, err = execute(t, "reset-budgets", "--json")
	require.NoError(t, err, out)
	assert.JSONEq(t, `{"reset": 1}`, out)

	out, err = execute(t, "alerts", "--json=false")
	require.NoError(t, err, out)
	assert.Contains(t, out, "No budget alerts")
}
