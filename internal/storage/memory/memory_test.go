package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/storage"
)

func TestInvestigationLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()

	inv := &models.Investigation{TargetDocument: "11222333000181", TargetType: models.TargetPJ, Status: models.InvestigationPending}
	require.NoError(t, s.CreateInvestigation(ctx, inv))
	require.NotEqual(t, uuid.Nil, inv.ID)

	got, err := s.GetInvestigation(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, "11222333000181", got.TargetDocument)

	got.Status = models.InvestigationCompleted
	require.NoError(t, s.UpdateInvestigation(ctx, got))

	again, err := s.GetInvestigation(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvestigationCompleted, again.Status)

	_, err = s.GetInvestigation(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, s.UpdateInvestigation(ctx, &models.Investigation{ID: uuid.New()}), storage.ErrNotFound)
}

func TestInsertAssetsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	invID := uuid.New()

	assets := []models.NormalizedAsset{
		{InvestigationID: invID, Category: models.AssetVeiculo, Identifier: "ABC1D23", SourceProvider: models.ProviderDetran, EstimatedValue: decimal.NewFromInt(50000)},
		{InvestigationID: invID, Category: models.AssetVeiculo, Identifier: "XYZ9K87", SourceProvider: models.ProviderDetran, EstimatedValue: decimal.NewFromInt(30000)},
	}

	n, err := s.InsertAssets(ctx, assets)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.InsertAssets(ctx, assets)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	// same record in another investigation is not a duplicate
	other := assets[0]
	other.InvestigationID = uuid.New()
	n, err = s.InsertAssets(ctx, []models.NormalizedAsset{other})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f, err := s.Findings(ctx, invID)
	require.NoError(t, err)
	assert.Len(t, f.Assets, 2)
	assert.Empty(t, f.Debts)
	assert.NotNil(t, f.Lawsuits)
}

func TestTotalsExcludeNegotiatedDebts(t *testing.T) {
	ctx := context.Background()
	s := New()
	invID := uuid.New()

	_, err := s.InsertAssets(ctx, []models.NormalizedAsset{
		{InvestigationID: invID, Category: models.AssetImovel, Identifier: "M-1", SourceProvider: models.ProviderONRImoveis, EstimatedValue: decimal.NewFromInt(400000)},
	})
	require.NoError(t, err)
	_, err = s.InsertDebts(ctx, []models.NormalizedDebt{
		{InvestigationID: invID, Creditor: "Banco A", Value: decimal.NewFromInt(1000), Status: models.DebtAtiva, SourceProvider: models.ProviderSerasa},
		{InvestigationID: invID, Creditor: "Banco B", Value: decimal.NewFromInt(500), Status: models.DebtNegociada, SourceProvider: models.ProviderSerasa},
		{InvestigationID: invID, Creditor: "Cartorio", Value: decimal.NewFromInt(250), Status: models.DebtProtestada, SourceProvider: models.ProviderCenprot},
	})
	require.NoError(t, err)
	require.NoError(t, s.CreateExecution(ctx, &models.QueryExecution{InvestigationID: invID, Cost: decimal.RequireFromString("2.50")}))
	require.NoError(t, s.CreateExecution(ctx, &models.QueryExecution{InvestigationID: invID, Cost: decimal.RequireFromString("0.50")}))

	totals, err := s.Totals(ctx, invID)
	require.NoError(t, err)
	assert.Equal(t, "400000.00", totals.Assets.StringFixed(2))
	assert.Equal(t, "1250.00", totals.Debts.StringFixed(2))
	assert.Equal(t, "3.00", totals.Cost.StringFixed(2))
}

func TestProviderConfigDefaultsToUnconfigured(t *testing.T) {
	s := New()
	cfg, err := s.GetProviderConfig(context.Background(), models.ProviderSerasa)
	require.NoError(t, err)
	assert.Equal(t, models.ProviderSerasa, cfg.ProviderID)
	assert.False(t, cfg.Usable())
}

func TestUpsertKeepsSpend(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.UpsertProviderConfig(ctx, &models.ProviderConfig{
		ProviderID:   models.ProviderPGFN,
		IsActive:     true,
		IsConfigured: true,
		Credentials:  models.Credentials{"token": "a"},
	}))
	_, err := s.IncrementMonthlySpend(ctx, models.ProviderPGFN, decimal.NewFromInt(7))
	require.NoError(t, err)

	require.NoError(t, s.UpsertProviderConfig(ctx, &models.ProviderConfig{
		ProviderID:    models.ProviderPGFN,
		IsActive:      true,
		IsConfigured:  true,
		MonthlyBudget: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		Credentials:   models.Credentials{"token": "b"},
	}))

	cfg, err := s.GetProviderConfig(ctx, models.ProviderPGFN)
	require.NoError(t, err)
	assert.Equal(t, "7", cfg.MonthlySpent.String())
	assert.True(t, cfg.MonthlyBudget.Valid)

	// returned configs are copies
	cfg.Credentials["token"] = "mutated"
	fresh, err := s.GetProviderConfig(ctx, models.ProviderPGFN)
	require.NoError(t, err)
	assert.Equal(t, "b", fresh.Credential("token"))
}

func TestConcurrentIncrements(t *testing.T) {
	ctx := context.Background()
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.IncrementMonthlySpend(ctx, models.ProviderSerasa, decimal.RequireFromString("0.10"))
		}()
	}
	wg.Wait()

	cfg, err := s.GetProviderConfig(ctx, models.ProviderSerasa)
	require.NoError(t, err)
	assert.Equal(t, "5.00", cfg.MonthlySpent.StringFixed(2))

	n, err := s.ResetMonthlySpend(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	cfg, err = s.GetProviderConfig(ctx, models.ProviderSerasa)
	require.NoError(t, err)
	assert.True(t, cfg.MonthlySpent.IsZero())
}

func TestComplianceLogs(t *testing.T) {
	ctx := context.Background()
	s := New()
	invID := uuid.New()

	require.NoError(t, s.SaveComplianceLog(ctx, &models.ComplianceLog{InvestigationID: invID, Provider: models.ProviderDatajud}))
	require.NoError(t, s.SaveComplianceLog(ctx, &models.ComplianceLog{InvestigationID: uuid.New(), Provider: models.ProviderDatajud}))

	logs, err := s.ListComplianceLogs(ctx, invID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.NotEqual(t, uuid.Nil, logs[0].ID)
}
