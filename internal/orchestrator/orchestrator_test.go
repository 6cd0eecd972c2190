package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexconsult/investigacao-api/internal/logger"
	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/planner"
	"github.com/nexconsult/investigacao-api/internal/providers"
	"github.com/nexconsult/investigacao-api/internal/providers/adapters"
	"github.com/nexconsult/investigacao-api/internal/registry"
	"github.com/nexconsult/investigacao-api/internal/storage"
	"github.com/nexconsult/investigacao-api/internal/storage/memory"
	"github.com/nexconsult/investigacao-api/internal/worker"
)

const (
	targetCNPJ = "11222333000181"
	ghost      = models.ProviderID("GHOST")
	flakyID    = models.ProviderID("FLAKY")
)

// flakySource mocks a judicial provider whose mock generator can be broken
// to produce ERROR executions
type flakySource struct {
	broken   atomic.Bool
	realErr  error
	realRuns atomic.Int32
}

func (f *flakySource) ID() models.ProviderID             { return flakyID }
func (f *flakySource) Name() string                      { return "Flaky" }
func (f *flakySource) Category() models.ProviderCategory { return models.CategoryJudicial }
func (f *flakySource) QueryTypes() []models.QueryType {
	return []models.QueryType{models.QueryProcesso}
}

func (f *flakySource) ExecuteReal(context.Context, *models.ProviderConfig, models.ProviderQuery) (*models.ProviderResult, error) {
	f.realRuns.Add(1)
	if f.realErr != nil {
		return nil, f.realErr
	}
	return &models.ProviderResult{Success: true}, nil
}

func (f *flakySource) GenerateMock(query models.ProviderQuery) *models.ProviderResult {
	if f.broken.Load() {
		panic("mock generator broken")
	}
	return &models.ProviderResult{
		Success:   true,
		QueryType: query.QueryType,
		Lawsuits: []models.NormalizedLawsuit{{
			CaseNumber: "1000123-45.2023.8.26.0100",
			Role:       models.RoleReu,
			ClaimValue: decimal.NewFromInt(15000),
		}},
	}
}

type stubAnalyzer struct {
	err   error
	calls atomic.Int32
}

func (s *stubAnalyzer) Analyze(_ context.Context, inv *models.Investigation, findings *storage.Findings) (*models.AnalysisResult, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return &models.AnalysisResult{
		RiskScore:       42,
		Summary:         "risco moderado",
		Recommendations: []string{"verificar imoveis"},
	}, nil
}

type fullQueue struct{}

func (fullQueue) Submit(string, worker.TaskFunc) error { return worker.ErrQueueFull }

type fixture struct {
	store    *memory.Store
	registry *registry.Registry
	pool     *worker.Pool
	flaky    *flakySource
	log      *logrus.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	log := logger.Discard()
	flaky := &flakySource{}

	sources := append(adapters.All(adapters.Options{}), flaky)
	provs := providers.Wrap(sources, providers.Options{
		Configs: store,
		Logger:  log,
		Retry: providers.RetryPolicy{
			MaxAttempts: 3,
			BaseDelay:   time.Millisecond,
			Sleep:       func(context.Context, time.Duration) error { return nil },
		},
	})
	reg, err := registry.New(provs, log)
	require.NoError(t, err)

	pool := worker.NewPool(2, 100, log, nil)
	pool.Start()
	t.Cleanup(func() { _ = pool.Stop(time.Second) })

	return &fixture{store: store, registry: reg, pool: pool, flaky: flaky, log: log}
}

func (f *fixture) orchestrator(t *testing.T, depths planner.DepthProviderMap, extra planner.Catalogue, analyzer Analyzer, queue Queue) *Orchestrator {
	t.Helper()
	return f.orchestratorOn(t, f.store, nil, depths, extra, analyzer, queue)
}

// orchestratorOn builds an orchestrator over a wrapped store
func (f *fixture) orchestratorOn(t *testing.T, store storage.Store, observer Observer, depths planner.DepthProviderMap, extra planner.Catalogue, analyzer Analyzer, queue Queue) *Orchestrator {
	t.Helper()
	catalogue := planner.Catalogue(f.registry.Catalogue())
	for id, types := range extra {
		catalogue[id] = types
	}
	p, err := planner.New(depths, catalogue)
	require.NoError(t, err)
	if queue == nil {
		queue = f.pool
	}
	return New(store, f.registry, p, queue, analyzer, observer, f.log, Options{})
}

func (f *fixture) investigation(t *testing.T, depth models.DepthTier) *models.Investigation {
	t.Helper()
	inv := &models.Investigation{
		TargetName:     "Empresa Teste Ltda",
		TargetDocument: targetCNPJ,
		TargetType:     models.TargetPJ,
		Depth:          depth,
		Status:         models.InvestigationPending,
		AnalysisStatus: models.AnalysisNotStarted,
		UserID:         "analista-1",
		LegalBasis:     "art. 7, IX LGPD",
	}
	require.NoError(t, f.store.CreateInvestigation(context.Background(), inv))
	return inv
}

func (f *fixture) drain(t *testing.T) {
	t.Helper()
	require.NoError(t, f.pool.Stop(time.Second))
}

func customTier(entries ...planner.ProviderPriority) planner.DepthProviderMap {
	return planner.DepthProviderMap{
		models.DepthBasica: planner.TierPlan{
			Providers:  entries,
			QueryTypes: []models.QueryType{models.QueryCNPJ, models.QueryProcesso},
		},
	}
}

func TestRunScanAllMockIsCompleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	analyzer := &stubAnalyzer{}
	o := f.orchestrator(t, planner.DefaultDepthMap(), nil, analyzer, nil)
	inv := f.investigation(t, models.DepthBasica)

	res, err := o.RunScan(ctx, inv.ID, "")
	require.NoError(t, err)
	require.Len(t, res.Plan, 4)
	assert.Equal(t, models.InvestigationCompleted, res.Investigation.Status)
	assert.Equal(t, models.ProgressCompleted, res.Progress.Status)
	assert.Equal(t, 4, res.Progress.CompletedQueries)
	assert.Zero(t, res.Progress.FailedQueries)

	execs, err := f.store.ListExecutions(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, execs, 4)
	for _, exec := range execs {
		assert.Equal(t, models.ExecutionMock, exec.Status)
		assert.True(t, exec.IsMock)
		assert.True(t, exec.Cost.IsZero())
		assert.NotNil(t, exec.FinishedAt)
	}

	findings, err := f.store.Findings(ctx, inv.ID)
	require.NoError(t, err)
	require.NotEmpty(t, findings.CorporateLinks)
	for _, link := range findings.CorporateLinks {
		assert.Equal(t, inv.ID, link.InvestigationID)
		assert.NotEqual(t, uuid.Nil, link.QueryExecutionID)
	}

	f.drain(t)

	logs, err := f.store.ListComplianceLogs(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, logs, 4)
	for _, entry := range logs {
		assert.Equal(t, "**.222.333/****-**", entry.TargetDocument)
		assert.Equal(t, "analista-1", entry.UserID)
	}

	stored, err := f.store.GetInvestigation(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisDone, stored.AnalysisStatus)
	require.NotNil(t, stored.RiskScore)
	assert.Equal(t, 42, *stored.RiskScore)
	assert.Equal(t, models.StringList{"verificar imoveis"}, stored.Recommendations)
	assert.NotNil(t, stored.CompletedAt)
}

func TestRunScanUnregisteredProviderIsPartial(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.orchestrator(t,
		customTier(
			planner.ProviderPriority{Provider: ghost, Priority: 1},
			planner.ProviderPriority{Provider: models.ProviderReceitaFederal, Priority: 2},
		),
		planner.Catalogue{ghost: {models.QueryProcesso}},
		nil, nil,
	)
	inv := f.investigation(t, models.DepthBasica)

	res, err := o.RunScan(ctx, inv.ID, models.DepthBasica)
	require.NoError(t, err)
	require.Len(t, res.Plan, 2)
	assert.Equal(t, models.InvestigationPartial, res.Investigation.Status)
	assert.Equal(t, 1, res.Progress.FailedQueries)
	assert.Equal(t, 1, res.Progress.CompletedQueries)
	assert.Equal(t, models.AnalysisNotStarted, res.Investigation.AnalysisStatus)

	execs, err := f.store.ListExecutions(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, execs, 2)
	var unresolved models.QueryExecution
	for _, exec := range execs {
		if exec.Provider == ghost {
			unresolved = exec
		}
	}
	assert.Equal(t, models.ExecutionError, unresolved.Status)
	assert.Equal(t, models.QueryProcesso, unresolved.QueryType)
	assert.Contains(t, unresolved.ErrorMessage, "provider not found")
	assert.Equal(t, 1, unresolved.Attempt)
	assert.NotNil(t, unresolved.FinishedAt)

	// derived progress agrees with the live counters
	restarted := f.orchestrator(t, planner.DefaultDepthMap(), nil, nil, nil)
	derived, err := restarted.GetProgress(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, derived.TotalQueries)
	assert.Equal(t, 1, derived.FailedQueries)
	assert.Equal(t, models.ProgressPartial, derived.Status)

	summary, err := o.RetryFailedQueries(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Retried)
	assert.Equal(t, 1, summary.StillFailed)
	assert.Zero(t, summary.Recovered)
	assert.Equal(t, models.InvestigationPartial, summary.Status)

	execs, err = f.store.ListExecutions(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, execs, 2)
	for _, exec := range execs {
		if exec.Provider == ghost {
			assert.Equal(t, 2, exec.Attempt)
			assert.Equal(t, models.ExecutionError, exec.Status)
		}
	}
}

func TestRunScanAllUnresolvableIsFailed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	analyzer := &stubAnalyzer{}
	depths := planner.DepthProviderMap{
		models.DepthBasica: planner.TierPlan{
			Providers:  []planner.ProviderPriority{{Provider: ghost, Priority: 1}},
			QueryTypes: []models.QueryType{models.QueryProcesso},
		},
	}
	o := f.orchestrator(t, depths, planner.Catalogue{ghost: {models.QueryProcesso}}, analyzer, nil)
	inv := f.investigation(t, models.DepthBasica)

	res, err := o.RunScan(ctx, inv.ID, models.DepthBasica)
	require.NoError(t, err)
	assert.Equal(t, models.InvestigationFailed, res.Investigation.Status)

	execs, err := f.store.ListExecutions(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, models.ExecutionError, execs[0].Status)

	f.drain(t)
	assert.Zero(t, analyzer.calls.Load())
}

// cancellingStore cancels the caller's context on every write and rejects
// writes made with a cancelled context
type cancellingStore struct {
	storage.Store
	cancel context.CancelFunc
}

func (s *cancellingStore) CreateExecution(ctx context.Context, exec *models.QueryExecution) error {
	s.cancel()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.CreateExecution(ctx, exec)
}

func (s *cancellingStore) UpdateExecution(ctx context.Context, exec *models.QueryExecution) error {
	s.cancel()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.UpdateExecution(ctx, exec)
}

func (s *cancellingStore) UpdateInvestigation(ctx context.Context, inv *models.Investigation) error {
	s.cancel()
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.UpdateInvestigation(ctx, inv)
}

func TestRunScanSurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := &cancellingStore{Store: f.store, cancel: cancel}
	o := f.orchestratorOn(t, store, nil, planner.DefaultDepthMap(), nil, nil, nil)
	inv := f.investigation(t, models.DepthBasica)

	res, err := o.RunScan(ctx, inv.ID, "")
	require.NoError(t, err)
	require.Error(t, ctx.Err())
	assert.Equal(t, models.InvestigationCompleted, res.Investigation.Status)

	bg := context.Background()
	stored, err := f.store.GetInvestigation(bg, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvestigationCompleted, stored.Status)
	assert.NotNil(t, stored.CompletedAt)

	execs, err := f.store.ListExecutions(bg, inv.ID)
	require.NoError(t, err)
	require.Len(t, execs, 4)
	for _, exec := range execs {
		assert.Equal(t, models.ExecutionMock, exec.Status)
	}

	progress, err := o.GetProgress(bg, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressCompleted, progress.Status)
}

func TestRetryFailedQueriesSurvivesCallerCancellation(t *testing.T) {
	f := newFixture(t)
	f.flaky.broken.Store(true)
	depths := customTier(planner.ProviderPriority{Provider: flakyID, Priority: 1})
	o := f.orchestrator(t, depths, nil, nil, nil)
	inv := f.investigation(t, models.DepthBasica)

	res, err := o.RunScan(context.Background(), inv.ID, models.DepthBasica)
	require.NoError(t, err)
	require.Equal(t, models.InvestigationFailed, res.Investigation.Status)

	f.flaky.broken.Store(false)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	retrier := f.orchestratorOn(t, &cancellingStore{Store: f.store, cancel: cancel}, nil, depths, nil, nil, nil)

	summary, err := retrier.RetryFailedQueries(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Recovered)
	assert.Equal(t, models.InvestigationCompleted, summary.Status)
}

// failingLinksStore rejects every corporate link insert
type failingLinksStore struct{ storage.Store }

func (failingLinksStore) InsertCorporateLinks(context.Context, []models.NormalizedCorporateLink) (int, error) {
	return 0, errors.New("corporate_links: disk full")
}

type persistObserver struct {
	mu     sync.Mutex
	failed []string
}

func (o *persistObserver) ScanStarted()                                           {}
func (o *persistObserver) ScanFinished(models.InvestigationStatus, time.Duration) {}
func (o *persistObserver) PersistFailed(kind string) {
	o.mu.Lock()
	o.failed = append(o.failed, kind)
	o.mu.Unlock()
}

func TestRunScanFindingsPersistIndependently(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	observer := &persistObserver{}
	depths := planner.DepthProviderMap{
		models.DepthBasica: planner.TierPlan{
			Providers: []planner.ProviderPriority{
				{Provider: models.ProviderReceitaFederal, Priority: 1},
				{Provider: flakyID, Priority: 2},
			},
			QueryTypes: []models.QueryType{models.QueryQuadroSocietario, models.QueryProcesso},
		},
	}
	o := f.orchestratorOn(t, failingLinksStore{f.store}, observer, depths, nil, nil, nil)
	inv := f.investigation(t, models.DepthBasica)

	res, err := o.RunScan(ctx, inv.ID, models.DepthBasica)
	require.NoError(t, err)
	require.Len(t, res.Plan, 2)
	assert.Equal(t, models.InvestigationCompleted, res.Investigation.Status)

	execs, err := f.store.ListExecutions(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, execs, 2)
	for _, exec := range execs {
		assert.Equal(t, models.ExecutionMock, exec.Status, exec.Provider)
	}

	findings, err := f.store.Findings(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, findings.Lawsuits, 1)
	assert.Empty(t, findings.CorporateLinks)
	assert.Equal(t, []string{"corporate_links"}, observer.failed)
}

func TestRunScanRealFailuresFallBackToMock(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.flaky.realErr = errors.New("connection reset by peer")
	require.NoError(t, f.store.UpsertProviderConfig(ctx, &models.ProviderConfig{
		ProviderID:   flakyID,
		IsActive:     true,
		IsConfigured: true,
	}))
	depths := planner.DepthProviderMap{
		models.DepthBasica: planner.TierPlan{
			Providers:  []planner.ProviderPriority{{Provider: flakyID, Priority: 1}},
			QueryTypes: []models.QueryType{models.QueryProcesso},
		},
	}
	o := f.orchestrator(t, depths, nil, nil, nil)
	inv := f.investigation(t, models.DepthBasica)

	res, err := o.RunScan(ctx, inv.ID, models.DepthBasica)
	require.NoError(t, err)
	assert.Equal(t, models.InvestigationCompleted, res.Investigation.Status)
	assert.Equal(t, int32(3), f.flaky.realRuns.Load())

	execs, err := f.store.ListExecutions(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, models.ExecutionMock, execs[0].Status)
	assert.Contains(t, execs[0].ErrorMessage, "connection reset by peer")
}

func TestRunScanErrors(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t, planner.DefaultDepthMap(), nil, nil, nil)

	_, err := o.RunScan(context.Background(), uuid.New(), models.DepthBasica)
	assert.ErrorIs(t, err, ErrInvestigationNotFound)

	inv := f.investigation(t, models.DepthBasica)
	_, err = o.RunScan(context.Background(), inv.ID, models.DepthTier("PROFUNDA"))
	assert.ErrorIs(t, err, planner.ErrUnknownDepth)

	stored, err := f.store.GetInvestigation(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvestigationPending, stored.Status)
}

func TestRetryFailedQueriesUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.flaky.broken.Store(true)
	o := f.orchestrator(t,
		customTier(
			planner.ProviderPriority{Provider: models.ProviderReceitaFederal, Priority: 1},
			planner.ProviderPriority{Provider: flakyID, Priority: 2},
		),
		nil, nil, nil,
	)
	inv := f.investigation(t, models.DepthBasica)

	res, err := o.RunScan(ctx, inv.ID, models.DepthBasica)
	require.NoError(t, err)
	assert.Equal(t, models.InvestigationPartial, res.Investigation.Status)

	f.flaky.broken.Store(false)
	summary, err := o.RetryFailedQueries(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Retried)
	assert.Equal(t, 1, summary.Recovered)
	assert.Zero(t, summary.StillFailed)
	assert.Equal(t, models.InvestigationCompleted, summary.Status)

	execs, err := f.store.ListExecutions(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, execs, 2)
	for _, exec := range execs {
		if exec.Provider == flakyID {
			assert.Equal(t, 2, exec.Attempt)
			assert.Equal(t, models.ExecutionMock, exec.Status)
		}
	}

	again, err := o.RetryFailedQueries(ctx, inv.ID)
	require.NoError(t, err)
	assert.Zero(t, again.Retried)

	// re-running the same query does not duplicate findings
	_, err = o.ExecuteSingleQuery(ctx, inv.ID, flakyID, models.QueryProcesso, nil)
	require.NoError(t, err)
	findings, err := f.store.Findings(ctx, inv.ID)
	require.NoError(t, err)
	assert.Len(t, findings.Lawsuits, 1)
}

func TestExecuteSingleQuery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.orchestrator(t, planner.DefaultDepthMap(), nil, nil, nil)
	inv := f.investigation(t, models.DepthBasica)

	res, err := o.ExecuteSingleQuery(ctx, inv.ID, models.ProviderPGFN, models.QueryDividaAtiva, nil)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.IsMock)

	findings, err := f.store.Findings(ctx, inv.ID)
	require.NoError(t, err)
	stored, err := f.store.GetInvestigation(ctx, inv.ID)
	require.NoError(t, err)

	expected := decimal.Zero
	for _, d := range findings.Debts {
		if storage.CountsDebt(d.Status) {
			expected = expected.Add(d.Value)
		}
	}
	assert.True(t, expected.Equal(stored.TotalDebts))

	_, err = o.ExecuteSingleQuery(ctx, inv.ID, models.ProviderID("NOPE"), models.QueryProcesso, nil)
	assert.ErrorIs(t, err, registry.ErrProviderNotFound)

	_, err = o.ExecuteSingleQuery(ctx, inv.ID, models.ProviderReceitaFederal, models.QueryProcesso, nil)
	assert.ErrorIs(t, err, ErrUnsupportedQuery)

	_, err = o.ExecuteSingleQuery(ctx, inv.ID, models.ProviderSerproCPF, models.QueryCPF, nil)
	assert.ErrorIs(t, err, ErrUnsupportedQuery)

	_, err = o.ExecuteSingleQuery(ctx, uuid.New(), models.ProviderPGFN, models.QueryDividaAtiva, nil)
	assert.ErrorIs(t, err, ErrInvestigationNotFound)
}

func TestAnalysisFailureLeavesPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.orchestrator(t, planner.DefaultDepthMap(), nil, &stubAnalyzer{err: errors.New("model offline")}, nil)
	inv := f.investigation(t, models.DepthBasica)

	res, err := o.RunScan(ctx, inv.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.InvestigationCompleted, res.Investigation.Status)

	f.drain(t)
	stored, err := f.store.GetInvestigation(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisPending, stored.AnalysisStatus)
	assert.Equal(t, models.InvestigationCompleted, stored.Status)
}

func TestFullQueueLeavesAnalysisPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.orchestrator(t, planner.DefaultDepthMap(), nil, &stubAnalyzer{}, fullQueue{})
	inv := f.investigation(t, models.DepthBasica)

	res, err := o.RunScan(ctx, inv.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.InvestigationCompleted, res.Investigation.Status)
	assert.Equal(t, models.AnalysisPending, res.Investigation.AnalysisStatus)

	assert.ErrorIs(t, o.AsyncScan(ctx, inv.ID, ""), worker.ErrQueueFull)
}

func TestGetProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.orchestrator(t, planner.DefaultDepthMap(), nil, nil, nil)
	inv := f.investigation(t, models.DepthBasica)

	_, err := o.GetProgress(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrInvestigationNotFound)

	_, err = o.RunScan(ctx, inv.ID, "")
	require.NoError(t, err)

	live, err := o.GetProgress(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, live.TotalQueries)
	assert.Equal(t, models.ProgressCompleted, live.Status)
	assert.Nil(t, live.EstimatedCompletionMs)

	// a fresh orchestrator has no live state and derives it from executions
	restarted := f.orchestrator(t, planner.DefaultDepthMap(), nil, nil, nil)
	derived, err := restarted.GetProgress(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, derived.TotalQueries)
	assert.Equal(t, 4, derived.CompletedQueries)
	assert.Equal(t, models.ProgressCompleted, derived.Status)
}

func TestAsyncScan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	o := f.orchestrator(t, planner.DefaultDepthMap(), nil, nil, nil)
	inv := f.investigation(t, models.DepthIntermediaria)

	assert.ErrorIs(t, o.AsyncScan(ctx, uuid.New(), ""), ErrInvestigationNotFound)
	assert.ErrorIs(t, o.AsyncScan(ctx, inv.ID, "RASA"), planner.ErrUnknownDepth)

	require.NoError(t, o.AsyncScan(ctx, inv.ID, ""))
	f.drain(t)

	stored, err := f.store.GetInvestigation(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, models.InvestigationCompleted, stored.Status)
	assert.Equal(t, models.DepthIntermediaria, stored.Depth)
}

func TestRunBatchesCountsPanics(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t, planner.DefaultDepthMap(), nil, nil, nil)

	var ran atomic.Int32
	failed := o.runBatches(12, func(i int) bool {
		ran.Add(1)
		switch {
		case i == 3:
			panic("boom")
		case i%5 == 0:
			return false
		}
		return true
	})
	assert.Equal(t, int32(12), ran.Load())
	assert.Equal(t, 4, failed)
}

func TestRunBatchesBoundsConcurrencyAndOrdersBatches(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(t, planner.DefaultDepthMap(), nil, nil, nil)
	require.Equal(t, DefaultBatchSize, o.opts.BatchSize)

	const n = 12
	batches := (n + DefaultBatchSize - 1) / DefaultBatchSize

	// each task waits until its whole batch is running, so the peak is
	// exactly the batch size rather than whatever the scheduler allows
	started := make([]int, batches)
	ready := make([]chan struct{}, batches)
	for b := range ready {
		ready[b] = make(chan struct{})
	}

	type event struct {
		batch int
		start bool
	}
	var (
		mu       sync.Mutex
		inFlight int
		peak     int
		events   []event
	)

	failed := o.runBatches(n, func(i int) bool {
		b := i / DefaultBatchSize
		size := min(DefaultBatchSize, n-b*DefaultBatchSize)

		mu.Lock()
		inFlight++
		peak = max(peak, inFlight)
		events = append(events, event{batch: b, start: true})
		started[b]++
		if started[b] == size {
			close(ready[b])
		}
		mu.Unlock()

		ok := true
		select {
		case <-ready[b]:
		case <-time.After(2 * time.Second):
			ok = false
		}

		mu.Lock()
		inFlight--
		events = append(events, event{batch: b})
		mu.Unlock()
		return ok
	})

	assert.Zero(t, failed)
	assert.Equal(t, DefaultBatchSize, peak)
	require.Len(t, events, 2*n)
	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].batch, events[i-1].batch,
			"batch %d event after batch %d", events[i].batch, events[i-1].batch)
	}
}

func TestProgressEstimate(t *testing.T) {
	p := models.InvestigationProgress{TotalQueries: 10, CompletedQueries: 4, FailedQueries: 1}
	est := estimate(p, 5*time.Second)
	require.NotNil(t, est)
	assert.Equal(t, int64(5000), *est)

	assert.Nil(t, estimate(models.InvestigationProgress{TotalQueries: 3}, time.Second))
}
