// Package orchestrator drives investigation scans: it plans the queries for a
// depth tier, executes them in fixed-size concurrent batches, persists the
// normalized findings, recomputes totals and hands off to analysis.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/planner"
	"github.com/nexconsult/investigacao-api/internal/registry"
	"github.com/nexconsult/investigacao-api/internal/storage"
	"github.com/nexconsult/investigacao-api/internal/worker"
)

const (
	DefaultBatchSize    = 5
	DefaultQueryTimeout = 30 * time.Second

	taskCompliance = "compliance"
	taskAnalysis   = "analysis"
	taskScan       = "scan"
)

var (
	ErrInvestigationNotFound = errors.New("investigation not found")
	ErrUnsupportedQuery      = errors.New("query type not supported")
	ErrScanInProgress        = errors.New("scan already in progress")
	ErrInvalidDocument       = errors.New("invalid target document")
)

// Queue runs fire-and-forget work. worker.Pool implements it.
type Queue interface {
	Submit(kind string, fn worker.TaskFunc) error
}

// Observer receives scan lifecycle events. metrics.Collector implements it.
type Observer interface {
	ScanStarted()
	ScanFinished(status models.InvestigationStatus, elapsed time.Duration)
	PersistFailed(kind string)
}

// Options tunes the scheduler
type Options struct {
	BatchSize    int
	QueryTimeout time.Duration
	// AnalysisTimeout bounds one analysis call made from the task queue
	AnalysisTimeout time.Duration
}

func (o *Options) applyDefaults() {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = DefaultQueryTimeout
	}
	if o.AnalysisTimeout <= 0 {
		o.AnalysisTimeout = 60 * time.Second
	}
}

// Orchestrator is safe for concurrent use
type Orchestrator struct {
	store    storage.Store
	registry *registry.Registry
	planner  *planner.Planner
	queue    Queue
	analyzer Analyzer
	observer Observer
	logger   *logrus.Logger
	opts     Options

	progress *progressTracker
}

// New creates an orchestrator. analyzer and observer may be nil.
func New(store storage.Store, reg *registry.Registry, p *planner.Planner, queue Queue, analyzer Analyzer, observer Observer, logger *logrus.Logger, opts Options) *Orchestrator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	opts.applyDefaults()
	return &Orchestrator{
		store:    store,
		registry: reg,
		planner:  p,
		queue:    queue,
		analyzer: analyzer,
		observer: observer,
		logger:   logger,
		opts:     opts,
		progress: newProgressTracker(),
	}
}

// ScanResult summarizes a finished scan
type ScanResult struct {
	Investigation *models.Investigation        `json:"investigation"`
	Progress      models.InvestigationProgress `json:"progress"`
	Plan          []planner.PlannedQuery       `json:"plan"`
}

func (o *Orchestrator) loadInvestigation(ctx context.Context, id uuid.UUID) (*models.Investigation, error) {
	inv, err := o.store.GetInvestigation(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrInvestigationNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load investigation %s: %w", id, err)
	}
	return inv, nil
}

// RunScan executes the plan for depth against the investigation's target.
// An empty depth uses the depth stored on the investigation. Per-query
// failures never fail the scan; they are reflected in the terminal status.
// Cancelling ctx does not stop a started scan: every query is bounded by
// QueryTimeout and the scan always stores a terminal status.
func (o *Orchestrator) RunScan(ctx context.Context, investigationID uuid.UUID, depth models.DepthTier) (*ScanResult, error) {
	ctx = context.WithoutCancel(ctx)

	inv, err := o.loadInvestigation(ctx, investigationID)
	if err != nil {
		return nil, err
	}
	if depth == "" {
		depth = inv.Depth
	}

	plan, err := o.planner.Plan(depth, inv.TargetType)
	if err != nil {
		return nil, err
	}
	if !o.progress.start(inv.ID, len(plan)) {
		return nil, fmt.Errorf("%w: %s", ErrScanInProgress, inv.ID)
	}

	start := time.Now()
	if o.observer != nil {
		o.observer.ScanStarted()
	}

	log := o.logger.WithFields(logrus.Fields{
		"investigation_id": inv.ID,
		"depth":            depth,
		"target":           inv.TargetType,
		"queries":          len(plan),
	})
	log.Info("Starting investigation scan")

	startedAt := start.UTC()
	inv.Depth = depth
	inv.Status = models.InvestigationInProgress
	inv.StartedAt = &startedAt
	inv.CompletedAt = nil
	if err := o.store.UpdateInvestigation(ctx, inv); err != nil {
		o.progress.finish(inv.ID, models.ProgressFailed)
		return nil, fmt.Errorf("mark investigation in progress: %w", err)
	}

	failed := o.runBatches(len(plan), func(i int) bool {
		return o.runPlanned(ctx, inv, plan[i])
	})

	status := models.TerminalStatus(len(plan), failed)
	if err := o.finishInvestigation(ctx, inv, status); err != nil {
		log.WithError(err).Error("Failed to persist scan outcome")
	}
	o.progress.finish(inv.ID, status)

	if o.observer != nil {
		o.observer.ScanFinished(inv.Status, time.Since(start))
	}
	log.WithFields(logrus.Fields{
		"status":   inv.Status,
		"failed":   failed,
		"duration": time.Since(start),
	}).Info("Investigation scan finished")

	if inv.Status != models.InvestigationFailed {
		o.scheduleAnalysis(ctx, inv)
	}

	progress, _ := o.progress.get(inv.ID)
	return &ScanResult{Investigation: inv, Progress: progress, Plan: plan}, nil
}

// AsyncScan validates the request and submits RunScan to the task queue
func (o *Orchestrator) AsyncScan(ctx context.Context, investigationID uuid.UUID, depth models.DepthTier) error {
	if o.queue == nil {
		return errors.New("async scans require a task queue")
	}
	inv, err := o.loadInvestigation(ctx, investigationID)
	if err != nil {
		return err
	}
	if depth == "" {
		depth = inv.Depth
	}
	if _, ok := o.planner.Tier(depth); !ok {
		return fmt.Errorf("%w: %s", planner.ErrUnknownDepth, depth)
	}
	if o.progress.running(inv.ID) {
		return fmt.Errorf("%w: %s", ErrScanInProgress, inv.ID)
	}

	return o.queue.Submit(taskScan, func(taskCtx context.Context) error {
		_, err := o.RunScan(taskCtx, investigationID, depth)
		return err
	})
}

// runBatches runs n tasks in sequential batches of BatchSize. Every task in a
// batch resolves before the next batch starts; a panicking task counts as a
// failure. It returns the number of failed tasks.
func (o *Orchestrator) runBatches(n int, task func(i int) bool) int {
	var (
		mu     sync.Mutex
		failed int
	)

	for lo := 0; lo < n; lo += o.opts.BatchSize {
		hi := lo + o.opts.BatchSize
		if hi > n {
			hi = n
		}

		var wg sync.WaitGroup
		for i := lo; i < hi; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ok := false
				defer func() {
					if r := recover(); r != nil {
						o.logger.WithField("panic", r).Error("Recovered panic in scan task")
					}
					if !ok {
						mu.Lock()
						failed++
						mu.Unlock()
					}
				}()
				ok = task(i)
			}(i)
		}
		wg.Wait()
	}
	return failed
}

// runPlanned resolves and executes one plan entry, reporting success. The
// outcome is recorded in the live progress even when the task panics.
func (o *Orchestrator) runPlanned(ctx context.Context, inv *models.Investigation, pq planner.PlannedQuery) (ok bool) {
	defer func() { o.progress.record(inv.ID, ok) }()

	provider, err := o.registry.Lookup(pq.Provider)
	if err != nil {
		o.logger.WithFields(logrus.Fields{
			"investigation_id": inv.ID,
			"provider":         pq.Provider,
			"query_type":       pq.QueryType,
		}).WithError(err).Error("Planned provider is not registered")
		o.recordUnresolved(ctx, &models.QueryExecution{
			ID:              uuid.New(),
			InvestigationID: inv.ID,
			Provider:        pq.Provider,
			QueryType:       pq.QueryType,
		}, err)
		return false
	}

	query := models.NewProviderQuery(pq.QueryType, inv.TargetDocument, inv.TargetType, nil)
	result, _ := o.executeAndPersist(ctx, inv, provider, query, nil)
	return result.Success
}

// finishInvestigation recomputes totals and stores the terminal status
func (o *Orchestrator) finishInvestigation(ctx context.Context, inv *models.Investigation, status models.ProgressStatus) error {
	if err := o.applyTotals(ctx, inv); err != nil {
		o.logger.WithField("investigation_id", inv.ID).WithError(err).Error("Failed to recompute totals")
	}
	completedAt := time.Now().UTC()
	inv.Status = models.InvestigationStatusFor(status)
	inv.CompletedAt = &completedAt
	return o.store.UpdateInvestigation(ctx, inv)
}

func (o *Orchestrator) applyTotals(ctx context.Context, inv *models.Investigation) error {
	totals, err := o.store.Totals(ctx, inv.ID)
	if err != nil {
		return err
	}
	inv.TotalAssets = totals.Assets
	inv.TotalDebts = totals.Debts
	inv.TotalCost = totals.Cost
	return nil
}
