package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nexconsult/investigacao-api/internal/models"
)

// finishedRetention is how long a finished scan stays in the live map
const finishedRetention = time.Hour

type progressEntry struct {
	total      int
	completed  int
	failed     int
	status     models.ProgressStatus
	startedAt  time.Time
	finishedAt time.Time
}

type progressTracker struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*progressEntry
	now     func() time.Time
}

func newProgressTracker() *progressTracker {
	return &progressTracker{
		entries: make(map[uuid.UUID]*progressEntry),
		now:     time.Now,
	}
}

// start registers a scan; it reports false when one is already running
func (t *progressTracker) start(id uuid.UUID, total int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	for key, e := range t.entries {
		if e.status != models.ProgressRunning && now.Sub(e.finishedAt) > finishedRetention {
			delete(t.entries, key)
		}
	}
	if e, ok := t.entries[id]; ok && e.status == models.ProgressRunning {
		return false
	}
	t.entries[id] = &progressEntry{total: total, status: models.ProgressRunning, startedAt: now}
	return true
}

func (t *progressTracker) record(id uuid.UUID, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, found := t.entries[id]
	if !found {
		return
	}
	if ok {
		e.completed++
	} else {
		e.failed++
	}
}

func (t *progressTracker) finish(id uuid.UUID, status models.ProgressStatus) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.entries[id]; ok {
		e.status = status
		e.finishedAt = t.now()
	}
}

func (t *progressTracker) running(id uuid.UUID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	return ok && e.status == models.ProgressRunning
}

func (t *progressTracker) get(id uuid.UUID) (models.InvestigationProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return models.InvestigationProgress{}, false
	}
	p := models.InvestigationProgress{
		InvestigationID:  id,
		TotalQueries:     e.total,
		CompletedQueries: e.completed,
		FailedQueries:    e.failed,
		Status:           e.status,
		StartedAt:        e.startedAt,
	}
	if e.status == models.ProgressRunning {
		p.EstimatedCompletionMs = estimate(p, t.now().Sub(e.startedAt))
	}
	return p, true
}

// estimate extrapolates the remaining time from the average per resolved query
func estimate(p models.InvestigationProgress, elapsed time.Duration) *int64 {
	resolved := p.Resolved()
	if resolved == 0 || resolved >= p.TotalQueries {
		return nil
	}
	perQuery := elapsed / time.Duration(resolved)
	remaining := (perQuery * time.Duration(p.TotalQueries-resolved)).Milliseconds()
	return &remaining
}

// GetProgress returns the live progress of a running or recently finished
// scan, or derives it from the persisted executions
func (o *Orchestrator) GetProgress(ctx context.Context, investigationID uuid.UUID) (*models.InvestigationProgress, error) {
	if p, ok := o.progress.get(investigationID); ok {
		return &p, nil
	}

	inv, err := o.loadInvestigation(ctx, investigationID)
	if err != nil {
		return nil, err
	}
	execs, err := o.store.ListExecutions(ctx, inv.ID)
	if err != nil {
		return nil, err
	}

	p := &models.InvestigationProgress{
		InvestigationID: inv.ID,
		TotalQueries:    len(execs),
		StartedAt:       inv.CreatedAt,
	}
	if inv.StartedAt != nil {
		p.StartedAt = *inv.StartedAt
	}
	for _, exec := range execs {
		switch exec.Status {
		case models.ExecutionError:
			p.FailedQueries++
		case models.ExecutionPending:
		default:
			p.CompletedQueries++
		}
	}

	switch inv.Status {
	case models.InvestigationPending, models.InvestigationInProgress:
		// a scan interrupted by a restart is reported as still running
		p.Status = models.ProgressRunning
	default:
		p.Status = models.TerminalStatus(p.TotalQueries, p.FailedQueries)
	}
	return p, nil
}
