package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/providers"
	"github.com/nexconsult/investigacao-api/internal/utils"
)

// RetrySummary reports the outcome of RetryFailedQueries
type RetrySummary struct {
	InvestigationID uuid.UUID                  `json:"investigation_id"`
	Retried         int                        `json:"retried"`
	Recovered       int                        `json:"recovered"`
	StillFailed     int                        `json:"still_failed"`
	Status          models.InvestigationStatus `json:"status"`
}

// executeAndPersist is the per-query sequence shared by scans, targeted
// queries and retries: execute, record the execution, persist findings and
// queue the compliance entry. A non-nil exec is updated in place as a new
// attempt. Persistence errors are logged and never abort the sequence.
func (o *Orchestrator) executeAndPersist(ctx context.Context, inv *models.Investigation, provider providers.Provider, query models.ProviderQuery, exec *models.QueryExecution) (*models.ProviderResult, *models.QueryExecution) {
	log := o.logger.WithFields(logrus.Fields{
		"investigation_id": inv.ID,
		"provider":         provider.ID(),
		"query_type":       query.QueryType,
	})

	startedAt := time.Now().UTC()
	qctx, cancel := context.WithTimeout(ctx, o.opts.QueryTimeout)
	result := provider.Execute(qctx, query)
	cancel()

	if exec == nil {
		exec = &models.QueryExecution{
			ID:              uuid.New(),
			InvestigationID: inv.ID,
			Provider:        provider.ID(),
			QueryType:       query.QueryType,
			Params:          models.StringMap(query.Params),
			Attempt:         1,
		}
		fillExecution(exec, result, startedAt)
		if err := o.store.CreateExecution(ctx, exec); err != nil {
			log.WithError(err).Error("Failed to persist query execution")
			o.persistFailed("execution")
		}
	} else {
		exec.Attempt++
		fillExecution(exec, result, startedAt)
		if err := o.store.UpdateExecution(ctx, exec); err != nil {
			log.WithError(err).Error("Failed to update query execution")
			o.persistFailed("execution")
		}
	}

	if result.Success {
		o.persistFindings(ctx, log, inv.ID, exec.ID, result)
	}
	o.logCompliance(inv, query, result)

	log.WithFields(logrus.Fields{
		"status":   exec.Status,
		"records":  exec.RecordCount,
		"cost":     exec.Cost.StringFixed(2),
		"duration": result.ResponseTimeMs,
	}).Debug("Query executed")
	return result, exec
}

// recordUnresolved stores an ERROR execution for a query whose provider could
// not be resolved, so derived progress and retries see it. A zero Attempt
// marks a new record.
func (o *Orchestrator) recordUnresolved(ctx context.Context, exec *models.QueryExecution, cause error) {
	now := time.Now().UTC()
	exec.Status = models.ExecutionError
	exec.ErrorMessage = cause.Error()
	exec.StartedAt = now
	exec.FinishedAt = &now

	var err error
	if exec.Attempt == 0 {
		exec.Attempt = 1
		err = o.store.CreateExecution(ctx, exec)
	} else {
		exec.Attempt++
		err = o.store.UpdateExecution(ctx, exec)
	}
	if err != nil {
		o.logger.WithFields(logrus.Fields{
			"investigation_id": exec.InvestigationID,
			"provider":         exec.Provider,
		}).WithError(err).Error("Failed to persist query execution")
		o.persistFailed("execution")
	}
}

func fillExecution(exec *models.QueryExecution, result *models.ProviderResult, startedAt time.Time) {
	finishedAt := time.Now().UTC()
	exec.Status = models.StatusForResult(result)
	exec.IsMock = result.IsMock
	exec.Cost = result.Cost
	exec.ResponseTimeMs = result.ResponseTimeMs
	exec.RecordCount = result.RecordCount()
	exec.ErrorMessage = result.ErrorMessage
	exec.RawResponse = result.RawResponse
	exec.StartedAt = startedAt
	exec.FinishedAt = &finishedAt
}

// persistFindings stores each kind independently so one failing insert does
// not drop the others
func (o *Orchestrator) persistFindings(ctx context.Context, log *logrus.Entry, investigationID, executionID uuid.UUID, result *models.ProviderResult) {
	if len(result.Assets) > 0 {
		records := make([]models.NormalizedAsset, len(result.Assets))
		for i, r := range result.Assets {
			r.InvestigationID, r.QueryExecutionID = investigationID, executionID
			records[i] = r
		}
		o.insert(log, "assets", func() (int, error) { return o.store.InsertAssets(ctx, records) })
	}
	if len(result.Debts) > 0 {
		records := make([]models.NormalizedDebt, len(result.Debts))
		for i, r := range result.Debts {
			r.InvestigationID, r.QueryExecutionID = investigationID, executionID
			records[i] = r
		}
		o.insert(log, "debts", func() (int, error) { return o.store.InsertDebts(ctx, records) })
	}
	if len(result.Lawsuits) > 0 {
		records := make([]models.NormalizedLawsuit, len(result.Lawsuits))
		for i, r := range result.Lawsuits {
			r.InvestigationID, r.QueryExecutionID = investigationID, executionID
			records[i] = r
		}
		o.insert(log, "lawsuits", func() (int, error) { return o.store.InsertLawsuits(ctx, records) })
	}
	if len(result.CorporateLinks) > 0 {
		records := make([]models.NormalizedCorporateLink, len(result.CorporateLinks))
		for i, r := range result.CorporateLinks {
			r.InvestigationID, r.QueryExecutionID = investigationID, executionID
			records[i] = r
		}
		o.insert(log, "corporate_links", func() (int, error) { return o.store.InsertCorporateLinks(ctx, records) })
	}
}

func (o *Orchestrator) insert(log *logrus.Entry, kind string, fn func() (int, error)) {
	n, err := fn()
	if err != nil {
		log.WithField("kind", kind).WithError(err).Error("Failed to persist normalized records")
		o.persistFailed(kind)
		return
	}
	log.WithFields(logrus.Fields{"kind": kind, "inserted": n}).Debug("Normalized records persisted")
}

func (o *Orchestrator) persistFailed(kind string) {
	if o.observer != nil {
		o.observer.PersistFailed(kind)
	}
}

// logCompliance queues the audit entry; it never blocks or fails the query
func (o *Orchestrator) logCompliance(inv *models.Investigation, query models.ProviderQuery, result *models.ProviderResult) {
	if o.queue == nil {
		return
	}
	entry := &models.ComplianceLog{
		InvestigationID: inv.ID,
		UserID:          inv.UserID,
		LegalBasis:      inv.LegalBasis,
		Provider:        result.Provider,
		QueryType:       query.QueryType,
		TargetDocument:  utils.MaskDocument(query.TargetDocument),
		Success:         result.Success,
		IsMock:          result.IsMock,
		CreatedAt:       time.Now().UTC(),
	}
	err := o.queue.Submit(taskCompliance, func(ctx context.Context) error {
		return o.store.SaveComplianceLog(ctx, entry)
	})
	if err != nil {
		o.logger.WithFields(logrus.Fields{
			"investigation_id": inv.ID,
			"provider":         entry.Provider,
		}).WithError(err).Warn("Compliance log dropped")
	}
}

// ExecuteSingleQuery runs one targeted query outside the batch scheduler and
// recomputes the investigation totals
func (o *Orchestrator) ExecuteSingleQuery(ctx context.Context, investigationID uuid.UUID, providerID models.ProviderID, queryType models.QueryType, params map[string]string) (*models.ProviderResult, error) {
	inv, err := o.loadInvestigation(ctx, investigationID)
	if err != nil {
		return nil, err
	}
	provider, err := o.registry.Lookup(providerID)
	if err != nil {
		return nil, err
	}
	if !provider.Supports(queryType) {
		return nil, fmt.Errorf("%w: %s by %s", ErrUnsupportedQuery, queryType, providerID)
	}
	if !queryType.AppliesTo(inv.TargetType) {
		return nil, fmt.Errorf("%w: %s for target type %s", ErrUnsupportedQuery, queryType, inv.TargetType)
	}

	// once started the query and its records finish even if the caller leaves
	ctx = context.WithoutCancel(ctx)
	query := models.NewProviderQuery(queryType, inv.TargetDocument, inv.TargetType, params)
	result, _ := o.executeAndPersist(ctx, inv, provider, query, nil)

	if err := o.refreshTotals(ctx, inv.ID); err != nil {
		o.logger.WithField("investigation_id", inv.ID).WithError(err).Error("Failed to refresh totals")
	}
	return result, nil
}

// refreshTotals reloads the investigation so concurrent status changes are
// not overwritten, then stores recomputed totals
func (o *Orchestrator) refreshTotals(ctx context.Context, id uuid.UUID) error {
	inv, err := o.loadInvestigation(ctx, id)
	if err != nil {
		return err
	}
	if err := o.applyTotals(ctx, inv); err != nil {
		return err
	}
	return o.store.UpdateInvestigation(ctx, inv)
}

// RetryFailedQueries re-runs every ERROR execution of the investigation,
// updating each record in place. Dedup keys make re-inserted findings
// idempotent. Totals and status are recomputed from all executions.
func (o *Orchestrator) RetryFailedQueries(ctx context.Context, investigationID uuid.UUID) (*RetrySummary, error) {
	ctx = context.WithoutCancel(ctx)

	inv, err := o.loadInvestigation(ctx, investigationID)
	if err != nil {
		return nil, err
	}
	execs, err := o.store.ListExecutions(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}

	var failed []*models.QueryExecution
	for i := range execs {
		if execs[i].Status == models.ExecutionError {
			failed = append(failed, &execs[i])
		}
	}

	summary := &RetrySummary{InvestigationID: inv.ID, Retried: len(failed), Status: inv.Status}
	if len(failed) == 0 {
		return summary, nil
	}

	o.logger.WithFields(logrus.Fields{
		"investigation_id": inv.ID,
		"failed":           len(failed),
	}).Info("Retrying failed queries")

	summary.StillFailed = o.runBatches(len(failed), func(i int) bool {
		exec := failed[i]
		provider, err := o.registry.Lookup(exec.Provider)
		if err != nil {
			o.logger.WithField("provider", exec.Provider).WithError(err).Warn("Cannot retry query, provider not registered")
			o.recordUnresolved(ctx, exec, err)
			return false
		}
		query := models.NewProviderQuery(exec.QueryType, inv.TargetDocument, inv.TargetType, exec.Params)
		result, _ := o.executeAndPersist(ctx, inv, provider, query, exec)
		return result.Success
	})
	summary.Recovered = summary.Retried - summary.StillFailed

	remaining := 0
	for i := range execs {
		if execs[i].Status == models.ExecutionError {
			remaining++
		}
	}
	if err := o.finishInvestigation(ctx, inv, models.TerminalStatus(len(execs), remaining)); err != nil {
		return nil, fmt.Errorf("persist retry outcome: %w", err)
	}
	summary.Status = inv.Status

	if inv.Status != models.InvestigationFailed && inv.AnalysisStatus != models.AnalysisDone {
		o.scheduleAnalysis(ctx, inv)
	}
	return summary, nil
}
