package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/providers/adapters"
	"github.com/nexconsult/investigacao-api/internal/storage"
)

// Analyzer turns the normalized findings of an investigation into a risk
// assessment
type Analyzer interface {
	Analyze(ctx context.Context, inv *models.Investigation, findings *storage.Findings) (*models.AnalysisResult, error)
}

// AnalysisRequest is the body posted to the analysis service
type AnalysisRequest struct {
	Investigation *models.Investigation `json:"investigation"`
	Findings      *storage.Findings     `json:"findings"`
}

// HTTPAnalyzer calls an external analysis service
type HTTPAnalyzer struct {
	url    string
	client *adapters.Client
}

// NewHTTPAnalyzer returns nil when url is empty so callers can pass the
// result straight to New
func NewHTTPAnalyzer(url string, timeout time.Duration) Analyzer {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	return &HTTPAnalyzer{
		url:    strings.TrimRight(url, "/"),
		client: adapters.NewClient(timeout, 2, 4),
	}
}

// Analyze implements Analyzer
func (a *HTTPAnalyzer) Analyze(ctx context.Context, inv *models.Investigation, findings *storage.Findings) (*models.AnalysisResult, error) {
	var out models.AnalysisResult
	if _, err := a.client.PostJSON(ctx, a.url, nil, AnalysisRequest{Investigation: inv, Findings: findings}, &out); err != nil {
		return nil, fmt.Errorf("analysis service: %w", err)
	}
	if out.RiskScore < 0 || out.RiskScore > 100 {
		return nil, fmt.Errorf("analysis service returned risk score %d outside 0-100", out.RiskScore)
	}
	return &out, nil
}

// scheduleAnalysis queues the analysis handoff. Without an analyzer the
// investigation is left NOT_STARTED; a full queue leaves it PENDING.
func (o *Orchestrator) scheduleAnalysis(ctx context.Context, inv *models.Investigation) {
	if o.analyzer == nil || o.queue == nil {
		return
	}
	log := o.logger.WithField("investigation_id", inv.ID)

	o.setAnalysisStatus(ctx, inv, models.AnalysisQueued)
	id := inv.ID
	err := o.queue.Submit(taskAnalysis, func(taskCtx context.Context) error {
		return o.runAnalysis(taskCtx, id)
	})
	if err != nil {
		log.WithError(err).Warn("Analysis could not be scheduled")
		o.setAnalysisStatus(ctx, inv, models.AnalysisPending)
	}
}

func (o *Orchestrator) setAnalysisStatus(ctx context.Context, inv *models.Investigation, status models.AnalysisStatus) {
	inv.AnalysisStatus = status
	if err := o.store.UpdateInvestigation(ctx, inv); err != nil {
		o.logger.WithFields(logrus.Fields{
			"investigation_id": inv.ID,
			"analysis_status":  status,
		}).WithError(err).Error("Failed to update analysis status")
	}
}

// runAnalysis executes in the task queue. Any failure degrades the
// investigation to AnalysisPending instead of touching the scan status.
func (o *Orchestrator) runAnalysis(ctx context.Context, id uuid.UUID) error {
	inv, err := o.loadInvestigation(ctx, id)
	if err != nil {
		return err
	}
	findings, err := o.store.Findings(ctx, id)
	if err != nil {
		o.setAnalysisStatus(ctx, inv, models.AnalysisPending)
		return fmt.Errorf("load findings: %w", err)
	}

	actx, cancel := context.WithTimeout(ctx, o.opts.AnalysisTimeout)
	defer cancel()

	result, err := o.analyzer.Analyze(actx, inv, findings)
	if err != nil {
		o.setAnalysisStatus(ctx, inv, models.AnalysisPending)
		return err
	}

	score := result.RiskScore
	inv.RiskScore = &score
	inv.Summary = result.Summary
	inv.Recommendations = models.StringList(result.Recommendations)
	o.setAnalysisStatus(ctx, inv, models.AnalysisDone)
	o.logger.WithFields(logrus.Fields{
		"investigation_id": inv.ID,
		"risk_score":       score,
	}).Info("Investigation analysis stored")
	return nil
}
