package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/planner"
	"github.com/nexconsult/investigacao-api/internal/storage"
	"github.com/nexconsult/investigacao-api/internal/utils"
)

// NewInvestigation holds the caller-supplied fields of an investigation
type NewInvestigation struct {
	TargetName     string
	TargetDocument string
	Depth          models.DepthTier
	UserID         string
	LegalBasis     string
}

// CreateInvestigation validates the target document and depth and stores a
// PENDING investigation. The target type is inferred from the document.
func (o *Orchestrator) CreateInvestigation(ctx context.Context, in NewInvestigation) (*models.Investigation, error) {
	targetType, document, err := utils.DetectTargetType(in.TargetDocument)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if _, ok := o.planner.Tier(in.Depth); !ok {
		return nil, fmt.Errorf("%w: %s", planner.ErrUnknownDepth, in.Depth)
	}

	inv := &models.Investigation{
		TargetName:     strings.TrimSpace(in.TargetName),
		TargetDocument: document,
		TargetType:     targetType,
		Depth:          in.Depth,
		Status:         models.InvestigationPending,
		AnalysisStatus: models.AnalysisNotStarted,
		UserID:         in.UserID,
		LegalBasis:     in.LegalBasis,
	}
	if err := o.store.CreateInvestigation(ctx, inv); err != nil {
		return nil, fmt.Errorf("create investigation: %w", err)
	}

	o.logger.WithFields(logrus.Fields{
		"investigation_id": inv.ID,
		"target":           utils.MaskDocument(document),
		"target_type":      targetType,
		"depth":            inv.Depth,
	}).Info("Investigation created")
	return inv, nil
}

// GetInvestigation returns a stored investigation
func (o *Orchestrator) GetInvestigation(ctx context.Context, id uuid.UUID) (*models.Investigation, error) {
	return o.loadInvestigation(ctx, id)
}

// InvestigationDetails is an investigation with everything recorded for it
type InvestigationDetails struct {
	Investigation *models.Investigation   `json:"investigation"`
	Findings      *storage.Findings       `json:"findings"`
	Executions    []models.QueryExecution `json:"executions"`
}

// Details loads an investigation with its findings and executions
func (o *Orchestrator) Details(ctx context.Context, id uuid.UUID) (*InvestigationDetails, error) {
	inv, err := o.loadInvestigation(ctx, id)
	if err != nil {
		return nil, err
	}
	findings, err := o.store.Findings(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load findings: %w", err)
	}
	execs, err := o.store.ListExecutions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	return &InvestigationDetails{Investigation: inv, Findings: findings, Executions: execs}, nil
}

// ListInvestigations pages through investigations, newest first
func (o *Orchestrator) ListInvestigations(ctx context.Context, limit, offset int) ([]models.Investigation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return o.store.ListInvestigations(ctx, limit, offset)
}

// ProviderSettings is the administrative input of ConfigureProvider. Nil
// fields keep the stored value.
type ProviderSettings struct {
	Credentials        map[string]string
	BaseURL            string
	MonthlyBudget      *decimal.Decimal
	CostPerQuery       *decimal.Decimal
	RateLimitPerMinute int
	RateLimitPerDay    int
	Active             bool
}

// ConfigureProvider upserts the provider configuration and drops the cached
// copy held by the provider runtime. The monthly spend is never touched.
func (o *Orchestrator) ConfigureProvider(ctx context.Context, id models.ProviderID, in ProviderSettings) (*models.ProviderConfig, error) {
	provider, err := o.registry.Lookup(id)
	if err != nil {
		return nil, err
	}
	cfg, err := o.store.GetProviderConfig(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load provider config: %w", err)
	}

	if in.Credentials != nil {
		cfg.Credentials = models.Credentials(in.Credentials)
	}
	if in.BaseURL != "" {
		cfg.BaseURL = in.BaseURL
	}
	if in.MonthlyBudget != nil {
		cfg.MonthlyBudget = decimal.NewNullDecimal(*in.MonthlyBudget)
	}
	if in.CostPerQuery != nil {
		cfg.CostPerQuery = decimal.NewNullDecimal(*in.CostPerQuery)
	}
	if in.RateLimitPerMinute > 0 {
		cfg.RateLimitPerMinute = in.RateLimitPerMinute
	}
	if in.RateLimitPerDay > 0 {
		cfg.RateLimitPerDay = in.RateLimitPerDay
	}
	cfg.IsActive = in.Active
	cfg.IsConfigured = len(cfg.Credentials) > 0

	if err := o.store.UpsertProviderConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("save provider config: %w", err)
	}
	provider.InvalidateConfig()

	o.logger.WithFields(logrus.Fields{
		"provider":   id,
		"active":     cfg.IsActive,
		"configured": cfg.IsConfigured,
	}).Info("Provider configuration updated")
	return cfg, nil
}
