package providers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/nexconsult/investigacao-api/internal/logger"
	"github.com/nexconsult/investigacao-api/internal/models"
)

// configLoadTimeout bounds one shared configuration load
const configLoadTimeout = 5 * time.Second

// Options carries the collaborators shared by every provider runtime.
// Nil Usage, Results, Spend and Observer are allowed and disable the feature.
type Options struct {
	Configs  ConfigLoader
	Usage    UsageCounter
	Results  ResultCache
	Spend    SpendTracker
	Observer Observer
	Logger   *logrus.Logger

	Retry        RetryPolicy
	ConfigTTL    time.Duration
	QueryTimeout time.Duration

	Now func() time.Time
}

func (o *Options) applyDefaults() {
	if o.Logger == nil {
		o.Logger = logger.Discard()
	}
	if o.Retry.MaxAttempts == 0 {
		o.Retry = DefaultRetryPolicy()
	}
	if o.ConfigTTL <= 0 {
		o.ConfigTTL = 5 * time.Minute
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = 30 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// Runtime wraps a Source and implements Provider
type Runtime struct {
	source Source
	opts   Options
	log    *logrus.Entry

	loads singleflight.Group

	mu       sync.RWMutex
	cfg      *models.ProviderConfig
	loadedAt time.Time
}

// New wraps source with the shared runtime behaviour
func New(source Source, opts Options) *Runtime {
	opts.applyDefaults()
	return &Runtime{
		source: source,
		opts:   opts,
		log:    opts.Logger.WithField("provider", source.ID()),
	}
}

// Wrap wraps every source with the same options
func Wrap(sources []Source, opts Options) []Provider {
	out := make([]Provider, 0, len(sources))
	for _, s := range sources {
		out = append(out, New(s, opts))
	}
	return out
}

func (r *Runtime) ID() models.ProviderID { return r.source.ID() }

func (r *Runtime) Name() string { return r.source.Name() }

func (r *Runtime) Category() models.ProviderCategory { return r.source.Category() }

func (r *Runtime) QueryTypes() []models.QueryType { return r.source.QueryTypes() }

// Supports reports whether the provider answers the query type
func (r *Runtime) Supports(queryType models.QueryType) bool {
	for _, qt := range r.source.QueryTypes() {
		if qt == queryType {
			return true
		}
	}
	return false
}

// InvalidateConfig drops the cached configuration; the next call reloads it
func (r *Runtime) InvalidateConfig() {
	r.mu.Lock()
	r.cfg = nil
	r.loadedAt = time.Time{}
	r.mu.Unlock()
}

// config is a read-through cache over the ConfigLoader. Concurrent misses
// share one load; the lock is never held while loading.
func (r *Runtime) config(ctx context.Context) (*models.ProviderConfig, error) {
	r.mu.RLock()
	cfg, loadedAt := r.cfg, r.loadedAt
	r.mu.RUnlock()

	if cfg != nil && r.opts.Now().Sub(loadedAt) < r.opts.ConfigTTL {
		return cfg, nil
	}
	if r.opts.Configs == nil {
		return nil, errors.New("no configuration source")
	}

	// the load is shared by every waiting caller, so it must not inherit the
	// first caller's cancellation
	v, err, _ := r.loads.Do(string(r.ID()), func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), configLoadTimeout)
		defer cancel()
		loaded, err := r.opts.Configs.GetProviderConfig(lctx, r.ID())
		if err != nil {
			return nil, err
		}
		r.mu.Lock()
		r.cfg = loaded
		r.loadedAt = r.opts.Now()
		r.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s config: %w", r.ID(), err)
	}
	return v.(*models.ProviderConfig), nil
}

// IsConfigured reports whether real calls are enabled for the provider
func (r *Runtime) IsConfigured(ctx context.Context) (bool, error) {
	cfg, err := r.config(ctx)
	if err != nil {
		return false, err
	}
	return cfg.Usable(), nil
}

// EstimateCost returns the configured per-query cost, or zero
func (r *Runtime) EstimateCost(ctx context.Context, _ models.QueryType) decimal.Decimal {
	cfg, err := r.config(ctx)
	if err != nil || !cfg.CostPerQuery.Valid {
		return decimal.Zero
	}
	return cfg.CostPerQuery.Decimal
}

// RateLimitStatus reports current usage against the configured ceilings.
// Read failures report zero usage.
func (r *Runtime) RateLimitStatus(ctx context.Context) models.RateLimitInfo {
	cfg, err := r.config(ctx)
	if err != nil {
		cfg = nil
	}
	return r.rateLimit(ctx, cfg)
}

func (r *Runtime) rateLimit(ctx context.Context, cfg *models.ProviderConfig) models.RateLimitInfo {
	now := r.opts.Now()
	info := models.RateLimitInfo{Provider: r.ID()}
	if cfg != nil {
		info.PerMinuteLimit = cfg.RateLimitPerMinute
		info.PerDayLimit = cfg.RateLimitPerDay
	}

	if r.opts.Usage != nil {
		minute, day, err := r.opts.Usage.Counts(ctx, r.ID(), now)
		if err != nil {
			r.log.WithError(err).Warn("Rate limit usage unavailable, treating provider as not limited")
		} else {
			info.MinuteCount, info.DayCount = minute, day
		}
	}

	minuteLimited := info.PerMinuteLimit > 0 && info.MinuteCount >= int64(info.PerMinuteLimit)
	dayLimited := info.PerDayLimit > 0 && info.DayCount >= int64(info.PerDayLimit)
	info.IsLimited = minuteLimited || dayLimited

	switch {
	case dayLimited:
		info.ResetsAt = startOfDay(now).AddDate(0, 0, 1)
	default:
		info.ResetsAt = now.Add(time.Minute)
	}
	return info
}

// Execute runs the query against the real provider when allowed and falls
// back to synthetic data otherwise. It never returns nil.
func (r *Runtime) Execute(ctx context.Context, query models.ProviderQuery) (result *models.ProviderResult) {
	start := r.opts.Now()
	outcome := OutcomeReal

	defer func() {
		if rec := recover(); rec != nil {
			r.log.WithFields(logrus.Fields{
				"query_type": query.QueryType,
				"panic":      rec,
			}).Error("Provider runtime panic recovered")
			result = r.failure(query, start, fmt.Sprintf("provider panic: %v", rec))
			outcome = OutcomePanic
		}
		if r.opts.Observer != nil {
			r.opts.Observer.ObserveQuery(r.ID(), query.QueryType, outcome, r.opts.Now().Sub(start))
		}
	}()

	if !r.Supports(query.QueryType) {
		outcome = OutcomeUnsupported
		return r.failure(query, start, fmt.Sprintf("%s does not support %s", r.ID(), query.QueryType))
	}

	cfg, err := r.config(ctx)
	if err != nil {
		r.log.WithError(err).Warn("Provider config unavailable, using mock data")
		cfg = nil
	}

	if !cfg.Usable() {
		outcome = OutcomeNotConfigured
		return r.mock(query, start, "")
	}

	if limit := r.rateLimit(ctx, cfg); limit.IsLimited {
		outcome = OutcomeRateLimited
		msg := fmt.Sprintf("rate limit reached (%d/min of %d, %d/day of %d); returning synthetic data",
			limit.MinuteCount, limit.PerMinuteLimit, limit.DayCount, limit.PerDayLimit)
		r.log.WithField("query_type", query.QueryType).Warn(msg)
		return r.mock(query, start, msg)
	}

	if cfg.BudgetExhausted() {
		outcome = OutcomeOverBudget
		msg := fmt.Sprintf("monthly budget exhausted (%s of %s); returning synthetic data",
			cfg.MonthlySpent.StringFixed(2), cfg.MonthlyBudget.Decimal.StringFixed(2))
		return r.mock(query, start, msg)
	}

	if r.opts.Results != nil {
		if cached, ok := r.opts.Results.Get(ctx, r.ID(), query); ok {
			outcome = OutcomeCached
			return r.cached(cached, query, start)
		}
	}

	res, attempts, err := r.executeWithRetry(ctx, cfg, query)
	if err != nil {
		outcome = OutcomeFallback
		r.log.WithFields(logrus.Fields{
			"query_type": query.QueryType,
			"attempts":   attempts,
			"error":      err.Error(),
		}).Warn("Real provider call failed, falling back to mock data")
		return r.mock(query, start, fmt.Sprintf("real call failed after %d attempt(s): %v", attempts, err))
	}

	return r.finishReal(ctx, cfg, query, res, start)
}

func (r *Runtime) executeWithRetry(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (*models.ProviderResult, int, error) {
	qctx, cancel := context.WithTimeout(ctx, r.opts.QueryTimeout)
	defer cancel()

	var result *models.ProviderResult
	attempts, err := r.opts.Retry.Do(qctx, func(ctx context.Context, attempt int) error {
		if r.opts.Usage != nil {
			if err := r.opts.Usage.Record(ctx, r.ID(), r.opts.Now()); err != nil {
				r.log.WithError(err).Debug("Usage not recorded")
			}
		}

		res, err := r.callReal(ctx, cfg, query)
		if err != nil {
			r.log.WithFields(logrus.Fields{
				"query_type": query.QueryType,
				"attempt":    attempt,
				"error":      err.Error(),
			}).Debug("Provider attempt failed")
			return err
		}
		result = res
		return nil
	})
	return result, attempts, err
}

// callReal turns panics and unsuccessful results into errors so they are
// retried like transport failures
func (r *Runtime) callReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery) (res *models.ProviderResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res, err = nil, fmt.Errorf("panic in %s: %v", r.ID(), rec)
		}
	}()

	res, err = r.source.ExecuteReal(ctx, cfg, query)
	switch {
	case err != nil:
		return nil, err
	case res == nil:
		return nil, errors.New("provider returned no result")
	case !res.Success:
		msg := res.ErrorMessage
		if msg == "" {
			msg = "provider reported failure"
		}
		return nil, errors.New(msg)
	}
	return res, nil
}

func (r *Runtime) finishReal(ctx context.Context, cfg *models.ProviderConfig, query models.ProviderQuery, res *models.ProviderResult, start time.Time) *models.ProviderResult {
	res.Success = true
	res.Provider = r.ID()
	res.QueryType = query.QueryType
	res.IsMock = false
	res.Cached = false
	res.ErrorMessage = ""
	res.ResponseTimeMs = r.opts.Now().Sub(start).Milliseconds()
	res.Cost = QueryCost(cfg, query.QueryType)
	res.EnsureCollections()
	stampSource(res, r.ID())

	if r.opts.Spend != nil && res.Cost.IsPositive() {
		alert, err := r.opts.Spend.TrackCost(ctx, r.ID(), res.Cost)
		if err != nil {
			r.log.WithError(err).Error("Failed to track provider spend")
		}
		if alert != nil && alert.Severity == models.SeverityCritical {
			r.InvalidateConfig()
		}
	}

	if r.opts.Results != nil {
		r.opts.Results.Put(ctx, r.ID(), query, res)
	}
	return res
}

func (r *Runtime) cached(cached *models.ProviderResult, query models.ProviderQuery, start time.Time) *models.ProviderResult {
	cached.Success = true
	cached.Provider = r.ID()
	cached.QueryType = query.QueryType
	cached.IsMock = false
	cached.Cached = true
	cached.Cost = decimal.Zero
	cached.ResponseTimeMs = r.opts.Now().Sub(start).Milliseconds()
	cached.EnsureCollections()
	return cached
}

// mock produces the synthetic fallback. note explains why real data was not
// used and is kept as the result's error message.
func (r *Runtime) mock(query models.ProviderQuery, start time.Time, note string) *models.ProviderResult {
	res := r.safeMock(query)
	res.Provider = r.ID()
	res.QueryType = query.QueryType
	res.IsMock = true
	res.Cached = false
	res.Cost = decimal.Zero
	res.ResponseTimeMs = r.opts.Now().Sub(start).Milliseconds()
	if note != "" {
		if res.ErrorMessage != "" {
			res.ErrorMessage = note + "; " + res.ErrorMessage
		} else {
			res.ErrorMessage = note
		}
	}
	if res.Success {
		res.EnsureCollections()
		stampSource(res, r.ID())
	}
	return res
}

func (r *Runtime) safeMock(query models.ProviderQuery) (res *models.ProviderResult) {
	defer func() {
		if rec := recover(); rec != nil {
			res = &models.ProviderResult{ErrorMessage: fmt.Sprintf("mock generator panic: %v", rec)}
		}
	}()

	res = r.source.GenerateMock(query)
	if res == nil {
		res = &models.ProviderResult{ErrorMessage: "mock generator returned no result"}
	}
	return res
}

func (r *Runtime) failure(query models.ProviderQuery, start time.Time, msg string) *models.ProviderResult {
	return &models.ProviderResult{
		Success:        false,
		Provider:       r.ID(),
		QueryType:      query.QueryType,
		Cost:           decimal.Zero,
		ResponseTimeMs: r.opts.Now().Sub(start).Milliseconds(),
		ErrorMessage:   msg,
	}
}

func stampSource(res *models.ProviderResult, id models.ProviderID) {
	for i := range res.Assets {
		if res.Assets[i].SourceProvider == "" {
			res.Assets[i].SourceProvider = id
		}
	}
	for i := range res.Debts {
		if res.Debts[i].SourceProvider == "" {
			res.Debts[i].SourceProvider = id
		}
	}
	for i := range res.Lawsuits {
		if res.Lawsuits[i].SourceProvider == "" {
			res.Lawsuits[i].SourceProvider = id
		}
	}
	for i := range res.CorporateLinks {
		if res.CorporateLinks[i].SourceProvider == "" {
			res.CorporateLinks[i].SourceProvider = id
		}
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
