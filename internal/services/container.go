// Package services wires the engine's components from configuration. The API
// server and the operator CLI share one Container.
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/investigacao-api/internal/budget"
	"github.com/nexconsult/investigacao-api/internal/cache"
	"github.com/nexconsult/investigacao-api/internal/config"
	"github.com/nexconsult/investigacao-api/internal/metrics"
	"github.com/nexconsult/investigacao-api/internal/orchestrator"
	"github.com/nexconsult/investigacao-api/internal/planner"
	"github.com/nexconsult/investigacao-api/internal/providers"
	"github.com/nexconsult/investigacao-api/internal/providers/adapters"
	"github.com/nexconsult/investigacao-api/internal/registry"
	"github.com/nexconsult/investigacao-api/internal/storage"
	"github.com/nexconsult/investigacao-api/internal/storage/memory"
	"github.com/nexconsult/investigacao-api/internal/storage/postgres"
	"github.com/nexconsult/investigacao-api/internal/worker"
)

const cacheCleanupInterval = time.Minute

// Container holds all service dependencies
type Container struct {
	config      *config.Config
	logger      *logrus.Logger
	redisClient *redis.Client
	stopCleanup context.CancelFunc

	Store        storage.Store
	Cache        *cache.Store
	Metrics      *metrics.Collector
	Budget       *budget.Tracker
	Registry     *registry.Registry
	Planner      *planner.Planner
	Pool         *worker.Pool
	Orchestrator *orchestrator.Orchestrator
}

// NewContainer creates a new service container and starts the task queue
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	c := &Container{
		config:  cfg,
		logger:  logger,
		Metrics: metrics.New(),
	}

	c.initRedis()

	if err := c.initStore(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := c.initEngine(); err != nil {
		_ = c.Store.Close()
		return nil, fmt.Errorf("failed to initialize engine: %w", err)
	}

	return c, nil
}

// initRedis connects to Redis when a host is configured. A failed ping is not
// fatal: cache and usage counters fall back to process memory.
func (c *Container) initRedis() {
	if c.config.Redis.Host == "" {
		c.logger.Info("Redis not configured, using in-memory cache")
		return
	}

	c.redisClient = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.config.Redis.Host, c.config.Redis.Port),
		Password:     c.config.Redis.Password,
		DB:           c.config.Redis.DB,
		PoolSize:     c.config.Redis.PoolSize,
		DialTimeout:  c.config.Redis.DialTimeout,
		ReadTimeout:  c.config.Redis.ReadTimeout,
		WriteTimeout: c.config.Redis.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Redis.DialTimeout)
	defer cancel()
	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis connection failed, running without shared cache")
		_ = c.redisClient.Close()
		c.redisClient = nil
		return
	}
	c.logger.Info("Redis connection established")
}

func (c *Container) initStore() error {
	if !c.config.Database.Enabled() {
		c.logger.Warn("Database not configured, investigations are kept in memory")
		c.Store = memory.New()
		return nil
	}

	store, err := postgres.Open(c.config.Database, c.logger)
	if err != nil {
		return err
	}
	c.Store = store
	c.logger.WithFields(logrus.Fields{
		"host": c.config.Database.Host,
		"name": c.config.Database.Name,
	}).Info("Database connection established")
	return nil
}

func (c *Container) initEngine() error {
	engine := c.config.Engine
	timeouts := config.DefaultTimeoutConfig()

	c.Cache = cache.NewStore(c.redisClient, c.logger)
	cleanupCtx, cancel := context.WithCancel(context.Background())
	c.stopCleanup = cancel
	c.Cache.StartCleanupRoutine(cleanupCtx, cacheCleanupInterval)

	c.Budget = budget.NewTracker(c.Store, c.Metrics, c.logger)

	sources := adapters.All(adapters.Options{
		HTTPTimeout: timeouts.HTTPClientTimeout,
		BaseURLs:    engine.ProviderBaseURLs,
	})
	provs := providers.Wrap(sources, providers.Options{
		Configs:  c.Store,
		Usage:    cache.NewUsageCounter(c.redisClient, c.logger),
		Results:  cache.NewResultCache(c.Cache, engine.ResultCacheTTL, c.logger),
		Spend:    c.Budget,
		Observer: c.Metrics,
		Logger:   c.logger,
		Retry: providers.RetryPolicy{
			MaxAttempts: engine.MaxAttempts,
			BaseDelay:   engine.BaseDelay,
			MaxJitter:   engine.MaxJitter,
		},
		ConfigTTL:    engine.ConfigCacheTTL,
		QueryTimeout: engine.QueryTimeout,
	})

	reg, err := registry.New(provs, c.logger)
	if err != nil {
		return err
	}
	c.Registry = reg
	c.Budget.SetInvalidator(reg)

	depths, err := planner.Load(engine.DepthMapPath)
	if err != nil {
		return err
	}
	c.Planner, err = planner.New(depths, planner.Catalogue(reg.Catalogue()))
	if err != nil {
		return err
	}

	c.Pool = worker.NewPool(engine.Workers, engine.QueueSize, c.logger, c.Metrics)
	c.Pool.Start()

	c.Orchestrator = orchestrator.New(
		c.Store,
		c.Registry,
		c.Planner,
		c.Pool,
		orchestrator.NewHTTPAnalyzer(c.config.Analysis.URL, c.config.Analysis.Timeout),
		c.Metrics,
		c.logger,
		orchestrator.Options{
			BatchSize:       engine.BatchSize,
			QueryTimeout:    engine.QueryTimeout,
			AnalysisTimeout: c.config.Analysis.Timeout,
		},
	)

	c.logger.WithFields(logrus.Fields{
		"providers":  len(provs),
		"tiers":      c.Planner.Tiers(),
		"batch_size": engine.BatchSize,
		"workers":    engine.Workers,
	}).Info("Investigation engine ready")
	return nil
}

// Close drains the task queue and closes every connection
func (c *Container) Close(timeout time.Duration) error {
	var errs []error

	if c.Pool != nil {
		if err := c.Pool.Stop(timeout); err != nil {
			errs = append(errs, fmt.Errorf("failed to drain task queue: %w", err))
		}
	}

	if c.stopCleanup != nil {
		c.stopCleanup()
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}

// Health checks the health of all services
func (c *Container) Health(ctx context.Context) map[string]interface{} {
	health := c.Cache.Health(ctx)

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	storeName := "memory"
	if c.config.Database.Enabled() {
		storeName = "postgres"
	}
	if err := c.Store.Ping(pingCtx); err != nil {
		health["storage"] = map[string]interface{}{
			"status":  "unhealthy",
			"backend": storeName,
			"error":   err.Error(),
		}
	} else {
		health["storage"] = map[string]interface{}{
			"status":  "healthy",
			"backend": storeName,
		}
	}

	stats := c.Pool.Stats()
	queueStatus := "healthy"
	if !c.Pool.IsRunning() {
		queueStatus = "unhealthy"
	} else if stats.QueueSize > 0 && stats.Pending >= stats.QueueSize {
		queueStatus = "degraded"
	}
	health["task_queue"] = map[string]interface{}{
		"status":   queueStatus,
		"workers":  stats.Workers,
		"pending":  stats.Pending,
		"active":   stats.Active,
		"rejected": stats.Rejected,
	}

	return health
}

// GetConfig returns the configuration
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetLogger returns the logger
func (c *Container) GetLogger() *logrus.Logger {
	return c.logger
}
