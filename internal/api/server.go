package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/nexconsult/investigacao-api/internal/api/handlers"
	"github.com/nexconsult/investigacao-api/internal/api/middleware"
	"github.com/nexconsult/investigacao-api/internal/config"
	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/services"
)

// Server represents the HTTP server
type Server struct {
	Router      *gin.Engine
	config      *config.Config
	logger      *logrus.Logger
	services    *services.Container
	rateLimiter *middleware.RateLimiter
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, logger *logrus.Logger, services *services.Container) *Server {
	server := &Server{
		config:   cfg,
		logger:   logger,
		services: services,
	}

	server.setupRouter()
	return server
}

// Close stops background middleware work
func (s *Server) Close() {
	s.rateLimiter.Stop()
}

// setupRouter configures the router with all routes and middleware
func (s *Server) setupRouter() {
	s.Router = gin.New()

	s.Router.Use(middleware.RequestID())
	s.Router.Use(middleware.Logger(s.logger, s.services.Metrics))
	s.Router.Use(middleware.Recovery(s.logger))
	s.Router.Use(middleware.CORS(s.config.Security.CORS))
	s.Router.Use(middleware.Security())

	// Health and metrics are not rate limited
	health := handlers.NewHealthHandler(s.services, s.logger)
	s.Router.GET("/health", health.GetHealth)
	s.Router.GET("/health/ready", health.GetReadiness)
	s.Router.GET("/health/live", health.GetLiveness)

	s.Router.GET("/metrics", handlers.NewMetricsHandler(s.services.Metrics.Registry(), s.logger).GetMetrics)

	if s.config.Server.Environment != "production" {
		s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		s.Router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})
	}

	s.rateLimiter = middleware.NewRateLimiter(s.config.Security.RateLimit)
	admin := middleware.AdminAuth(s.config.Security.AdminToken)

	v1 := s.Router.Group("/api/v1")
	v1.Use(s.rateLimiter.Middleware(), handlers.Timing())
	{
		investigations := handlers.NewInvestigationHandler(s.services.Orchestrator, s.logger)
		inv := v1.Group("/investigations")
		{
			inv.POST("", investigations.Create)
			inv.GET("", investigations.List)
			inv.GET("/:id", investigations.Get)
			inv.POST("/:id/scan", investigations.Scan)
			inv.POST("/:id/queries", investigations.ExecuteQuery)
			inv.POST("/:id/retry", investigations.Retry)
			inv.GET("/:id/progress", investigations.Progress)
		}

		providers := handlers.NewProviderHandler(s.services.Registry, s.services.Orchestrator, s.logger)
		prov := v1.Group("/providers")
		{
			prov.GET("", providers.List)
			prov.GET("/configured", providers.Configured)
			prov.GET("/:id/rate-limit", providers.RateLimit)
			prov.PUT("/:id/config", admin, providers.Configure)
		}

		budget := handlers.NewBudgetHandler(s.services.Budget, s.services.Registry, s.logger)
		bud := v1.Group("/budget")
		{
			bud.GET("/spend", budget.Spend)
			bud.GET("/alerts", budget.Alerts)
			bud.GET("/alerts/:provider", budget.AlertsFor)
			bud.POST("/reset", admin, budget.Reset)
		}
	}

	s.Router.NoRoute(func(c *gin.Context) {
		middleware.Abort(c, http.StatusNotFound, models.ErrorCodeNotFound, "The requested resource was not found")
	})

	s.Router.HandleMethodNotAllowed = true
	s.Router.NoMethod(func(c *gin.Context) {
		middleware.Abort(c, http.StatusMethodNotAllowed, models.ErrorCodeMethodNotAllowed, "The requested method is not allowed for this resource")
	})
}
