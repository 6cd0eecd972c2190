package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/orchestrator"
	"github.com/nexconsult/investigacao-api/internal/providers"
	"github.com/nexconsult/investigacao-api/internal/registry"
)

// ProviderHandler handles provider catalogue and configuration requests
type ProviderHandler struct {
	registry     *registry.Registry
	orchestrator *orchestrator.Orchestrator
	logger       *logrus.Logger
}

// NewProviderHandler creates a new provider handler
func NewProviderHandler(reg *registry.Registry, o *orchestrator.Orchestrator, logger *logrus.Logger) *ProviderHandler {
	return &ProviderHandler{registry: reg, orchestrator: o, logger: logger}
}

func providerID(c *gin.Context) models.ProviderID {
	return models.ProviderID(strings.ToUpper(c.Param("id")))
}

// List godoc
// @Summary Lista os provedores registrados
// @Tags Providers
// @Produce json
// @Success 200 {object} models.StandardResponse{data=[]models.ProviderInfo}
// @Router /providers [get]
func (h *ProviderHandler) List(c *gin.Context) {
	success(c, http.StatusOK, "Provedores registrados", h.registry.Infos(c.Request.Context()))
}

// Configured godoc
// @Summary Lista os provedores configurados e ativos
// @Tags Providers
// @Produce json
// @Success 200 {object} models.StandardResponse{data=[]models.ProviderInfo}
// @Router /providers/configured [get]
func (h *ProviderHandler) Configured(c *gin.Context) {
	ctx := c.Request.Context()
	configured := h.registry.Configured(ctx)
	out := make([]models.ProviderInfo, 0, len(configured))
	for _, p := range configured {
		out = append(out, providers.Info(ctx, p))
	}
	success(c, http.StatusOK, "Provedores configurados", out)
}

// RateLimit godoc
// @Summary Uso atual contra os limites do provedor
// @Tags Providers
// @Produce json
// @Param id path string true "ID do provedor" example(DATAJUD)
// @Success 200 {object} models.StandardResponse{data=models.RateLimitInfo}
// @Failure 404 {object} models.StandardResponse
// @Router /providers/{id}/rate-limit [get]
func (h *ProviderHandler) RateLimit(c *gin.Context) {
	p, err := h.registry.Lookup(providerID(c))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, "Limites do provedor", p.RateLimitStatus(c.Request.Context()))
}

// Configure godoc
// @Summary Configura um provedor
// @Description Grava credenciais, orçamento e ativação. O gasto mensal acumulado é preservado.
// @Tags Providers
// @Accept json
// @Produce json
// @Security AdminToken
// @Param id path string true "ID do provedor"
// @Param request body models.ConfigureProviderRequest true "Configuração"
// @Success 200 {object} models.StandardResponse{data=models.ProviderConfig}
// @Failure 401 {object} models.StandardResponse
// @Failure 404 {object} models.StandardResponse
// @Router /providers/{id}/config [put]
func (h *ProviderHandler) Configure(c *gin.Context) {
	var req models.ConfigureProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, models.ErrorCodeInvalidRequest, err.Error())
		return
	}
	if (req.MonthlyBudget != nil && req.MonthlyBudget.IsNegative()) ||
		(req.CostPerQuery != nil && req.CostPerQuery.IsNegative()) {
		fail(c, http.StatusBadRequest, models.ErrorCodeInvalidRequest, "Budget and cost must not be negative")
		return
	}

	cfg, err := h.orchestrator.ConfigureProvider(c.Request.Context(), providerID(c), orchestrator.ProviderSettings{
		Credentials:        req.Credentials,
		BaseURL:            req.BaseURL,
		MonthlyBudget:      req.MonthlyBudget,
		CostPerQuery:       req.CostPerQuery,
		RateLimitPerMinute: req.RateLimitPerMinute,
		RateLimitPerDay:    req.RateLimitPerDay,
		Active:             req.Active,
	})
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, "Provedor configurado", cfg)
}
