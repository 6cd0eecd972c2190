package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/investigacao-api/internal/budget"
	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/registry"
)

// SpendResponse is the monthly spend summary
type SpendResponse struct {
	Providers []models.ProviderSpend `json:"providers"`
	Total     decimal.Decimal        `json:"total" swaggertype:"number"`
}

// BudgetHandler handles cost and budget requests
type BudgetHandler struct {
	tracker  *budget.Tracker
	registry *registry.Registry
	logger   *logrus.Logger
}

// NewBudgetHandler creates a new budget handler
func NewBudgetHandler(tracker *budget.Tracker, reg *registry.Registry, logger *logrus.Logger) *BudgetHandler {
	return &BudgetHandler{tracker: tracker, registry: reg, logger: logger}
}

// Spend godoc
// @Summary Gasto mensal por provedor
// @Tags Budget
// @Produce json
// @Success 200 {object} models.StandardResponse{data=SpendResponse}
// @Router /budget/spend [get]
func (h *BudgetHandler) Spend(c *gin.Context) {
	spend, err := h.tracker.Spend(c.Request.Context())
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, "Gasto mensal", SpendResponse{Providers: spend, Total: budget.Total(spend)})
}

// Alerts godoc
// @Summary Alertas de orçamento dos provedores ativos
// @Tags Budget
// @Produce json
// @Success 200 {object} models.StandardResponse{data=[]models.BudgetAlert}
// @Router /budget/alerts [get]
func (h *BudgetHandler) Alerts(c *gin.Context) {
	alerts, err := h.tracker.Alerts(c.Request.Context())
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, "Alertas de orçamento", alerts)
}

// AlertsFor godoc
// @Summary Alertas de orçamento de um provedor
// @Tags Budget
// @Produce json
// @Param provider path string true "ID do provedor"
// @Success 200 {object} models.StandardResponse{data=[]models.BudgetAlert}
// @Failure 404 {object} models.StandardResponse
// @Router /budget/alerts/{provider} [get]
func (h *BudgetHandler) AlertsFor(c *gin.Context) {
	p, err := h.registry.Lookup(models.ProviderID(strings.ToUpper(c.Param("provider"))))
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	alerts, err := h.tracker.AlertsFor(c.Request.Context(), p.ID())
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, "Alertas de orçamento", alerts)
}

// Reset godoc
// @Summary Zera o gasto mensal de todos os provedores
// @Tags Budget
// @Produce json
// @Security AdminToken
// @Success 200 {object} models.StandardResponse
// @Failure 401 {object} models.StandardResponse
// @Router /budget/reset [post]
func (h *BudgetHandler) Reset(c *gin.Context) {
	n, err := h.tracker.ResetMonthly(c.Request.Context())
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, "Gasto mensal zerado", gin.H{"reset": n})
}
