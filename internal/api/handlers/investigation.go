package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/orchestrator"
)

// InvestigationHandler handles investigation requests
type InvestigationHandler struct {
	orchestrator *orchestrator.Orchestrator
	logger       *logrus.Logger
}

// NewInvestigationHandler creates a new investigation handler
func NewInvestigationHandler(o *orchestrator.Orchestrator, logger *logrus.Logger) *InvestigationHandler {
	return &InvestigationHandler{orchestrator: o, logger: logger}
}

// Create godoc
// @Summary Abre uma investigação
// @Description Valida o documento do alvo (CPF ou CNPJ) e registra a investigação como PENDING
// @Tags Investigations
// @Accept json
// @Produce json
// @Param request body models.CreateInvestigationRequest true "Alvo da investigação"
// @Success 201 {object} models.StandardResponse{data=models.Investigation}
// @Failure 400 {object} models.StandardResponse
// @Router /investigations [post]
func (h *InvestigationHandler) Create(c *gin.Context) {
	var req models.CreateInvestigationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, models.ErrorCodeInvalidRequest, err.Error())
		return
	}

	inv, err := h.orchestrator.CreateInvestigation(c.Request.Context(), orchestrator.NewInvestigation{
		TargetName:     req.TargetName,
		TargetDocument: req.TargetDocument,
		Depth:          models.DepthTier(strings.ToUpper(req.Depth)),
		UserID:         req.UserID,
		LegalBasis:     req.LegalBasis,
	})
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	success(c, http.StatusCreated, "Investigação criada", inv)
}

// List godoc
// @Summary Lista investigações
// @Tags Investigations
// @Produce json
// @Param limit query int false "Máximo de itens (1-100)"
// @Param offset query int false "Deslocamento"
// @Success 200 {object} models.StandardResponse{data=[]models.Investigation}
// @Router /investigations [get]
func (h *InvestigationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))

	list, err := h.orchestrator.ListInvestigations(c.Request.Context(), limit, offset)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, "Investigações listadas", list)
}

// Get godoc
// @Summary Detalha uma investigação
// @Description Retorna a investigação com os achados normalizados e as execuções de consulta
// @Tags Investigations
// @Produce json
// @Param id path string true "ID da investigação"
// @Success 200 {object} models.StandardResponse{data=orchestrator.InvestigationDetails}
// @Failure 404 {object} models.StandardResponse
// @Router /investigations/{id} [get]
func (h *InvestigationHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	details, err := h.orchestrator.Details(c.Request.Context(), id)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, "Investigação encontrada", details)
}

// Scan godoc
// @Summary Executa a varredura
// @Description Planeja e executa as consultas da profundidade. Com async=true responde 202 e a varredura segue em background.
// @Tags Investigations
// @Accept json
// @Produce json
// @Param id path string true "ID da investigação"
// @Param request body models.ScanRequest false "Profundidade e modo"
// @Success 200 {object} models.StandardResponse{data=models.ScanResponse}
// @Success 202 {object} models.StandardResponse{data=models.AsyncScanResponse}
// @Failure 400 {object} models.StandardResponse
// @Failure 404 {object} models.StandardResponse
// @Failure 409 {object} models.StandardResponse
// @Failure 503 {object} models.StandardResponse
// @Router /investigations/{id}/scan [post]
func (h *InvestigationHandler) Scan(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req models.ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		fail(c, http.StatusBadRequest, models.ErrorCodeInvalidRequest, err.Error())
		return
	}
	depth := models.DepthTier(strings.ToUpper(req.Depth))

	if req.Async {
		if err := h.orchestrator.AsyncScan(c.Request.Context(), id, depth); err != nil {
			handleError(c, h.logger, err)
			return
		}
		respond(c, http.StatusAccepted, models.NewInfoResponse("Varredura enfileirada", models.AsyncScanResponse{
			InvestigationID: id,
			Depth:           depth,
			ProgressURL:     fmt.Sprintf("/api/v1/investigations/%s/progress", id),
		}))
		return
	}

	res, err := h.orchestrator.RunScan(c.Request.Context(), id, depth)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	body := models.ScanResponse{Investigation: res.Investigation, Progress: res.Progress}
	if res.Progress.Status != models.ProgressCompleted {
		// parcial ou falha: ainda 200, o detalhe fica em progress
		respond(c, http.StatusOK, models.NewWarningResponse("Varredura concluída com falhas", body))
		return
	}
	success(c, http.StatusOK, "Varredura concluída", body)
}

// ExecuteQuery godoc
// @Summary Executa uma consulta pontual
// @Description Executa um par provedor/tipo de consulta fora do plano e recalcula os totais
// @Tags Investigations
// @Accept json
// @Produce json
// @Param id path string true "ID da investigação"
// @Param request body models.SingleQueryRequest true "Consulta"
// @Success 200 {object} models.StandardResponse{data=models.ProviderResult}
// @Failure 404 {object} models.StandardResponse
// @Failure 422 {object} models.StandardResponse
// @Router /investigations/{id}/queries [post]
func (h *InvestigationHandler) ExecuteQuery(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req models.SingleQueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, models.ErrorCodeInvalidRequest, err.Error())
		return
	}
	queryType := models.QueryType(strings.ToUpper(req.QueryType))
	if !queryType.Valid() {
		fail(c, http.StatusBadRequest, models.ErrorCodeUnsupportedQuery, fmt.Sprintf("Unknown query type %q", req.QueryType))
		return
	}

	result, err := h.orchestrator.ExecuteSingleQuery(c.Request.Context(), id,
		models.ProviderID(strings.ToUpper(req.Provider)), queryType, req.Params)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, "Consulta executada", result)
}

// Retry godoc
// @Summary Reexecuta consultas com falha
// @Tags Investigations
// @Produce json
// @Param id path string true "ID da investigação"
// @Success 200 {object} models.StandardResponse{data=orchestrator.RetrySummary}
// @Failure 404 {object} models.StandardResponse
// @Router /investigations/{id}/retry [post]
func (h *InvestigationHandler) Retry(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	summary, err := h.orchestrator.RetryFailedQueries(c.Request.Context(), id)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, "Consultas reexecutadas", summary)
}

// Progress godoc
// @Summary Progresso da varredura
// @Tags Investigations
// @Produce json
// @Param id path string true "ID da investigação"
// @Success 200 {object} models.StandardResponse{data=models.InvestigationProgress}
// @Failure 404 {object} models.StandardResponse
// @Router /investigations/{id}/progress [get]
func (h *InvestigationHandler) Progress(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	progress, err := h.orchestrator.GetProgress(c.Request.Context(), id)
	if err != nil {
		handleError(c, h.logger, err)
		return
	}
	success(c, http.StatusOK, "Progresso da investigação", progress)
}
