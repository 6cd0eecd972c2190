package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/investigacao-api/internal/api/middleware"
	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/orchestrator"
	"github.com/nexconsult/investigacao-api/internal/planner"
	"github.com/nexconsult/investigacao-api/internal/registry"
	"github.com/nexconsult/investigacao-api/internal/worker"
)

const startTimeKey = "handler_start"

func respond(c *gin.Context, status int, resp *models.StandardResponse) {
	resp.SetRequestID(c.GetString(middleware.RequestIDKey))
	if start, ok := c.Get(startTimeKey); ok {
		resp.SetExecutionTime(time.Since(start.(time.Time)))
	}
	c.JSON(status, resp)
}

func success(c *gin.Context, status int, message string, data interface{}) {
	respond(c, status, models.NewSuccessResponse(message, data))
}

func fail(c *gin.Context, status int, code, message string) {
	respond(c, status, models.NewErrorResponse(code, message, nil))
}

// Timing stores the handler start so responses carry execution_time
func Timing() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(startTimeKey, time.Now())
		c.Next()
	}
}

// errorStatus maps engine sentinel errors onto HTTP status and error code
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, orchestrator.ErrInvestigationNotFound):
		return http.StatusNotFound, models.ErrorCodeInvestigationNotFound
	case errors.Is(err, registry.ErrProviderNotFound):
		return http.StatusNotFound, models.ErrorCodeProviderNotFound
	case errors.Is(err, orchestrator.ErrUnsupportedQuery):
		return http.StatusUnprocessableEntity, models.ErrorCodeUnsupportedQuery
	case errors.Is(err, planner.ErrUnknownDepth):
		return http.StatusBadRequest, models.ErrorCodeInvalidDepth
	case errors.Is(err, orchestrator.ErrInvalidDocument):
		return http.StatusBadRequest, models.ErrorCodeInvalidDocument
	case errors.Is(err, orchestrator.ErrScanInProgress):
		return http.StatusConflict, models.ErrorCodeScanInProgress
	case errors.Is(err, worker.ErrQueueFull), errors.Is(err, worker.ErrStopped):
		return http.StatusServiceUnavailable, models.ErrorCodeQueueFull
	default:
		return http.StatusInternalServerError, models.ErrorCodeInternalError
	}
}

// handleError writes the mapped error; internal details of 500s are logged,
// not returned
func handleError(c *gin.Context, logger *logrus.Logger, err error) {
	status, code := errorStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"request_id": c.GetString(middleware.RequestIDKey),
			"path":       c.Request.URL.Path,
		}).WithError(err).Error("Request failed")
		message = "Internal error"
	}
	fail(c, status, code, message)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		fail(c, http.StatusBadRequest, models.ErrorCodeInvalidRequest, "Invalid investigation id")
		return uuid.Nil, false
	}
	return id, true
}
