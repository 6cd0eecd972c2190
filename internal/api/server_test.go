package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nexconsult/investigacao-api/internal/api/middleware"
	"github.com/nexconsult/investigacao-api/internal/config"
	"github.com/nexconsult/investigacao-api/internal/logger"
	"github.com/nexconsult/investigacao-api/internal/models"
	"github.com/nexconsult/investigacao-api/internal/services"
)

const adminToken = "token-de-teste"

type envelope struct {
	Status  string               `json:"status"`
	Message string               `json:"message"`
	Data    json.RawMessage      `json:"data"`
	Error   *models.ErrorDetails `json:"error"`
	Meta    *models.ResponseMeta `json:"meta"`
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Environment: "test"},
		Log:    config.LogConfig{Level: "error", Format: "json"},
		Security: config.SecurityConfig{
			RateLimit: config.RateLimitConfig{RequestsPerMinute: 6000, BurstSize: 1000, CleanupInterval: time.Minute},
			CORS: config.CORSConfig{
				AllowedOrigins: []string{"*"},
				AllowedMethods: []string{"GET", "POST", "PUT"},
				AllowedHeaders: []string{"*"},
			},
			AdminToken: adminToken,
		},
		Engine: config.EngineConfig{
			BatchSize:      5,
			QueryTimeout:   5 * time.Second,
			ConfigCacheTTL: time.Minute,
			Workers:        2,
			QueueSize:      100,
			MaxAttempts:    1,
			BaseDelay:      time.Millisecond,
		},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()
	log := logger.Discard()
	container, err := services.NewContainer(cfg, log)
	require.NoError(t, err)

	server := NewServer(cfg, log, container)
	t.Cleanup(func() {
		server.Close()
		_ = container.Close(2 * time.Second)
	})
	return server
}

func do(t *testing.T, s *Server, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") && w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func createInvestigation(t *testing.T, s *Server, depth string) models.Investigation {
	t.Helper()
	w, env := do(t, s, http.MethodPost, "/api/v1/investigations", models.CreateInvestigationRequest{
		TargetName:     "Empresa Exemplo Ltda",
		TargetDocument: "11.222.333/0001-81",
		Depth:          depth,
		UserID:         "advogado@escritorio.com.br",
		LegalBasis:     "EXERCICIO_REGULAR_DE_DIREITOS",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var inv models.Investigation
	require.NoError(t, json.Unmarshal(env.Data, &inv))
	return inv
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		w, _ := do(t, s, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w, _ := do(t, s, http.MethodGet, "/health", nil)
	var health models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "healthy", health.Services["storage"].Status)
	assert.Equal(t, "disabled", health.Services["redis"].Status)
}

func TestCreateInvestigationValidation(t *testing.T) {
	s := newTestServer(t)

	w, env := do(t, s, http.MethodPost, "/api/v1/investigations", models.CreateInvestigationRequest{
		TargetDocument: "123",
		Depth:          "BASICA",
		UserID:         "u",
		LegalBasis:     "b",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, models.ErrorCodeInvalidDocument, env.Error.Code)

	w, env = do(t, s, http.MethodPost, "/api/v1/investigations", models.CreateInvestigationRequest{
		TargetDocument: "11222333000181",
		Depth:          "PROFUNDA",
		UserID:         "u",
		LegalBasis:     "b",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrorCodeInvalidDepth, env.Error.Code)

	w, env = do(t, s, http.MethodPost, "/api/v1/investigations", map[string]string{"depth": "BASICA"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrorCodeInvalidRequest, env.Error.Code)
}

func TestSyncScanFlow(t *testing.T) {
	s := newTestServer(t)
	inv := createInvestigation(t, s, "basica")
	assert.Equal(t, models.TargetPJ, inv.TargetType)
	assert.Equal(t, models.DepthBasica, inv.Depth)

	w, env := do(t, s, http.MethodPost, "/api/v1/investigations/"+inv.ID.String()+"/scan", nil,
		"X-Request-ID", "req-scan")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "req-scan", env.Meta.RequestID)
	assert.NotEmpty(t, env.Meta.ExecutionTime)

	var scan models.ScanResponse
	require.NoError(t, json.Unmarshal(env.Data, &scan))
	assert.Equal(t, models.InvestigationCompleted, scan.Investigation.Status)
	assert.Equal(t, 4, scan.Progress.TotalQueries)
	assert.Equal(t, 4, scan.Progress.CompletedQueries)

	w, env = do(t, s, http.MethodGet, "/api/v1/investigations/"+inv.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var details struct {
		Investigation models.Investigation    `json:"investigation"`
		Executions    []models.QueryExecution `json:"executions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &details))
	assert.Len(t, details.Executions, 4)

	w, env = do(t, s, http.MethodGet, "/api/v1/investigations/"+inv.ID.String()+"/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var progress models.InvestigationProgress
	require.NoError(t, json.Unmarshal(env.Data, &progress))
	assert.Equal(t, models.ProgressCompleted, progress.Status)

	w, env = do(t, s, http.MethodPost, "/api/v1/investigations/"+inv.ID.String()+"/retry", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"retried":0`)

	w, env = do(t, s, http.MethodGet, "/api/v1/investigations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.Investigation
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)
}

func TestAsyncScanReturnsAccepted(t *testing.T) {
	s := newTestServer(t)
	inv := createInvestigation(t, s, "BASICA")
	path := "/api/v1/investigations/" + inv.ID.String()

	w, env := do(t, s, http.MethodPost, path+"/scan", models.ScanRequest{Depth: "INTERMEDIARIA", Async: true})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, models.StatusInfo, env.Status)

	require.Eventually(t, func() bool {
		_, env := do(t, s, http.MethodGet, path+"/progress", nil)
		var p models.InvestigationProgress
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return false
		}
		return p.Status == models.ProgressCompleted
	}, 5*time.Second, 20*time.Millisecond)
}

func TestSingleQueryErrors(t *testing.T) {
	s := newTestServer(t)
	inv := createInvestigation(t, s, "BASICA")
	path := "/api/v1/investigations/" + inv.ID.String() + "/queries"

	tests := []struct {
		name string
		body models.SingleQueryRequest
		want int
		code string
	}{
		{"unknown provider", models.SingleQueryRequest{Provider: "NOPE", QueryType: "CONSULTA_CNPJ"}, http.StatusNotFound, models.ErrorCodeProviderNotFound},
		{"unknown query type", models.SingleQueryRequest{Provider: "DATAJUD", QueryType: "HOROSCOPO"}, http.StatusBadRequest, models.ErrorCodeUnsupportedQuery},
		{"unsupported by provider", models.SingleQueryRequest{Provider: "RECEITA_FEDERAL", QueryType: "IMOVEIS"}, http.StatusUnprocessableEntity, models.ErrorCodeUnsupportedQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := do(t, s, http.MethodPost, path, tt.body)
			assert.Equal(t, tt.want, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}

	w, env := do(t, s, http.MethodPost, path, models.SingleQueryRequest{Provider: "datajud", QueryType: "consulta_processo"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result models.ProviderResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Success)
	assert.True(t, result.IsMock)

	w, env = do(t, s, http.MethodGet, "/api/v1/investigations/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.ErrorCodeInvalidRequest, env.Error.Code)

	w, env = do(t, s, http.MethodGet, "/api/v1/investigations/00000000-0000-0000-0000-000000000001", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrorCodeInvestigationNotFound, env.Error.Code)
}

func TestProviderAdministration(t *testing.T) {
	s := newTestServer(t)

	w, env := do(t, s, http.MethodGet, "/api/v1/providers", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var infos []models.ProviderInfo
	require.NoError(t, json.Unmarshal(env.Data, &infos))
	assert.Len(t, infos, 13)

	body := map[string]interface{}{
		"credentials":    map[string]string{"api_key": "abc"},
		"monthly_budget": "100.00",
		"active":         true,
	}

	w, _ = do(t, s, http.MethodPut, "/api/v1/providers/SERASA/config", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, s, http.MethodPut, "/api/v1/providers/SERASA/config", body, middleware.AdminTokenHeader, adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, env = do(t, s, http.MethodGet, "/api/v1/providers/configured", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &infos))
	require.Len(t, infos, 1)
	assert.Equal(t, models.ProviderSerasa, infos[0].ID)

	w, env = do(t, s, http.MethodGet, "/api/v1/providers/serasa/rate-limit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var limits models.RateLimitInfo
	require.NoError(t, json.Unmarshal(env.Data, &limits))
	assert.Equal(t, models.ProviderSerasa, limits.Provider)
	assert.False(t, limits.IsLimited)

	w, _ = do(t, s, http.MethodGet, "/api/v1/providers/NOPE/rate-limit", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBudgetEndpoints(t *testing.T) {
	s := newTestServer(t)

	w, env := do(t, s, http.MethodGet, "/api/v1/budget/spend", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), `"total":"0"`)

	w, env = do(t, s, http.MethodGet, "/api/v1/budget/alerts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(env.Data))

	w, _ = do(t, s, http.MethodGet, "/api/v1/budget/alerts/pgfn", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, s, http.MethodGet, "/api/v1/budget/alerts/NOPE", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, s, http.MethodPost, "/api/v1/budget/reset", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, s, http.MethodPost, "/api/v1/budget/reset", nil, middleware.AdminTokenHeader, adminToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFallbackRoutesAndMetrics(t *testing.T) {
	s := newTestServer(t)

	w, env := do(t, s, http.MethodGet, "/api/v1/nada", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.ErrorCodeNotFound, env.Error.Code)

	w, env = do(t, s, http.MethodDelete, "/api/v1/budget/spend", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.Equal(t, models.ErrorCodeMethodNotAllowed, env.Error.Code)

	w, _ = do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "investigacao_http_requests_total")
}
