package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aescanero/taskorch/internal/application/orchestrator"
	"github.com/aescanero/taskorch/internal/application/workers"
	"github.com/aescanero/taskorch/internal/testutil"
	"github.com/aescanero/taskorch/pkg/adapters/metrics/noop"
	"github.com/aescanero/taskorch/pkg/adapters/storage/memory"
	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeSampler struct {
	sample workers.ResourceSample
}

func (f fakeSampler) Sample(context.Context) (workers.ResourceSample, error) {
	return f.sample, nil
}

func newTestServer(t *testing.T, sample workers.ResourceSample) (*Server, *testutil.MockCompleter) {
	t.Helper()
	return newTestServerWithSettings(t, sample, workers.DefaultSettings())
}

func newTestServerWithSettings(t *testing.T, sample workers.ResourceSample, settings workers.Settings) (*Server, *testutil.MockCompleter) {
	t.Helper()
	logger := zaptest.NewLogger(t)
	mock := &testutil.MockCompleter{Default: "reply text"}
	inv := testutil.NewInvoker(t, mock)
	metrics := noop.NewCollector()

	registry, err := workers.NewRegistry(logger,
		workers.NewResearchWorker(inv, memory.NewResultCache(0), metrics, settings, logger),
		workers.NewContentWorker(inv, settings, logger),
		workers.NewValidationWorker(inv, nil, metrics, settings, logger),
	)
	require.NoError(t, err)

	monitor := workers.NewHealthMonitor(workers.MonitorConfig{
		Registry:   registry,
		Prober:     inv,
		Sampler:    fakeSampler{sample: sample},
		Thresholds: workers.Thresholds{MinMemoryGB: 1, MinDiskGB: 1, MaxCPUPercent: 90},
		WorkDir:    t.TempDir(),
		Logger:     logger,
	})

	coord, err := orchestrator.NewCoordinator(inv, registry, nil, metrics, monitor, orchestrator.Options{}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { coord.Close() })

	return NewServer(&Config{
		Port:           0,
		Coordinator:    coord,
		MetricsHandler: http.NotFoundHandler(),
		Logger:         logger,
	}), mock
}

var healthySample = workers.ResourceSample{MemoryAvailableGB: 8, DiskFreeGB: 50, CPUPercent: 10}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestLiveness(t *testing.T) {
	s, _ := newTestServer(t, healthySample)

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestProcessTaskAndHistory(t *testing.T) {
	s, mock := newTestServer(t, healthySample)

	rec := do(t, s, http.MethodPost, "/api/v1/tasks", `{"description":"Explain channels in Go"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report struct {
		Record struct {
			ID          string   `json:"id"`
			StepOrder   []string `json:"step_order"`
			FinalOutput string   `json:"final_output"`
			Plan        struct {
				Fallback bool `json:"fallback"`
			} `json:"plan"`
		} `json:"record"`
		Metrics map[string]json.RawMessage `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.NotEmpty(t, report.Record.ID)
	assert.True(t, report.Record.Plan.Fallback)
	assert.Len(t, report.Record.StepOrder, 3)
	assert.Contains(t, report.Metrics, "coordinator")
	assert.Greater(t, mock.CallCount(), 1)

	rec = do(t, s, http.MethodGet, "/api/v1/workflows", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Equal(t, 1, history.Total)
}

func TestProcessTaskRejectsBadInput(t *testing.T) {
	s, mock := newTestServer(t, healthySample)

	rec := do(t, s, http.MethodPost, "/api/v1/tasks", `{"context":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_REQUEST")

	rec = do(t, s, http.MethodPost, "/api/v1/tasks", `{"description":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_TASK")

	assert.Equal(t, 0, mock.CallCount())
}

func TestGetMetrics(t *testing.T) {
	s, _ := newTestServer(t, healthySample)

	rec := do(t, s, http.MethodGet, "/api/v1/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Workers       []WorkerMetrics        `json:"workers"`
		Validation    map[string]interface{} `json:"validation"`
		ResearchCache map[string]interface{} `json:"research_cache"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	names := make([]string, 0, len(body.Workers))
	for _, w := range body.Workers {
		names = append(names, w.Name)
	}
	assert.Equal(t, []string{"ContentWorker", "ResearchWorker", "ValidationWorker", "coordinator"}, names)
	assert.Contains(t, body.Validation, "validations_performed")
	assert.Equal(t, true, body.ResearchCache["enabled"])
}

func TestHealthCheckAll(t *testing.T) {
	s, _ := newTestServer(t, healthySample)
	rec := do(t, s, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"system_healthy":true`)

	s, _ = newTestServer(t, workers.ResourceSample{MemoryAvailableGB: 0.1, DiskFreeGB: 50, CPUPercent: 10})
	rec = do(t, s, http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "resources low")
}

func TestValidate(t *testing.T) {
	s, _ := newTestServer(t, healthySample)

	rec := do(t, s, http.MethodPost, "/api/v1/validate", `{"content":"x","type":"quality"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"category":"length"`)
	assert.Contains(t, rec.Body.String(), `"passed":false`)

	rec = do(t, s, http.MethodPost, "/api/v1/validate", `{"content":"x","type":"grammar"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_VALIDATION_TYPE")
}

func TestValidateChecksInputFirst(t *testing.T) {
	settings := workers.DefaultSettings()
	settings.MaxInputLength = 100
	settings.AllowedModes = []string{string(domain.ValidationSafety)}
	s, mock := newTestServerWithSettings(t, healthySample, settings)

	v, ok := s.coordinator.Registry().Validation()
	require.True(t, ok)
	v.UseCollaboratorReview()

	tests := []struct {
		name string
		body string
	}{
		{
			name: "content too long",
			body: `{"content":"` + strings.Repeat("a", 2500) + `","type":"safety"}`,
		},
		{
			name: "disabled type",
			body: `{"content":"func main() {}","type":"technical"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/api/v1/validate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "INVALID_INPUT")
			assert.Zero(t, mock.CallCount())
		})
	}

	rec := do(t, s, http.MethodPost, "/api/v1/validate", `{"content":"A short friendly note.","type":"safety"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, mock.CallCount())
}

func TestClearResearchCache(t *testing.T) {
	s, _ := newTestServer(t, healthySample)

	rec := do(t, s, http.MethodPost, "/api/v1/tasks", `{"description":"Explain channels in Go","context":{"query":"channels"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/v1/research/cache/clear", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"cleared":1}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	s, _ := newTestServer(t, healthySample)

	rec := do(t, s, http.MethodOptions, "/api/v1/tasks", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
