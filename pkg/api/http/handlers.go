package http

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/aescanero/taskorch/internal/application/orchestrator"
	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// TaskRequest represents a task submission request
type TaskRequest struct {
	Description string                 `json:"description" binding:"required"`
	Context     map[string]interface{} `json:"context"`
}

// ValidateRequest represents a standalone validation request
type ValidateRequest struct {
	Content string `json:"content" binding:"required"`
	Type    string `json:"type"`
	Strict  bool   `json:"strict"`
}

// WorkerMetrics is one worker's counters with derived rates.
type WorkerMetrics struct {
	Name          string  `json:"name"`
	Requests      int64   `json:"requests"`
	Successes     int64   `json:"successes"`
	Failures      int64   `json:"failures"`
	SuccessRate   float64 `json:"success_rate"`
	AverageTimeMs int64   `json:"average_time_ms"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{Code: code, Message: message},
	})
}

// handleLiveness reports that the process is serving requests
func (s *Server) handleLiveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// handleProcessTask runs a task to completion and returns its report
func (s *Server) handleProcessTask(c *gin.Context) {
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("invalid task request", zap.Error(err))
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	report, err := s.coordinator.Process(c.Request.Context(), domain.Task{
		Description: req.Description,
		Context:     req.Context,
	})
	switch {
	case err == nil:
		c.JSON(http.StatusOK, report)
	case errors.Is(err, domain.ErrInvalidInput):
		abortWithError(c, http.StatusBadRequest, "INVALID_TASK", err.Error())
	case orchestrator.IsCancelled(err):
		abortWithError(c, http.StatusRequestTimeout, "TASK_CANCELLED", err.Error())
	case errors.Is(err, domain.ErrCoordinatorClose):
		abortWithError(c, http.StatusServiceUnavailable, "SHUTTING_DOWN", err.Error())
	default:
		s.logger.Error("failed to process task", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "PROCESSING_FAILED", err.Error())
	}
}

// handleListWorkflows returns the retained workflow history, oldest first
func (s *Server) handleListWorkflows(c *gin.Context) {
	records := s.coordinator.History()
	c.JSON(http.StatusOK, gin.H{
		"workflows": records,
		"total":     len(records),
	})
}

// handleGetMetrics returns per-worker counters plus validation and cache
// statistics
func (s *Server) handleGetMetrics(c *gin.Context) {
	all := s.coordinator.AllMetrics()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]WorkerMetrics, 0, len(names))
	for _, name := range names {
		m := all[name]
		out = append(out, WorkerMetrics{
			Name:          name,
			Requests:      m.Requests,
			Successes:     m.Successes,
			Failures:      m.Failures,
			SuccessRate:   m.SuccessRate(),
			AverageTimeMs: m.AverageTime().Milliseconds(),
		})
	}

	body := gin.H{
		"workers":   out,
		"timestamp": time.Now().UTC(),
	}
	registry := s.coordinator.Registry()
	if v, ok := registry.Validation(); ok {
		body["validation"] = v.Stats()
	}
	if r, ok := registry.Research(); ok {
		stats, err := r.CacheStats(c.Request.Context())
		if err != nil {
			s.logger.Warn("failed to read research cache stats", zap.Error(err))
		} else {
			body["research_cache"] = stats
		}
	}

	c.JSON(http.StatusOK, body)
}

// handleHealthCheckAll probes every worker and runs the system checks
func (s *Server) handleHealthCheckAll(c *gin.Context) {
	report := s.coordinator.HealthCheckAll(c.Request.Context())
	status := http.StatusOK
	if !report.SystemHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

// handleValidate validates content outside any workflow
func (s *Server) handleValidate(c *gin.Context) {
	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	kind := domain.ValidationComprehensive
	if req.Type != "" {
		kind = domain.ValidationKind(req.Type)
	}
	switch kind {
	case domain.ValidationSafety, domain.ValidationQuality, domain.ValidationTechnical, domain.ValidationComprehensive:
	default:
		abortWithError(c, http.StatusBadRequest, "INVALID_VALIDATION_TYPE",
			"type must be safety, quality, technical, or comprehensive")
		return
	}

	v, ok := s.coordinator.Registry().Validation()
	if !ok {
		abortWithError(c, http.StatusServiceUnavailable, "WORKER_NOT_AVAILABLE", "validation worker is not registered")
		return
	}

	input := domain.WorkerInput{Content: req.Content, Mode: string(kind), StrictMode: req.Strict}
	if err := v.ValidateInput(input); err != nil {
		abortWithError(c, http.StatusBadRequest, "INVALID_INPUT", err.Error())
		return
	}
	c.JSON(http.StatusOK, v.Validate(c.Request.Context(), input.Content, kind, input.StrictMode))
}

// handleClearResearchCache empties the research cache
func (s *Server) handleClearResearchCache(c *gin.Context) {
	r, ok := s.coordinator.Registry().Research()
	if !ok {
		abortWithError(c, http.StatusServiceUnavailable, "WORKER_NOT_AVAILABLE", "research worker is not registered")
		return
	}
	n, err := r.ClearCache(c.Request.Context())
	if err != nil {
		s.logger.Error("failed to clear research cache", zap.Error(err))
		abortWithError(c, http.StatusInternalServerError, "CACHE_ERROR", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": n})
}
