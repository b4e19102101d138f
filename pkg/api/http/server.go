package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aescanero/taskorch/internal/application/orchestrator"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	server      *http.Server
	coordinator *orchestrator.Coordinator
	logger      *zap.Logger
}

// Config holds HTTP server configuration
type Config struct {
	Port        int
	Coordinator *orchestrator.Coordinator
	// MetricsHandler serves /metrics. Defaults to promhttp.Handler().
	MetricsHandler http.Handler
	Logger         *zap.Logger
}

// NewServer creates a new HTTP server
func NewServer(cfg *Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.MetricsHandler == nil {
		cfg.MetricsHandler = promhttp.Handler()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger(cfg.Logger))

	s := &Server{
		router:      router,
		coordinator: cfg.Coordinator,
		logger:      cfg.Logger,
	}

	s.setupRoutes(cfg.MetricsHandler)

	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	return s
}

// setupRoutes configures API routes
func (s *Server) setupRoutes(metrics http.Handler) {
	// Liveness
	s.router.GET("/health", s.handleLiveness)

	// Metrics
	s.router.GET("/metrics", gin.WrapH(metrics))

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/tasks", s.handleProcessTask)
		v1.GET("/workflows", s.handleListWorkflows)
		v1.GET("/metrics", s.handleGetMetrics)
		v1.GET("/health", s.handleHealthCheckAll)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/research/cache/clear", s.handleClearResearchCache)
	}
}

// EventStreamer serves the live workflow event stream.
type EventStreamer interface {
	HandleEventStream(*gin.Context)
}

// SetupWebSocket adds the WebSocket event stream to the server
func (s *Server) SetupWebSocket(handler EventStreamer) {
	s.router.GET("/api/v1/events/ws", handler.HandleEventStream)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	s.logger.Info("HTTP server shut down complete")
	return nil
}
