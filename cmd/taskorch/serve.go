package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/aescanero/taskorch/internal/config"
	"github.com/aescanero/taskorch/pkg/api/grpc"
	"github.com/aescanero/taskorch/pkg/api/http"
	"github.com/aescanero/taskorch/pkg/api/websocket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP, WebSocket and gRPC health servers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger := initLogger(cfg.LogLevel)
			defer func() { _ = logger.Sync() }()

			return serve(cmd.Context(), cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("starting task orchestrator",
		zap.String("version", Version),
		zap.String("build_time", BuildTime))

	a, err := buildApp(ctx, cfg, logger, appOptions{exportMetrics: true})
	if err != nil {
		return err
	}
	defer a.close()

	httpServer := http.NewServer(&http.Config{
		Port:           cfg.HTTPPort,
		Coordinator:    a.coordinator,
		MetricsHandler: a.metrics,
		Logger:         logger,
	})
	httpServer.SetupWebSocket(websocket.NewHandler(a.eventBus, logger))

	grpcServer, err := grpc.NewServer(&grpc.Config{
		Port:   cfg.GRPCPort,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	a.monitor.OnReport(grpcServer.UpdateHealth)
	a.monitor.Start()

	errCh := make(chan error, 2)
	go func() { errCh <- httpServer.Start() }()
	go func() { errCh <- grpcServer.Start() }()

	logger.Info("task orchestrator started",
		zap.Int("http_port", cfg.HTTPPort),
		zap.Int("grpc_port", cfg.GRPCPort),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("events_backend", cfg.Events.Backend),
		zap.String("cache_backend", cfg.Cache.Backend))

	// First report so the gRPC health service does not wait a full interval.
	go func() { grpcServer.UpdateHealth(a.monitor.CheckAll(ctx)) }()

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var serveErr error
	select {
	case <-sigCtx.Done():
		logger.Info("received shutdown signal")
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("server failed", zap.Error(serveErr))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.ShutdownTimeout)
	defer cancel()

	a.monitor.Stop()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}
	if err := grpcServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gRPC server shutdown error", zap.Error(err))
	}

	logger.Info("task orchestrator shut down complete")
	return serveErr
}
