package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/aescanero/taskorch/internal/application/invoker"
	"github.com/aescanero/taskorch/internal/application/orchestrator"
	"github.com/aescanero/taskorch/internal/application/workers"
	"github.com/aescanero/taskorch/internal/config"
	memoryevents "github.com/aescanero/taskorch/pkg/adapters/events/memory"
	natsevents "github.com/aescanero/taskorch/pkg/adapters/events/nats"
	redisevents "github.com/aescanero/taskorch/pkg/adapters/events/redis"
	"github.com/aescanero/taskorch/pkg/adapters/llm"
	"github.com/aescanero/taskorch/pkg/adapters/metrics/noop"
	promcollector "github.com/aescanero/taskorch/pkg/adapters/metrics/prometheus"
	memorystorage "github.com/aescanero/taskorch/pkg/adapters/storage/memory"
	redisstorage "github.com/aescanero/taskorch/pkg/adapters/storage/redis"
	"github.com/aescanero/taskorch/pkg/ports"
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cpuSampleInterval = 500 * time.Millisecond

// app holds the wired orchestrator and everything it must release.
type app struct {
	cfg         *config.Config
	logger      *zap.Logger
	coordinator *orchestrator.Coordinator
	monitor     *workers.HealthMonitor
	eventBus    ports.EventBus
	metrics     http.Handler

	redisClient *goredis.Client
	natsConn    *nats.Conn
}

type appOptions struct {
	// exportMetrics registers a Prometheus collector; otherwise metrics
	// are discarded.
	exportMetrics bool
}

func buildApp(ctx context.Context, cfg *config.Config, logger *zap.Logger, opts appOptions) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	var metrics ports.MetricsCollector = noop.NewCollector()
	if opts.exportMetrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = promcollector.NewCollector(reg)
		a.metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	if cfg.UsesRedis() {
		a.redisClient = goredis.NewClient(&goredis.Options{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			DialTimeout:  cfg.Redis.DialTimeout,
			ReadTimeout:  cfg.Redis.ReadTimeout,
			WriteTimeout: cfg.Redis.WriteTimeout,
		})
		if err := a.redisClient.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr))
	}

	if a.eventBus, err = a.newEventBus(); err != nil {
		return nil, err
	}

	completer, err := llm.NewClient(&llm.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		MaxTokens: cfg.LLM.MaxTokens,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	inv, err := invoker.New(completer, invoker.Policy{
		MaxAttempts: cfg.Retry.MaxRetries,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Timeout:     cfg.Retry.Timeout,
	}, metrics, logger)
	if err != nil {
		return nil, err
	}

	settings := workers.Settings{
		MaxInputLength:   cfg.Workers.MaxInputLength,
		AllowedModes:     cfg.Workers.AllowedModes,
		FilterOutput:     cfg.Workers.FilterOutput,
		MinContentLength: cfg.Workers.MinContentLength,
		HealthTimeout:    cfg.Retry.HealthTimeout,
	}

	validation := workers.NewValidationWorker(inv, nil, metrics, settings, logger)
	if cfg.Workers.CollaboratorReview {
		validation.UseCollaboratorReview()
	}
	registry, err := workers.NewRegistry(logger,
		workers.NewResearchWorker(inv, a.newResultCache(), metrics, settings, logger),
		workers.NewContentWorker(inv, settings, logger),
		validation,
	)
	if err != nil {
		return nil, err
	}

	a.monitor = workers.NewHealthMonitor(workers.MonitorConfig{
		Registry: registry,
		Prober:   inv,
		Sampler:  workers.HostSampler{DiskPath: cfg.Health.DiskPath, CPUInterval: cpuSampleInterval},
		Thresholds: workers.Thresholds{
			MinMemoryGB:   cfg.Health.MinMemoryGB,
			MinDiskGB:     cfg.Health.MinDiskGB,
			MaxCPUPercent: cfg.Health.MaxCPUPercent,
		},
		WorkDir:      cfg.Health.WorkDir,
		ConfigCheck:  cfg.Validate,
		ProbeTimeout: cfg.Retry.HealthTimeout,
		Interval:     cfg.Health.Interval,
		Metrics:      metrics,
		Logger:       logger,
	})

	a.coordinator, err = orchestrator.NewCoordinator(inv, registry, a.eventBus, metrics, a.monitor, orchestrator.Options{
		MaxInputLength: cfg.Workers.MaxInputLength,
		FilterOutput:   cfg.Workers.FilterOutput,
		HistoryLimit:   orchestrator.DefaultHistoryLimit,
	}, logger)
	if err != nil {
		return nil, err
	}

	return a, nil
}

func (a *app) newEventBus() (ports.EventBus, error) {
	switch a.cfg.Events.Backend {
	case "redis":
		return redisevents.NewStreamsEventBus(
			a.redisClient,
			"taskorch-workers",
			fmt.Sprintf("taskorch-%d", os.Getpid()),
			a.logger,
		)
	case "nats":
		conn, err := natsevents.Connect(a.cfg.NATS.URL, a.logger)
		if err != nil {
			return nil, err
		}
		a.natsConn = conn
		a.logger.Info("connected to NATS", zap.String("url", a.cfg.NATS.URL))
		return natsevents.NewEventBus(conn, a.cfg.NATS.SubjectPrefix, a.logger)
	default:
		return memoryevents.NewInMemoryEventBus(a.logger), nil
	}
}

// newResultCache returns nil when caching is disabled.
func (a *app) newResultCache() ports.ResultCache {
	switch a.cfg.Cache.Backend {
	case "redis":
		return redisstorage.NewResultCache(a.redisClient, a.cfg.Cache.TTL, a.logger)
	case "memory":
		return memorystorage.NewResultCache(a.cfg.Cache.TTL)
	default:
		return nil
	}
}

// close releases everything buildApp acquired, in reverse order.
func (a *app) close() {
	if a.coordinator != nil {
		_ = a.coordinator.Close()
	}
	if a.monitor != nil {
		a.monitor.Stop()
	}
	if a.eventBus != nil {
		if err := a.eventBus.Close(); err != nil {
			a.logger.Error("event bus close error", zap.Error(err))
		}
	}
	if a.natsConn != nil {
		a.natsConn.Close()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Error("Redis close error", zap.Error(err))
		}
	}
}
