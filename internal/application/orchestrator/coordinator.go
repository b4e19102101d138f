package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/aescanero/taskorch/internal/application/invoker"
	"github.com/aescanero/taskorch/internal/application/workers"
	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/aescanero/taskorch/pkg/ports"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Workflow outcome labels reported to the metrics collector.
const (
	StatusCompleted = "completed"
	StatusDegraded  = "degraded"
	StatusCancelled = "cancelled"
)

// Options tunes the coordinator.
type Options struct {
	MaxInputLength int
	FilterOutput   bool
	HistoryLimit   int
}

// Coordinator plans tasks, dispatches their steps to workers, synthesizes
// a final output and keeps a bounded workflow history.
type Coordinator struct {
	invoker  *invoker.Invoker
	planner  *Planner
	registry *workers.Registry
	monitor  *workers.HealthMonitor
	eventBus ports.EventBus
	metrics  ports.MetricsCollector
	history  *history
	opts     Options
	logger   *zap.Logger
	closed   atomic.Bool
}

// NewCoordinator creates a new coordinator. Its own collaborator calls
// (planning and the generic fallback) are counted under "coordinator".
// eventBus may be nil.
func NewCoordinator(
	inv *invoker.Invoker,
	registry *workers.Registry,
	eventBus ports.EventBus,
	metrics ports.MetricsCollector,
	monitor *workers.HealthMonitor,
	opts Options,
	logger *zap.Logger,
) (*Coordinator, error) {
	if inv == nil {
		return nil, fmt.Errorf("invoker is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("worker registry is required")
	}
	if monitor == nil {
		return nil, fmt.Errorf("health monitor is required")
	}
	if metrics == nil {
		return nil, fmt.Errorf("metrics collector is required")
	}
	if opts.MaxInputLength <= 0 {
		opts.MaxInputLength = 10000
	}

	own := inv.Named(domain.CoordinatorName)
	logger = logger.With(zap.String("component", domain.CoordinatorName))

	return &Coordinator{
		invoker:  own,
		planner:  NewPlanner(own, NewValidator(), logger),
		registry: registry,
		monitor:  monitor,
		eventBus: eventBus,
		metrics:  metrics,
		history:  newHistory(opts.HistoryLimit),
		opts:     opts,
		logger:   logger,
	}, nil
}

// Process plans and runs task, appends its record to the history and
// returns it with a snapshot of all metrics.
//
// If ctx is cancelled while the task runs, the in-flight collaborator call
// completes but its result is discarded, no record is appended and the
// returned error wraps domain.ErrTaskCancelled.
func (c *Coordinator) Process(ctx context.Context, task domain.Task) (*domain.Report, error) {
	if c.closed.Load() {
		return nil, domain.ErrCoordinatorClose
	}
	if err := c.validateTask(task); err != nil {
		return nil, err
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	start := time.Now()
	logger := c.logger.With(zap.String("task_id", task.ID))
	logger.Info("processing task", zap.Int("description_length", len(task.Description)))

	c.metrics.RecordWorkflowStarted()
	c.publish(ctx, domain.EventWorkflowStarted, task.ID, "", map[string]interface{}{
		"description": task.Description,
	})

	plan := c.planner.Plan(ctx, task)
	if err := ctx.Err(); err != nil {
		return nil, c.cancelled(ctx, task, plan, start, err)
	}

	results, order, err := c.dispatch(ctx, task, plan)
	if err != nil {
		return nil, c.cancelled(ctx, task, plan, start, err)
	}

	record := &domain.WorkflowRecord{
		ID:        uuid.New().String(),
		Task:      task,
		Plan:      plan,
		Results:   results,
		StepOrder: order,
		Timestamp: time.Now(),
	}
	record.FinalOutput = Synthesize(record.OrderedResults())
	record.Duration = time.Since(start)

	if err := c.history.add(record); err != nil {
		return nil, err
	}

	status := StatusCompleted
	if record.FinalOutput == NoResultsSentinel {
		status = StatusDegraded
	}
	c.metrics.RecordWorkflowCompleted(status, plan.Fallback, record.Duration)
	c.publish(ctx, domain.EventWorkflowCompleted, task.ID, "", map[string]interface{}{
		"record_id":   record.ID,
		"status":      status,
		"steps":       len(plan.Steps),
		"fallback":    plan.Fallback,
		"duration_ms": record.Duration.Milliseconds(),
	})

	logger.Info("task completed",
		zap.String("status", status),
		zap.Int("steps", len(plan.Steps)),
		zap.Bool("fallback_plan", plan.Fallback),
		zap.Duration("duration", record.Duration))

	return &domain.Report{Record: record, Metrics: c.AllMetrics()}, nil
}

func (c *Coordinator) validateTask(task domain.Task) error {
	desc := strings.TrimSpace(task.Description)
	if desc == "" {
		return domain.NewInputValidationError(domain.CoordinatorName, "task description is required")
	}
	if n := len([]rune(task.Description)); n > c.opts.MaxInputLength {
		return domain.NewInputValidationError(domain.CoordinatorName, "task description too long (%d > %d)", n, c.opts.MaxInputLength)
	}
	return nil
}

func (c *Coordinator) cancelled(ctx context.Context, task domain.Task, plan *domain.WorkflowPlan, start time.Time, cause error) error {
	elapsed := time.Since(start)
	c.metrics.RecordWorkflowCompleted(StatusCancelled, plan.Fallback, elapsed)
	c.publish(context.WithoutCancel(ctx), domain.EventWorkflowCancelled, task.ID, "", map[string]interface{}{
		"reason": cause.Error(),
	})
	c.logger.Warn("task cancelled",
		zap.String("task_id", task.ID),
		zap.Duration("elapsed", elapsed),
		zap.Error(cause))
	return fmt.Errorf("%w: %w", domain.ErrTaskCancelled, cause)
}

func (c *Coordinator) publish(ctx context.Context, typ domain.EventType, taskID, worker string, data map[string]interface{}) {
	if c.eventBus == nil {
		return
	}
	event := domain.Event{
		ID:        uuid.New().String(),
		Type:      typ,
		TaskID:    taskID,
		Worker:    worker,
		Timestamp: time.Now(),
		Data:      data,
	}
	if err := c.eventBus.Publish(ctx, domain.WorkflowTopic, event); err != nil {
		c.logger.Error("failed to publish workflow event",
			zap.String("task_id", taskID),
			zap.String("event_type", string(typ)),
			zap.Error(err))
	}
}

// History returns up to the last HistoryLimit records, oldest first.
func (c *Coordinator) History() []*domain.WorkflowRecord {
	return c.history.snapshot()
}

// AllMetrics returns the coordinator's and every worker's counters keyed
// by name.
func (c *Coordinator) AllMetrics() map[string]domain.Metrics {
	out := c.registry.Metrics()
	out[domain.CoordinatorName] = c.invoker.Metrics()
	return out
}

// HealthCheckAll probes every worker and runs the system checks.
func (c *Coordinator) HealthCheckAll(ctx context.Context) *workers.HealthReport {
	return c.monitor.CheckAll(ctx)
}

// Registry returns the worker registry.
func (c *Coordinator) Registry() *workers.Registry {
	return c.registry
}

// Close stops the history goroutine. Process fails with
// domain.ErrCoordinatorClose afterwards.
func (c *Coordinator) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.history.close()
	c.logger.Info("coordinator closed")
	return nil
}

// IsCancelled reports whether err came from a cancelled task.
func IsCancelled(err error) bool {
	return errors.Is(err, domain.ErrTaskCancelled)
}
