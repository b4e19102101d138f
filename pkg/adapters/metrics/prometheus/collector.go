package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskorch"

// Collector implements MetricsCollector using Prometheus
type Collector struct {
	workflowsStarted   prometheus.Counter
	workflowsCompleted *prometheus.CounterVec
	activeWorkflows    prometheus.Gauge
	workflowDuration   *prometheus.HistogramVec

	stepsExecuted *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec

	collaboratorCalls    *prometheus.CounterVec
	collaboratorAttempts prometheus.Histogram
	collaboratorLatency  *prometheus.HistogramVec

	validations      *prometheus.CounterVec
	validationScores *prometheus.HistogramVec

	cacheLookups *prometheus.CounterVec

	workerHealth *prometheus.GaugeVec
	checkHealth  *prometheus.GaugeVec
}

// NewCollector registers the orchestrator metrics with reg. A nil reg
// registers with the default Prometheus registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		workflowsStarted: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflows_started_total",
				Help:      "Total number of workflows started",
			},
		),
		workflowsCompleted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "workflows_completed_total",
				Help:      "Total number of workflows finished, by status",
			},
			[]string{"status", "fallback_plan"},
		),
		activeWorkflows: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "active_workflows",
				Help:      "Number of workflows currently running",
			},
		),
		workflowDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "workflow_duration_seconds",
				Help:      "Workflow duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"status"},
		),
		stepsExecuted: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "steps_executed_total",
				Help:      "Total number of workflow steps executed",
			},
			[]string{"worker", "status"},
		),
		stepDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "step_duration_seconds",
				Help:      "Step duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"worker"},
		),
		collaboratorCalls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "collaborator_calls_total",
				Help:      "Total number of reasoning collaborator invocations, by outcome",
			},
			[]string{"outcome"},
		),
		collaboratorAttempts: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "collaborator_attempts",
				Help:      "Attempts made per collaborator invocation",
				Buckets:   []float64{1, 2, 3, 4, 5, 10},
			},
		),
		collaboratorLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "collaborator_latency_seconds",
				Help:      "Collaborator invocation latency in seconds, retries included",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 60},
			},
			[]string{"outcome"},
		),
		validations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "validations_total",
				Help:      "Total number of validations, by type and verdict",
			},
			[]string{"type", "passed"},
		),
		validationScores: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "validation_score",
				Help:      "Validation scores",
				Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
			[]string{"type"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "research_cache_lookups_total",
				Help:      "Research cache lookups, by result",
			},
			[]string{"result"},
		),
		workerHealth: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "worker_healthy",
				Help:      "1 if the worker's last health probe succeeded",
			},
			[]string{"worker"},
		),
		checkHealth: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "system_check_healthy",
				Help:      "1 if the system check last passed",
			},
			[]string{"check"},
		),
	}
}

// RecordWorkflowStarted counts a started workflow
func (c *Collector) RecordWorkflowStarted() {
	c.workflowsStarted.Inc()
	c.activeWorkflows.Inc()
}

// RecordWorkflowCompleted records a finished workflow
func (c *Collector) RecordWorkflowCompleted(status string, fallbackPlan bool, duration time.Duration) {
	c.activeWorkflows.Dec()
	c.workflowsCompleted.WithLabelValues(status, strconv.FormatBool(fallbackPlan)).Inc()
	c.workflowDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordStep records one executed step
func (c *Collector) RecordStep(worker, status string, duration time.Duration) {
	c.stepsExecuted.WithLabelValues(worker, status).Inc()
	c.stepDuration.WithLabelValues(worker).Observe(duration.Seconds())
}

// RecordCollaboratorCall records one invocation including its retries
func (c *Collector) RecordCollaboratorCall(outcome string, attempts int, duration time.Duration) {
	c.collaboratorCalls.WithLabelValues(outcome).Inc()
	c.collaboratorAttempts.Observe(float64(attempts))
	c.collaboratorLatency.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordValidation records a validation verdict
func (c *Collector) RecordValidation(kind string, passed bool, score float64) {
	c.validations.WithLabelValues(kind, strconv.FormatBool(passed)).Inc()
	c.validationScores.WithLabelValues(kind).Observe(score)
}

// RecordCacheLookup records a research cache hit or miss
func (c *Collector) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// SetWorkerHealth sets a worker's health gauge
func (c *Collector) SetWorkerHealth(worker string, healthy bool) {
	c.workerHealth.WithLabelValues(worker).Set(boolToFloat(healthy))
}

// SetCheckHealth sets a system check's health gauge
func (c *Collector) SetCheckHealth(check string, healthy bool) {
	c.checkHealth.WithLabelValues(check).Set(boolToFloat(healthy))
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
