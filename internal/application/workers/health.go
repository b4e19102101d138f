package workers

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/aescanero/taskorch/pkg/ports"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// System check names.
const (
	CheckCollaborator  = "collaborator"
	CheckResources     = "resources"
	CheckFilesystem    = "filesystem"
	CheckConfiguration = "configuration"
)

const gigabyte = 1 << 30

// Prober makes one bounded round-trip to the collaborator.
type Prober interface {
	Probe(ctx context.Context, timeout time.Duration) error
}

// ResourceSample is a point-in-time reading of host resources.
type ResourceSample struct {
	MemoryAvailableGB float64 `json:"memory_available_gb"`
	MemoryTotalGB     float64 `json:"memory_total_gb"`
	MemoryUsedPercent float64 `json:"memory_used_percent"`
	DiskFreeGB        float64 `json:"disk_free_gb"`
	CPUPercent        float64 `json:"cpu_percent"`
	CPUCount          int     `json:"cpu_count"`
}

// ResourceSampler reads host resources.
type ResourceSampler interface {
	Sample(ctx context.Context) (ResourceSample, error)
}

// HostSampler reads resources with gopsutil.
type HostSampler struct {
	DiskPath    string
	CPUInterval time.Duration
}

// Sample implements ResourceSampler.
func (s HostSampler) Sample(ctx context.Context) (ResourceSample, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return ResourceSample{}, fmt.Errorf("failed to read memory: %w", err)
	}
	usage, err := disk.UsageWithContext(ctx, s.DiskPath)
	if err != nil {
		return ResourceSample{}, fmt.Errorf("failed to read disk usage of %s: %w", s.DiskPath, err)
	}
	percents, err := cpu.PercentWithContext(ctx, s.CPUInterval, false)
	if err != nil {
		return ResourceSample{}, fmt.Errorf("failed to read cpu: %w", err)
	}
	cores, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return ResourceSample{}, fmt.Errorf("failed to count cpus: %w", err)
	}
	sample := ResourceSample{
		MemoryAvailableGB: float64(vm.Available) / gigabyte,
		MemoryTotalGB:     float64(vm.Total) / gigabyte,
		MemoryUsedPercent: vm.UsedPercent,
		DiskFreeGB:        float64(usage.Free) / gigabyte,
		CPUCount:          cores,
	}
	if len(percents) > 0 {
		sample.CPUPercent = percents[0]
	}
	return sample, nil
}

// Thresholds are the minimum resource headroom considered healthy.
type Thresholds struct {
	MinMemoryGB   float64
	MinDiskGB     float64
	MaxCPUPercent float64
}

// CheckResult is the outcome of one system check.
type CheckResult struct {
	Healthy bool                   `json:"healthy"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// SystemReport aggregates the four system checks.
type SystemReport struct {
	Healthy   bool                   `json:"healthy"`
	Checks    map[string]CheckResult `json:"checks"`
	Issues    []string               `json:"issues"`
	Timestamp time.Time              `json:"timestamp"`
}

// HealthReport combines per-worker probes with the system checks.
type HealthReport struct {
	SystemHealthy bool                           `json:"system_healthy"`
	Workers       map[string]domain.HealthStatus `json:"workers"`
	System        *SystemReport                  `json:"system"`
	Timestamp     time.Time                      `json:"timestamp"`
}

// MonitorConfig wires a HealthMonitor.
type MonitorConfig struct {
	Registry     *Registry
	Prober       Prober
	Sampler      ResourceSampler
	Thresholds   Thresholds
	WorkDir      string
	ConfigCheck  func() error
	ProbeTimeout time.Duration
	Interval     time.Duration
	Metrics      ports.MetricsCollector
	Logger       *zap.Logger
}

// HealthMonitor runs health checks on demand and periodically.
type HealthMonitor struct {
	cfg MonitorConfig

	mu        sync.RWMutex
	running   bool
	stopCh    chan struct{}
	last      *HealthReport
	listeners []func(*HealthReport)
}

// NewHealthMonitor creates a new health monitor
func NewHealthMonitor(cfg MonitorConfig) *HealthMonitor {
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 10 * time.Second
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &HealthMonitor{cfg: cfg}
}

// OnReport registers fn to be called with every periodic report.
func (h *HealthMonitor) OnReport(fn func(*HealthReport)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Start starts the periodic health loop. A stopped monitor can be
// started again.
func (h *HealthMonitor) Start() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	h.running = true
	stop := make(chan struct{})
	h.stopCh = stop
	h.mu.Unlock()

	go h.run(stop)
}

// Stop stops the periodic health loop
func (h *HealthMonitor) Stop() {
	h.mu.Lock()
	if !h.running {
		h.mu.Unlock()
		return
	}
	h.running = false
	stop := h.stopCh
	h.stopCh = nil
	h.mu.Unlock()

	close(stop)
}

func (h *HealthMonitor) run(stop <-chan struct{}) {
	ticker := time.NewTicker(h.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			h.checkHealth()
		}
	}
}

func (h *HealthMonitor) checkHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), h.cfg.Interval)
	defer cancel()

	report := h.CheckAll(ctx)

	h.cfg.Logger.Info("health check",
		zap.Bool("system_healthy", report.SystemHealthy),
		zap.Int("workers", len(report.Workers)),
		zap.Strings("issues", report.System.Issues))

	if !report.SystemHealthy {
		h.cfg.Logger.Warn("system is unhealthy", zap.Strings("issues", report.System.Issues))
	}

	h.mu.RLock()
	listeners := append([]func(*HealthReport){}, h.listeners...)
	h.mu.RUnlock()
	for _, fn := range listeners {
		fn(report)
	}
}

// Last returns the most recent report, or nil before the first check.
func (h *HealthMonitor) Last() *HealthReport {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.last
}

// CheckAll probes every registered worker and runs the system checks
// concurrently. SystemHealthy is the AND of all of them.
func (h *HealthMonitor) CheckAll(ctx context.Context) *HealthReport {
	var (
		g       errgroup.Group
		mu      sync.Mutex
		workers = make(map[string]domain.HealthStatus)
		system  *SystemReport
	)

	if h.cfg.Registry != nil {
		for _, w := range h.cfg.Registry.Workers() {
			w := w
			g.Go(func() error {
				status := w.HealthCheck(ctx)
				mu.Lock()
				workers[w.Name()] = status
				mu.Unlock()
				return nil
			})
		}
	}
	g.Go(func() error {
		system = h.CheckSystem(ctx)
		return nil
	})
	_ = g.Wait()

	healthy := system.Healthy
	for name, st := range workers {
		healthy = healthy && st.Healthy
		if h.cfg.Metrics != nil {
			h.cfg.Metrics.SetWorkerHealth(name, st.Healthy)
		}
	}

	report := &HealthReport{
		SystemHealthy: healthy,
		Workers:       workers,
		System:        system,
		Timestamp:     time.Now(),
	}

	h.mu.Lock()
	h.last = report
	h.mu.Unlock()

	return report
}

// CheckSystem runs the four system checks concurrently. A failing check
// never prevents the others from running.
func (h *HealthMonitor) CheckSystem(ctx context.Context) *SystemReport {
	names := []string{CheckCollaborator, CheckResources, CheckFilesystem, CheckConfiguration}
	checks := []func(context.Context) CheckResult{
		h.checkCollaborator,
		h.checkResources,
		h.checkFilesystem,
		h.checkConfiguration,
	}
	results := make([]CheckResult, len(checks))

	var g errgroup.Group
	for i, check := range checks {
		i, check := i, check
		g.Go(func() error {
			results[i] = check(ctx)
			return nil
		})
	}
	_ = g.Wait()

	report := &SystemReport{
		Healthy:   true,
		Checks:    make(map[string]CheckResult, len(checks)),
		Issues:    []string{},
		Timestamp: time.Now(),
	}
	for i, name := range names {
		res := results[i]
		report.Checks[name] = res
		if !res.Healthy {
			report.Healthy = false
			report.Issues = append(report.Issues, fmt.Sprintf("%s: %s", name, res.Message))
		}
		if h.cfg.Metrics != nil {
			h.cfg.Metrics.SetCheckHealth(name, res.Healthy)
		}
	}
	return report
}

func (h *HealthMonitor) checkCollaborator(ctx context.Context) CheckResult {
	if h.cfg.Prober == nil {
		return CheckResult{Message: "collaborator not configured"}
	}
	if err := h.cfg.Prober.Probe(ctx, h.cfg.ProbeTimeout); err != nil {
		return CheckResult{
			Message: "collaborator unreachable",
			Details: map[string]interface{}{"error": err.Error()},
		}
	}
	return CheckResult{Healthy: true, Message: "collaborator reachable"}
}

func (h *HealthMonitor) checkResources(ctx context.Context) CheckResult {
	if h.cfg.Sampler == nil {
		return CheckResult{Message: "resource sampler not configured"}
	}
	s, err := h.cfg.Sampler.Sample(ctx)
	if err != nil {
		return CheckResult{
			Message: "resource check failed",
			Details: map[string]interface{}{"error": err.Error()},
		}
	}

	t := h.cfg.Thresholds
	memoryOK := s.MemoryAvailableGB > t.MinMemoryGB
	diskOK := s.DiskFreeGB > t.MinDiskGB
	cpuOK := s.CPUPercent < t.MaxCPUPercent
	healthy := memoryOK && diskOK && cpuOK

	msg := "resources OK"
	if !healthy {
		msg = "resources low"
	}
	return CheckResult{
		Healthy: healthy,
		Message: msg,
		Details: map[string]interface{}{
			"memory_available_gb": s.MemoryAvailableGB,
			"memory_total_gb":     s.MemoryTotalGB,
			"memory_used_percent": s.MemoryUsedPercent,
			"disk_free_gb":        s.DiskFreeGB,
			"cpu_percent":         s.CPUPercent,
			"cpu_count":           s.CPUCount,
			"sufficient_memory":   memoryOK,
			"sufficient_disk":     diskOK,
			"reasonable_cpu":      cpuOK,
		},
	}
}

func (h *HealthMonitor) checkFilesystem(_ context.Context) CheckResult {
	f, err := os.CreateTemp(h.cfg.WorkDir, "taskorch-health-*.tmp")
	if err != nil {
		return CheckResult{
			Message: "work directory not writable",
			Details: map[string]interface{}{"work_dir": h.cfg.WorkDir, "error": err.Error()},
		}
	}
	name := f.Name()
	_, writeErr := f.WriteString("test")
	closeErr := f.Close()
	removeErr := os.Remove(name)

	for _, err := range []error{writeErr, closeErr, removeErr} {
		if err != nil {
			return CheckResult{
				Message: "filesystem check failed",
				Details: map[string]interface{}{"work_dir": h.cfg.WorkDir, "error": err.Error()},
			}
		}
	}
	return CheckResult{
		Healthy: true,
		Message: "filesystem OK",
		Details: map[string]interface{}{"work_dir": h.cfg.WorkDir, "writable": true},
	}
}

func (h *HealthMonitor) checkConfiguration(_ context.Context) CheckResult {
	if h.cfg.ConfigCheck == nil {
		return CheckResult{Healthy: true, Message: "configuration OK"}
	}
	if err := h.cfg.ConfigCheck(); err != nil {
		return CheckResult{
			Message: "configuration issues",
			Details: map[string]interface{}{"error": err.Error()},
		}
	}
	return CheckResult{Healthy: true, Message: "configuration OK"}
}
