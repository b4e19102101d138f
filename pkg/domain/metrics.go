package domain

import (
	"sync"
	"time"
)

// Metrics is a point-in-time snapshot of a worker's counters.
// Requests always equals Successes + Failures.
type Metrics struct {
	Name      string        `json:"name"`
	Requests  int64         `json:"requests"`
	Successes int64         `json:"successes"`
	Failures  int64         `json:"failures"`
	TotalTime time.Duration `json:"total_time"`
}

// SuccessRate returns the percentage of successful requests.
func (m Metrics) SuccessRate() float64 {
	if m.Requests == 0 {
		return 0
	}
	return float64(m.Successes) / float64(m.Requests) * 100
}

// AverageTime returns the mean duration of a request.
func (m Metrics) AverageTime() time.Duration {
	if m.Requests == 0 {
		return 0
	}
	return m.TotalTime / time.Duration(m.Requests)
}

// HealthStatus is the result of a single worker's health probe.
type HealthStatus struct {
	Worker    string    `json:"worker"`
	Healthy   bool      `json:"healthy"`
	Detail    string    `json:"detail"`
	CheckedAt time.Time `json:"checked_at"`
}

// Counters accumulates Metrics for one worker. All updates happen under a
// single lock so a snapshot never observes Requests without its outcome.
type Counters struct {
	mu sync.Mutex
	m  Metrics
}

// NewCounters returns zeroed counters labelled name.
func NewCounters(name string) *Counters {
	return &Counters{m: Metrics{Name: name}}
}

// Record counts one finished request.
func (c *Counters) Record(success bool, elapsed time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m.Requests++
	if success {
		c.m.Successes++
	} else {
		c.m.Failures++
	}
	c.m.TotalTime += elapsed
}

// Snapshot returns a consistent copy of the counters.
func (c *Counters) Snapshot() Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.m
}
