// Package noop provides a MetricsCollector that discards everything. It is
// used by the CLI's one-shot run command and by tests.
package noop

import "time"

// Collector discards all metrics.
type Collector struct{}

// NewCollector returns a discarding collector.
func NewCollector() *Collector { return &Collector{} }

func (Collector) RecordWorkflowStarted()                              {}
func (Collector) RecordWorkflowCompleted(string, bool, time.Duration) {}
func (Collector) RecordStep(string, string, time.Duration)            {}
func (Collector) RecordCollaboratorCall(string, int, time.Duration)   {}
func (Collector) RecordValidation(string, bool, float64)              {}
func (Collector) RecordCacheLookup(bool)                              {}
func (Collector) SetWorkerHealth(string, bool)                        {}
func (Collector) SetCheckHealth(string, bool)                         {}
