// Package domain holds the value types shared by the coordinator, the workers
// and the adapters: tasks, workflow plans, step results, workflow records,
// worker metrics and validation reports, plus the error taxonomy used across
// the orchestration core.
package domain
