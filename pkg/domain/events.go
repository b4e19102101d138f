package domain

import "time"

// EventType identifies a workflow lifecycle event.
type EventType string

const (
	EventWorkflowStarted   EventType = "workflow.started"
	EventStepCompleted     EventType = "step.completed"
	EventWorkflowCompleted EventType = "workflow.completed"
	EventWorkflowCancelled EventType = "workflow.cancelled"
)

// Topic all workflow events are published on.
const WorkflowTopic = "workflow.events"

// Event is published on the event bus for dashboards and other observers.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	TaskID    string                 `json:"task_id"`
	Worker    string                 `json:"worker,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}
