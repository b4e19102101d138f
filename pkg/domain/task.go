package domain

import (
	"strings"
	"time"
)

// Task is one unit of orchestrated work submitted by a caller.
// It must not be modified once handed to the coordinator.
type Task struct {
	ID          string                 `json:"id"`
	Description string                 `json:"description"`
	Context     map[string]interface{} `json:"context,omitempty"`
}

// ContextString returns a string value from the task context, or def when the
// key is missing or not a string.
func (t Task) ContextString(key, def string) string {
	if t.Context == nil {
		return def
	}
	if v, ok := t.Context[key].(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

// ContextBool returns a boolean value from the task context.
func (t Task) ContextBool(key string) bool {
	if t.Context == nil {
		return false
	}
	v, _ := t.Context[key].(bool)
	return v
}

// WorkerKind enumerates the workers the coordinator knows how to dispatch to.
type WorkerKind int

const (
	// WorkerUnknown marks a planned worker that has no implementation; its
	// step is served by the generic collaborator fallback.
	WorkerUnknown WorkerKind = iota
	WorkerResearch
	WorkerContent
	WorkerValidation
)

// Canonical worker names as they appear in plans and results.
const (
	ResearchWorkerName   = "ResearchWorker"
	ContentWorkerName    = "ContentWorker"
	ValidationWorkerName = "ValidationWorker"
	CoordinatorName      = "coordinator"
)

// String returns the canonical worker name.
func (k WorkerKind) String() string {
	switch k {
	case WorkerResearch:
		return ResearchWorkerName
	case WorkerContent:
		return ContentWorkerName
	case WorkerValidation:
		return ValidationWorkerName
	default:
		return "unknown"
	}
}

// ParseWorkerKind maps a planned worker name onto a known kind. Planners are
// free text generators, so "ResearchAgent", "research" and "Research Worker"
// all resolve to WorkerResearch.
func ParseWorkerKind(name string) WorkerKind {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(n)
	n = strings.TrimSuffix(n, "agent")
	n = strings.TrimSuffix(n, "worker")
	switch n {
	case "research":
		return WorkerResearch
	case "content":
		return WorkerContent
	case "validation":
		return WorkerValidation
	default:
		return WorkerUnknown
	}
}

// Complexity is the planner's estimate of how involved a task is.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// ParseComplexity returns the complexity for s and whether it was recognised.
func ParseComplexity(s string) (Complexity, bool) {
	switch Complexity(strings.ToLower(strings.TrimSpace(s))) {
	case ComplexityLow:
		return ComplexityLow, true
	case ComplexityMedium:
		return ComplexityMedium, true
	case ComplexityHigh:
		return ComplexityHigh, true
	}
	return "", false
}

// Step is one planned unit of work assigned to a worker.
type Step struct {
	WorkerName string     `json:"worker_name"`
	Kind       WorkerKind `json:"-"`
	Action     string     `json:"action"`
	Priority   int        `json:"priority"`
}

// WorkflowPlan is created once per task and never edited afterwards.
type WorkflowPlan struct {
	Steps         []Step     `json:"steps"`
	EstimatedTime string     `json:"estimated_time"`
	Complexity    Complexity `json:"complexity"`
	Fallback      bool       `json:"fallback"`
	RawResponse   string     `json:"raw_response,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// WorkerNames returns the set of worker names the plan schedules.
func (p *WorkflowPlan) WorkerNames() map[string]bool {
	names := make(map[string]bool, len(p.Steps))
	for _, s := range p.Steps {
		names[s.WorkerName] = true
	}
	return names
}

// FallbackPlan returns the fixed plan used whenever dynamic planning fails.
func FallbackPlan() *WorkflowPlan {
	return &WorkflowPlan{
		Steps: []Step{
			{WorkerName: ResearchWorkerName, Kind: WorkerResearch, Action: "Gather relevant information", Priority: 1},
			{WorkerName: ContentWorkerName, Kind: WorkerContent, Action: "Generate response", Priority: 2},
			{WorkerName: ValidationWorkerName, Kind: WorkerValidation, Action: "Validate output", Priority: 3},
		},
		EstimatedTime: "30-60 seconds",
		Complexity:    ComplexityLow,
		Fallback:      true,
		CreatedAt:     time.Now(),
	}
}
