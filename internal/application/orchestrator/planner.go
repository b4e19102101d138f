package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aescanero/taskorch/internal/application/invoker"
	"github.com/aescanero/taskorch/pkg/domain"
	"go.uber.org/zap"
)

const planMaxTokens = 500

var planSystemPrompt = fmt.Sprintf(`You are a workflow coordinator for a multi-worker task system.
Analyze the given task and create a structured workflow plan.

Available workers:
- %s: Information gathering and analysis
- %s: Content generation and refinement
- %s: Quality assurance and safety checks

Respond with a JSON structure containing:
{
    "steps": [
        {"worker": "worker_name", "action": "description", "priority": 1-3}
    ],
    "estimated_time": "time_estimate",
    "complexity": "low|medium|high"
}`, domain.ResearchWorkerName, domain.ContentWorkerName, domain.ValidationWorkerName)

// rawPlan is the reply shape the collaborator is asked for. "agent" and
// "worker_name" are accepted as synonyms of "worker".
type rawPlan struct {
	Steps []struct {
		Worker     string   `json:"worker"`
		WorkerName string   `json:"worker_name"`
		Agent      string   `json:"agent"`
		Action     string   `json:"action"`
		Priority   *flexInt `json:"priority"`
	} `json:"steps"`
	EstimatedTime string `json:"estimated_time"`
	Complexity    string `json:"complexity"`
}

// Planner asks the reasoning collaborator to decompose a task into steps.
type Planner struct {
	invoker   *invoker.Invoker
	validator *Validator
	logger    *zap.Logger
}

// NewPlanner creates a planner. Collaborator calls are counted on inv.
func NewPlanner(inv *invoker.Invoker, validator *Validator, logger *zap.Logger) *Planner {
	return &Planner{
		invoker:   inv,
		validator: validator,
		logger:    logger,
	}
}

// Plan returns an executable plan for task. It never fails: a collaborator
// error or an unparsable or invalid reply yields domain.FallbackPlan.
func (p *Planner) Plan(ctx context.Context, task domain.Task) *domain.WorkflowPlan {
	plan, err := p.dynamicPlan(ctx, task)
	if err != nil {
		p.logger.Warn("dynamic planning failed, using fallback plan",
			zap.String("task_id", task.ID),
			zap.Error(err))
		fallback := domain.FallbackPlan()
		if plan != nil {
			fallback.RawResponse = plan.RawResponse
		}
		return fallback
	}

	p.logger.Info("workflow planned",
		zap.String("task_id", task.ID),
		zap.Int("steps", len(plan.Steps)),
		zap.String("complexity", string(plan.Complexity)))
	return plan
}

// dynamicPlan returns the parsed plan, or a *domain.PlanningError. On parse
// or validation failure the returned plan carries only the raw reply.
func (p *Planner) dynamicPlan(ctx context.Context, task domain.Task) (*domain.WorkflowPlan, error) {
	reply, err := p.invoker.Complete(ctx, domain.UserPrompt(planSystemPrompt, planPrompt(task), planMaxTokens))
	if err != nil {
		return nil, &domain.PlanningError{Reason: "collaborator request failed", Err: err}
	}

	plan, err := ParsePlan(reply)
	if err != nil {
		return &domain.WorkflowPlan{RawResponse: reply}, err
	}
	if err := p.validator.Validate(plan); err != nil {
		return &domain.WorkflowPlan{RawResponse: reply}, &domain.PlanningError{Reason: "invalid plan", Err: err}
	}
	return plan, nil
}

func planPrompt(task domain.Task) string {
	ctxJSON := "{}"
	if len(task.Context) > 0 {
		if b, err := json.Marshal(task.Context); err == nil {
			ctxJSON = string(b)
		}
	}
	return fmt.Sprintf("Task: %s\nContext: %s", task.Description, ctxJSON)
}

// ParsePlan extracts a plan from a free-text collaborator reply. Known
// worker names are canonicalised; a missing priority defaults to the
// step's position and a missing complexity to medium.
func ParsePlan(reply string) (*domain.WorkflowPlan, error) {
	raw := extractJSON(reply)
	if raw == "" {
		return nil, &domain.PlanningError{Reason: "no JSON object in reply", Err: domain.ErrUnparsablePlan}
	}

	var rp rawPlan
	if err := json.Unmarshal([]byte(raw), &rp); err != nil {
		return nil, &domain.PlanningError{Reason: "malformed JSON", Err: fmt.Errorf("%w: %v", domain.ErrUnparsablePlan, err)}
	}

	plan := &domain.WorkflowPlan{
		Steps:         make([]domain.Step, 0, len(rp.Steps)),
		EstimatedTime: strings.TrimSpace(rp.EstimatedTime),
		Complexity:    domain.Complexity(strings.ToLower(strings.TrimSpace(rp.Complexity))),
		RawResponse:   reply,
		CreatedAt:     time.Now(),
	}
	if plan.Complexity == "" {
		plan.Complexity = domain.ComplexityMedium
	}

	for i, s := range rp.Steps {
		name := firstNonEmpty(s.Worker, s.WorkerName, s.Agent)
		kind := domain.ParseWorkerKind(name)
		if kind != domain.WorkerUnknown {
			name = kind.String()
		}
		priority := i + 1
		if s.Priority != nil {
			priority = int(*s.Priority)
		}
		plan.Steps = append(plan.Steps, domain.Step{
			WorkerName: name,
			Kind:       kind,
			Action:     strings.TrimSpace(s.Action),
			Priority:   priority,
		})
	}

	return plan, nil
}

// flexInt decodes a JSON number or a quoted integer such as "2".
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		return nil
	}
	text = strings.Trim(text, `"`)
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return fmt.Errorf("priority %s is not an integer: %w", data, err)
	}
	*f = flexInt(n)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			return t
		}
	}
	return ""
}
