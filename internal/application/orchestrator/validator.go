package orchestrator

import (
	"fmt"
	"strings"

	"github.com/aescanero/taskorch/pkg/domain"
)

// MaxPlanSteps bounds the number of steps a dynamic plan may schedule.
const MaxPlanSteps = 10

// Validator validates workflow plans proposed by the collaborator
type Validator struct {
	maxSteps int
}

// NewValidator creates a new plan validator
func NewValidator() *Validator {
	return &Validator{maxSteps: MaxPlanSteps}
}

// Validate validates a plan structure
func (v *Validator) Validate(p *domain.WorkflowPlan) error {
	if p == nil {
		return fmt.Errorf("plan is nil")
	}

	if len(p.Steps) == 0 {
		return fmt.Errorf("plan must have at least one step")
	}

	if len(p.Steps) > v.maxSteps {
		return fmt.Errorf("plan has %d steps, at most %d allowed", len(p.Steps), v.maxSteps)
	}

	if _, ok := domain.ParseComplexity(string(p.Complexity)); !ok {
		return fmt.Errorf("invalid complexity: %q", p.Complexity)
	}

	for i, step := range p.Steps {
		if err := v.validateStep(step); err != nil {
			return fmt.Errorf("invalid step %d: %w", i+1, err)
		}
	}

	return nil
}

// validateStep validates a single step
func (v *Validator) validateStep(s domain.Step) error {
	if strings.TrimSpace(s.WorkerName) == "" {
		return fmt.Errorf("worker name is required")
	}

	if strings.TrimSpace(s.Action) == "" {
		return fmt.Errorf("action is required")
	}

	if s.Priority < 1 {
		return fmt.Errorf("priority must be positive, got %d", s.Priority)
	}

	return nil
}
