package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aescanero/taskorch/internal/application/workers"
	"github.com/aescanero/taskorch/pkg/domain"
	"go.uber.org/zap"
)

const simulatedMaxTokens = 300

// NoResultsSentinel is the final output of a workflow in which no step
// succeeded.
const NoResultsSentinel = "No successful results to synthesize."

// dispatch runs the plan's steps one at a time in ascending priority,
// keeping plan order between equal priorities. A later step for the same
// worker name overwrites the earlier result but keeps its position.
func (c *Coordinator) dispatch(ctx context.Context, task domain.Task, plan *domain.WorkflowPlan) (map[string]domain.StepResult, []string, error) {
	steps := make([]domain.Step, len(plan.Steps))
	copy(steps, plan.Steps)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Priority < steps[j].Priority
	})

	results := make(map[string]domain.StepResult, len(steps))
	order := make([]string, 0, len(steps))

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		c.logger.Info("executing step",
			zap.String("task_id", task.ID),
			zap.String("worker", step.WorkerName),
			zap.String("action", step.Action),
			zap.Int("priority", step.Priority))

		res := c.runStep(ctx, task, step)
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		if _, seen := results[step.WorkerName]; !seen {
			order = append(order, step.WorkerName)
		}
		results[step.WorkerName] = res

		status := "success"
		if !res.Success {
			status = "failure"
		}
		c.metrics.RecordStep(step.WorkerName, status, res.Duration)
		c.publish(ctx, domain.EventStepCompleted, task.ID, step.WorkerName, map[string]interface{}{
			"action":      step.Action,
			"success":     res.Success,
			"simulated":   res.Simulated,
			"duration_ms": res.Duration.Milliseconds(),
		})
	}

	return results, order, nil
}

// runStep executes one step. Worker errors and panics become failed
// results; they never abort the workflow.
func (c *Coordinator) runStep(ctx context.Context, task domain.Task, step domain.Step) (res domain.StepResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("step panicked",
				zap.String("task_id", task.ID),
				zap.String("worker", step.WorkerName),
				zap.Any("panic", r))
			res = domain.FailedStep(step, fmt.Errorf("%s panicked: %v", step.WorkerName, r), time.Since(start))
		}
	}()

	kind := step.Kind
	if kind == domain.WorkerUnknown {
		kind = domain.ParseWorkerKind(step.WorkerName)
	}
	w, ok := c.registry.Lookup(kind)
	if !ok {
		return c.simulate(ctx, task, step, start)
	}

	input := buildInput(task, step, kind)
	if err := w.ValidateInput(input); err != nil {
		c.logger.Warn("step input rejected",
			zap.String("task_id", task.ID),
			zap.String("worker", step.WorkerName),
			zap.Error(err))
		return domain.FailedStep(step, err, time.Since(start))
	}

	out, err := w.Process(ctx, input)
	if err != nil {
		c.logger.Error("step failed",
			zap.String("task_id", task.ID),
			zap.String("worker", step.WorkerName),
			zap.Error(err))
		return domain.FailedStep(step, err, time.Since(start))
	}
	return domain.SucceededStep(step, out, time.Since(start))
}

// simulate poses the step's action to the collaborator on behalf of a
// worker that does not exist.
func (c *Coordinator) simulate(ctx context.Context, task domain.Task, step domain.Step, start time.Time) domain.StepResult {
	c.logger.Info("no worker registered, using generic fallback",
		zap.String("task_id", task.ID),
		zap.String("worker", step.WorkerName))

	system := fmt.Sprintf("You are the %s. Perform the following action: %s", step.WorkerName, step.Action)
	reply, err := c.invoker.Complete(ctx, domain.UserPrompt(system, "Task: "+task.Description, simulatedMaxTokens))
	if err != nil {
		res := domain.FailedStep(step, err, time.Since(start))
		res.Simulated = true
		return res
	}

	if c.opts.FilterOutput {
		reply, _ = workers.Redact(reply)
	}
	out := &domain.WorkerOutput{
		Worker:    step.WorkerName,
		Mode:      "simulated",
		Content:   reply,
		WordCount: len(strings.Fields(reply)),
	}
	res := domain.SucceededStep(step, out, time.Since(start))
	res.Simulated = true
	return res
}

// buildInput derives a worker's input from the task and step. Options come
// only from the task context; outputs of earlier steps are never piped in.
func buildInput(task domain.Task, step domain.Step, kind domain.WorkerKind) domain.WorkerInput {
	in := domain.WorkerInput{
		TaskID:  task.ID,
		Task:    task.Description,
		Context: task.Context,
		Action:  step.Action,
	}
	switch kind {
	case domain.WorkerResearch:
		in.Query = task.ContextString("query", task.Description)
		in.Mode = task.ContextString("research_type", workers.ResearchGeneral)
	case domain.WorkerContent:
		in.Mode = task.ContextString("content_type", "explanation")
		in.Style = task.ContextString("style", "professional")
		in.Length = task.ContextString("length", "medium")
	case domain.WorkerValidation:
		in.Content = task.ContextString("content", task.Description)
		in.Mode = task.ContextString("validation_type", string(domain.ValidationComprehensive))
		in.StrictMode = task.ContextBool("strict_mode")
	}
	return in
}

// Synthesize joins the outputs of the successful results with a blank
// line, or returns NoResultsSentinel when none succeeded.
func Synthesize(results []domain.StepResult) string {
	var parts []string
	for _, r := range results {
		if r.Success && r.Output != nil {
			parts = append(parts, *r.Output)
		}
	}
	if len(parts) == 0 {
		return NoResultsSentinel
	}
	return strings.Join(parts, "\n\n")
}
