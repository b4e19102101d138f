package domain

import "time"

// WorkerInput is the worker-specific record the coordinator builds from a
// task and a step. Mode carries the research type, content type or
// validation type depending on the receiving worker.
type WorkerInput struct {
	TaskID     string                 `json:"task_id"`
	Task       string                 `json:"task"`
	Context    map[string]interface{} `json:"context,omitempty"`
	Action     string                 `json:"action"`
	Query      string                 `json:"query,omitempty"`
	Mode       string                 `json:"mode,omitempty"`
	Style      string                 `json:"style,omitempty"`
	Length     string                 `json:"length,omitempty"`
	Content    string                 `json:"content,omitempty"`
	StrictMode bool                   `json:"strict_mode,omitempty"`
}

// WorkerOutput is the structured payload a worker returns on success.
type WorkerOutput struct {
	Worker     string            `json:"worker"`
	Mode       string            `json:"mode,omitempty"`
	Content    string            `json:"content"`
	Confidence string            `json:"confidence,omitempty"`
	WordCount  int               `json:"word_count,omitempty"`
	Cached     bool              `json:"cached,omitempty"`
	Validation *ValidationReport `json:"validation,omitempty"`
	Details    map[string]string `json:"details,omitempty"`
}

// StepResult is the outcome of a single dispatched step.
type StepResult struct {
	WorkerName string        `json:"worker_name"`
	Action     string        `json:"action"`
	Success    bool          `json:"success"`
	Output     *string       `json:"output"`
	Error      *string       `json:"error"`
	Simulated  bool          `json:"simulated,omitempty"`
	Raw        *WorkerOutput `json:"raw,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// SucceededStep builds a successful step result.
func SucceededStep(step Step, out *WorkerOutput, elapsed time.Duration) StepResult {
	text := out.Content
	return StepResult{
		WorkerName: step.WorkerName,
		Action:     step.Action,
		Success:    true,
		Output:     &text,
		Raw:        out,
		Duration:   elapsed,
	}
}

// FailedStep builds a failed step result carrying err.
func FailedStep(step Step, err error, elapsed time.Duration) StepResult {
	msg := err.Error()
	return StepResult{
		WorkerName: step.WorkerName,
		Action:     step.Action,
		Success:    false,
		Error:      &msg,
		Duration:   elapsed,
	}
}

// WorkflowRecord is the history entry appended once a task completes.
type WorkflowRecord struct {
	ID          string                `json:"id"`
	Task        Task                  `json:"task"`
	Plan        *WorkflowPlan         `json:"plan"`
	Results     map[string]StepResult `json:"results"`
	StepOrder   []string              `json:"step_order"`
	FinalOutput string                `json:"final_output"`
	Timestamp   time.Time             `json:"timestamp"`
	Duration    time.Duration         `json:"duration"`
}

// OrderedResults returns the results in the order their steps executed.
func (r *WorkflowRecord) OrderedResults() []StepResult {
	out := make([]StepResult, 0, len(r.StepOrder))
	for _, name := range r.StepOrder {
		if res, ok := r.Results[name]; ok {
			out = append(out, res)
		}
	}
	return out
}

// Report is what the coordinator returns to the caller of Process.
type Report struct {
	Record  *WorkflowRecord    `json:"record"`
	Metrics map[string]Metrics `json:"metrics"`
}
