package workers

import (
	"context"
	"sync"

	"github.com/aescanero/taskorch/internal/application/invoker"
	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/aescanero/taskorch/pkg/ports"
	"go.uber.org/zap"
)

var validationModes = []string{
	string(domain.ValidationSafety),
	string(domain.ValidationQuality),
	string(domain.ValidationTechnical),
	string(domain.ValidationComprehensive),
}

var (
	safetyCategories = []string{
		domain.CategoryPersonalInfo,
		domain.CategoryHarmfulInstructions,
		domain.CategoryInappropriateContent,
		domain.CategorySafety,
	}
	qualityCategories = []string{
		domain.CategoryLength,
		domain.CategoryRepetition,
		domain.CategoryStructure,
		domain.CategoryQuality,
	}
)

// ValidationStats summarises the validations a worker has performed.
type ValidationStats struct {
	Performed        int64   `json:"validations_performed"`
	Passed           int64   `json:"validations_passed"`
	SafetyIssues     int64   `json:"safety_issues_detected"`
	QualityIssues    int64   `json:"quality_issues_detected"`
	PassRate         float64 `json:"pass_rate"`
	AvgSafetyIssues  float64 `json:"avg_safety_issues"`
	AvgQualityIssues float64 `json:"avg_quality_issues"`
}

// ValidationWorker scores content for safety, quality and technical
// soundness.
type ValidationWorker struct {
	base
	hook    ReviewHook
	metrics ports.MetricsCollector

	mu    sync.Mutex
	stats ValidationStats
}

// NewValidationWorker creates a validation worker. hook may be nil to run
// the rule-based checks only.
func NewValidationWorker(inv *invoker.Invoker, hook ReviewHook, metrics ports.MetricsCollector, settings Settings, logger *zap.Logger) *ValidationWorker {
	return &ValidationWorker{
		base:    newBase(domain.ValidationWorkerName, domain.WorkerValidation, inv, settings, logger),
		hook:    hook,
		metrics: metrics,
	}
}

// UseCollaboratorReview installs the default keyword review hook, routed
// through this worker's own invoker.
func (w *ValidationWorker) UseCollaboratorReview() {
	w.hook = NewKeywordReview(w.invoker)
}

// ValidateInput checks the content and validation type.
func (w *ValidationWorker) ValidateInput(input domain.WorkerInput) error {
	if err := w.checkText("content", input.Content, 1); err != nil {
		return err
	}
	return w.checkMode("validation type", orDefault(input.Mode, string(domain.ValidationComprehensive)), validationModes)
}

// Process validates the content and returns the report as output.
func (w *ValidationWorker) Process(ctx context.Context, input domain.WorkerInput) (*domain.WorkerOutput, error) {
	if err := w.ValidateInput(input); err != nil {
		return nil, err
	}

	kind := domain.ValidationKind(orDefault(input.Mode, string(domain.ValidationComprehensive)))
	w.logger.Info("validating content",
		zap.String("task_id", input.TaskID),
		zap.String("validation_type", string(kind)),
		zap.Bool("strict_mode", input.StrictMode))

	report := w.Validate(ctx, input.Content, kind, input.StrictMode)

	return &domain.WorkerOutput{
		Worker:     w.name,
		Mode:       string(kind),
		Content:    report.Summary(),
		Validation: report,
	}, nil
}

// Validate runs one validation pass. It never fails: a review hook error is
// logged and contributes no issue.
func (w *ValidationWorker) Validate(ctx context.Context, content string, kind domain.ValidationKind, strict bool) *domain.ValidationReport {
	report := &domain.ValidationReport{
		Kind:          kind,
		ContentLength: len([]rune(content)),
		StrictMode:    strict,
	}

	switch kind {
	case domain.ValidationSafety:
		report.Issues = w.safetyPass(ctx, content, strict)
		report.Score = score(len(report.Issues), 20)
		report.SafetyScore = floatPtr(report.Score)
	case domain.ValidationQuality:
		report.Issues = w.qualityPass(ctx, content)
		report.Score = score(len(report.Issues), 15)
		report.QualityScore = floatPtr(report.Score)
		report.ReadabilityScore = floatPtr(readability(content))
	case domain.ValidationTechnical:
		blocks := codeBlocks(content)
		report.CodeBlocks = len(blocks)
		report.Issues = w.technicalPass(ctx, content, blocks)
		report.Score = score(len(report.Issues), 10)
	default:
		report.Kind = domain.ValidationComprehensive
		safety := w.safetyPass(ctx, content, strict)
		quality := w.qualityPass(ctx, content)
		safetyScore := score(len(safety), 20)
		qualityScore := score(len(quality), 15)
		report.Issues = append(safety, quality...)
		report.SafetyScore = floatPtr(safetyScore)
		report.QualityScore = floatPtr(qualityScore)
		report.Score = (safetyScore + qualityScore) / 2
	}

	if report.Issues == nil {
		report.Issues = []domain.Issue{}
	}
	report.Passed = len(report.Issues) == 0
	report.Recommendations = recommendations(report.Issues)

	w.record(report)
	return report
}

func (w *ValidationWorker) safetyPass(ctx context.Context, content string, strict bool) []domain.Issue {
	return w.review(ctx, domain.ValidationSafety, content, safetyIssues(content, strict))
}

func (w *ValidationWorker) qualityPass(ctx context.Context, content string) []domain.Issue {
	return w.review(ctx, domain.ValidationQuality, content, qualityIssues(content, w.settings.MinContentLength))
}

func (w *ValidationWorker) technicalPass(ctx context.Context, content string, blocks []string) []domain.Issue {
	var issues []domain.Issue
	for i, block := range blocks {
		if is := bracketIssue(block, i); is != nil {
			issues = append(issues, *is)
		}
	}
	issues = append(issues, terminologyIssues(content)...)
	return w.review(ctx, domain.ValidationTechnical, content, issues)
}

// review appends the hook's issue, if any, to issues.
func (w *ValidationWorker) review(ctx context.Context, kind domain.ValidationKind, content string, issues []domain.Issue) []domain.Issue {
	if w.hook == nil {
		return issues
	}
	issue, err := w.hook.Review(ctx, kind, content)
	if err != nil {
		w.logger.Warn("collaborator review failed",
			zap.String("validation_type", string(kind)),
			zap.Error(err))
		return issues
	}
	if issue != nil {
		issues = append(issues, *issue)
	}
	return issues
}

func (w *ValidationWorker) record(report *domain.ValidationReport) {
	w.mu.Lock()
	w.stats.Performed++
	if report.Passed {
		w.stats.Passed++
	}
	w.stats.SafetyIssues += int64(len(report.IssuesIn(safetyCategories...)))
	w.stats.QualityIssues += int64(len(report.IssuesIn(qualityCategories...)))
	w.mu.Unlock()

	if w.metrics != nil {
		w.metrics.RecordValidation(string(report.Kind), report.Passed, report.Score)
	}
}

// Stats returns the validation statistics with derived rates.
func (w *ValidationWorker) Stats() ValidationStats {
	w.mu.Lock()
	s := w.stats
	w.mu.Unlock()

	if s.Performed > 0 {
		s.PassRate = float64(s.Passed) / float64(s.Performed) * 100
		s.AvgSafetyIssues = float64(s.SafetyIssues) / float64(s.Performed)
		s.AvgQualityIssues = float64(s.QualityIssues) / float64(s.Performed)
	}
	return s
}

func floatPtr(v float64) *float64 {
	return &v
}
