package workers

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/aescanero/taskorch/internal/application/invoker"
	"github.com/aescanero/taskorch/pkg/domain"
	"go.uber.org/zap"
)

// Worker is the contract shared by every specialised worker.
type Worker interface {
	Name() string
	Kind() domain.WorkerKind
	ValidateInput(input domain.WorkerInput) error
	Process(ctx context.Context, input domain.WorkerInput) (*domain.WorkerOutput, error)
	Metrics() domain.Metrics
	HealthCheck(ctx context.Context) domain.HealthStatus
}

// Settings holds the limits shared by all workers.
type Settings struct {
	MaxInputLength   int
	AllowedModes     []string
	FilterOutput     bool
	MinContentLength int
	HealthTimeout    time.Duration
}

// DefaultSettings returns permissive settings suitable for tests and demos.
func DefaultSettings() Settings {
	return Settings{
		MaxInputLength:   10000,
		FilterOutput:     true,
		MinContentLength: 10,
		HealthTimeout:    10 * time.Second,
	}
}

// modeAllowed reports whether mode is enabled. An empty allow list enables
// every mode.
func (s Settings) modeAllowed(mode string) bool {
	if len(s.AllowedModes) == 0 {
		return true
	}
	for _, m := range s.AllowedModes {
		if strings.EqualFold(strings.TrimSpace(m), mode) {
			return true
		}
	}
	return false
}

var sensitivePattern = regexp.MustCompile(`(?i)\b(api_key|password|secret|token)\b`)

const filteredMarker = "[FILTERED]"

// base carries what every worker needs: identity, the named invoker that
// owns its counters, the shared settings and a logger.
type base struct {
	name     string
	kind     domain.WorkerKind
	invoker  *invoker.Invoker
	settings Settings
	logger   *zap.Logger
}

func newBase(name string, kind domain.WorkerKind, inv *invoker.Invoker, settings Settings, logger *zap.Logger) base {
	return base{
		name:     name,
		kind:     kind,
		invoker:  inv.Named(name),
		settings: settings,
		logger:   logger.With(zap.String("worker", name)),
	}
}

// Name returns the worker's canonical name.
func (b *base) Name() string { return b.name }

// Kind returns the worker's registry kind.
func (b *base) Kind() domain.WorkerKind { return b.kind }

// Metrics returns a snapshot of the worker's counters.
func (b *base) Metrics() domain.Metrics { return b.invoker.Metrics() }

// HealthCheck probes the collaborator once with the configured health timeout.
func (b *base) HealthCheck(ctx context.Context) domain.HealthStatus {
	status := domain.HealthStatus{Worker: b.name, CheckedAt: time.Now()}
	if err := b.invoker.Probe(ctx, b.settings.HealthTimeout); err != nil {
		status.Detail = err.Error()
		return status
	}
	status.Healthy = true
	status.Detail = "OK"
	return status
}

// checkText applies the checks common to every worker's request text.
func (b *base) checkText(field, text string, minLength int) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.NewInputValidationError(b.name, "%s is required", field)
	}
	if len([]rune(trimmed)) < minLength {
		return domain.NewInputValidationError(b.name, "%s too short (minimum %d characters)", field, minLength)
	}
	if n := len([]rune(text)); n > b.settings.MaxInputLength {
		return domain.NewInputValidationError(b.name, "%s too long (%d > %d)", field, n, b.settings.MaxInputLength)
	}
	return nil
}

// checkMode verifies mode is one of the worker's modes and enabled.
func (b *base) checkMode(field, mode string, known []string) error {
	for _, k := range known {
		if k == mode {
			if !b.settings.modeAllowed(mode) {
				return domain.NewInputValidationError(b.name, "%s %q is disabled", field, mode)
			}
			return nil
		}
	}
	return domain.NewInputValidationError(b.name, "invalid %s: %s", field, mode)
}

// filter masks sensitive tokens in collaborator output when enabled.
func (b *base) filter(output string) string {
	if !b.settings.FilterOutput {
		return output
	}
	filtered, changed := Redact(output)
	if changed {
		b.logger.Warn("potential sensitive content detected and filtered")
	}
	return filtered
}

// Redact masks sensitive tokens such as passwords and API keys and reports
// whether anything was masked.
func Redact(text string) (string, bool) {
	if !sensitivePattern.MatchString(text) {
		return text, false
	}
	return sensitivePattern.ReplaceAllString(text, filteredMarker), true
}

// complete runs a single-turn prompt through the worker's invoker and
// filters the reply.
func (b *base) complete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	reply, err := b.invoker.Complete(ctx, domain.UserPrompt(system, prompt, maxTokens))
	if err != nil {
		return "", fmt.Errorf("%s: collaborator request failed: %w", b.name, err)
	}
	return b.filter(reply), nil
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.ToLower(strings.TrimSpace(v))
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
