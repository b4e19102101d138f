package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aescanero/taskorch/internal/application/workers"
	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func TestInitLogger(t *testing.T) {
	tests := []struct {
		level string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
		{"bogus", zapcore.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := initLogger(tt.level)
			assert.True(t, logger.Core().Enabled(tt.want))
			assert.False(t, logger.Core().Enabled(tt.want-1))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "taskorch version dev (build: unknown)\n", out.String())
}

func TestRunCommand_StaticProvider(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taskorch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: error
llm:
  provider: static
retry:
  base_delay: 1ms
  max_delay: 2ms
health:
  work_dir: `+dir+`
`), 0o600))

	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "run", "Explain", "Go", "channels"})

	require.NoError(t, cmd.Execute())
	text := out.String()
	assert.Contains(t, text, "Explain Go channels")
	assert.Contains(t, text, "(fallback plan)")
	assert.Contains(t, text, "✓ ResearchWorker")
	assert.Contains(t, text, "OK. Acknowledged request:")
	assert.Contains(t, text, "coordinator")
}

func TestRunCommand_InvalidContext(t *testing.T) {
	cmd := rootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"run", "--context", "{not json", "task"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --context")
}

func TestPrintReport(t *testing.T) {
	output := "Go channels pass values between goroutines."
	failure := "ContentWorker: invalid input: topic is required"
	rec := &domain.WorkflowRecord{
		Task: domain.Task{ID: "task-1", Description: "Explain channels"},
		Plan: domain.FallbackPlan(),
		Results: map[string]domain.StepResult{
			domain.ResearchWorkerName: {WorkerName: domain.ResearchWorkerName, Action: "research", Success: true, Output: &output, Duration: 1500 * time.Millisecond},
			domain.ContentWorkerName:  {WorkerName: domain.ContentWorkerName, Action: "generate", Error: &failure},
		},
		StepOrder:   []string{domain.ResearchWorkerName, domain.ContentWorkerName},
		FinalOutput: output,
	}
	report := &domain.Report{
		Record: rec,
		Metrics: map[string]domain.Metrics{
			"coordinator": {Name: "coordinator", Requests: 2, Successes: 1, Failures: 1, TotalTime: 2 * time.Second},
		},
	}

	var buf bytes.Buffer
	printReport(&buf, report)
	text := buf.String()

	assert.Contains(t, text, "Task task-1")
	assert.Contains(t, text, "(fallback plan)")
	assert.Contains(t, text, "✓ ResearchWorker")
	assert.Contains(t, text, "✗ ContentWorker")
	assert.Contains(t, text, failure)
	assert.Contains(t, text, "success_rate=50.0%")
	assert.Contains(t, text, "avg=1s")
}

func TestPrintHealth(t *testing.T) {
	report := &workers.HealthReport{
		SystemHealthy: false,
		Workers: map[string]domain.HealthStatus{
			domain.ResearchWorkerName: {Healthy: true, Detail: "OK"},
		},
		System: &workers.SystemReport{
			Checks: map[string]workers.CheckResult{
				workers.CheckFilesystem: {Healthy: false, Message: "work directory not writable"},
				workers.CheckResources:  {Healthy: true, Message: "resources OK"},
			},
		},
	}

	var buf bytes.Buffer
	printHealth(&buf, report)
	text := buf.String()

	assert.Contains(t, text, "System: unhealthy")
	assert.Contains(t, text, "✓ ResearchWorker")
	assert.Contains(t, text, "✗ filesystem")
	assert.Contains(t, text, "✓ resources")
}
