package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aescanero/taskorch/internal/testutil"
	"github.com/aescanero/taskorch/pkg/adapters/metrics/noop"
	"github.com/aescanero/taskorch/pkg/adapters/storage/memory"
	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newResearchWorker(t *testing.T, mock *testutil.MockCompleter, withCache bool) *ResearchWorker {
	t.Helper()
	var cache *memory.ResultCache
	if withCache {
		cache = memory.NewResultCache(time.Hour)
		return NewResearchWorker(testutil.NewInvoker(t, mock), cache, noop.NewCollector(), DefaultSettings(), zaptest.NewLogger(t))
	}
	return NewResearchWorker(testutil.NewInvoker(t, mock), nil, noop.NewCollector(), DefaultSettings(), zaptest.NewLogger(t))
}

func TestResearchProcess(t *testing.T) {
	mock := &testutil.MockCompleter{Default: "It is definitely established that Go was released in 2009."}
	w := newResearchWorker(t, mock, false)

	out, err := w.Process(context.Background(), domain.WorkerInput{
		TaskID: "t1",
		Task:   "When was Go released?",
		Mode:   ResearchFactual,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.ResearchWorkerName, out.Worker)
	assert.Equal(t, ResearchFactual, out.Mode)
	assert.Equal(t, "high", out.Confidence)
	assert.Equal(t, 10, out.WordCount)
	assert.Equal(t, "When was Go released?", out.Details["query"])
	assert.Contains(t, out.Details, "verification_notes")

	req := mock.LastRequest()
	assert.Equal(t, 600, req.MaxTokens)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "Factual research request: When was Go released?", req.Messages[0].Content)

	m := w.Metrics()
	assert.Equal(t, int64(1), m.Requests)
	assert.Equal(t, int64(1), m.Successes)
	assert.Equal(t, domain.ResearchWorkerName, m.Name)
}

func TestResearchQueryOverridesTask(t *testing.T) {
	mock := &testutil.MockCompleter{Default: "findings"}
	w := newResearchWorker(t, mock, false)

	out, err := w.Process(context.Background(), domain.WorkerInput{Task: "ignored task", Query: "goroutines"})
	require.NoError(t, err)
	assert.Equal(t, ResearchGeneral, out.Mode)
	assert.Equal(t, "goroutines", out.Details["query"])
	assert.Equal(t, 800, mock.LastRequest().MaxTokens)
}

func TestResearchCacheHitSkipsCollaborator(t *testing.T) {
	mock := &testutil.MockCompleter{Default: "cached findings"}
	w := newResearchWorker(t, mock, true)
	ctx := context.Background()
	input := domain.WorkerInput{Task: "channels in Go", Mode: ResearchAnalytical}

	first, err := w.Process(ctx, input)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := w.Process(ctx, input)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, 1, mock.CallCount())

	stats, err := w.CacheStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, CacheStats{Enabled: true, Size: 1}, stats)

	n, err := w.ClearCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = w.Process(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, 2, mock.CallCount())
}

func TestResearchWithoutCache(t *testing.T) {
	w := newResearchWorker(t, &testutil.MockCompleter{}, false)

	stats, err := w.CacheStats(context.Background())
	require.NoError(t, err)
	assert.False(t, stats.Enabled)

	n, err := w.ClearCache(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestResearchInvalidInputMakesNoCall(t *testing.T) {
	tests := []struct {
		name  string
		input domain.WorkerInput
	}{
		{name: "empty query", input: domain.WorkerInput{Task: "   "}},
		{name: "short query", input: domain.WorkerInput{Task: "ab"}},
		{name: "unknown mode", input: domain.WorkerInput{Task: "valid query", Mode: "speculative"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &testutil.MockCompleter{}
			w := newResearchWorker(t, mock, false)

			_, err := w.Process(context.Background(), tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
			assert.Zero(t, mock.CallCount())
			assert.Zero(t, w.Metrics().Requests)
		})
	}
}

func TestResearchDisabledMode(t *testing.T) {
	settings := DefaultSettings()
	settings.AllowedModes = []string{ResearchGeneral}
	w := NewResearchWorker(testutil.NewInvoker(t, &testutil.MockCompleter{}), nil, noop.NewCollector(), settings, zaptest.NewLogger(t))

	err := w.ValidateInput(domain.WorkerInput{Task: "valid query", Mode: ResearchComparative})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disabled")

	assert.NoError(t, w.ValidateInput(domain.WorkerInput{Task: "valid query"}))
}

func TestResearchMaxInputLength(t *testing.T) {
	settings := DefaultSettings()
	settings.MaxInputLength = 10
	w := NewResearchWorker(testutil.NewInvoker(t, &testutil.MockCompleter{}), nil, noop.NewCollector(), settings, zaptest.NewLogger(t))

	err := w.ValidateInput(domain.WorkerInput{Task: "this query is far too long"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too long")
}

func TestResearchCollaboratorFailure(t *testing.T) {
	mock := &testutil.MockCompleter{Err: domain.NewTransientError(errors.New("overloaded"))}
	w := newResearchWorker(t, mock, false)

	_, err := w.Process(context.Background(), domain.WorkerInput{Task: "anything at all"})
	require.Error(t, err)

	var terminal *domain.TerminalServiceError
	assert.True(t, errors.As(err, &terminal))

	m := w.Metrics()
	assert.Equal(t, int64(1), m.Requests)
	assert.Equal(t, int64(1), m.Failures)
	assert.Equal(t, m.Requests, m.Successes+m.Failures)
}

func TestAssessConfidence(t *testing.T) {
	assert.Equal(t, "high", assessConfidence("This is proven and documented."))
	assert.Equal(t, "low", assessConfidence("It might vary, perhaps, it depends."))
	assert.Equal(t, "medium", assessConfidence("Plain statement."))
	assert.Equal(t, "medium", assessConfidence("It is confirmed but it might depend."))
}

func TestCacheKey(t *testing.T) {
	a := cacheKey(ResearchGeneral, "query")
	assert.Equal(t, a, cacheKey(ResearchGeneral, "query"))
	assert.NotEqual(t, a, cacheKey(ResearchFactual, "query"))
	assert.NotEqual(t, a, cacheKey(ResearchGeneral, "other"))
	assert.Len(t, a, len(ResearchGeneral)+1+16)
}

func TestOutputFiltering(t *testing.T) {
	mock := &testutil.MockCompleter{Default: "Set the API_KEY and password, keep tokens."}
	w := newResearchWorker(t, mock, false)

	out, err := w.Process(context.Background(), domain.WorkerInput{Task: "configure it"})
	require.NoError(t, err)
	assert.Equal(t, "Set the [FILTERED] and [FILTERED], keep tokens.", out.Content)

	settings := DefaultSettings()
	settings.FilterOutput = false
	raw := NewResearchWorker(testutil.NewInvoker(t, mock), nil, noop.NewCollector(), settings, zaptest.NewLogger(t))
	out, err = raw.Process(context.Background(), domain.WorkerInput{Task: "configure it"})
	require.NoError(t, err)
	assert.Equal(t, "Set the API_KEY and password, keep tokens.", out.Content)
}
