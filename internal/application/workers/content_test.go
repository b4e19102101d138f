package workers

import (
	"context"
	"errors"
	"testing"

	"github.com/aescanero/taskorch/internal/testutil"
	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newContentWorker(t *testing.T, mock *testutil.MockCompleter) *ContentWorker {
	t.Helper()
	return NewContentWorker(testutil.NewInvoker(t, mock), DefaultSettings(), zaptest.NewLogger(t))
}

func TestContentMaxTokensPerLength(t *testing.T) {
	for length, tokens := range lengthTokens {
		t.Run(length, func(t *testing.T) {
			mock := &testutil.MockCompleter{Default: "generated text"}
			w := newContentWorker(t, mock)

			out, err := w.Process(context.Background(), domain.WorkerInput{
				Task:   "Explain channels",
				Length: length,
			})
			require.NoError(t, err)
			assert.Equal(t, tokens, mock.LastRequest().MaxTokens)
			assert.Equal(t, length, out.Details["length"])
			assert.Equal(t, 2, out.WordCount)
		})
	}
}

func TestContentDefaults(t *testing.T) {
	mock := &testutil.MockCompleter{Default: "text"}
	w := newContentWorker(t, mock)

	out, err := w.Process(context.Background(), domain.WorkerInput{Task: "Explain goroutines"})
	require.NoError(t, err)

	assert.Equal(t, domain.ContentWorkerName, out.Worker)
	assert.Equal(t, "explanation", out.Mode)
	assert.Equal(t, "professional", out.Details["style"])
	assert.Equal(t, "medium", out.Details["length"])

	req := mock.LastRequest()
	assert.Contains(t, req.System, "Style: "+styleGuidance["professional"])
	assert.Equal(t, "Please explain: Explain goroutines", req.Messages[0].Content)
}

func TestContentUnstyledTypes(t *testing.T) {
	mock := &testutil.MockCompleter{Default: "text"}
	w := newContentWorker(t, mock)

	_, err := w.Process(context.Background(), domain.WorkerInput{Task: "A poem about Go", Mode: "creative", Style: "casual"})
	require.NoError(t, err)
	assert.NotContains(t, mock.LastRequest().System, "Style:")
	assert.Contains(t, mock.LastRequest().System, "Length: ")
}

func TestContentValidateInput(t *testing.T) {
	w := newContentWorker(t, &testutil.MockCompleter{})

	tests := []struct {
		name    string
		input   domain.WorkerInput
		wantErr string
	}{
		{name: "valid", input: domain.WorkerInput{Task: "Write about Go", Mode: "summary", Style: "casual", Length: "short"}},
		{name: "short request", input: domain.WorkerInput{Task: "Go"}, wantErr: "too short"},
		{name: "bad type", input: domain.WorkerInput{Task: "Write about Go", Mode: "poem"}, wantErr: "invalid content type"},
		{name: "bad style", input: domain.WorkerInput{Task: "Write about Go", Style: "shouty"}, wantErr: "invalid style"},
		{name: "bad length", input: domain.WorkerInput{Task: "Write about Go", Length: "epic"}, wantErr: "invalid length"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.ValidateInput(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestContentRefine(t *testing.T) {
	mock := &testutil.MockCompleter{Default: "better text here"}
	w := newContentWorker(t, mock)

	out, err := w.Refine(context.Background(), "draft text", "make it shorter")
	require.NoError(t, err)

	assert.Equal(t, "refinement", out.Mode)
	assert.Equal(t, "better text here", out.Content)
	assert.Equal(t, 3, out.WordCount)
	assert.Equal(t, "make it shorter", out.Details["refinement_instructions"])

	req := mock.LastRequest()
	assert.Equal(t, 800, req.MaxTokens)
	assert.Contains(t, req.Messages[0].Content, "Original content:\ndraft text")
	assert.Contains(t, req.Messages[0].Content, "Refinement instructions:\nmake it shorter")

	_, err = w.Refine(context.Background(), "draft", " ")
	require.Error(t, err)
	assert.Equal(t, 1, mock.CallCount())
}
