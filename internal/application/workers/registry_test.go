package workers

import (
	"testing"

	"github.com/aescanero/taskorch/internal/testutil"
	"github.com/aescanero/taskorch/pkg/adapters/metrics/noop"
	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestRegistry(t *testing.T) {
	logger := zaptest.NewLogger(t)
	inv := testutil.NewInvoker(t, &testutil.MockCompleter{})

	research := NewResearchWorker(inv, nil, noop.NewCollector(), DefaultSettings(), logger)
	content := NewContentWorker(inv, DefaultSettings(), logger)
	validation := NewValidationWorker(inv, nil, noop.NewCollector(), DefaultSettings(), logger)

	r, err := NewRegistry(logger, research, content, validation)
	require.NoError(t, err)

	w, ok := r.Lookup(domain.WorkerContent)
	require.True(t, ok)
	assert.Equal(t, domain.ContentWorkerName, w.Name())

	_, ok = r.Lookup(domain.WorkerUnknown)
	assert.False(t, ok)

	names := []string{}
	for _, w := range r.Workers() {
		names = append(names, w.Name())
	}
	assert.Equal(t, []string{domain.ResearchWorkerName, domain.ContentWorkerName, domain.ValidationWorkerName}, names)

	metrics := r.Metrics()
	assert.Len(t, metrics, 3)
	assert.Equal(t, domain.ValidationWorkerName, metrics[domain.ValidationWorkerName].Name)

	got, ok := r.Validation()
	require.True(t, ok)
	assert.Same(t, validation, got)
	_, ok = r.Research()
	assert.True(t, ok)
	_, ok = r.Content()
	assert.True(t, ok)
}

func TestRegistryRejectsDuplicateKinds(t *testing.T) {
	logger := zaptest.NewLogger(t)
	inv := testutil.NewInvoker(t, &testutil.MockCompleter{})

	_, err := NewRegistry(logger, NewContentWorker(inv, DefaultSettings(), logger), NewContentWorker(inv, DefaultSettings(), logger))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestWorkersKeepSeparateCounters(t *testing.T) {
	logger := zaptest.NewLogger(t)
	mock := &testutil.MockCompleter{Default: "reply text"}
	inv := testutil.NewInvoker(t, mock)

	research := NewResearchWorker(inv, nil, noop.NewCollector(), DefaultSettings(), logger)
	content := NewContentWorker(inv, DefaultSettings(), logger)

	_, err := research.Process(t.Context(), domain.WorkerInput{Task: "a research query"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), research.Metrics().Requests)
	assert.Zero(t, content.Metrics().Requests)
}
