// Package testutil provides fakes shared by the orchestrator's tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aescanero/taskorch/internal/application/invoker"
	"github.com/aescanero/taskorch/pkg/adapters/metrics/noop"
	"github.com/aescanero/taskorch/pkg/domain"
	"go.uber.org/zap/zaptest"
)

// MockCompleter is a thread-safe scripted collaborator.
//
// Call n (0-based) fails with Errors[n] when that entry is non-nil, otherwise
// returns Replies[n]; calls past the end of Replies return Default. Err, when
// set, fails every call. Handler, when set, replaces all of the above.
//
//	mock := &testutil.MockCompleter{
//	    Errors:  []error{errors.New("reset"), errors.New("reset")},
//	    Replies: []string{"", "", "third time lucky"},
//	}
type MockCompleter struct {
	mu       sync.Mutex
	Replies  []string
	Errors   []error
	Err      error
	Default  string
	Handler  func(ctx context.Context, req domain.CompletionRequest) (string, error)
	requests []domain.CompletionRequest
}

// Complete implements ports.Completer.
func (m *MockCompleter) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	m.mu.Lock()
	idx := len(m.requests)
	m.requests = append(m.requests, req)
	handler := m.Handler
	m.mu.Unlock()

	if handler != nil {
		return handler(ctx, req)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	if idx < len(m.Errors) && m.Errors[idx] != nil {
		return "", m.Errors[idx]
	}
	if idx < len(m.Replies) {
		return m.Replies[idx], nil
	}
	return m.Default, nil
}

// CallCount returns the number of Complete calls.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every request received.
func (m *MockCompleter) Requests() []domain.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.CompletionRequest(nil), m.requests...)
}

// LastRequest returns the most recent request, or the zero value.
func (m *MockCompleter) LastRequest() domain.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return domain.CompletionRequest{}
	}
	return m.requests[len(m.requests)-1]
}

// FastPolicy retries quickly so tests do not sleep for real backoff.
func FastPolicy(attempts int) invoker.Policy {
	return invoker.Policy{
		MaxAttempts: attempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		Timeout:     time.Second,
	}
}

// NewInvoker returns an invoker over c with FastPolicy(3).
func NewInvoker(t testing.TB, c *MockCompleter) *invoker.Invoker {
	t.Helper()
	inv, err := invoker.New(c, FastPolicy(3), noop.NewCollector(), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("failed to create invoker: %v", err)
	}
	return inv
}
