package ports

import (
	"context"

	"github.com/aescanero/taskorch/pkg/domain"
)

// Completer is the reasoning collaborator. Implementations classify their
// failures with domain.NewTransientError / domain.NewFatalError so the
// invoker knows what to retry.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req domain.CompletionRequest) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	return f(ctx, req)
}
