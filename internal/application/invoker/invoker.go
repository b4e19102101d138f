package invoker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/taskorch/pkg/domain"
	"github.com/aescanero/taskorch/pkg/ports"
	"go.uber.org/zap"
)

// CollaboratorName labels the invoker's own counters.
const CollaboratorName = "collaborator"

const probePrompt = "Respond with 'OK' if you can process this request."

// Invoker is the retrying gateway to the reasoning collaborator.
type Invoker struct {
	completer ports.Completer
	policy    Policy
	metrics   ports.MetricsCollector
	counters  *domain.Counters
	logger    *zap.Logger
}

// New creates an invoker. It returns an error when the policy is invalid.
func New(completer ports.Completer, policy Policy, metrics ports.MetricsCollector, logger *zap.Logger) (*Invoker, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid retry policy: %w", err)
	}
	return &Invoker{
		completer: completer,
		policy:    policy,
		metrics:   metrics,
		counters:  domain.NewCounters(CollaboratorName),
		logger:    logger,
	}, nil
}

// Named returns an invoker sharing the collaborator and policy but keeping
// its own counters under name. Each worker gets one so its Metrics reflect
// only its own calls.
func (i *Invoker) Named(name string) *Invoker {
	return &Invoker{
		completer: i.completer,
		policy:    i.policy,
		metrics:   i.metrics,
		counters:  domain.NewCounters(name),
		logger:    i.logger.With(zap.String("worker", name)),
	}
}

// Policy returns the retry policy in effect.
func (i *Invoker) Policy() Policy {
	return i.policy
}

// Metrics returns a snapshot of the invoker's call counters.
func (i *Invoker) Metrics() domain.Metrics {
	return i.counters.Snapshot()
}

// Complete sends req to the collaborator under the retry policy.
func (i *Invoker) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	return Call(ctx, i, "complete", func(ctx context.Context) (string, error) {
		return i.completer.Complete(ctx, req)
	})
}

// Probe makes one bounded round-trip to the collaborator. It does not retry
// and does not touch the counters.
func (i *Invoker) Probe(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = i.policy.Timeout
	}
	_, err := attempt(ctx, timeout, func(ctx context.Context) (string, error) {
		return i.completer.Complete(ctx, domain.UserPrompt("", probePrompt, 10))
	})
	return err
}

// Call runs fn under the invoker's retry policy. op names the operation in
// logs. Fatal errors end the call at once; any other error, including an
// attempt timeout, is retried after Policy.Backoff.
//
// When ctx is cancelled the in-flight attempt is allowed to finish, its
// result is discarded and ctx.Err() is returned.
func Call[T any](ctx context.Context, i *Invoker, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	start := time.Now()

	var lastErr error
	attempts := 0
	for n := 1; n <= i.policy.MaxAttempts; n++ {
		attempts = n
		v, err := attempt(ctx, i.policy.Timeout, fn)
		if ctxErr := ctx.Err(); ctxErr != nil {
			i.finish(false, "cancelled", attempts, start)
			return zero, ctxErr
		}
		if err == nil {
			i.finish(true, "success", attempts, start)
			return v, nil
		}

		lastErr = err
		if domain.IsFatal(err) {
			i.logger.Warn("collaborator call failed with non-retryable error",
				zap.String("op", op),
				zap.Int("attempt", n),
				zap.Error(err))
			break
		}
		if n == i.policy.MaxAttempts {
			break
		}

		delay := i.policy.Backoff(n)
		i.logger.Warn("collaborator call failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", n),
			zap.Int("max_attempts", i.policy.MaxAttempts),
			zap.Duration("backoff", delay),
			zap.Error(err))

		select {
		case <-ctx.Done():
			i.finish(false, "cancelled", attempts, start)
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	i.finish(false, "failure", attempts, start)
	return zero, &domain.TerminalServiceError{Attempts: attempts, Last: lastErr}
}

func (i *Invoker) finish(success bool, outcome string, attempts int, start time.Time) {
	elapsed := time.Since(start)
	i.counters.Record(success, elapsed)
	if i.metrics != nil {
		i.metrics.RecordCollaboratorCall(outcome, attempts, elapsed)
	}
}

type result[T any] struct {
	v   T
	err error
}

// attempt runs fn once, bounded by timeout. The attempt context is detached
// from ctx's cancellation so an in-flight call is never interrupted by the
// caller; only the timeout ends it early.
func attempt[T any](ctx context.Context, timeout time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	done := make(chan result[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- result[T]{v: zero, err: fmt.Errorf("collaborator call panicked: %v", r)}
			}
		}()
		v, err := fn(actx)
		done <- result[T]{v: v, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && actx.Err() != nil {
			return r.v, domain.NewTransientError(fmt.Errorf("%w after %s", domain.ErrAttemptTimeout, timeout))
		}
		return r.v, r.err
	case <-actx.Done():
		var zero T
		return zero, domain.NewTransientError(fmt.Errorf("%w after %s", domain.ErrAttemptTimeout, timeout))
	}
}
