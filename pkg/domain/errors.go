package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrAttemptTimeout   = errors.New("attempt timed out")
	ErrUnparsablePlan   = errors.New("unparsable plan")
	ErrTaskCancelled    = errors.New("task cancelled")
	ErrCoordinatorClose = errors.New("coordinator closed")
)

// InputValidationError reports a failed worker precondition. It is never
// retried and never reaches the collaborator.
type InputValidationError struct {
	Worker string
	Reason string
}

func (e *InputValidationError) Error() string {
	return fmt.Sprintf("%s: invalid input: %s", e.Worker, e.Reason)
}

// Is lets errors.Is match ErrInvalidInput.
func (e *InputValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewInputValidationError builds an InputValidationError.
func NewInputValidationError(worker, format string, args ...interface{}) error {
	return &InputValidationError{Worker: worker, Reason: fmt.Sprintf(format, args...)}
}

// TransientServiceError marks a collaborator failure that may succeed on retry.
type TransientServiceError struct {
	err error
}

func (e *TransientServiceError) Error() string { return e.err.Error() }

func (e *TransientServiceError) Unwrap() error { return e.err }

// NewTransientError wraps err as retryable.
func NewTransientError(err error) error {
	return &TransientServiceError{err: err}
}

// FatalError marks a collaborator failure that must not be retried
// (authentication, malformed request).
type FatalError struct {
	err error
}

func (e *FatalError) Error() string { return e.err.Error() }

func (e *FatalError) Unwrap() error { return e.err }

// NewFatalError wraps err as non-retryable.
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient returns true if err is explicitly marked retryable.
func IsTransient(err error) bool {
	var transient *TransientServiceError
	return errors.As(err, &transient)
}

// IsFatal returns true if err must not be retried.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// TerminalServiceError is returned once the retry budget is exhausted or a
// fatal failure ends a call early.
type TerminalServiceError struct {
	Attempts int
	Last     error
}

func (e *TerminalServiceError) Error() string {
	return fmt.Sprintf("service call failed after %d attempt(s): %v", e.Attempts, e.Last)
}

func (e *TerminalServiceError) Unwrap() error { return e.Last }

// PlanningError describes why dynamic planning was abandoned. It is always
// recovered by the fallback plan.
type PlanningError struct {
	Reason string
	Err    error
}

func (e *PlanningError) Error() string {
	if e.Err == nil {
		return "planning failed: " + e.Reason
	}
	return fmt.Sprintf("planning failed: %s: %v", e.Reason, e.Err)
}

func (e *PlanningError) Unwrap() error { return e.Err }
