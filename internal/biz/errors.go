package biz

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"
)

// SyncErrorType classifies failures of boundary-crossing calls. The type
// drives retry decisions, breaker accounting, and the user-facing message.
type SyncErrorType string

const (
	// ErrorTypeNetwork is a connection-level failure (refused, reset, DNS).
	ErrorTypeNetwork SyncErrorType = "network"
	// ErrorTypeTimeout is an exceeded deadline on an external call.
	ErrorTypeTimeout SyncErrorType = "timeout"
	// ErrorTypeAuth is a credential rejection (401/403) from a remote.
	ErrorTypeAuth SyncErrorType = "auth"
	// ErrorTypeValidation is a client-side payload or argument problem.
	ErrorTypeValidation SyncErrorType = "validation"
	// ErrorTypeAPI is a definitive rejection by the remote service.
	ErrorTypeAPI SyncErrorType = "api"
	// ErrorTypeCircuitOpen means the breaker rejected the call without
	// invoking the remote at all.
	ErrorTypeCircuitOpen SyncErrorType = "circuit_open"
)

// SyncError is the tagged error returned by external clients and the
// validation gate. StatusCode is zero when no HTTP response was received;
// RetryAfter carries a server-supplied retry hint when present.
type SyncError struct {
	Type       SyncErrorType
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s error (HTTP %d): %s", e.Type, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is / errors.As.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// UserMessage maps the internal taxonomy to plain language for operators.
// Internal codes and stack detail stay on the operation record only.
func (e *SyncError) UserMessage() string {
	switch e.Type {
	case ErrorTypeNetwork:
		return "Could not reach the booking channel. Please try again in a moment."
	case ErrorTypeTimeout:
		return "The booking channel took too long to respond. Please try again."
	case ErrorTypeAuth:
		return "The channel rejected our credentials. Please re-enter the channel API key in settings."
	case ErrorTypeValidation:
		return "The rate data is invalid and was not sent. Please review the highlighted fields."
	case ErrorTypeCircuitOpen:
		return "Sync to this channel is paused after repeated failures. It will resume automatically."
	default:
		return "The booking channel rejected the update. Support has been notified."
	}
}

// CircuitOpenError is raised by a breaker that is rejecting calls. It is
// reported as retryable after NextAttemptTime but is never retried within
// the same call.
type CircuitOpenError struct {
	Target          string
	NextAttemptTime time.Time
	FailureCount    int
}

// Error implements the error interface.
func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for %q (failures=%d, next attempt at %s)",
		e.Target, e.FailureCount, e.NextAttemptTime.Format(time.RFC3339))
}

// RetryExhaustedError records that all allowed attempts failed and keeps the
// last underlying failure.
type RetryExhaustedError struct {
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Err)
}

// Unwrap returns the last underlying failure.
func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// Classify maps an arbitrary error into the sync taxonomy. Errors already
// tagged pass through; circuit-open and retry-exhausted wrappers are
// unwrapped to their effective class first.
func Classify(err error) *SyncError {
	if err == nil {
		return nil
	}

	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr
	}

	var openErr *CircuitOpenError
	if errors.As(err, &openErr) {
		return &SyncError{Type: ErrorTypeCircuitOpen, Message: openErr.Error(), Err: err}
	}

	var exhausted *RetryExhaustedError
	if errors.As(err, &exhausted) {
		inner := Classify(exhausted.Err)
		return &SyncError{
			Type:       inner.Type,
			StatusCode: inner.StatusCode,
			Message:    fmt.Sprintf("retries exhausted: %s", inner.Message),
			Err:        err,
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &SyncError{Type: ErrorTypeTimeout, Message: err.Error(), Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return &SyncError{Type: ErrorTypeTimeout, Message: err.Error(), Err: err}
		}
		return &SyncError{Type: ErrorTypeNetwork, Message: err.Error(), Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &SyncError{Type: ErrorTypeNetwork, Message: err.Error(), Err: err}
	}

	return &SyncError{Type: ErrorTypeAPI, Message: err.Error(), Err: err}
}

// Recoverable reports whether a failure of this class could succeed on a
// later submission (as opposed to needing operator action first).
func (e *SyncError) Recoverable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeCircuitOpen:
		return true
	case ErrorTypeAPI:
		return e.StatusCode == 429 || e.StatusCode >= 500
	default:
		return false
	}
}
