package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable is returned when a session cannot be created.
	ErrServiceUnavailable = errors.New("authorization service unavailable")

	// ErrMalformedResponse is returned when the service answers with
	// something that violates the protocol.
	ErrMalformedResponse = errors.New("malformed response from authorization service")

	// ErrTimedOut is returned when polling exhausts its budget.
	ErrTimedOut = errors.New("authorization timed out")

	// ErrCancelled is returned when the caller cancels the run.
	ErrCancelled = errors.New("authorization cancelled")
)

// NetworkError is a transient failure of a single status check.
// The Poller retries it; nothing else should see it.
type NetworkError struct {
	// StatusCode is the HTTP status, or 0 when no response arrived.
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("status check failed (HTTP %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("status check failed: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RejectedError is a terminal refusal by the service.
type RejectedError struct {
	// Code is the machine-readable error code sent by the service.
	Code   string
	Reason Reason
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("authorization rejected: %s", e.Code)
}

func newRejectedError(code string) *RejectedError {
	if code == "" {
		code = unknownErrorCode
	}
	return &RejectedError{Code: code, Reason: Classify(code)}
}
