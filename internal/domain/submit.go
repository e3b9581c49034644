package domain

import (
	"context"
	"errors"
	"fmt"
)

// Submitter submits a detected opportunity for execution and returns the
// transaction signature. Implementations classify failures as transient or
// permanent via SubmitError so the orchestrator can decide retry eligibility.
type Submitter interface {
	Submit(ctx context.Context, opp Opportunity) (txID string, err error)
}

// SubmitError is a classified execution failure.
type SubmitError struct {
	// Code is a short machine-readable failure class, e.g. "rpc_unavailable",
	// "blockhash_expired", "profit_floor_violated".
	Code string

	// Transient indicates the failure may succeed on retry (network faults,
	// timeouts, venue busy). Permanent failures (program rejections, invalid
	// requests) must not be retried.
	Transient bool

	Err error
}

// Error implements the error interface.
func (e *SubmitError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Err != nil {
		return fmt.Sprintf("submit %s (%s): %v", e.Code, kind, e.Err)
	}
	return fmt.Sprintf("submit %s (%s)", e.Code, kind)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *SubmitError) Unwrap() error {
	return e.Err
}

// NewTransientSubmitError wraps err as a retryable submission failure.
func NewTransientSubmitError(code string, err error) *SubmitError {
	return &SubmitError{Code: code, Transient: true, Err: err}
}

// NewPermanentSubmitError wraps err as a non-retryable submission failure.
func NewPermanentSubmitError(code string, err error) *SubmitError {
	return &SubmitError{Code: code, Transient: false, Err: err}
}

// IsTransient reports whether err is classified as retryable. Unclassified
// errors are treated as permanent so unknown failure modes are never retried
// blindly.
func IsTransient(err error) bool {
	var se *SubmitError
	if errors.As(err, &se) {
		return se.Transient
	}
	return false
}
