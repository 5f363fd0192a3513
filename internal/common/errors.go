// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Extraction errors.
	ErrParseMiss = errors.New("pattern not found in message")

	// Ledger errors.
	ErrNotFound      = errors.New("not found")
	ErrInvalidRow    = errors.New("invalid transaction row")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")

	// Delivery errors.
	ErrDeliveryFailed = errors.New("message delivery failed")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// CollaboratorError wraps a failure of an external service (mail, ledger,
// delivery) with the unit of work that was being processed when it happened.
type CollaboratorError struct {
	Err  error
	Unit string
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Unit, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// NewCollaboratorError wraps err for the named unit of work.
func NewCollaboratorError(unit string, err error) error {
	if err == nil {
		return nil
	}
	return &CollaboratorError{Unit: unit, Err: err}
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
