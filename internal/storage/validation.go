package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Validation errors.
var (
	ErrNilContext  = errors.New("context cannot be nil")
	ErrEmptyString = errors.New("string parameter cannot be empty")
	ErrInvalidRun  = errors.New("invalid run")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRun checks the identifying fields of a run record.
func validateRun(run *Run) error {
	if run == nil {
		return fmt.Errorf("%w: nil run", ErrInvalidRun)
	}
	if strings.TrimSpace(run.ID) == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidRun)
	}
	if strings.TrimSpace(run.Job) == "" {
		return fmt.Errorf("%w: missing job", ErrInvalidRun)
	}
	if run.StartedAt.IsZero() {
		return fmt.Errorf("%w: missing start time", ErrInvalidRun)
	}
	return nil
}

// validateRange checks 1-based sheet coordinates.
func validateRange(startRow, startCol int) error {
	if startRow < 1 || startCol < 1 {
		return fmt.Errorf("range must start at row and column 1 or later, got (%d,%d)", startRow, startCol)
	}
	return nil
}
