package domain

import (
	"errors"
	"fmt"
)

// UsageError marks a request that is invalid on its face. It is rejected
// before any I/O and is never retried.
type UsageError struct {
	Reason string
}

func (e *UsageError) Error() string { return "usage: " + e.Reason }

// NewUsageError builds a UsageError from a format string.
func NewUsageError(format string, args ...any) error {
	return &UsageError{Reason: fmt.Sprintf(format, args...)}
}

// IsUsageError reports whether err is (or wraps) a UsageError.
func IsUsageError(err error) bool {
	var ue *UsageError
	return errors.As(err, &ue)
}

// ErrEmptySensorName rejects resolution or queries for an empty name.
var ErrEmptySensorName = &UsageError{Reason: "sensor name must not be empty"}

// BatchError reports a batch whose write failed after retries were exhausted.
// The orchestrator accumulates these and continues with subsequent batches.
type BatchError struct {
	Records int
	Err     error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch of %d records failed: %v", e.Records, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
