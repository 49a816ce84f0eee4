package provider

import (
	"errors"
	"fmt"
	"time"
)

// ProviderError represents a failure from a completion backend.
type ProviderError struct {
	Provider string
	ModelID  string
	Message  string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s provider error for %s: %s (%v)", e.Provider, e.ModelID, e.Message, e.Err)
	}
	return fmt.Sprintf("%s provider error for %s: %s", e.Provider, e.ModelID, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Err
}

// TimeoutError indicates a model did not respond within the deadline.
type TimeoutError struct {
	ModelID string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("model %s timed out after %s", e.ModelID, e.Timeout)
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
