package core

import (
	"context"
	"errors"
	"fmt"
)

// FailureReason classifies why a fetch failed.
type FailureReason string

// Failure reasons.
const (
	ReasonNetwork  FailureReason = "network"  // transport failure
	ReasonStatus   FailureReason = "status"   // non-success HTTP status
	ReasonDecode   FailureReason = "decode"   // malformed payload
	ReasonCanceled FailureReason = "canceled" // context canceled or timed out
	ReasonUnknown  FailureReason = "unknown"
)

// FetchError is the single failure category of a listing fetch.
type FetchError struct {
	Reason     FailureReason
	StatusCode int // set for ReasonStatus
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Reason == ReasonStatus {
		return fmt.Sprintf("fetch failed: status %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch failed (%s): %v", e.Reason, e.Err)
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error { return e.Err }

// AsFetchError converts any error into a FetchError, keeping the reason when
// err already carries one.
func AsFetchError(err error) *FetchError {
	if err == nil {
		return nil
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Reason: ReasonCanceled, Err: err}
	}
	return &FetchError{Reason: ReasonUnknown, Err: err}
}
