package models

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a research error so the pipeline engine can decide
// whether to retry, skip, or terminate.
type ErrorKind string

const (
	ErrInputInvalid        ErrorKind = "input_invalid"
	ErrExternalUnavailable ErrorKind = "external_unavailable"
	ErrExternalRateLimited ErrorKind = "external_rate_limited"
	ErrExternalTimeout     ErrorKind = "external_timeout"
	ErrContentEmpty        ErrorKind = "content_empty"
	ErrCancelled           ErrorKind = "cancelled"
	ErrInternal            ErrorKind = "internal"
	ErrBackpressure        ErrorKind = "backpressure"
	ErrNotFound            ErrorKind = "not_found"
)

// ResearchError wraps an error with its kind and the operation that produced it.
type ResearchError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ResearchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	}
	if e.Op == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *ResearchError) Unwrap() error {
	return e.Err
}

// NewError creates a ResearchError wrapping err.
func NewError(kind ErrorKind, op string, err error) *ResearchError {
	return &ResearchError{Kind: kind, Op: op, Err: err}
}

// Errorf creates a ResearchError from a format string.
func Errorf(kind ErrorKind, format string, args ...interface{}) *ResearchError {
	return &ResearchError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err. Context cancellation and deadline errors map
// to cancelled and external_timeout; anything unclassified is internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var re *ResearchError
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, context.Canceled) {
		return ErrCancelled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrExternalTimeout
	}
	return ErrInternal
}

// IsRetryable reports whether err is worth retrying with backoff.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case ErrExternalTimeout, ErrExternalRateLimited:
		return true
	default:
		return false
	}
}

// IsCancelled reports whether err was caused by job cancellation.
// Cancellation supersedes all other error kinds once observed.
func IsCancelled(err error) bool {
	return KindOf(err) == ErrCancelled || errors.Is(err, context.Canceled)
}
