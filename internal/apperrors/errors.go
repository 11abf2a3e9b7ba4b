// Package apperrors defines the error taxonomy shared by the scheduling and assessment engine.
package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an Error so callers can react without string matching.
type Kind string

const (
	// KindValidation is invalid caller input. Nothing was committed.
	KindValidation Kind = "VALIDATION"
	// KindStateConflict is an operation that is illegal for the current state.
	KindStateConflict Kind = "STATE_CONFLICT"
	// KindTransient is a recoverable storage or network failure.
	KindTransient Kind = "TRANSIENT"
	// KindPoolExhausted means no candidate matched the requested filters.
	KindPoolExhausted Kind = "POOL_EXHAUSTED"
)

// Error is a classified error carrying enough context to render a message.
type Error struct {
	Kind    Kind
	Op      string
	Status  string
	Message string
	Field   string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Op != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, e.Message)
	}
	if e.Status != "" {
		msg += fmt.Sprintf(" (status %s)", e.Status)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Validation creates a validation error for field.
func Validation(field, format string, args ...any) *Error {
	return &Error{
		Kind:    KindValidation,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}

// StateConflict reports that op is not allowed while the target is in status.
func StateConflict(op, status string) *Error {
	return &Error{
		Kind:    KindStateConflict,
		Op:      op,
		Status:  status,
		Message: fmt.Sprintf("%s is not allowed", op),
	}
}

// Transient wraps a retryable persistence failure.
func Transient(op string, cause error) *Error {
	return &Error{
		Kind:    KindTransient,
		Op:      op,
		Message: "persistence unavailable",
		Cause:   cause,
	}
}

// PoolExhausted reports that no candidate matched.
func PoolExhausted(requested int) *Error {
	return &Error{
		Kind:    KindPoolExhausted,
		Op:      "create",
		Message: fmt.Sprintf("no eligible items for %d requested", requested),
	}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
