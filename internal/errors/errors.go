// Package errors provides sentinel errors and structured error types for weaver.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for known conditions.
var (
	// ErrValidation indicates an invalid configuration value.
	ErrValidation = errors.New("validation error")

	// ErrNotFound indicates a dependency, module, or file was not found.
	ErrNotFound = errors.New("not found")

	// ErrWeaving indicates a fatal condition that aborts the weave.
	ErrWeaving = errors.New("weaving error")

	// ErrConsistency indicates the cloning engine reached a state that the
	// template and the runtime library should make impossible.
	ErrConsistency = errors.New("internal consistency error")
)

// WeavingError is the single fatal error kind raised by the weaving pipeline.
// It carries a human-readable message and never warrants a retry.
type WeavingError struct {
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *WeavingError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *WeavingError) Unwrap() error {
	return e.Cause
}

// Is reports ErrWeaving for every WeavingError.
func (e *WeavingError) Is(target error) bool {
	return target == ErrWeaving
}

// Weavingf creates a WeavingError with a formatted message.
func Weavingf(format string, args ...any) error {
	return &WeavingError{Message: fmt.Sprintf(format, args...)}
}

// WrapWeaving wraps cause in a WeavingError.
func WrapWeaving(cause error, format string, args ...any) error {
	return &WeavingError{Message: fmt.Sprintf(format, args...), Cause: cause}
}

// ConsistencyError reports an operand, field, or label that should have
// resolved during cloning but did not.
type ConsistencyError struct {
	// Op is the cloning step that failed (e.g. "resolve field").
	Op string

	// Method is the template method being copied, if any.
	Method string

	// Detail describes the unresolved item.
	Detail string
}

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	var b strings.Builder
	b.WriteString("internal consistency: ")
	b.WriteString(e.Op)
	if e.Method != "" {
		b.WriteString(" in ")
		b.WriteString(e.Method)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	return b.String()
}

// Is reports ErrConsistency for every ConsistencyError.
func (e *ConsistencyError) Is(target error) bool {
	return target == ErrConsistency
}

// NewConsistencyError creates a ConsistencyError.
func NewConsistencyError(op, method, detail string) error {
	return &ConsistencyError{Op: op, Method: method, Detail: detail}
}

// DetailError captures structured error information for CLI rendering.
type DetailError struct {
	// Type is the error category (required).
	Type string

	// Message is the specific description (required).
	Message string

	// Location is the file path (optional).
	Location string

	// Field is the configuration key for config errors (optional).
	Field string

	// Context contains additional key-value context (optional).
	Context map[string]string

	// Hint provides actionable guidance (optional).
	Hint string

	// Cause is the underlying error (optional).
	Cause error
}

// Error implements the error interface.
func (e *DetailError) Error() string {
	var b strings.Builder

	b.WriteString("Error: ")
	b.WriteString(e.Type)
	b.WriteString("\n")

	if e.Location != "" {
		b.WriteString("  Location: ")
		b.WriteString(e.Location)
		b.WriteString("\n")
	}
	if e.Field != "" {
		b.WriteString("  Field: ")
		b.WriteString(e.Field)
		b.WriteString("\n")
	}
	for k, v := range e.Context {
		b.WriteString("  ")
		b.WriteString(k)
		b.WriteString(": ")
		b.WriteString(v)
		b.WriteString("\n")
	}

	b.WriteString("\n  ")
	b.WriteString(e.Message)
	b.WriteString("\n")

	if e.Hint != "" {
		b.WriteString("\nHint: ")
		b.WriteString(e.Hint)
		b.WriteString("\n")
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *DetailError) Unwrap() error {
	return e.Cause
}

// NewValidationError creates a validation error with details.
func NewValidationError(message, location, field, hint string) error {
	return &DetailError{
		Type:     "validation failed",
		Message:  message,
		Location: location,
		Field:    field,
		Hint:     hint,
		Cause:    ErrValidation,
	}
}

// NewNotFoundError creates a not found error with details.
func NewNotFoundError(message, location, hint string) error {
	return &DetailError{
		Type:     "not found",
		Message:  message,
		Location: location,
		Hint:     hint,
		Cause:    ErrNotFound,
	}
}

// Wrap wraps an error with a sentinel error type.
func Wrap(sentinel error, message string) error {
	return fmt.Errorf("%s: %w", message, sentinel)
}
