package errors

import (
	"errors"
	"fmt"
)

// ValidationError represents bad input shape or identifiers (empty or
// traversal-prone session ids, negative cleanup windows, configs missing a
// name). It is never retried; the command layer turns it into a user-facing
// message and a non-zero exit code.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

// NotFoundError represents a missing session or profile.
type NotFoundError struct {
	Kind string // "session", "profile"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// StoreError wraps filesystem write/rename failures with context. Write
// errors are never swallowed; corruption on read is handled by the store's
// recovery tiers instead and never surfaces as a StoreError.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewValidation creates a ValidationError for the given field.
func NewValidation(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NewNotFound creates a NotFoundError.
func NewNotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// WrapStore wraps err with the failed operation's description.
func WrapStore(op string, err error) *StoreError {
	return &StoreError{Op: op, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
