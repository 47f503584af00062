// Package apperrors defines the error taxonomy shared by the repository layer, the access gate
// and the HTTP handlers. Callers match kinds with errors.Is and pull details out with errors.As.
package apperrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound reports that the requested id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized reports a missing credential or one matching no stored key.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrUnsupportedFilter is matched by every *UnsupportedFilterError.
	ErrUnsupportedFilter = errors.New("unsupported filter")
	// ErrConstraintViolation is matched by every *ConstraintViolationError.
	ErrConstraintViolation = errors.New("constraint violation")
)

// ValidationError describes a payload field that failed a required, type or rule check.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NewValidationError builds a ValidationError with a formatted reason.
func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// UnsupportedFilterError is returned when a filter names a field the entity does not allow
// filtering on.
type UnsupportedFilterError struct {
	Entity string
	Field  string
}

func (e *UnsupportedFilterError) Error() string {
	return fmt.Sprintf("unsupported filter %q for %s", e.Field, e.Entity)
}

func (e *UnsupportedFilterError) Is(target error) bool { return target == ErrUnsupportedFilter }

// Constraint kinds reported by ConstraintViolationError.
const (
	ConstraintUnique     = "unique"
	ConstraintForeignKey = "foreign_key"
	ConstraintCheck      = "check"
)

// ConstraintViolationError wraps a unique, foreign-key or check violation raised by the store.
type ConstraintViolationError struct {
	Entity     string
	Kind       string
	Constraint string
	Fields     []string
	Err        error
}

func (e *ConstraintViolationError) Error() string {
	msg := fmt.Sprintf("%s constraint %q violated on %s", e.Kind, e.Constraint, e.Entity)
	if len(e.Fields) > 0 {
		msg += " (" + strings.Join(e.Fields, ", ") + ")"
	}
	return msg
}

func (e *ConstraintViolationError) Is(target error) bool { return target == ErrConstraintViolation }

func (e *ConstraintViolationError) Unwrap() error { return e.Err }
