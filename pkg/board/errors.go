package board

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation reports a value that violates its field descriptor.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound reports a missing document.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized reports a connection or request without a valid identity.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnsupported reports an operation the entity type does not offer.
	ErrUnsupported = errors.New("unsupported operation")

	// ErrTypeMismatch reports result sets of different entity types combined together.
	ErrTypeMismatch = errors.New("entity type mismatch")
)

// ValidationError describes why a field value was rejected.
type ValidationError struct {
	Type   string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("%s.%s: %s", e.Type, e.Field, e.Reason)
}

// Is reports ErrValidation as a match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NotFoundError identifies the missing document.
type NotFoundError struct {
	Type string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Type, e.ID)
}

// Is reports ErrNotFound as a match.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// IsNotFound returns true if err is or wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation returns true if err is or wraps ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func invalid(t *EntityType, field, format string, args ...any) error {
	name := ""
	if t != nil {
		name = t.Name
	}
	return &ValidationError{Type: name, Field: field, Reason: fmt.Sprintf(format, args...)}
}
