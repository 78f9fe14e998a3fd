package types

import (
	"errors"
	"fmt"
)

// UnauthorizedError is returned when a caller lacks the role an operation
// requires. It is shared by every engine; the Required field names the role
// that was checked.
type UnauthorizedError struct {
	Caller   Identity
	Required string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("caller %q does not hold required role %q", e.Caller, e.Required)
}

func IsUnauthorizedError(err error) bool {
	var target *UnauthorizedError
	return errors.As(err, &target)
}

// ValidationError is returned when an input fails validation before any
// mutation. Field names the offending input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
