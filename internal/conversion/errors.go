package conversion

import (
	"errors"
	"fmt"
)

// Sentinel errors for conversion operations. The API layer maps these to
// HTTP status codes.
var (
	// ErrPostNotFound is returned when the target post does not exist
	ErrPostNotFound = errors.New("post not found")

	// ErrUnauthorized is returned when the actor is not the post owner
	ErrUnauthorized = errors.New("only the post owner can perform this action")

	// ErrPostNotActive is returned when the post has expired or was deleted
	ErrPostNotActive = errors.New("post is no longer active")

	// ErrAlreadyConverted is returned when the post was already converted,
	// including the case where a concurrent conversion won the race
	ErrAlreadyConverted = errors.New("post has already been converted")

	// ErrNotPrompted is returned when dismissing a prompt that was never shown
	ErrNotPrompted = errors.New("post has no conversion prompt to dismiss")

	// ErrNotEligible is returned when a threshold-triggered conversion runs
	// on a post that never reached the reaction floor
	ErrNotEligible = errors.New("post is not eligible for conversion")
)

// ValidationError describes rejected conversion input. It carries the field
// so clients can highlight it.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// MissingField builds a ValidationError for a required field left empty
func MissingField(field string) *ValidationError {
	return &ValidationError{Field: field, Message: "This field is required"}
}

// AsValidationError extracts a ValidationError from an error chain
func AsValidationError(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
