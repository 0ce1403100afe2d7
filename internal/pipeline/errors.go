package pipeline

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrGuideTooShort and friends are the Stage 1 hard-validation
	// failures. No fallback content can satisfy the minimums, so they
	// always surface to the caller as pipeline failures.
	ErrGuideTooShort       = errors.New("assembled guide below minimum word count")
	ErrTooFewSections      = errors.New("assembled guide below minimum section count")
	ErrMissingRequiredType = errors.New("assembled guide missing a structurally required section type")

	ErrChunkParse = errors.New("chunk response is not valid section JSON")
)

// ValidationError reports a content-completeness failure with enough
// context for the caller to surface a useful message.
type ValidationError struct {
	Stage     string
	Field     string
	Message   string
	Got       any
	Want      any
	Cause     error
	Timestamp time.Time
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed in %s: %s (got %v, want %v)", e.Stage, e.Message, e.Got, e.Want)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

func newValidationError(stage, field, message string, got, want any, cause error) *ValidationError {
	return &ValidationError{
		Stage:     stage,
		Field:     field,
		Message:   message,
		Got:       got,
		Want:      want,
		Cause:     cause,
		Timestamp: time.Now(),
	}
}

// StageError wraps an unexpected error with the stage it escaped from.
// The orchestrator attaches it once at the top-level boundary.
type StageError struct {
	Stage string
	Book  string
	Cause error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("pipeline stage %s failed for %q: %v", e.Stage, e.Book, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// IsValidationError reports whether err carries a content-completeness
// failure rather than an infrastructure one.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
