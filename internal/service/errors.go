package service

import (
	"fmt"

	"github.com/phrazzld/literacy-poster/internal/domain"
)

// Sentinel errors for invalid requests. Both wrap domain.ErrValidation so the
// API layer maps them to 400.
var (
	// ErrTopicRequired is returned when a poster or prompt has no topic.
	ErrTopicRequired = fmt.Errorf("%w: topic is required", domain.ErrValidation)

	// ErrNoPrompts is returned for an empty batch.
	ErrNoPrompts = fmt.Errorf("%w: at least one prompt is required", domain.ErrValidation)
)

// PosterServiceError wraps a failure with the operation that produced it.
type PosterServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for PosterServiceError.
func (e *PosterServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("poster service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("poster service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *PosterServiceError) Unwrap() error {
	return e.Err
}

// NewPosterServiceError creates a new PosterServiceError.
func NewPosterServiceError(operation, message string, err error) *PosterServiceError {
	return &PosterServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
