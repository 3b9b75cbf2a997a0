package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested key or record does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidEntity is returned when a value cannot be encoded or decoded.
	// Check the wrapped error for details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrProviderConfigNotFound indicates no settings were saved for a provider.
	ErrProviderConfigNotFound = fmt.Errorf("%w: provider config", ErrNotFound)

	// ErrTaskNotFound indicates the task history has no entry for an id.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrHistoryEntryNotFound indicates the generation history has no entry for an id.
	ErrHistoryEntryNotFound = fmt.Errorf("%w: history entry", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The record type (e.g., "provider_config", "task_history")
	Operation string // The operation that failed (e.g., "get", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Operation, e.Entity, e.Message, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
