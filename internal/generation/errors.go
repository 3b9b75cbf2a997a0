package generation

import "errors"

// Common errors returned by the generation package
var (
	// ErrUnknownProvider is returned when a provider id has no registered factory.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrNotConfigured is returned when an operation needs a current provider and none is set.
	ErrNotConfigured = errors.New("no provider configured")

	// ErrInvalidConfig is returned when a provider configuration cannot be used.
	ErrInvalidConfig = errors.New("invalid provider configuration")
)
