package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/literacy-poster/internal/api/shared"
	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/phrazzld/literacy-poster/internal/generation"
	"github.com/phrazzld/literacy-poster/internal/prompt"
	"github.com/phrazzld/literacy-poster/internal/redact"
	"github.com/phrazzld/literacy-poster/internal/store"
)

// genericErrorMessage is returned when an error carries nothing safe to show.
const genericErrorMessage = "An unexpected error occurred"

// MapErrorToStatusCode maps internal errors to HTTP status codes based on
// the error type.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case errors.Is(err, generation.ErrUnknownProvider),
		errors.Is(err, generation.ErrInvalidConfig),
		errors.Is(err, domain.ErrValidation),
		errors.Is(err, prompt.ErrInvalidTemplate),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, generation.ErrNotConfigured):
		return http.StatusConflict

	// Not found errors
	case store.IsNotFoundError(err):
		return http.StatusNotFound
	}

	// Vendor errors
	switch domain.KindOf(err) {
	case domain.KindAuth:
		return http.StatusUnauthorized
	case domain.KindPayment:
		return http.StatusPaymentRequired
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	case domain.KindCancelled:
		return http.StatusConflict
	case domain.KindNetwork, domain.KindAPI, domain.KindParse, domain.KindTaskFailed:
		return http.StatusBadGateway
	}

	// Default: internal server error
	return http.StatusInternalServerError
}

// GetSafeErrorMessage returns a user-facing message for err.
//
// Vendor errors keep their message, with credentials redacted, so a vendor
// failure reason reaches the caller. Store and database details are never
// exposed.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return genericErrorMessage
	}

	switch {
	case errors.Is(err, generation.ErrUnknownProvider),
		errors.Is(err, generation.ErrInvalidConfig),
		errors.Is(err, generation.ErrNotConfigured),
		errors.Is(err, prompt.ErrInvalidTemplate):
		return redact.Error(err)

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrHistoryEntryNotFound):
		return "History entry not found"

	case errors.Is(err, store.ErrProviderConfigNotFound):
		return "Provider configuration not found"

	case store.IsNotFoundError(err):
		return "Not found"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"
	}

	var vendorErr *domain.Error
	if errors.As(err, &vendorErr) {
		return redact.String(vendorErr.Error())
	}

	if errors.Is(err, domain.ErrValidation) {
		if msg := validationMessage(err); msg != "" {
			return msg
		}
		return "Validation error"
	}

	return genericErrorMessage
}

// validationMessage returns the text after the validation prefix, e.g.
// "topic is required".
func validationMessage(err error) string {
	msg := err.Error()
	prefix := domain.ErrValidation.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return strings.TrimSpace(msg[i+len(prefix):])
	}
	return ""
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "oneof":
		return "invalid value"
	case "url":
		return "invalid URL"
	case "gte", "lte":
		return "out of range"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the error response for err. fallback replaces the
// generic message when err carries nothing safe to show.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := MapErrorToStatusCode(err)
	msg := GetSafeErrorMessage(err)
	if msg == genericErrorMessage && fallback != "" {
		msg = fallback
	}

	opts := []shared.ResponseOption{shared.WithHint(domain.Hint(err))}
	if status == http.StatusUnauthorized || status == http.StatusPaymentRequired {
		opts = append(opts, shared.WithElevatedLogLevel())
	}
	shared.RespondWithErrorAndLog(w, r, status, msg, err, opts...)
}

// HandleValidationError writes a 400 response for a request that failed
// struct validation.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
}
