package api_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/literacy-poster/internal/api"
	"github.com/phrazzld/literacy-poster/internal/domain"
	"github.com/phrazzld/literacy-poster/internal/generation"
	"github.com/phrazzld/literacy-poster/internal/prompt"
	"github.com/phrazzld/literacy-poster/internal/service"
	"github.com/phrazzld/literacy-poster/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"auth", domain.HTTPError(domain.KindAuth, 401, "Invalid API key"), http.StatusUnauthorized},
		{"payment", domain.HTTPError(domain.KindPayment, 402, "no credit"), http.StatusPaymentRequired},
		{"timeout", domain.NewError(domain.KindTimeout, "slow"), http.StatusGatewayTimeout},
		{"network", domain.NewError(domain.KindNetwork, "dial tcp"), http.StatusBadGateway},
		{"api", domain.NewError(domain.KindAPI, "HTTP 500"), http.StatusBadGateway},
		{"parse", domain.NewError(domain.KindParse, "bad json"), http.StatusBadGateway},
		{"task failed", domain.NewError(domain.KindTaskFailed, "quota exceeded"), http.StatusBadGateway},
		{"cancelled", domain.NewError(domain.KindCancelled, "stopped"), http.StatusConflict},
		{"unknown provider", fmt.Errorf("%w: foo", generation.ErrUnknownProvider), http.StatusBadRequest},
		{"invalid config", fmt.Errorf("%w: foo", generation.ErrInvalidConfig), http.StatusBadRequest},
		{"not configured", generation.ErrNotConfigured, http.StatusConflict},
		{"validation", service.ErrTopicRequired, http.StatusBadRequest},
		{"template", fmt.Errorf("%w: missing {{topic}}", prompt.ErrInvalidTemplate), http.StatusBadRequest},
		{"task not found", store.ErrTaskNotFound, http.StatusNotFound},
		{"history not found", store.ErrHistoryEntryNotFound, http.StatusNotFound},
		{"wrapped vendor", service.NewPosterServiceError("build_prompt", "failed", domain.NewError(domain.KindAuth, "bad key")), http.StatusUnauthorized},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
		{"context", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, api.MapErrorToStatusCode(tt.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, "An unexpected error occurred"},
		{"vendor message kept", domain.NewError(domain.KindTaskFailed, "quota exceeded"), "quota exceeded"},
		{"vendor secret redacted", domain.NewError(domain.KindAuth, "bad header Bearer abcdefghijklmnop"), "bad header Bearer [REDACTED_KEY]"},
		{"task not found", store.ErrTaskNotFound, "Task not found"},
		{"history not found", store.ErrHistoryEntryNotFound, "History entry not found"},
		{"not configured", generation.ErrNotConfigured, "no provider configured"},
		{"validation detail", service.ErrTopicRequired, "topic is required"},
		{"internal hidden", errors.New("pq: relation kv_entries does not exist"), "An unexpected error occurred"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, api.GetSafeErrorMessage(tt.err))
		})
	}
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	type body struct {
		Topic string `validate:"required"`
		Count int    `validate:"lte=5"`
	}
	v := validator.New()

	assert.Equal(t, "Invalid Topic: required field", api.SanitizeValidationError(v.Struct(body{Count: 1})))
	assert.Equal(t, "Invalid Count: out of range", api.SanitizeValidationError(v.Struct(body{Topic: "x", Count: 9})))
	assert.Equal(t, "Validation error", api.SanitizeValidationError(errors.New("other")))
}
