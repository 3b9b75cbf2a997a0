package shared_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/literacy-poster/internal/api/shared"
	"github.com/phrazzld/literacy-poster/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestWithLogger(t *testing.T) (*http.Request, *logger.Capture) {
	t.Helper()
	capture, log := logger.NewCapture()
	ctx := logger.WithLogger(context.Background(), log)
	ctx = shared.WithTraceID(ctx, "trace-1")
	return httptest.NewRequest(http.MethodGet, "/api/tasks", nil).WithContext(ctx), capture
}

func TestRespondWithJSON(t *testing.T) {
	t.Parallel()
	r, _ := requestWithLogger(t)
	rec := httptest.NewRecorder()

	shared.RespondWithJSON(rec, r, http.StatusCreated, map[string]int{"n": 1})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"n":1}`, rec.Body.String())
}

func TestRespondWithErrorAndLog(t *testing.T) {
	t.Parallel()
	r, capture := requestWithLogger(t)
	rec := httptest.NewRecorder()

	shared.RespondWithErrorAndLog(rec, r, http.StatusBadGateway, "upstream failed",
		errors.New("Authorization: Bearer abcdefghijklmnop"),
		shared.WithHint("retry later"))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body shared.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "upstream failed", body.Error)
	assert.Equal(t, "retry later", body.Hint)
	assert.Equal(t, "trace-1", body.TraceID)

	assert.True(t, capture.HasMessage(slog.LevelError, "API error response"))
	assert.NotContains(t, capture.String(), "abcdefghijklmnop")
}

func TestRespondWithErrorAndLogLevels(t *testing.T) {
	t.Parallel()

	r, capture := requestWithLogger(t)
	shared.RespondWithErrorAndLog(httptest.NewRecorder(), r, http.StatusNotFound, "missing", nil)
	assert.True(t, capture.HasMessage(slog.LevelDebug, "API error response"))

	r, capture = requestWithLogger(t)
	shared.RespondWithErrorAndLog(httptest.NewRecorder(), r, http.StatusUnauthorized, "bad key", nil, shared.WithElevatedLogLevel())
	assert.True(t, capture.HasMessage(slog.LevelWarn, "API error response"))
}

func TestWithTraceIDRejectsOversizedIDs(t *testing.T) {
	t.Parallel()

	long := make([]byte, 100)
	for i := range long {
		long[i] = 'a'
	}
	ctx := shared.WithTraceID(context.Background(), string(long))
	assert.NotEqual(t, string(long), shared.GetTraceID(ctx))
	assert.Len(t, shared.GetTraceID(ctx), 36)

	assert.Empty(t, shared.GetTraceID(context.Background()))
}
