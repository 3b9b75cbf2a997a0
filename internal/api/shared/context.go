package shared

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/literacy-poster/internal/platform/logger"
)

// TraceIDHeader carries the trace id on requests and responses.
const TraceIDHeader = "X-Request-ID"

// maxTraceIDLength bounds client-supplied trace ids.
const maxTraceIDLength = 64

// SetTraceID adds a new trace ID to the context and its logger.
func SetTraceID(ctx context.Context) context.Context {
	return logger.WithRequestID(ctx, uuid.NewString())
}

// WithTraceID uses a client-supplied trace id when it is acceptable and
// generates one otherwise.
func WithTraceID(ctx context.Context, supplied string) context.Context {
	if supplied == "" || len(supplied) > maxTraceIDLength {
		return SetTraceID(ctx)
	}
	return logger.WithRequestID(ctx, supplied)
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	return logger.RequestID(ctx)
}
