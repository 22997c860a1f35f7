package infrastructure

import (
	"context"

	"github.com/google/uuid"
)

// contextKey is a type for context keys.
type contextKey string

// TraceIDContextKey is the key for storing the run trace ID in context.
const TraceIDContextKey contextKey = "trace_id"

// NewRunContext attaches a fresh run ID to the context. Every log record and
// span emitted during the run carries it.
func NewRunContext(ctx context.Context) (context.Context, string) {
	runID := uuid.NewString()
	return context.WithValue(ctx, TraceIDContextKey, runID), runID
}

// GetTraceID extracts the trace ID from the context, or "" if absent.
func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(TraceIDContextKey).(string); ok {
		return id
	}
	return ""
}
