package logging

import (
	"context"

	"github.com/google/uuid"
)

const runIDKey = "run_id"

type contextKey string

const runIDContextKey contextKey = runIDKey

// NewRunID returns a fresh identifier for one harness invocation.
func NewRunID() string {
	return uuid.New().String()
}

// ContextWithRunID returns a context carrying runID
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDContextKey, runID)
}

// RunIDFromContext extracts the run id from a context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(runIDContextKey).(string); ok {
		return runID
	}
	return ""
}
