package domain

import (
	"context"
	"time"
)

type contextKey string

const ExecutionContextKey contextKey = "fermata:execution_context"

// ExecutionContext is the metadata visible to a handler through the
// standard context during its run.
type ExecutionContext struct {
	ExecutionID string
	GraphName   string
	StepID      string
	Iteration   int
	StartedAt   time.Time
}

func WithExecutionContext(ctx context.Context, execCtx *ExecutionContext) context.Context {
	return context.WithValue(ctx, ExecutionContextKey, execCtx)
}

func GetExecutionContext(ctx context.Context) (*ExecutionContext, bool) {
	execCtx, ok := ctx.Value(ExecutionContextKey).(*ExecutionContext)
	return execCtx, ok
}
