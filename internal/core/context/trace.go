package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext identifies the unit of work a log line or audit entry belongs to.
type TraceContext struct {
	TraceID   string
	RequestID string
}

type traceKey struct{}

func WithTrace(ctx context.Context, t *TraceContext) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

func GetTrace(ctx context.Context) *TraceContext {
	t, _ := ctx.Value(traceKey{}).(*TraceContext)
	return t
}

// NewTraceContext mints fresh ids for work that has no inbound request,
// such as one worker tick.
func NewTraceContext() *TraceContext {
	return &TraceContext{TraceID: uuid.NewString(), RequestID: uuid.NewString()}
}
