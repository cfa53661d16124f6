package libtracker

import (
	"context"
	"fmt"
	"math/rand/v2"
)

type contextKey string

var ContextKeyRequestID = contextKey("request_id")
var ContextKeyTraceID = contextKey("trace_id")
var ContextKeySpanID = contextKey("span_id")

// WithRequestID stores id as the request id of ctx. Workers use it to keep
// the id of the request that queued a job.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, id)
}

// WithNewRequestID stamps a fresh request id into ctx, for CLI commands and
// worker goroutines that did not start from an HTTP request.
func WithNewRequestID(ctx context.Context) context.Context {
	return WithRequestID(ctx, fmt.Sprintf("bg-%016x", rand.Uint64()))
}

// RequestID returns the request id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeyRequestID).(string)
	return id
}
