// Package context carries request-scoped metadata (trace ids and the acting
// operator) from the HTTP edge down to audit rows and log lines.
package context

import (
	"context"
)

// Trace correlates one inbound request across logs, audit entries and
// outbox events.
type Trace struct {
	TraceID   string
	RequestID string
}

type traceKey struct{}

// WithTrace stores t in ctx.
func WithTrace(ctx context.Context, t Trace) context.Context {
	return context.WithValue(ctx, traceKey{}, t)
}

// GetTrace returns the trace stored in ctx, if any.
func GetTrace(ctx context.Context) (Trace, bool) {
	t, ok := ctx.Value(traceKey{}).(Trace)
	return t, ok
}

// GetRequestID returns the request id, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	t, _ := GetTrace(ctx)
	return t.RequestID
}
