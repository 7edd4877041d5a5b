package http

import (
	"context"

	"github.com/arloliu/ptx"
)

type contextKey int

const (
	requestIDKey contextKey = iota
	spanStateKey
)

// ContextWithRequestID stores the request's correlation id in ctx.
func ContextWithRequestID(ctx context.Context, id *ptx.RequestID) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the correlation id stored by the middleware,
// or nil if the request carries none.
func RequestIDFromContext(ctx context.Context) *ptx.RequestID {
	id, _ := ctx.Value(requestIDKey).(*ptx.RequestID)
	return id
}

// ContextWithSpanState stores the request's span holder in ctx.
func ContextWithSpanState(ctx context.Context, state *ptx.SpanState) context.Context {
	return context.WithValue(ctx, spanStateKey, state)
}

// SpanStateFromContext returns the span holder stored by the middleware, or
// nil if the request is not traced.
func SpanStateFromContext(ctx context.Context) *ptx.SpanState {
	state, _ := ctx.Value(spanStateKey).(*ptx.SpanState)
	return state
}
