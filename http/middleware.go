package http

import (
	"net/http"

	"github.com/arloliu/ptx"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Middleware returns middleware instrumenting the inbound side of the proxy.
//
// Per request it: applies the request-id policy (mutating the correlation
// header on the request that continues down the chain), starts a SERVER span
// with the remote parent extracted from the incoming headers, stores the
// resulting [ptx.RequestID] and [ptx.SpanState] in the context, stamps the
// response header when the policy demands it, counts response bytes, and
// ends the span state on teardown.
//
// The access-log completion fires exactly once per exchange, with the
// default classification when the exchange is abandoned (handler panic,
// client disconnect before the response finished).
func Middleware(manager *ptx.RequestIDManager, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts)
	tracer := cfg.tracer()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			incoming := manager.FromRequest(r)
			reqID := manager.ApplyPolicy(r, cfg.accessLog != nil, incoming)

			ctx := r.Context()

			var state *ptx.SpanState
			if tracer != nil {
				ctx = cfg.textMapPropagator().Extract(ctx, propagation.HeaderCarrier(r.Header))

				var span trace.Span
				ctx, span = tracer.Start(ctx,
					cfg.namer.Name(ptx.NameHTTP(r.Method, r.URL.Path)),
					trace.WithSpanKind(trace.SpanKindServer),
					trace.WithAttributes(ptx.RequestAttributes(r)...),
				)
				state = ptx.NewSpanState(span)
			} else {
				state = ptx.NewSpanState(nil)
			}
			defer state.End()

			ctx = ContextWithSpanState(ctx, state)
			if reqID != nil {
				ctx = ContextWithRequestID(ctx, reqID)
			}
			r = r.WithContext(ctx)

			// Stamp before the handler commits the header.
			manager.ApplyToResponse(w.Header(), reqID)

			if cfg.accessLog == nil && tracer == nil {
				next.ServeHTTP(w, r)
				return
			}

			var onComplete ptx.CompletionFunc
			if cfg.accessLog != nil {
				onComplete = cfg.accessLog(r)
			}
			cw := newCountingWriter(w, ptx.BodyResponse, cfg.classify, onComplete)
			defer cw.finish()

			next.ServeHTTP(cw, r)

			state.WithServer(func(span trace.Span) {
				span.SetAttributes(ptx.ResponseAttributes(cw.Status(), cw.Bytes())...)
			})
		})
	}
}
