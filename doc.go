// Package ptx (proxy telemetry extensions) is the request/response
// observability and correlation substrate of an HTTP proxy data plane.
//
// # Overview
//
// The ptx package provides the pieces a proxy wires into its hot path:
//   - Metered body streams that report total bytes and an outcome
//     classification exactly once per stream, no matter how the stream ends
//     ([MeteredBody], [BodyMeter])
//   - An X-Request-ID policy engine deciding generation, preservation and
//     propagation of correlation identifiers across hops ([RequestIDManager])
//   - A per-request span lifecycle holder owning the SERVER and CLIENT
//     tracing spans ([SpanState])
//   - Config-driven tracer provider and propagator construction
//
// # Quick Start
//
// Initialize from config and wire the pieces into the request path:
//
//	cfg, err := ptx.LoadConfig("ptx.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	tp, err := ptx.NewTracerProvider(ctx, cfg)
//	if err != nil && !errors.Is(err, ptx.ErrDisabled) {
//	    log.Fatal(err)
//	}
//	defer tp.Shutdown(ctx)
//
//	manager := ptx.NewRequestIDManager(cfg.RequestID,
//	    ptx.WithTracingEnabled(cfg.Traces.IsEnabled()),
//	)
//	meter := cfg.BodyMeter(classify)
//
// Instrument an upstream response body:
//
//	resp.Body = meter.Wrap(ptx.BodyResponse, resp.Body, func(bytes uint64, flags ptx.ResponseFlags) {
//	    accessLog.Record(bytes, flags)
//	})
//
// The callback fires exactly once: on natural end of stream, on a terminal
// read error, or when the body is closed before being fully consumed.
//
// # Request-Id Policy
//
// [RequestIDManager.ApplyPolicy] mutates the outbound request header per the
// configured policy and returns the authoritative [RequestID] for the
// request. A propagated id travels on the wire to the next hop; an internal
// id is used only for in-process correlation. Malformed incoming values are
// treated as absent and never fail the request.
//
// # Span Lifecycle
//
// [SpanState] holds the optional SERVER and CLIENT spans of one request
// behind independent locks, so server-side and client-side bookkeeping never
// contend. [SpanState.End] ends whichever spans are populated and clears the
// slots, making repeated End calls safe.
//
// # Middleware
//
// The ptx/http sub-package wires the above into net/http middleware and an
// upstream RoundTripper. See that package for details.
package ptx
