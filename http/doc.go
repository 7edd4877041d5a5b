// Package http wires the ptx correlation substrate into net/http.
//
// # Middleware
//
// [Middleware] instruments the inbound side of the proxy: it applies the
// request-id policy, starts the SERVER span (with remote parent extracted
// from the incoming headers), stores the [ptx.RequestID] and [ptx.SpanState]
// in the request context, counts response bytes, stamps the response header
// per policy, and ends the span state when the exchange tears down.
//
//	mw := ptxhttp.Middleware(manager,
//	    ptxhttp.WithTracerProvider(tp),
//	    ptxhttp.WithAccessLog(accessLog),
//	)
//	handler = mw(handler)
//
// The access-log callback fires exactly once per exchange with the total
// bytes written and an outcome classification, even when the handler panics
// or the client disconnects mid-stream.
//
// # Transport
//
// [NewTransport] instruments the upstream side: it slots a CLIENT span into
// the request's [ptx.SpanState], injects propagation headers, and meters the
// upstream response body so byte totals survive streaming and abandonment.
//
//	proxy := &httputil.ReverseProxy{
//	    Rewrite:   rewrite,
//	    Transport: ptxhttp.NewTransport(nil, ptxhttp.WithUpstreamCompletion(record)),
//	}
//
// Providers fall back to the OTel globals when not set explicitly, matching
// the rest of the module.
package http
