package http

import (
	"net/http"

	"github.com/arloliu/ptx"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// NewTransport wraps an http.RoundTripper for the upstream side of the
// proxy. Per request it slots a CLIENT span into the request's
// [ptx.SpanState], injects propagation headers, and meters the upstream
// response body when an upstream completion callback is configured.
//
// The CLIENT span is created only when the request context carries a
// SpanState (placed there by [Middleware]); the holder owns the span's
// lifetime and ends it at request teardown. Byte accounting and header
// injection work with or without one.
//
// If base is nil, http.DefaultTransport is used.
func NewTransport(base http.RoundTripper, opts ...Option) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	cfg := newConfig(opts)

	return &transport{
		base:   base,
		cfg:    cfg,
		tracer: cfg.tracer(),
	}
}

type transport struct {
	base   http.RoundTripper
	cfg    *config
	tracer trace.Tracer
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	state := SpanStateFromContext(ctx)

	// RoundTrippers must not mutate the caller's request.
	req = req.Clone(ctx)

	if t.tracer != nil && state != nil {
		var span trace.Span
		ctx, span = t.tracer.Start(ctx,
			t.cfg.namer.Name(ptx.NameHTTP(req.Method, req.URL.Path)),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(ptx.RequestAttributes(req)...),
		)
		if t.cfg.cluster != "" {
			span.SetAttributes(
				ptx.AttrUpstreamClusterName.String(t.cfg.cluster),
				ptx.AttrUpstreamAddress.String(req.URL.Host),
			)
		}
		state.SetClient(span)
		req = req.WithContext(ctx)
	}

	t.cfg.textMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		state.WithClient(func(span trace.Span) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		})

		return nil, err
	}

	state.WithClient(func(span trace.Span) {
		span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))
	})

	if t.cfg.upstream != nil {
		resp.Body = t.cfg.meter.Wrap(ptx.BodyResponse, resp.Body, t.cfg.upstream(req))
	}

	return resp, nil
}
