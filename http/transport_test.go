package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/arloliu/ptx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTransport_ClientSpanAndInjection(t *testing.T) {
	tp, exporter := newTestProvider(t)
	done := &completionRecord{}

	var upstreamTraceparent string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upstreamTraceparent = r.Header.Get("traceparent")
		_, _ = w.Write([]byte("upstream!"))
	}))
	defer upstream.Close()

	// The inbound side would normally place the holder in the context.
	srvCtx, server := tp.Tracer("test").Start(context.Background(), "inbound")
	state := ptx.NewSpanState(server)
	ctx := ContextWithSpanState(srvCtx, state)

	rt := NewTransport(nil,
		WithTracerProvider(tp),
		WithPropagator(propagation.TraceContext{}),
		WithUpstreamCluster("backend"),
		WithUpstreamCompletion(func(*http.Request) ptx.CompletionFunc { return done.fn() }),
	)

	req, err := http.NewRequestWithContext(ctx, "GET", upstream.URL+"/api", nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "upstream!", string(body))

	// Reading to EOF completed the upstream body accounting.
	assert.Equal(t, 1, done.calls)
	assert.Equal(t, uint64(9), done.bytes)
	assert.Equal(t, ptx.FlagsNone, done.flags)

	// The propagated context carries the CLIENT span.
	assert.NotEmpty(t, upstreamTraceparent)
	assert.Contains(t, upstreamTraceparent, server.SpanContext().TraceID().String())

	// The original request was not mutated.
	assert.Empty(t, req.Header.Get("traceparent"))

	state.End()

	// End drains the server slot first, then the client slot.
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "inbound", spans[0].Name)
	client := spans[1]
	assert.Equal(t, "GET /api", client.Name)
	assert.Equal(t, trace.SpanKindClient, client.SpanKind)
	assert.Equal(t, server.SpanContext().SpanID(), client.Parent.SpanID())
	assert.Equal(t, "backend", spanAttr(t, client, ptx.AttrUpstreamClusterName).AsString())
	assert.Equal(t, req.URL.Host, spanAttr(t, client, ptx.AttrUpstreamAddress).AsString())
	assert.Equal(t, int64(http.StatusOK), spanAttr(t, client, "http.response.status_code").AsInt64())
}

func TestTransport_NoSpanStateNoClientSpan(t *testing.T) {
	tp, exporter := newTestProvider(t)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstream.Close()

	rt := NewTransport(nil, WithTracerProvider(tp), WithPropagator(propagation.TraceContext{}))

	req, err := http.NewRequest("GET", upstream.URL, nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, exporter.GetSpans())
}

type errRoundTripper struct{ err error }

func (e errRoundTripper) RoundTrip(*http.Request) (*http.Response, error) { return nil, e.err }

func TestTransport_UpstreamErrorRecordedOnClientSpan(t *testing.T) {
	tp, exporter := newTestProvider(t)
	errDial := errors.New("dial tcp: connection refused")

	state := ptx.NewSpanState(nil)
	ctx := ContextWithSpanState(context.Background(), state)

	rt := NewTransport(errRoundTripper{err: errDial}, WithTracerProvider(tp))

	req, err := http.NewRequestWithContext(ctx, "GET", "http://backend.internal/api", nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	assert.ErrorIs(t, err, errDial)

	state.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	client := spans[0]
	assert.Equal(t, codes.Error, client.Status.Code)
	assert.Equal(t, errDial.Error(), client.Status.Description)
	require.NotEmpty(t, client.Events)
	assert.Equal(t, "exception", client.Events[0].Name)
}

func TestTransport_NilBaseUsesDefault(t *testing.T) {
	rt := NewTransport(nil)
	tr, ok := rt.(*transport)
	require.True(t, ok)
	assert.Same(t, http.DefaultTransport, tr.base)
}
