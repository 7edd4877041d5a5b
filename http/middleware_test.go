package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/arloliu/ptx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

var hexID32 = regexp.MustCompile(`^[0-9a-f]{32}$`)

func newTestProvider(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	return tp, exporter
}

func spanAttr(t *testing.T, span tracetest.SpanStub, key attribute.Key) attribute.Value {
	t.Helper()
	for _, kv := range span.Attributes {
		if kv.Key == key {
			return kv.Value
		}
	}
	t.Fatalf("attribute %q not found on span %q", key, span.Name)

	return attribute.Value{}
}

func TestMiddleware_ServerSpanAndAccessLog(t *testing.T) {
	tp, exporter := newTestProvider(t)
	manager := ptx.NewRequestIDManager(nil)
	done := &completionRecord{}

	var seenID string
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = r.Header.Get(ptx.HeaderXRequestID)
		require.NotNil(t, SpanStateFromContext(r.Context()))
		require.NotNil(t, RequestIDFromContext(r.Context()))
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("hello world"))
	})

	mw := Middleware(manager,
		WithTracerProvider(tp),
		WithPropagator(propagation.TraceContext{}),
		WithAccessLog(func(*http.Request) ptx.CompletionFunc { return done.fn() }),
	)

	rec := httptest.NewRecorder()
	mw(handler).ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

	// A fresh propagated id was stamped onto the continuing request.
	assert.Regexp(t, hexID32, seenID)

	assert.Equal(t, 1, done.calls)
	assert.Equal(t, uint64(11), done.bytes)
	assert.Equal(t, ptx.FlagsNone, done.flags)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /test", spans[0].Name)
	assert.Equal(t, trace.SpanKindServer, spans[0].SpanKind)
	assert.Equal(t, int64(http.StatusAccepted), spanAttr(t, spans[0], "http.response.status_code").AsInt64())
	assert.Equal(t, int64(11), spanAttr(t, spans[0], "http.response.body.size").AsInt64())
	assert.Equal(t, "GET", spanAttr(t, spans[0], "http.request.method").AsString())
}

func TestMiddleware_RemoteParentExtracted(t *testing.T) {
	tp, exporter := newTestProvider(t)
	manager := ptx.NewRequestIDManager(nil)

	// Upstream hop's context, injected into the incoming request headers.
	parentCtx, parent := tp.Tracer("test").Start(context.Background(), "caller")
	req := httptest.NewRequest("GET", "/test", nil)
	propagation.TraceContext{}.Inject(parentCtx, propagation.HeaderCarrier(req.Header))
	parent.End()

	mw := Middleware(manager, WithTracerProvider(tp), WithPropagator(propagation.TraceContext{}))
	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(httptest.NewRecorder(), req)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	server := spans[1]
	assert.Equal(t, "GET /test", server.Name)
	assert.Equal(t, parent.SpanContext().TraceID(), server.SpanContext.TraceID())
	assert.Equal(t, parent.SpanContext().SpanID(), server.Parent.SpanID())
}

func TestMiddleware_PanicStillCompletesOnce(t *testing.T) {
	tp, exporter := newTestProvider(t)
	manager := ptx.NewRequestIDManager(nil)
	done := &completionRecord{}

	mw := Middleware(manager,
		WithTracerProvider(tp),
		WithAccessLog(func(*http.Request) ptx.CompletionFunc { return done.fn() }),
	)
	handler := mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("handler blew up")
	}))

	assert.Panics(t, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/boom", nil))
	})

	// The guard reported the abandoned exchange with the default outcome,
	// and the span was still ended.
	assert.Equal(t, 1, done.calls)
	assert.Equal(t, uint64(0), done.bytes)
	assert.Equal(t, ptx.FlagsNone, done.flags)
	assert.Len(t, exporter.GetSpans(), 1)
}

func TestMiddleware_TracingDisabled(t *testing.T) {
	tp, exporter := newTestProvider(t)
	manager := ptx.NewRequestIDManager(nil)
	done := &completionRecord{}

	mw := Middleware(manager,
		WithTracerProvider(tp),
		WithTracing(false),
		WithAccessLog(func(*http.Request) ptx.CompletionFunc { return done.fn() }),
	)

	var stateInHandler *ptx.SpanState
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stateInHandler = SpanStateFromContext(r.Context())
		_, _ = w.Write([]byte("ok"))
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/test", nil))

	// Correlation and byte accounting still run; spans do not.
	assert.NotNil(t, stateInHandler)
	assert.Equal(t, 1, done.calls)
	assert.Equal(t, uint64(2), done.bytes)
	assert.Empty(t, exporter.GetSpans())
}

func TestMiddleware_PlainPathSkipsWrapping(t *testing.T) {
	manager := ptx.NewRequestIDManager(nil)
	mw := Middleware(manager, WithTracing(false))

	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Without tracing or access logging the writer passes through
		// unwrapped.
		_, wrapped := w.(*countingWriter)
		assert.False(t, wrapped)
		_, _ = w.Write([]byte("ok"))
	})).ServeHTTP(rec, httptest.NewRequest("GET", "/test", nil))

	assert.Equal(t, "ok", rec.Body.String())
}

func TestMiddleware_ResponseHeaderStamping(t *testing.T) {
	manager := ptx.NewRequestIDManager(&ptx.RequestIDConfig{
		AlwaysSetInResponse: func(b bool) *bool { return &b }(true),
	})
	mw := Middleware(manager, WithTracing(false))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(ptx.HeaderXRequestID, "123e4567-e89b-12d3-a456-426614174000")

	rec := httptest.NewRecorder()
	mw(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, req)

	assert.Equal(t, "123e4567-e89b-12d3-a456-426614174000", rec.Header().Get(ptx.HeaderXRequestID))
}

func TestMiddleware_MalformedIncomingID(t *testing.T) {
	manager := ptx.NewRequestIDManager(nil)
	mw := Middleware(manager, WithTracing(false))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set(ptx.HeaderXRequestID, "not-a-uuid")

	var seenID string
	mw(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seenID = r.Header.Get(ptx.HeaderXRequestID)
	})).ServeHTTP(httptest.NewRecorder(), req)

	// Malformed counts as absent: a fresh id replaces it.
	assert.Regexp(t, hexID32, seenID)
}
