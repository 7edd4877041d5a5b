package ptx

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys for proxy-specific span attributes not covered by the OTel
// semantic conventions.
const (
	AttrUpstreamClusterName = attribute.Key("upstream.cluster.name")
	AttrUpstreamAddress     = attribute.Key("upstream.address")
)

// Sentinels reported when a request carries no usable user agent.
const (
	userAgentUnknown = "unknown"
	userAgentInvalid = "invalid-user-agent"
)

// RequestAttributes builds the span attributes describing an HTTP request:
// method, full URL, path, protocol name/version and user agent, plus query
// and scheme when the URL carries them.
func RequestAttributes(req *http.Request) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(req.Method),
		semconv.URLFull(req.URL.String()),
		semconv.URLPath(req.URL.Path),
		semconv.NetworkProtocolName("http"),
		semconv.NetworkProtocolVersion(protocolVersion(req.Proto)),
		semconv.UserAgentOriginal(userAgent(req)),
	}

	if q := req.URL.RawQuery; q != "" {
		attrs = append(attrs, semconv.URLQuery(q))
	}
	if s := req.URL.Scheme; s != "" {
		attrs = append(attrs, semconv.URLScheme(s))
	}

	return attrs
}

// SetRequestAttributes applies [RequestAttributes] to span.
func SetRequestAttributes(span trace.Span, req *http.Request) {
	span.SetAttributes(RequestAttributes(req)...)
}

// ResponseAttributes builds the span attributes describing the response side
// of the exchange.
func ResponseAttributes(statusCode int, bodyBytes uint64) []attribute.KeyValue {
	return []attribute.KeyValue{
		semconv.HTTPResponseStatusCode(statusCode),
		attribute.Int64("http.response.body.size", int64(bodyBytes)), //nolint:gosec // sizes fit in int64
	}
}

// protocolVersion extracts "1.1" from "HTTP/1.1" and the like.
func protocolVersion(proto string) string {
	if _, ver, ok := strings.Cut(proto, "/"); ok && ver != "" {
		return ver
	}

	return "unknown"
}

func userAgent(req *http.Request) string {
	ua := req.UserAgent()
	switch {
	case ua == "":
		return userAgentUnknown
	case !utf8.ValidString(ua):
		return userAgentInvalid
	default:
		return ua
	}
}
