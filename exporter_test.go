package ptx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeExporterType(t *testing.T) {
	assert.Equal(t, "otlp", normalizeExporterType(""))
	assert.Equal(t, "otlp", normalizeExporterType("  OTLP  "))
	assert.Equal(t, "console", normalizeExporterType("stdout"))
	assert.Equal(t, "console", normalizeExporterType("console"))
	assert.Equal(t, "nop", normalizeExporterType("noop"))
	assert.Equal(t, "none", normalizeExporterType("none"))
}

func TestNormalizeDuration(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, normalizeDuration(500))
	assert.Equal(t, 2*time.Second, normalizeDuration(2*time.Second))
	assert.Equal(t, time.Duration(0), normalizeDuration(0))
}

func TestSplitEndpointURL(t *testing.T) {
	host, path := splitEndpointURL("https://collector.example.com:4318/v1/traces")
	assert.Equal(t, "collector.example.com:4318", host)
	assert.Equal(t, "/v1/traces", path)

	host, path = splitEndpointURL("http://collector:4318")
	assert.Equal(t, "collector:4318", host)
	assert.Equal(t, "", path)

	// Bare host:port has no scheme and is passed through unchanged.
	host, path = splitEndpointURL("collector:4318")
	assert.Equal(t, "", host)
	assert.Equal(t, "", path)

	host, path = splitEndpointURL("")
	assert.Equal(t, "", host)
	assert.Equal(t, "", path)
}

func TestResolveTraceExporterParams(t *testing.T) {
	// Nil config resolves to OTLP over gRPC defaults.
	params := resolveTraceExporterParams(nil)
	assert.Equal(t, "otlp", params.Type)
	assert.Equal(t, "grpc", params.Protocol)
	assert.Equal(t, "localhost:4317", params.Endpoint)
	assert.True(t, params.Insecure)

	cfg := &Config{
		OTLP: &OTLPConfig{
			Endpoint:    "collector:4317",
			Protocol:    "http/protobuf",
			Timeout:     5 * time.Second,
			Compression: "gzip",
			Headers:     map[string]string{"x-auth": "token"},
			Insecure:    boolPtr(false),
		},
		Traces: &TracesConfig{
			Exporter: "otlp",
			Endpoint: "traces-collector:4318",
		},
	}

	params = resolveTraceExporterParams(cfg)
	assert.Equal(t, "otlp", params.Type)
	assert.Equal(t, "http/protobuf", params.Protocol)
	// Traces-level endpoint wins over the shared OTLP endpoint.
	assert.Equal(t, "traces-collector:4318", params.Endpoint)
	assert.Equal(t, 5*time.Second, params.Timeout)
	assert.Equal(t, "gzip", params.Compression)
	assert.Equal(t, map[string]string{"x-auth": "token"}, params.Headers)
	assert.False(t, params.Insecure)
}

func TestBuildTraceExporter_LocalTypes(t *testing.T) {
	consoleCfg := &Config{Traces: &TracesConfig{Exporter: "console"}}
	exp, err := buildTraceExporter(context.Background(), consoleCfg)
	require.NoError(t, err)
	require.NotNil(t, exp)
	assert.NoError(t, exp.Shutdown(context.Background()))

	noneCfg := &Config{Traces: &TracesConfig{Exporter: "none"}}
	exp, err = buildTraceExporter(context.Background(), noneCfg)
	require.NoError(t, err)
	assert.IsType(t, nopSpanExporter{}, exp)
	assert.NoError(t, exp.ExportSpans(context.Background(), nil))
	assert.NoError(t, exp.Shutdown(context.Background()))
}
