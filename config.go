package ptx

import (
	"slices"
	"strings"
	"time"
)

// Config configures the ptx observability substrate.
// Environment variable names follow the OTel specification where one exists:
// https://opentelemetry.io/docs/specs/otel/configuration/sdk-environment-variables/
type Config struct {
	// Enabled controls whether the substrate is active at all. When false,
	// NewTracerProvider returns ErrDisabled and BodyMeter returns the
	// passthrough meter.
	Enabled *bool `yaml:"enabled" default:"false" env:"PTX_ENABLED"`

	// ServiceName identifies the proxy in exported telemetry.
	// Maps to OTEL_SERVICE_NAME.
	ServiceName string `yaml:"serviceName" env:"OTEL_SERVICE_NAME" validate:"required_if=Enabled true"`

	// Version is the service version (e.g., git commit or semantic version).
	Version string `yaml:"version" env:"OTEL_SERVICE_VERSION"`

	// Environment is the deployment environment (e.g., production, development).
	Environment string `yaml:"environment" env:"OTEL_DEPLOYMENT_ENVIRONMENT" default:"development"`

	// ResourceAttributes contains additional resource attributes as key=value pairs.
	// Maps to OTEL_RESOURCE_ATTRIBUTES.
	ResourceAttributes map[string]string `yaml:"resourceAttributes,omitempty" env:"OTEL_RESOURCE_ATTRIBUTES"`

	// RequestID configures the request-correlation identifier policy.
	RequestID *RequestIDConfig `yaml:"requestId,omitempty"`

	// AccessLog configures access-log completion reporting.
	AccessLog *AccessLogConfig `yaml:"accessLog,omitempty"`

	// Metrics configures body byte accounting.
	Metrics *MetricsConfig `yaml:"metrics,omitempty"`

	// Traces configures the tracing subsystem.
	Traces *TracesConfig `yaml:"traces,omitempty"`

	// OTLP contains shared OTLP exporter settings.
	OTLP *OTLPConfig `yaml:"otlp,omitempty"`

	// Propagation configures context propagation (W3C TraceContext, Baggage).
	// Maps to OTEL_PROPAGATORS.
	Propagation *PropConfig `yaml:"propagation,omitempty"`
}

// IsEnabled returns true if the substrate is enabled.
// Defaults to false if nil.
func (c *Config) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// BodyMeter returns the counting body meter when the config calls for byte
// accounting (metrics or access log enabled), and the zero-overhead
// passthrough otherwise. Selection happens here, once, rather than per poll.
func (c *Config) BodyMeter(classify FlagClassifier) BodyMeter {
	if c.IsEnabled() && (c.Metrics.IsEnabled() || c.AccessLog.IsEnabled()) {
		return NewBodyMeter(classify)
	}

	return NopBodyMeter()
}

// RequestIDConfig configures the request-id policy engine.
type RequestIDConfig struct {
	// Generate controls whether the proxy generates a fresh id for requests
	// that should carry one.
	Generate *bool `yaml:"generate" default:"true" env:"PTX_REQUEST_ID_GENERATE"`

	// PreserveExternal keeps an id supplied by the caller instead of
	// replacing it.
	PreserveExternal *bool `yaml:"preserveExternal" default:"true" env:"PTX_REQUEST_ID_PRESERVE_EXTERNAL"`

	// AlwaysSetInResponse stamps the id onto every response leaving the
	// proxy, overwriting whatever the upstream set.
	AlwaysSetInResponse *bool `yaml:"alwaysSetInResponse" default:"false" env:"PTX_REQUEST_ID_ALWAYS_SET_IN_RESPONSE"`

	// Header overrides the correlation header name.
	// Defaults to the canonical X-Request-ID.
	Header string `yaml:"header,omitempty" env:"PTX_REQUEST_ID_HEADER"`
}

// IsGenerate returns true if fresh id generation is enabled.
// Defaults to true if nil.
func (c *RequestIDConfig) IsGenerate() bool {
	return c == nil || c.Generate == nil || *c.Generate
}

// IsPreserveExternal returns true if caller-supplied ids are preserved.
// Defaults to true if nil.
func (c *RequestIDConfig) IsPreserveExternal() bool {
	return c == nil || c.PreserveExternal == nil || *c.PreserveExternal
}

// IsAlwaysSetInResponse returns true if responses always carry the id.
// Defaults to false if nil.
func (c *RequestIDConfig) IsAlwaysSetInResponse() bool {
	return c != nil && c.AlwaysSetInResponse != nil && *c.AlwaysSetInResponse
}

// HeaderName returns the configured correlation header, falling back to the
// canonical name.
func (c *RequestIDConfig) HeaderName() string {
	if c == nil || c.Header == "" {
		return HeaderXRequestID
	}

	return c.Header
}

// AccessLogConfig configures access-log completion reporting.
type AccessLogConfig struct {
	// Enabled controls whether completed exchanges are reported to the
	// access-log collaborator. Defaults to false (opt-in).
	Enabled *bool `yaml:"enabled" default:"false" env:"PTX_ACCESS_LOG_ENABLED"`
}

// IsEnabled returns true if access-log reporting is enabled.
func (c *AccessLogConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// MetricsConfig configures body byte accounting.
type MetricsConfig struct {
	// Enabled controls whether body streams are metered.
	// Defaults to false (opt-in).
	Enabled *bool `yaml:"enabled" default:"false" env:"PTX_METRICS_ENABLED"`
}

// IsEnabled returns true if body metering is enabled.
func (c *MetricsConfig) IsEnabled() bool {
	return c != nil && c.Enabled != nil && *c.Enabled
}

// TracesConfig configures the tracing subsystem.
type TracesConfig struct {
	// Enabled controls whether tracing is active. Defaults to true if parent is enabled.
	Enabled *bool `yaml:"enabled" default:"true"`

	// Exporter determines the trace exporter type.
	// Maps to OTEL_TRACES_EXPORTER.
	// Options: "otlp", "console", "stdout", "none".
	Exporter string `yaml:"exporter" env:"OTEL_TRACES_EXPORTER" default:"otlp" validate:"oneof=otlp console stdout none"`

	// Endpoint overrides OTLP.Endpoint for traces.
	// Maps to OTEL_EXPORTER_OTLP_TRACES_ENDPOINT.
	Endpoint string `yaml:"endpoint,omitempty" env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"`

	// Sampling configures the trace sampling strategy.
	Sampling *SamplingConfig `yaml:"sampling,omitempty"`
}

// IsEnabled returns true if tracing is enabled.
func (c *TracesConfig) IsEnabled() bool {
	return c == nil || c.Enabled == nil || *c.Enabled
}

// OTLPConfig contains shared OTLP exporter settings.
type OTLPConfig struct {
	// Endpoint is the OTLP collector endpoint.
	// Maps to OTEL_EXPORTER_OTLP_ENDPOINT.
	//
	// Format depends on protocol:
	//   - gRPC: "host:port" (e.g., "localhost:4317"). Do NOT include scheme.
	//   - HTTP: Full URL with scheme (e.g., "http://localhost:4318/v1/traces").
	Endpoint string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" default:"localhost:4317"`

	// Insecure disables TLS for the OTLP connection.
	// Maps to OTEL_EXPORTER_OTLP_INSECURE.
	Insecure *bool `yaml:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE" default:"true"`

	// Headers adds custom headers to OTLP requests.
	// Avoid logging this value, as it may contain sensitive credentials.
	Headers map[string]string `yaml:"headers,omitempty" env:"OTEL_EXPORTER_OTLP_HEADERS"`

	// Protocol determines the OTLP transport protocol.
	// Maps to OTEL_EXPORTER_OTLP_PROTOCOL.
	// Options: "grpc", "http/protobuf", "http".
	Protocol string `yaml:"protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL" default:"grpc" validate:"oneof=grpc http/protobuf http"`

	// Timeout is the timeout for exporter operations.
	// Maps to OTEL_EXPORTER_OTLP_TIMEOUT.
	Timeout time.Duration `yaml:"timeout" env:"OTEL_EXPORTER_OTLP_TIMEOUT" default:"10s" validate:"gte=0"`

	// Compression sets the compression algorithm for OTLP.
	// Options: "gzip", "none".
	Compression string `yaml:"compression,omitempty" env:"OTEL_EXPORTER_OTLP_COMPRESSION" validate:"omitempty,oneof=gzip none"`
}

// IsInsecure returns true if insecure connection is enabled.
func (c *OTLPConfig) IsInsecure() bool {
	return c == nil || c.Insecure == nil || *c.Insecure
}

// SamplingConfig configures the trace sampling strategy.
// Maps to OTEL_TRACES_SAMPLER and OTEL_TRACES_SAMPLER_ARG.
type SamplingConfig struct {
	// Sampler determines which sampler to use.
	// Maps to OTEL_TRACES_SAMPLER.
	// Options: "always_on", "always_off", "traceidratio",
	// "parentbased_always_on", "parentbased_always_off", "parentbased_traceidratio".
	Sampler string `yaml:"sampler" env:"OTEL_TRACES_SAMPLER" default:"parentbased_always_on" validate:"oneof=always_on always_off traceidratio parentbased_always_on parentbased_always_off parentbased_traceidratio"`

	// SamplerArg is the sampling probability for ratio-based samplers,
	// 0.0 to 1.0. Maps to OTEL_TRACES_SAMPLER_ARG.
	SamplerArg float64 `yaml:"samplerArg" env:"OTEL_TRACES_SAMPLER_ARG" default:"1.0" validate:"gte=0,lte=1"`
}

// PropConfig configures context propagation.
// Maps to OTEL_PROPAGATORS.
type PropConfig struct {
	// Propagators specifies which propagators to use.
	// Maps to OTEL_PROPAGATORS (comma-separated list).
	// Known values: "tracecontext", "baggage", "none".
	// Defaults to "tracecontext,baggage" (W3C standards).
	Propagators string `yaml:"propagators" env:"OTEL_PROPAGATORS" default:"tracecontext,baggage"`
}

// HasTraceContext returns true if the tracecontext propagator is enabled.
func (c *PropConfig) HasTraceContext() bool {
	if c == nil || c.Propagators == "" {
		return true // default includes tracecontext
	}

	return containsPropagator(c.Propagators, "tracecontext")
}

// HasBaggage returns true if the baggage propagator is enabled.
func (c *PropConfig) HasBaggage() bool {
	if c == nil || c.Propagators == "" {
		return true // default includes baggage
	}

	return containsPropagator(c.Propagators, "baggage")
}

// GetSamplingConfig returns the effective sampling config.
func (c *Config) GetSamplingConfig() *SamplingConfig {
	if c == nil || c.Traces == nil {
		return nil
	}

	return c.Traces.Sampling
}

// GetTracesExporter returns the effective traces exporter type.
func (c *Config) GetTracesExporter() string {
	if c == nil || c.Traces == nil || c.Traces.Exporter == "" {
		return "otlp"
	}

	return c.Traces.Exporter
}

// GetOTLPConfig returns the OTLP config, never nil.
func (c *Config) GetOTLPConfig() *OTLPConfig {
	if c == nil || c.OTLP == nil {
		return &OTLPConfig{}
	}

	return c.OTLP
}

// containsPropagator checks if a propagator is in the comma-separated list.
func containsPropagator(propagators, name string) bool {
	return slices.Contains(splitPropagators(propagators), name)
}

// splitPropagators splits a comma-separated propagator list.
func splitPropagators(propagators string) []string {
	if propagators == "" {
		return nil
	}

	var result []string
	for p := range strings.SplitSeq(propagators, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}

	return result
}
