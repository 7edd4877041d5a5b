package http

import (
	"net/http"

	"github.com/arloliu/ptx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// tracerName identifies spans produced by this package.
const tracerName = "github.com/arloliu/ptx/http"

// AccessLogFunc builds the completion callback for one exchange. The
// returned callback receives the total bytes written and the outcome
// classification, exactly once per exchange.
type AccessLogFunc func(r *http.Request) ptx.CompletionFunc

// Option configures the middleware and transport of this package.
type Option func(*config)

type config struct {
	tracerProvider trace.TracerProvider
	propagator     propagation.TextMapPropagator
	logger         *zap.Logger
	namer          ptx.SpanNamer
	classify       ptx.FlagClassifier
	meter          ptx.BodyMeter
	accessLog      AccessLogFunc
	upstream       AccessLogFunc
	cluster        string
	tracing        bool
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:  zap.NewNop(),
		namer:   ptx.DefaultNamer{},
		tracing: true,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.meter == nil {
		cfg.meter = ptx.NewBodyMeter(cfg.classify)
	}

	return cfg
}

// tracer returns the tracer to create spans with, or nil when tracing is
// switched off. Falls back to the global provider when none was injected.
func (c *config) tracer() trace.Tracer {
	if !c.tracing {
		return nil
	}
	tp := c.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	return tp.Tracer(tracerName)
}

// textMapPropagator falls back to the global propagator when none was injected.
func (c *config) textMapPropagator() propagation.TextMapPropagator {
	if c.propagator != nil {
		return c.propagator
	}

	return otel.GetTextMapPropagator()
}

// WithTracerProvider sets the TracerProvider used for SERVER and CLIENT
// spans. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		c.tracerProvider = tp
	}
}

// WithPropagator sets the propagator used to extract the remote parent on
// ingress and inject context on egress. Defaults to the global propagator.
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(c *config) {
		c.propagator = p
	}
}

// WithLogger sets the logger. Defaults to a nop logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSpanNamer sets the span namer. Defaults to [ptx.DefaultNamer].
func WithSpanNamer(namer ptx.SpanNamer) Option {
	return func(c *config) {
		if namer != nil {
			c.namer = namer
		}
	}
}

// WithClassifier sets the flag classifier applied to terminal stream errors.
// Without one, every outcome reports the default classification.
func WithClassifier(classify ptx.FlagClassifier) Option {
	return func(c *config) {
		c.classify = classify
	}
}

// WithBodyMeter sets the meter used to instrument upstream response bodies.
// Pass [ptx.NopBodyMeter] to disable byte accounting with zero overhead.
// Defaults to the counting meter built from the configured classifier.
func WithBodyMeter(meter ptx.BodyMeter) Option {
	return func(c *config) {
		c.meter = meter
	}
}

// WithAccessLog enables access-log completion reporting on the inbound side.
func WithAccessLog(fn AccessLogFunc) Option {
	return func(c *config) {
		c.accessLog = fn
	}
}

// WithUpstreamCompletion enables byte accounting on upstream response
// bodies, reporting through the returned completion callback.
func WithUpstreamCompletion(fn AccessLogFunc) Option {
	return func(c *config) {
		c.upstream = fn
	}
}

// WithUpstreamCluster tags CLIENT spans with the upstream cluster name.
func WithUpstreamCluster(name string) Option {
	return func(c *config) {
		c.cluster = name
	}
}

// WithTracing toggles span creation. Off, the middleware and transport only
// handle correlation ids and byte accounting.
func WithTracing(enabled bool) Option {
	return func(c *config) {
		c.tracing = enabled
	}
}
