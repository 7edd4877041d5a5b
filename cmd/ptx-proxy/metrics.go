package main

import (
	"net/http"

	"github.com/arloliu/ptx"
	ptxhttp "github.com/arloliu/ptx/http"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// proxyMetrics is the external collaborator consuming body completion
// callbacks: it turns (bytes, flags) pairs into Prometheus series.
type proxyMetrics struct {
	responseBytes *prometheus.HistogramVec
	upstreamBytes *prometheus.HistogramVec
	bodyErrors    *prometheus.CounterVec
}

func newProxyMetrics(reg prometheus.Registerer) *proxyMetrics {
	m := &proxyMetrics{
		responseBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "proxy_response_body_bytes",
			Help:    "Response body bytes sent to clients per exchange.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		}, []string{"method"}),
		upstreamBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "proxy_upstream_body_bytes",
			Help:    "Response body bytes received from the upstream per exchange.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 10),
		}, []string{"method"}),
		bodyErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "proxy_body_stream_errors_total",
			Help: "Body streams that completed with a non-default classification.",
		}, []string{"direction"}),
	}
	reg.MustRegister(m.responseBytes, m.upstreamBytes, m.bodyErrors)

	return m
}

// accessLog returns the inbound completion factory: one callback per
// exchange, logging the final byte count and recording it.
func (m *proxyMetrics) accessLog(logger *zap.Logger) ptxhttp.AccessLogFunc {
	return func(r *http.Request) ptx.CompletionFunc {
		method := r.Method
		path := r.URL.Path

		return func(bytes uint64, flags ptx.ResponseFlags) {
			m.responseBytes.WithLabelValues(method).Observe(float64(bytes))
			if flags != ptx.FlagsNone {
				m.bodyErrors.WithLabelValues("downstream").Inc()
			}
			logger.Info("access",
				zap.String("method", method),
				zap.String("path", path),
				zap.Uint64("bytes", bytes),
				zap.Uint64("flags", uint64(flags)),
			)
		}
	}
}

// upstreamCompletion returns the upstream-side completion factory.
func (m *proxyMetrics) upstreamCompletion() ptxhttp.AccessLogFunc {
	return func(r *http.Request) ptx.CompletionFunc {
		method := r.Method

		return func(bytes uint64, flags ptx.ResponseFlags) {
			m.upstreamBytes.WithLabelValues(method).Observe(float64(bytes))
			if flags != ptx.FlagsNone {
				m.bodyErrors.WithLabelValues("upstream").Inc()
			}
		}
	}
}
