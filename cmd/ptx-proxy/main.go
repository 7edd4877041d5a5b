// Command ptx-proxy is a minimal reverse proxy demonstrating the ptx
// substrate end to end: request-id policy, server/client spans, metered
// bodies, and a Prometheus collaborator consuming the completion callbacks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arloliu/ptx"
	ptxhttp "github.com/arloliu/ptx/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Classification bits used by this proxy. The ptx core treats these as
// opaque; the taxonomy lives with the collaborator.
const (
	flagUpstreamError ptx.ResponseFlags = 1 << iota
	flagDownstreamGone
	flagTimeout
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to ptx config file (YAML or JSON)")
		listen     = flag.String("listen", ":8080", "Address to listen on")
		upstream   = flag.String("upstream", "", "Upstream base URL to proxy to (required)")
	)
	flag.Parse()

	if *upstream == "" {
		_, _ = fmt.Fprintln(os.Stderr, "Error: -upstream is required")
		flag.Usage()
		os.Exit(1)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(*configPath, *listen, *upstream, logger); err != nil {
		logger.Fatal("proxy exited", zap.Error(err))
	}
}

func run(configPath, listen, upstream string, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	target, err := url.Parse(upstream)
	if err != nil {
		return fmt.Errorf("parse upstream url: %w", err)
	}

	tp, err := ptx.NewTracerProvider(ctx, cfg)
	switch {
	case errors.Is(err, ptx.ErrDisabled):
		logger.Info("tracing disabled")
	case err != nil:
		return fmt.Errorf("init tracer provider: %w", err)
	default:
		defer func() {
			shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
			defer stop()
			_ = tp.Shutdown(shutdownCtx)
		}()
	}
	tracingEnabled := err == nil

	manager := ptx.NewRequestIDManager(cfg.RequestID,
		ptx.WithTracingEnabled(tracingEnabled && cfg.Traces.IsEnabled()),
		ptx.WithRequestIDLogger(logger),
	)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics := newProxyMetrics(registry)

	opts := []ptxhttp.Option{
		ptxhttp.WithLogger(logger),
		ptxhttp.WithClassifier(classify),
		ptxhttp.WithBodyMeter(cfg.BodyMeter(classify)),
		ptxhttp.WithTracing(tracingEnabled),
		ptxhttp.WithUpstreamCluster(target.Host),
		ptxhttp.WithUpstreamCompletion(metrics.upstreamCompletion()),
	}
	if cfg.AccessLog.IsEnabled() {
		opts = append(opts, ptxhttp.WithAccessLog(metrics.accessLog(logger)))
	}

	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		Transport: ptxhttp.NewTransport(nil, opts...),
		ErrorLog:  zap.NewStdLog(logger),
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.Handle("/", ptxhttp.Middleware(manager, opts...)(proxy))

	server := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", listen), zap.String("upstream", target.String()))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
		defer stop()

		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return err
	}
}

func loadConfig(path string) (*ptx.Config, error) {
	if path == "" {
		// Default standalone config: everything on, console exporter.
		return ptx.ParseConfig([]byte(`
enabled: true
serviceName: ptx-proxy
requestId:
  generate: true
  preserveExternal: true
  alwaysSetInResponse: true
accessLog:
  enabled: true
metrics:
  enabled: true
traces:
  enabled: true
  exporter: console
`))
	}

	return ptx.LoadConfig(path)
}

// classify maps stream errors to this proxy's flag taxonomy.
func classify(err error, kind ptx.BodyKind) ptx.ResponseFlags {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return flagTimeout
	case errors.Is(err, context.Canceled), errors.Is(err, net.ErrClosed):
		return flagDownstreamGone
	case kind == ptx.BodyResponse:
		return flagUpstreamError
	default:
		return flagDownstreamGone
	}
}
