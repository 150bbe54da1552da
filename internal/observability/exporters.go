package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"resumeforensics/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/trace"
)

// PrometheusConfig controls the scrape endpoint.
type PrometheusConfig struct {
	Enabled  bool
	Endpoint string
	Port     string
}

// spanExporter picks stdout for local runs, OTLP when configured, and
// otherwise a discarding exporter so spans still reach the HTTP middleware.
func (om *ObservabilityManager) spanExporter() (trace.SpanExporter, error) {
	switch {
	case om.config.ConsoleOutput:
		var opts []stdouttrace.Option
		if om.config.PrettyPrint {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		return stdouttrace.New(opts...)
	case om.otlp().Enabled:
		otlp := om.otlp()
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(otlp.Endpoint)}
		if otlp.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if len(otlp.Headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(otlp.Headers))
		}
		return otlptracehttp.New(context.Background(), opts...)
	default:
		return discardSpans{}, nil
	}
}

// metricReaders returns every configured reader; a manual reader keeps the
// provider usable when none is.
func (om *ObservabilityManager) metricReaders() ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader
	interval := om.collectionInterval()

	if om.config.ConsoleOutput {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create console metric exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	}

	if otlp := om.otlp(); otlp.Enabled {
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(otlp.Endpoint)}
		if otlp.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		if len(otlp.Headers) > 0 {
			opts = append(opts, otlpmetrichttp.WithHeaders(otlp.Headers))
		}
		exporter, err := otlpmetrichttp.New(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
		}
		readers = append(readers, sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval)))
	}

	if om.config.Prometheus.Enabled {
		reader, err := om.servePrometheus(om.config.Prometheus)
		if err != nil {
			return nil, err
		}
		readers = append(readers, reader)
	}

	if len(readers) == 0 {
		readers = append(readers, sdkmetric.NewManualReader())
	}
	return readers, nil
}

// servePrometheus registers an exporter on a private registry and serves it
// on its own port until Shutdown.
func (om *ObservabilityManager) servePrometheus(cfg PrometheusConfig) (sdkmetric.Reader, error) {
	if cfg.Port == "" {
		return nil, fmt.Errorf("prometheus port is required")
	}
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(endpoint, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Prometheus server stopped", "port", cfg.Port, "error", err)
		}
	}()
	om.shutdownFuncs = append(om.shutdownFuncs, server.Shutdown)

	return exporter, nil
}

func (om *ObservabilityManager) otlp() config.OTLPConfig {
	if om.fullConfig == nil {
		return config.OTLPConfig{}
	}
	return om.fullConfig.Observability.OTLP
}

func (om *ObservabilityManager) collectionInterval() time.Duration {
	if om.fullConfig != nil && om.fullConfig.Observability.Metrics.CollectionInterval > 0 {
		return om.fullConfig.Observability.Metrics.CollectionInterval
	}
	return 15 * time.Second
}

type discardSpans struct{}

func (discardSpans) ExportSpans(context.Context, []trace.ReadOnlySpan) error { return nil }
func (discardSpans) Shutdown(context.Context) error                          { return nil }
