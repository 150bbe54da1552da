package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"resumeforensics/internal/config"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// ObservabilityConfig is the subset of settings the manager acts on.
type ObservabilityConfig struct {
	ServiceName    string
	ServiceVersion string
	Enabled        bool
	Tracing        bool
	ConsoleOutput  bool
	PrettyPrint    bool
	SampleRate     float64
	Prometheus     PrometheusConfig
}

// ObservabilityManager owns the tracer and meter providers of the process.
// A manager built with Enabled=false hands out no-op tracers and empty metrics.
type ObservabilityManager struct {
	config         ObservabilityConfig
	fullConfig     *config.Config
	tracerProvider *trace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	metrics        *Metrics
	shutdownFuncs  []func(context.Context) error
}

// NewObservabilityManager wires tracing and metrics for the service.
func NewObservabilityManager(obsConfig ObservabilityConfig, fullConfig *config.Config) (*ObservabilityManager, error) {
	om := &ObservabilityManager{config: obsConfig, fullConfig: fullConfig}
	if !obsConfig.Enabled {
		return om, nil
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(obsConfig.ServiceName),
		semconv.ServiceVersion(obsConfig.ServiceVersion),
		attribute.String("service.instance.id", om.instanceID()),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize resource: %w", err)
	}

	if obsConfig.Tracing {
		exporter, err := om.spanExporter()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
		tp := trace.NewTracerProvider(
			trace.WithBatcher(exporter),
			trace.WithResource(res),
			trace.WithSampler(trace.ParentBased(trace.TraceIDRatioBased(obsConfig.SampleRate))),
		)
		otel.SetTracerProvider(tp)
		otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
		om.tracerProvider = tp
		om.shutdownFuncs = append(om.shutdownFuncs, tp.Shutdown)
	}

	readers, err := om.metricReaders()
	if err != nil {
		_ = om.Shutdown(context.Background())
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	for _, r := range readers {
		opts = append(opts, sdkmetric.WithReader(r))
	}
	om.meterProvider = sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(om.meterProvider)
	om.shutdownFuncs = append(om.shutdownFuncs, om.meterProvider.Shutdown)

	if err := om.initCustomMetrics(); err != nil {
		_ = om.Shutdown(context.Background())
		return nil, err
	}
	return om, nil
}

// GetMetrics returns the instruments, or an empty set when metrics are off.
func (om *ObservabilityManager) GetMetrics() *Metrics {
	if om == nil || om.metrics == nil {
		return &Metrics{}
	}
	return om.metrics
}

// HTTPMiddleware wraps a handler with otelhttp server instrumentation.
func (om *ObservabilityManager) HTTPMiddleware() func(http.Handler) http.Handler {
	if om == nil || !om.config.Enabled {
		return func(h http.Handler) http.Handler { return h }
	}

	opts := []otelhttp.Option{otelhttp.WithMeterProvider(om.meterProvider)}
	if om.tracerProvider != nil {
		opts = append(opts, otelhttp.WithTracerProvider(om.tracerProvider))
	}
	return otelhttp.NewMiddleware(om.config.ServiceName, opts...)
}

func (om *ObservabilityManager) Tracer(name string) oteltrace.Tracer {
	if om == nil || om.tracerProvider == nil {
		return noop.NewTracerProvider().Tracer(name)
	}
	return om.tracerProvider.Tracer(name)
}

// Shutdown flushes exporters and stops the Prometheus listener.
func (om *ObservabilityManager) Shutdown(ctx context.Context) error {
	var errs []error
	for i := len(om.shutdownFuncs) - 1; i >= 0; i-- {
		if err := om.shutdownFuncs[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	om.shutdownFuncs = nil
	return errors.Join(errs...)
}

func (om *ObservabilityManager) instanceID() string {
	if om.fullConfig != nil && om.fullConfig.Observability.ServiceInstance != "" {
		return om.fullConfig.Observability.ServiceInstance
	}
	return "resumeforensics-1"
}
