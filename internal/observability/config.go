package observability

import (
	"net/http"

	"resumeforensics/internal/config"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// GetObservabilityConfig derives the manager settings from the application config.
func GetObservabilityConfig(cfg *config.Config, version string) ObservabilityConfig {
	if cfg == nil {
		return ObservabilityConfig{
			ServiceName:    "resumeforensics",
			ServiceVersion: version,
			Enabled:        true,
			Tracing:        true,
			ConsoleOutput:  true,
			PrettyPrint:    true,
			SampleRate:     1.0,
		}
	}

	obs := cfg.Observability
	serviceVersion := obs.ServiceVersion
	if serviceVersion == "" {
		serviceVersion = version
	}
	sampleRate := obs.SampleRate
	if obs.Tracing.SampleRate > 0 {
		sampleRate = obs.Tracing.SampleRate
	}

	return ObservabilityConfig{
		ServiceName:    obs.ServiceName,
		ServiceVersion: serviceVersion,
		Enabled:        obs.Enabled,
		Tracing:        obs.Tracing.Enabled,
		ConsoleOutput:  obs.ConsoleOutput,
		PrettyPrint:    obs.Console.PrettyPrint,
		SampleRate:     sampleRate,
		Prometheus: PrometheusConfig{
			Enabled:  obs.Prometheus.Enabled && obs.Metrics.Enabled,
			Endpoint: obs.Prometheus.Endpoint,
			Port:     obs.Prometheus.Port,
		},
	}
}

// ObservabilityMiddleware counts API requests by route pattern and tags the
// request span with the user the session belongs to.
func ObservabilityMiddleware(om *ObservabilityManager) func(next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
	return func(next func(http.ResponseWriter, *http.Request)) func(http.ResponseWriter, *http.Request) {
		return func(w http.ResponseWriter, r *http.Request) {
			if om == nil || !om.config.Enabled {
				next(w, r)
				return
			}

			route := r.Pattern
			if route == "" {
				route = r.URL.Path
			}
			span := oteltrace.SpanFromContext(r.Context())
			span.SetAttributes(attribute.String("http.route", route))
			if r.Header.Get("X-User-Email") != "" {
				span.SetAttributes(attribute.Bool("resumeforensics.user_selected", true))
			}

			if counter := om.GetMetrics().HTTPRequests; counter != nil {
				counter.Add(r.Context(), 1, metric.WithAttributes(
					attribute.String("method", r.Method),
					attribute.String("route", route),
				))
			}
			next(w, r)
		}
	}
}
