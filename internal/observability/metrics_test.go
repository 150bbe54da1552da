package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"resumeforensics/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestManager(t *testing.T, full *config.Config) (*ObservabilityManager, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	om := &ObservabilityManager{
		config:        ObservabilityConfig{ServiceName: "resumeforensics-test", Enabled: true},
		fullConfig:    full,
		meterProvider: sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)),
	}
	require.NoError(t, om.initCustomMetrics())
	t.Cleanup(func() { _ = om.meterProvider.Shutdown(context.Background()) })
	return om, reader
}

func counterTotal(t *testing.T, reader *sdkmetric.ManualReader, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if sum, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range sum.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func TestRecordEvent(t *testing.T) {
	om, reader := newTestManager(t, nil)
	ctx := context.Background()

	om.RecordEvent(ctx, EventResumeAnalyzed, true, attribute.String("industry", "Tech / Data"))
	om.RecordEvent(ctx, EventReportUnlocked, true)
	om.RecordEvent(ctx, EventCreditSpent, true)
	om.RecordEvent(ctx, EventCreditSpent, true)
	om.RecordEvent(ctx, "unknown_event", true)

	assert.Equal(t, int64(1), counterTotal(t, reader, "resumeforensics_analyses_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "resumeforensics_unlocks_total"))
	assert.Equal(t, int64(2), counterTotal(t, reader, "resumeforensics_credits_spent_total"))
	assert.Equal(t, int64(0), counterTotal(t, reader, "resumeforensics_exports_total"))
}

func TestRecordEvent_RespectsConfig(t *testing.T) {
	full := &config.Config{}
	full.Observability.CustomMetrics.BusinessMetrics.Enabled = false
	full.Observability.CustomMetrics.Infrastructure.TrackRateLimits = true
	om, reader := newTestManager(t, full)

	om.RecordEvent(context.Background(), EventResumeAnalyzed, true)
	om.RecordEvent(context.Background(), EventRateLimitHit, false)

	assert.Equal(t, int64(0), counterTotal(t, reader, "resumeforensics_analyses_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "resumeforensics_rate_limit_hits_total"))
}

func TestRecordEvent_NilManager(t *testing.T) {
	var om *ObservabilityManager
	assert.NotPanics(t, func() { om.RecordEvent(context.Background(), EventResumeAnalyzed, true) })
}

func TestTrackAIOperationWithTokens(t *testing.T) {
	om, reader := newTestManager(t, nil)
	m := om.GetMetrics()
	boom := errors.New("boom")

	err := m.TrackAIOperationWithTokens(context.Background(), "analyze", func(context.Context) *AIOperationResult {
		return &AIOperationResult{TokenUsage: &TokenUsage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}
	}, om)
	require.NoError(t, err)

	err = m.TrackAIOperationWithTokens(context.Background(), "analyze", func(context.Context) *AIOperationResult {
		return &AIOperationResult{Error: boom}
	}, om)
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, int64(2), counterTotal(t, reader, "resumeforensics_ai_operations_total"))
	assert.Equal(t, int64(1), counterTotal(t, reader, "resumeforensics_ai_errors_total"))
}

func TestTrackAIOperationWithTokens_Uninitialized(t *testing.T) {
	m := &Metrics{}
	boom := errors.New("boom")
	err := m.TrackAIOperationWithTokens(context.Background(), "chat", func(context.Context) *AIOperationResult {
		return &AIOperationResult{Error: boom}
	}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestDisabledManager(t *testing.T) {
	om, err := NewObservabilityManager(ObservabilityConfig{Enabled: false}, nil)
	require.NoError(t, err)

	_, span := om.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	rec := httptest.NewRecorder()
	om.HTTPMiddleware()(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.NoError(t, om.Shutdown(context.Background()))
}

func TestGetObservabilityConfig(t *testing.T) {
	full := &config.Config{}
	full.Observability.Enabled = true
	full.Observability.ServiceName = "resumeforensics"
	full.Observability.SampleRate = 1.0
	full.Observability.Tracing = config.TracingConfig{Enabled: true, SampleRate: 0.25}
	full.Observability.Prometheus = config.PrometheusConfig{Enabled: true, Port: "9090"}

	got := GetObservabilityConfig(full, "1.2.3")
	assert.Equal(t, "1.2.3", got.ServiceVersion)
	assert.Equal(t, 0.25, got.SampleRate)
	assert.True(t, got.Tracing)
	assert.False(t, got.Prometheus.Enabled, "prometheus follows the metrics switch")

	full.Observability.Metrics.Enabled = true
	assert.True(t, GetObservabilityConfig(full, "").Prometheus.Enabled)
}

func TestObservabilityMiddleware_CountsByRoute(t *testing.T) {
	om, reader := newTestManager(t, nil)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/export/{kind}", ObservabilityMiddleware(om)(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	for _, kind := range []string{"pdf", "docx"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/export/"+kind, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}
	assert.Equal(t, int64(2), counterTotal(t, reader, "resumeforensics_http_requests_total"))
}
