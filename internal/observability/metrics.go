package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Business event names accepted by RecordBusinessMetric.
const (
	EventResumeAnalyzed    = "resume_analyzed"
	EventPrepDeckGenerated = "prep_deck_generated"
	EventReportUnlocked    = "report_unlocked"
	EventCreditSpent       = "credit_spent"
	EventReportExported    = "report_exported"
	EventRateLimitHit      = "rate_limit_hit"
	EventStorageOperation  = "storage_operation"
)

// Metrics holds all custom instruments.
type Metrics struct {
	AIOperationDuration metric.Float64Histogram
	AIOperations        metric.Int64Counter
	AIErrors            metric.Int64Counter
	AITokens            metric.Int64Histogram

	Analyses     metric.Int64Counter
	PrepDecks    metric.Int64Counter
	Unlocks      metric.Int64Counter
	CreditsSpent metric.Int64Counter
	Exports      metric.Int64Counter

	HTTPRequests      metric.Int64Counter
	RateLimitHits     metric.Int64Counter
	StorageOperations metric.Int64Counter
}

// initCustomMetrics creates every instrument on the service meter.
func (om *ObservabilityManager) initCustomMetrics() error {
	meter := om.meterProvider.Meter(om.config.ServiceName)
	m := &Metrics{}
	var err error

	if m.AIOperationDuration, err = meter.Float64Histogram(
		"resumeforensics_ai_operation_duration_seconds",
		metric.WithDescription("Time spent in model calls"),
		metric.WithUnit("s"),
	); err != nil {
		return fmt.Errorf("failed to create AI duration metric: %w", err)
	}

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&m.AIOperations, "resumeforensics_ai_operations_total", "Total number of model calls"},
		{&m.AIErrors, "resumeforensics_ai_errors_total", "Total number of failed model calls"},
		{&m.Analyses, "resumeforensics_analyses_total", "Total number of resume analyses"},
		{&m.PrepDecks, "resumeforensics_prep_decks_total", "Total number of interview prep decks generated"},
		{&m.Unlocks, "resumeforensics_unlocks_total", "Total number of report unlocks"},
		{&m.CreditsSpent, "resumeforensics_credits_spent_total", "Total number of credits spent on unlocks"},
		{&m.Exports, "resumeforensics_exports_total", "Total number of report exports"},
		{&m.HTTPRequests, "resumeforensics_http_requests_total", "Total number of API requests"},
		{&m.RateLimitHits, "resumeforensics_rate_limit_hits_total", "Total number of rate limit hits"},
		{&m.StorageOperations, "resumeforensics_storage_operations_total", "Total number of state loads and saves"},
	}
	for _, c := range counters {
		if *c.target, err = meter.Int64Counter(c.name, metric.WithDescription(c.description)); err != nil {
			return fmt.Errorf("failed to create %s metric: %w", c.name, err)
		}
	}

	if m.AITokens, err = meter.Int64Histogram(
		"resumeforensics_ai_tokens_total",
		metric.WithDescription("Token usage per model call (input, output, total)"),
		metric.WithUnit("tokens"),
	); err != nil {
		return fmt.Errorf("failed to create AI token metric: %w", err)
	}

	om.metrics = m
	return nil
}

// AIOperationResult holds the result of an AI operation including token usage
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperationWithTokens instruments an AI operation with tracing, metrics, and token usage
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult, om *ObservabilityManager) error {
	if m.AIOperationDuration == nil {
		result := fn(ctx)
		if result != nil {
			return result.Error
		}
		return nil
	}

	ctx, span := om.Tracer("resumeforensics.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if m.isAIMetricsEnabled(om) {
		m.recordAIMetrics(ctx, operation, err, duration, result, om, span)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}
	return err
}

func (m *Metrics) isAIMetricsEnabled(om *ObservabilityManager) bool {
	if om == nil || om.fullConfig == nil {
		return true
	}
	return om.fullConfig.Observability.CustomMetrics.AIOperations.Enabled
}

func (m *Metrics) recordAIMetrics(ctx context.Context, operation string, err error, duration float64, result *AIOperationResult, om *ObservabilityManager, span oteltrace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.Bool("success", err == nil),
	}

	if om == nil || om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.AIOperations.TrackDuration {
		m.AIOperationDuration.Record(ctx, duration, metric.WithAttributes(attrs...))
	}
	m.AIOperations.Add(ctx, 1, metric.WithAttributes(attrs...))
	if err != nil {
		m.AIErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	m.recordTokenUsage(ctx, result, attrs, om, span)

	span.SetAttributes(attrs...)
}

func (m *Metrics) recordTokenUsage(ctx context.Context, result *AIOperationResult, attrs []attribute.KeyValue, om *ObservabilityManager, span oteltrace.Span) {
	if result == nil || result.TokenUsage == nil || m.AITokens == nil {
		return
	}
	usage := result.TokenUsage

	if om == nil || om.fullConfig == nil || om.fullConfig.Observability.CustomMetrics.AIOperations.TrackTokenUsage {
		for _, tt := range []struct {
			kind  string
			value int64
		}{
			{"input", usage.InputTokens},
			{"output", usage.OutputTokens},
			{"total", usage.TotalTokens},
		} {
			tokenAttrs := append(append([]attribute.KeyValue{}, attrs...), attribute.String("token_type", tt.kind))
			m.AITokens.Record(ctx, tt.value, metric.WithAttributes(tokenAttrs...))
		}
	}

	span.SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
	)
}

// RecordBusinessMetric records one business event of the given type.
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, om *ObservabilityManager, attributes ...attribute.KeyValue) {
	if om != nil && om.fullConfig != nil {
		custom := om.fullConfig.Observability.CustomMetrics
		switch metricType {
		case EventRateLimitHit:
			if !custom.Infrastructure.TrackRateLimits {
				return
			}
		case EventStorageOperation:
			if !custom.Infrastructure.TrackStorage {
				return
			}
		default:
			if !custom.BusinessMetrics.Enabled {
				return
			}
		}
	}

	attrs := append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)
	if counter := m.counterFor(metricType); counter != nil {
		counter.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (m *Metrics) counterFor(metricType string) metric.Int64Counter {
	switch metricType {
	case EventResumeAnalyzed:
		return m.Analyses
	case EventPrepDeckGenerated:
		return m.PrepDecks
	case EventReportUnlocked:
		return m.Unlocks
	case EventCreditSpent:
		return m.CreditsSpent
	case EventReportExported:
		return m.Exports
	case EventRateLimitHit:
		return m.RateLimitHits
	case EventStorageOperation:
		return m.StorageOperations
	default:
		return nil
	}
}

// RecordEvent is RecordBusinessMetric bound to this manager. It is safe on a nil manager.
func (om *ObservabilityManager) RecordEvent(ctx context.Context, metricType string, success bool, attrs ...attribute.KeyValue) {
	if om == nil {
		return
	}
	om.GetMetrics().RecordBusinessMetric(ctx, metricType, success, om, attrs...)
}
