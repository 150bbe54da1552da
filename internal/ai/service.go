package ai

import (
	"context"
	"fmt"

	"resumeforensics/internal/config"
	"resumeforensics/internal/encoder"
	"resumeforensics/internal/errors"
	"resumeforensics/internal/observability"
	"resumeforensics/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

// PhaseInitializing is reported once before the analysis request goes out.
const PhaseInitializing = "Initializing Forensic Audit Engine..."

// Service handles AI operations for one configured operation
type Service struct {
	Provider  AIProvider // Exported for access from server package
	config    *config.OperationAIConfig
	operation string
	obs       *observability.ObservabilityManager
	logger    *errors.Logger
}

// NewService creates a new AI service instance with configuration for a specific operation
func NewService(cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) (*Service, error) {
	var provider AIProvider
	var err error

	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"operation_type", operationType,
		"model", cfg.Model,
		"temperature", *cfg.Temperature,
		"timeout", *cfg.Timeout,
		"max_retries", *cfg.MaxRetries,
		"use_system_prompts", *cfg.UseSystemPrompts)

	switch cfg.Provider {
	case "gemini":
		provider, err = NewGeminiProvider(cfg, operationType, logger)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	if err != nil {
		if _, ok := errors.AsAppError(err); ok {
			return nil, err
		}
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
			"Failed to create AI provider", err)
	}

	return NewServiceWithProvider(provider, cfg, operationType, logger), nil
}

// NewServiceWithProvider wraps an already constructed provider.
func NewServiceWithProvider(provider AIProvider, cfg *config.OperationAIConfig, operationType string, logger *errors.Logger) *Service {
	return &Service{
		Provider:  provider,
		config:    cfg,
		operation: operationType,
		logger:    logger,
	}
}

// WithObservability records AI metrics and spans through om.
func (s *Service) WithObservability(om *observability.ObservabilityManager) *Service {
	s.obs = om
	return s
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	return s.Provider.GetModelInfo(ctx)
}

// track runs fn under the AI operation metrics when observability is wired.
func (s *Service) track(ctx context.Context, operation string, fn func(context.Context) (*TokenUsage, error)) error {
	if s.obs == nil {
		_, err := fn(ctx)
		return err
	}
	return s.obs.GetMetrics().TrackAIOperationWithTokens(ctx, operation, func(ctx context.Context) *observability.AIOperationResult {
		usage, err := fn(ctx)
		return &observability.AIOperationResult{
			Error:      err,
			TokenUsage: (*observability.TokenUsage)(usage),
		}
	}, s.obs)
}

// Analyze obtains one AnalysisResult for the document. onPhase, when set, receives
// cosmetic progress text and has no bearing on the request itself.
// Unsupported media types are rejected before the provider is invoked.
func (s *Service) Analyze(ctx context.Context, input types.AnalyzeInput, onPhase func(string)) (*types.AnalysisResult, error) {
	if err := encoder.CheckMediaType(input.MediaType); err != nil {
		return nil, err
	}
	if onPhase != nil {
		onPhase(PhaseInitializing)
	}

	var result *types.AnalysisResult
	err := s.track(ctx, "analyze", func(ctx context.Context) (*TokenUsage, error) {
		out, usage, err := s.Provider.AnalyzeResume(ctx, input)
		result = out
		return usage, err
	})
	if err != nil {
		s.recordBusiness(ctx, observability.EventResumeAnalyzed, false, attribute.String("industry", string(input.Industry)))
		return nil, err
	}

	s.recordBusiness(ctx, observability.EventResumeAnalyzed, true,
		attribute.String("industry", string(input.Industry)),
		attribute.String("region", string(input.Region)),
		attribute.String("verdict", string(result.Verdict.Status)))
	return result, nil
}

// PrepDeck generates the full interview prep deck.
func (s *Service) PrepDeck(ctx context.Context, input types.PrepDeckInput) ([]types.InterviewQuestion, error) {
	var questions []types.InterviewQuestion
	err := s.track(ctx, "prep_deck", func(ctx context.Context) (*TokenUsage, error) {
		out, usage, err := s.Provider.GeneratePrepDeck(ctx, input)
		questions = out
		return usage, err
	})
	s.recordBusiness(ctx, observability.EventPrepDeckGenerated, err == nil)
	if err != nil {
		return nil, err
	}
	return questions, nil
}

// Chat answers one assistant message.
func (s *Service) Chat(ctx context.Context, input types.ChatInput) (string, error) {
	var reply string
	err := s.track(ctx, "chat", func(ctx context.Context) (*TokenUsage, error) {
		out, usage, err := s.Provider.Chat(ctx, input)
		reply = out.Reply
		return usage, err
	})
	if err != nil {
		return "", err
	}
	return reply, nil
}

func (s *Service) recordBusiness(ctx context.Context, metricType string, success bool, attrs ...attribute.KeyValue) {
	if s.obs == nil {
		return
	}
	s.obs.GetMetrics().RecordBusinessMetric(ctx, metricType, success, s.obs, attrs...)
}

// Services bundles one Service per configured operation.
type Services struct {
	Analyze  *Service
	PrepDeck *Service
	Chat     *Service
}

// NewServices builds a Service for every operation from the application config.
func NewServices(cfg *config.Config, logger *errors.Logger) (*Services, error) {
	analyzeCfg := cfg.GetAnalyzeConfig()
	analyze, err := NewService(&analyzeCfg, config.OperationAnalyze, logger)
	if err != nil {
		return nil, err
	}
	prepDeckCfg := cfg.GetPrepDeckConfig()
	prepDeck, err := NewService(&prepDeckCfg, config.OperationPrepDeck, logger)
	if err != nil {
		return nil, err
	}
	chatCfg := cfg.GetChatConfig()
	chat, err := NewService(&chatCfg, config.OperationChat, logger)
	if err != nil {
		return nil, err
	}
	return &Services{Analyze: analyze, PrepDeck: prepDeck, Chat: chat}, nil
}

// WithObservability wires om into every service.
func (s *Services) WithObservability(om *observability.ObservabilityManager) *Services {
	if om == nil {
		return s
	}
	s.Analyze.WithObservability(om)
	s.PrepDeck.WithObservability(om)
	s.Chat.WithObservability(om)
	return s
}

// ModelInfo reports model availability for each operation.
func (s *Services) ModelInfo(ctx context.Context) map[string]*ModelInfo {
	return map[string]*ModelInfo{
		config.OperationAnalyze:  s.Analyze.GetModelInfo(ctx),
		config.OperationPrepDeck: s.PrepDeck.GetModelInfo(ctx),
		config.OperationChat:     s.Chat.GetModelInfo(ctx),
	}
}

// CircuitBreakerStats reports breaker state for providers that expose it.
func (s *Services) CircuitBreakerStats() map[string]any {
	stats := make(map[string]any)
	for name, svc := range map[string]*Service{
		config.OperationAnalyze:  s.Analyze,
		config.OperationPrepDeck: s.PrepDeck,
		config.OperationChat:     s.Chat,
	} {
		if p, ok := svc.Provider.(interface{ GetCircuitBreakerStats() map[string]any }); ok {
			stats[name] = p.GetCircuitBreakerStats()
		} else {
			stats[name] = map[string]any{"enabled": false}
		}
	}
	return stats
}
