package ai

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"resumeforensics/internal/config"
	"resumeforensics/internal/errors"
	"resumeforensics/internal/testutil"
	"resumeforensics/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper functions to create pointers for test values
func timePtr(d time.Duration) *time.Duration { return &d }
func intPtr(i int) *int                      { return &i }
func float32Ptr(f float32) *float32          { return &f }
func boolPtr(b bool) *bool                   { return &b }

var testLogger = errors.NewLogger(slog.LevelDebug)

// stubProvider counts calls and returns fixed results.
type stubProvider struct {
	analyzeCalls int
	result       *types.AnalysisResult
	err          error
}

func (s *stubProvider) AnalyzeResume(context.Context, types.AnalyzeInput) (*types.AnalysisResult, *TokenUsage, error) {
	s.analyzeCalls++
	return s.result, &TokenUsage{TotalTokens: 10}, s.err
}

func (s *stubProvider) GeneratePrepDeck(context.Context, types.PrepDeckInput) ([]types.InterviewQuestion, *TokenUsage, error) {
	return make([]types.InterviewQuestion, 15), nil, s.err
}

func (s *stubProvider) Chat(context.Context, types.ChatInput) (types.ChatOutput, *TokenUsage, error) {
	return types.ChatOutput{Reply: "noted"}, nil, s.err
}

func (s *stubProvider) GetModelInfo(context.Context) *ModelInfo {
	return &ModelInfo{Name: "stub", Available: true}
}

func (s *stubProvider) Close() error { return nil }

func createTestConfigWithOverrides() *config.Config {
	return &config.Config{
		AI: config.AIConfig{
			Provider:         "gemini",
			Model:            "global-model",
			Timeout:          60 * time.Second,
			APIKey:           "global-api-key",
			MaxRetries:       5,
			Temperature:      0.9,
			UseSystemPrompts: true,

			Analyze: config.OperationAIConfig{
				Model:       "analyze-specific-model",
				Timeout:     timePtr(90 * time.Second),
				Temperature: float32Ptr(0.3),
				MaxRetries:  intPtr(0),
			},
			PrepDeck: config.OperationAIConfig{
				Model:      "prepdeck-specific-model",
				MaxRetries: intPtr(1),
			},
		},
	}
}

func TestOperationSpecificConfigDerivation(t *testing.T) {
	cfg := createTestConfigWithOverrides()

	analyze := cfg.GetAnalyzeConfig()
	assert.Equal(t, "analyze-specific-model", analyze.Model)
	assert.Equal(t, 90*time.Second, *analyze.Timeout)
	assert.Equal(t, float32(0.3), *analyze.Temperature)
	assert.Equal(t, 0, *analyze.MaxRetries)
	assert.Equal(t, "global-api-key", analyze.APIKey)

	prepDeck := cfg.GetPrepDeckConfig()
	assert.Equal(t, "prepdeck-specific-model", prepDeck.Model)
	assert.Equal(t, 1, *prepDeck.MaxRetries)
	assert.Equal(t, 60*time.Second, *prepDeck.Timeout)

	chat := cfg.GetChatConfig()
	assert.Equal(t, "global-model", chat.Model)
	assert.Equal(t, 5, *chat.MaxRetries)
	assert.True(t, *chat.UseSystemPrompts)

	services, err := NewServices(cfg, testLogger)
	require.NoError(t, err)
	assert.Len(t, services.CircuitBreakerStats(), 3)
}

func TestNewService_UnsupportedProvider(t *testing.T) {
	cfg := testOperationConfig(0)
	cfg.Provider = "openai"
	_, err := NewService(cfg, config.OperationAnalyze, testLogger)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))
}

func TestCircuitBreakerIntegrationWithServices(t *testing.T) {
	testOpConfig := testOperationConfig(1)
	testOpConfig.CircuitBreaker = config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          45 * time.Second,
		MinRequests:      2,
		FailureThreshold: 0.8,
	}

	service, err := NewService(testOpConfig, "test-op", testLogger)
	require.NoError(t, err)

	geminiProvider, ok := service.Provider.(*GeminiProvider)
	require.True(t, ok, "provider should be *GeminiProvider")

	stats := geminiProvider.GetCircuitBreakerStats()
	aiOps, ok := stats["ai_operations"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "AI-test-op", aiOps["name"])

	modelOps, ok := stats["model_operations"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "AI-Model-test-op", modelOps["name"])
	assert.Equal(t, true, stats["overall_healthy"])
}

func TestServiceAnalyze_UnsupportedFormatNeverCallsProvider(t *testing.T) {
	stub := &stubProvider{result: testutil.AnalysisResult()}
	svc := NewServiceWithProvider(stub, testOperationConfig(0), config.OperationAnalyze, testLogger)

	var phases []string
	_, err := svc.Analyze(context.Background(), types.AnalyzeInput{
		Document:  []byte{0x89, 'P', 'N', 'G'},
		MediaType: "image/png",
		Industry:  types.IndustryTech,
		Region:    types.RegionUS,
	}, func(p string) { phases = append(phases, p) })

	require.Error(t, err)
	assert.Equal(t, errors.MessageUnsupportedFormat, errors.UserMessage(err))
	assert.Equal(t, 0, stub.analyzeCalls)
	assert.Empty(t, phases)
}

func TestServiceAnalyze(t *testing.T) {
	stub := &stubProvider{result: testutil.AnalysisResult()}
	svc := NewServiceWithProvider(stub, testOperationConfig(0), config.OperationAnalyze, testLogger)

	var phases []string
	result, err := svc.Analyze(context.Background(), types.AnalyzeInput{
		Document:  []byte("plain resume"),
		MediaType: "text/plain; charset=utf-8",
		Industry:  types.IndustryAudit,
		Region:    types.RegionIndia,
	}, func(p string) { phases = append(phases, p) })

	require.NoError(t, err)
	assert.Equal(t, testutil.CandidateName, result.ExtractedData.Name)
	assert.Equal(t, []string{PhaseInitializing}, phases)
	assert.Equal(t, 1, stub.analyzeCalls)
}

func TestServiceAnalyze_ProviderFailure(t *testing.T) {
	stub := &stubProvider{err: errors.NewAIError(errors.ErrCodeAIServiceFailed, "boom", nil)}
	svc := NewServiceWithProvider(stub, testOperationConfig(0), config.OperationAnalyze, testLogger)

	result, err := svc.Analyze(context.Background(), types.AnalyzeInput{
		Document:  []byte("x"),
		MediaType: "application/pdf",
	}, nil)
	assert.Nil(t, result)
	assert.Equal(t, errors.MessageAnalysisFailed, errors.UserMessage(err))
}

func TestServicePrepDeckAndChat(t *testing.T) {
	stub := &stubProvider{}
	svc := NewServiceWithProvider(stub, testOperationConfig(0), config.OperationPrepDeck, testLogger)

	questions, err := svc.PrepDeck(context.Background(), types.PrepDeckInput{Industry: types.IndustryConsulting})
	require.NoError(t, err)
	assert.Len(t, questions, 15)

	reply, err := svc.Chat(context.Background(), types.ChatInput{Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "noted", reply)
}
