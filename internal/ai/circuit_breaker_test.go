package ai

import (
	"context"
	"net/http"
	"testing"
	"time"

	"resumeforensics/internal/config"
	"resumeforensics/internal/errors"
	"resumeforensics/internal/types"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

func TestTripPolicy(t *testing.T) {
	policy := tripPolicy{minRequests: 3, failureRatio: 0.6}
	for _, tc := range []struct {
		name   string
		counts gobreaker.Counts
		want   bool
	}{
		{"no requests", gobreaker.Counts{}, false},
		{"below minimum", gobreaker.Counts{Requests: 2, TotalFailures: 2}, false},
		{"ratio below threshold", gobreaker.Counts{Requests: 5, TotalFailures: 2}, false},
		{"ratio at threshold", gobreaker.Counts{Requests: 5, TotalFailures: 3}, true},
		{"all failed", gobreaker.Counts{Requests: 3, TotalFailures: 3}, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, policy.ready(tc.counts))
		})
	}
}

func TestBreakersPerOperation(t *testing.T) {
	ops := map[string]config.CircuitBreakerConfig{
		config.OperationAnalyze:  {Enabled: true, MaxRequests: 3, Interval: time.Minute, Timeout: time.Minute, MinRequests: 3, FailureThreshold: 0.6},
		config.OperationPrepDeck: {Enabled: true, MaxRequests: 5, Interval: 30 * time.Second, Timeout: 45 * time.Second, MinRequests: 2, FailureThreshold: 0.7},
		config.OperationChat:     {Enabled: true, MaxRequests: 4, Interval: 90 * time.Second, Timeout: 75 * time.Second, MinRequests: 5, FailureThreshold: 0.5},
	}
	for op, cbCfg := range ops {
		t.Run(op, func(t *testing.T) {
			cfg := &config.OperationAIConfig{Provider: "gemini", Model: "gemini-2.5-flash", CircuitBreaker: cbCfg}
			b := newGenerateBreaker(op, cfg, nil)
			stats := b.stats()
			assert.Equal(t, "AI-"+op, stats["name"])
			assert.Equal(t, "closed", stats["state"])
			assert.Equal(t, true, stats["enabled"])
			assert.True(t, b.healthy())
			assert.Equal(t, "AI-Model-"+op, newModelBreaker(op, cfg, nil).stats()["name"])
		})
	}
}

func TestCircuitBreakerDisabled(t *testing.T) {
	cfg := &config.OperationAIConfig{Provider: "gemini", Model: "test-model"}

	b := newGenerateBreaker("disabled", cfg, nil)
	require.Nil(t, b)
	assert.True(t, b.healthy())
	assert.Equal(t, map[string]any{"enabled": false}, b.stats())

	calls := 0
	_, err := b.run(func() (*genai.GenerateContentResponse, error) {
		calls++
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cfg := testOperationConfig(0)
	cfg.CircuitBreaker = config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          time.Minute,
		MinRequests:      2,
		FailureThreshold: 0.5,
	}
	models := &fakeModels{err: &googleapi.Error{Code: http.StatusInternalServerError}}
	provider := newGeminiProvider(models, cfg, config.OperationChat, nil)

	for range 2 {
		_, _, err := provider.Chat(context.Background(), types.ChatInput{Message: "hi"})
		require.True(t, errors.HasCode(err, errors.ErrCodeAIServiceFailed))
	}
	assert.False(t, provider.generateBreaker.healthy())

	_, _, err := provider.Chat(context.Background(), types.ChatInput{Message: "hi"})
	assert.True(t, errors.HasCode(err, errors.ErrCodeCircuitOpen))
	assert.Equal(t, 2, models.callCount(), "open breaker must not reach the model")

	stats := provider.GetCircuitBreakerStats()
	assert.Equal(t, false, stats["overall_healthy"])
}
