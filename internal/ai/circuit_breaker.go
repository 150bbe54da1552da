package ai

import (
	stderrors "errors"
	"fmt"

	"resumeforensics/internal/config"
	"resumeforensics/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// breaker guards one kind of model call. A nil breaker runs calls directly.
type breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// tripPolicy opens the breaker once minRequests calls were seen in the
// interval and at least failureRatio of them failed.
type tripPolicy struct {
	minRequests  uint32
	failureRatio float64
}

func (p tripPolicy) ready(counts gobreaker.Counts) bool {
	if counts.Requests == 0 || counts.Requests < p.minRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= p.failureRatio
}

func newBreaker[T any](name string, cfg config.CircuitBreakerConfig, policy tripPolicy, logger *errors.Logger) *breaker[T] {
	if !cfg.Enabled {
		return nil
	}
	return &breaker[T]{cb: gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: policy.ready,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info("Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})}
}

// newGenerateBreaker uses the operation's configured trip policy.
func newGenerateBreaker(operationType string, cfg *config.OperationAIConfig, logger *errors.Logger) *breaker[*genai.GenerateContentResponse] {
	return newBreaker[*genai.GenerateContentResponse](fmt.Sprintf("AI-%s", operationType), cfg.CircuitBreaker,
		tripPolicy{minRequests: cfg.CircuitBreaker.MinRequests, failureRatio: cfg.CircuitBreaker.FailureThreshold}, logger)
}

// newModelBreaker guards model metadata lookups, which only feed health
// reporting and so trip later than generation.
func newModelBreaker(operationType string, cfg *config.OperationAIConfig, logger *errors.Logger) *breaker[*genai.Model] {
	return newBreaker[*genai.Model](fmt.Sprintf("AI-Model-%s", operationType), cfg.CircuitBreaker,
		tripPolicy{minRequests: 5, failureRatio: 0.8}, logger)
}

func (b *breaker[T]) run(fn func() (T, error)) (T, error) {
	if b == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

func (b *breaker[T]) stats() map[string]any {
	if b == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    b.cb.Name(),
		"state":   b.cb.State().String(),
		"counts":  b.cb.Counts(),
		"enabled": true,
	}
}

// healthy reports a closed breaker; a disabled one is always healthy.
func (b *breaker[T]) healthy() bool {
	return b == nil || b.cb.State() == gobreaker.StateClosed
}

// isCircuitOpenError reports whether the breaker rejected the call without running it.
func isCircuitOpenError(err error) bool {
	return stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests)
}
