package session

import (
	"context"
	"fmt"
	"time"

	"resumeforensics/internal/config"
)

// EntitlementGranter authorises one unlock that is not paid for with a credit.
type EntitlementGranter interface {
	Grant(ctx context.Context, onPhase func(string)) error
}

// GranterFunc adapts a function to EntitlementGranter.
type GranterFunc func(ctx context.Context, onPhase func(string)) error

func (f GranterFunc) Grant(ctx context.Context, onPhase func(string)) error {
	return f(ctx, onPhase)
}

// Payment phase labels.
const (
	PhaseSecuringGateway = "Securing Gateway..."
	phaseProcessingFmt   = "Processing %s Secure Payment..."
)

// SimulatedPayment always succeeds after two fixed delays. No money moves.
type SimulatedPayment struct {
	GatewayDelay    time.Duration
	ProcessingDelay time.Duration
	Price           string
}

func NewSimulatedPayment(cfg config.PaymentConfig) *SimulatedPayment {
	price := cfg.Price
	if price == "" {
		price = "$9.99"
	}
	return &SimulatedPayment{
		GatewayDelay:    cfg.GatewayDelay,
		ProcessingDelay: cfg.ProcessingDelay,
		Price:           price,
	}
}

func (p *SimulatedPayment) Grant(ctx context.Context, onPhase func(string)) error {
	report(onPhase, PhaseSecuringGateway)
	if err := sleep(ctx, p.GatewayDelay); err != nil {
		return err
	}
	report(onPhase, fmt.Sprintf(phaseProcessingFmt, p.Price))
	return sleep(ctx, p.ProcessingDelay)
}

func report(onPhase func(string), phase string) {
	if onPhase != nil {
		onPhase(phase)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
