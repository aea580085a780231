package payment

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerProcessor shields the saga from a flapping gateway: once the
// breaker opens, charges fail fast with gobreaker.ErrOpenState and the
// queue's redelivery acts as the retry backoff.
type BreakerProcessor struct {
	inner Processor
	cb    *gobreaker.CircuitBreaker[*ChargeResult]
}

// WithBreaker wraps a Processor in a circuit breaker.
func WithBreaker(inner Processor) *BreakerProcessor {
	cb := gobreaker.NewCircuitBreaker[*ChargeResult](gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	return &BreakerProcessor{inner: inner, cb: cb}
}

func (b *BreakerProcessor) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	return b.cb.Execute(func() (*ChargeResult, error) {
		return b.inner.Charge(ctx, req)
	})
}
