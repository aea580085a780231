package payment

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"
)

func TestDummyProcessor_AlwaysCompletes(t *testing.T) {
	res, err := DummyProcessor{}.Charge(context.Background(), ChargeRequest{
		OrderID:         "ord-1",
		Amount:          decimal.RequireFromString("31.59"),
		Currency:        "USD",
		PaymentMethodID: "pm-1",
	})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("status = %s, want completed", res.Status)
	}
	if !strings.HasPrefix(res.TransactionID, "DEMO-") {
		t.Fatalf("transaction id = %q, want DEMO- prefix", res.TransactionID)
	}
	if len(res.TransactionID) != len("DEMO-")+12 {
		t.Fatalf("transaction id length = %d", len(res.TransactionID))
	}
	if res.TransactionID != strings.ToUpper(res.TransactionID) {
		t.Fatalf("transaction id must be uppercase: %q", res.TransactionID)
	}
}

type failingProcessor struct{ calls int }

func (f *failingProcessor) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	f.calls++
	return nil, errors.New("gateway down")
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &failingProcessor{}
	p := WithBreaker(inner)
	ctx := context.Background()
	req := ChargeRequest{OrderID: "ord-1", Amount: decimal.RequireFromString("10.00"), Currency: "USD"}

	for i := 0; i < 5; i++ {
		if _, err := p.Charge(ctx, req); err == nil {
			t.Fatalf("call %d: expected error", i)
		}
	}

	// Breaker is now open: the gateway must not be called again.
	_, err := p.Charge(ctx, req)
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Fatalf("expected ErrOpenState, got %v", err)
	}
	if inner.calls != 5 {
		t.Fatalf("gateway calls = %d, want 5", inner.calls)
	}
}

func TestBreaker_PassesThroughSuccess(t *testing.T) {
	p := WithBreaker(DummyProcessor{})

	res, err := p.Charge(context.Background(), ChargeRequest{
		OrderID: "ord-1", Amount: decimal.RequireFromString("10.00"), Currency: "USD",
	})
	if err != nil {
		t.Fatalf("charge: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("status = %s", res.Status)
	}
}
