package payment

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Charge statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ChargeRequest describes a single capture attempt.
type ChargeRequest struct {
	OrderID         string
	Amount          decimal.Decimal
	Currency        string
	PaymentMethodID string
}

// ChargeResult is the gateway's answer. Status failed with a message is a
// decline (permanent); a transport error is returned separately.
type ChargeResult struct {
	Status        string
	TransactionID string
	Message       string
}

// Processor is the payment capability. Production deployments replace the
// dummy with a real gateway behind the same contract.
type Processor interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// DummyProcessor always captures successfully with a generated transaction
// id. It exists so the saga can run end to end without a gateway.
type DummyProcessor struct{}

func (DummyProcessor) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	txID := "DEMO-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	log.Printf("[payment] dummy capture order=%s amount=%s %s method=%s tx=%s",
		req.OrderID, req.Amount.StringFixed(2), req.Currency, req.PaymentMethodID, txID)
	return &ChargeResult{
		Status:        StatusCompleted,
		TransactionID: txID,
		Message:       fmt.Sprintf("Payment of %s %s processed successfully", req.Amount.StringFixed(2), req.Currency),
	}, nil
}
