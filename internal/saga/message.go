package saga

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/storelab/go-checkout-saga/internal/aws"
)

// Saga steps, in execution order.
const (
	StepValidate = "validate"
	StepCharge   = "charge"
	StepCommit   = "commit"
	StepNotify   = "notify"
)

// StepMessage is the payload sent over SQS to schedule one saga step.
// Delivery is at-least-once; the coordinator tolerates duplicates by
// transitioning order status conditionally.
type StepMessage struct {
	OrderID       string `json:"order_id"`
	UserID        string `json:"user_id"`
	Step          string `json:"step"`
	CorrelationID string `json:"correlation_id,omitempty"`
}

// StepPublisher schedules a saga step for asynchronous execution.
type StepPublisher interface {
	Publish(ctx context.Context, msg StepMessage) error
}

// QueuePublisher publishes step messages through the SQS publisher.
type QueuePublisher struct {
	pub *aws.Publisher
}

func NewQueuePublisher(pub *aws.Publisher) *QueuePublisher {
	return &QueuePublisher{pub: pub}
}

func (q *QueuePublisher) Publish(ctx context.Context, msg StepMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal step message: %w", err)
	}
	attrs := map[string]string{
		"order_id": msg.OrderID,
		"step":     msg.Step,
	}
	if msg.CorrelationID != "" {
		attrs["correlation_id"] = msg.CorrelationID
	}
	return q.pub.SendStepMessage(ctx, string(body), attrs)
}
