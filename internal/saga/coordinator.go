package saga

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/storelab/go-checkout-saga/internal/aws"
	"github.com/storelab/go-checkout-saga/internal/notify"
	"github.com/storelab/go-checkout-saga/internal/orders"
	"github.com/storelab/go-checkout-saga/internal/payment"
)

// OrderStore is the slice of the orders store the coordinator needs.
type OrderStore interface {
	Get(ctx context.Context, userID, orderID string) (*orders.Order, error)
	TransitionStatus(ctx context.Context, userID, orderID string, expected, next orders.Status) error
	TransitionWithTransaction(ctx context.Context, userID, orderID string, expected, next orders.Status, transactionID string) error
	MarkFailed(ctx context.Context, userID, orderID, reason string) error
	IncrementAttempts(ctx context.Context, userID, orderID string) error
}

// Coordinator runs saga steps against the persisted order state machine.
//
// It is stateless between invocations: each step message causes one read of
// the order, one step execution, and a conditional status write. Returning
// an error makes SQS redeliver the message (transient failure); permanent
// business failures mark the order failed and consume the message.
type Coordinator struct {
	orders    OrderStore
	validator *InventoryValidator
	committer *InventoryCommitter
	payments  payment.Processor
	notifier  notify.Notifier
	publisher StepPublisher
	metrics   *aws.Metrics
	nowFunc   func() time.Time
}

// NewCoordinator wires the four saga steps to their dependencies.
func NewCoordinator(
	orderStore OrderStore,
	catalogStore CatalogStore,
	payments payment.Processor,
	notifier notify.Notifier,
	publisher StepPublisher,
	metrics *aws.Metrics,
) *Coordinator {
	return &Coordinator{
		orders:    orderStore,
		validator: NewInventoryValidator(catalogStore),
		committer: NewInventoryCommitter(catalogStore),
		payments:  payments,
		notifier:  notifier,
		publisher: publisher,
		metrics:   metrics,
		nowFunc:   time.Now,
	}
}

// Handle executes one saga step message.
func (c *Coordinator) Handle(ctx context.Context, msg StepMessage) error {
	o, err := c.orders.Get(ctx, msg.UserID, msg.OrderID)
	if err != nil {
		return fmt.Errorf("fetch order: %w", err)
	}
	if o == nil {
		// Should never happen; let the message go to the DLQ.
		return fmt.Errorf("order not found: %s", msg.OrderID)
	}

	if err := c.orders.IncrementAttempts(ctx, msg.UserID, msg.OrderID); err != nil {
		log.Printf("[saga] increment attempts failed order=%s: %v", msg.OrderID, err)
	}

	started := c.nowFunc()
	var stepErr error
	switch msg.Step {
	case StepValidate:
		stepErr = c.runValidate(ctx, o)
	case StepCharge:
		stepErr = c.runCharge(ctx, o)
	case StepCommit:
		stepErr = c.runCommit(ctx, o)
	case StepNotify:
		stepErr = c.runNotify(ctx, o)
	default:
		return fmt.Errorf("unknown saga step %q for order %s", msg.Step, msg.OrderID)
	}

	outcome := "success"
	if stepErr != nil {
		outcome = "retry"
	}
	c.metrics.RecordStep(ctx, msg.Step, outcome, c.nowFunc().Sub(started))
	return stepErr
}

// runValidate: pending -> validating, then either payment_processing or failed.
// A delivery that finds the order already validating resumes the step: the
// previous delivery died between the transition and the stock check, and the
// check is read-only so rerunning it is safe.
func (c *Coordinator) runValidate(ctx context.Context, o *orders.Order) error {
	err := c.orders.TransitionStatus(ctx, o.UserID, o.OrderID, orders.StatusPending, orders.StatusValidating)
	switch {
	case errors.Is(err, orders.ErrStatusMismatch):
		if o.Status != orders.StatusValidating {
			return c.swallowDuplicate(ctx, o, orders.StatusPending)
		}
	case err != nil:
		return err
	}

	res, err := c.validator.Run(ctx, o.Items)
	if err != nil {
		return err // transient store failure, redeliver
	}
	if !res.Available {
		reason := "insufficient inventory for: " + strings.Join(res.UnavailableProductIDs, ", ")
		log.Printf("[saga] validation failed order=%s %s", o.OrderID, reason)
		return c.fail(ctx, o, reason)
	}

	if err := c.orders.TransitionStatus(ctx, o.UserID, o.OrderID, orders.StatusValidating, orders.StatusPaymentProcessing); err != nil {
		return err
	}
	return c.publisher.Publish(ctx, StepMessage{OrderID: o.OrderID, UserID: o.UserID, Step: StepCharge})
}

// runCharge: payment_processing -> inventory_reserved or failed. No
// compensation is needed on decline because inventory was never committed.
func (c *Coordinator) runCharge(ctx context.Context, o *orders.Order) error {
	if o.Status != orders.StatusPaymentProcessing {
		return c.swallowDuplicate(ctx, o, orders.StatusPaymentProcessing)
	}

	res, err := c.payments.Charge(ctx, payment.ChargeRequest{
		OrderID:         o.OrderID,
		Amount:          o.Totals.Total,
		Currency:        o.Totals.Currency,
		PaymentMethodID: o.PaymentMethodID,
	})
	if err != nil {
		return fmt.Errorf("charge order %s: %w", o.OrderID, err) // transient, redeliver
	}
	if res.Status != payment.StatusCompleted {
		log.Printf("[saga] payment declined order=%s: %s", o.OrderID, res.Message)
		return c.fail(ctx, o, "payment declined: "+res.Message)
	}

	err = c.orders.TransitionWithTransaction(ctx, o.UserID, o.OrderID,
		orders.StatusPaymentProcessing, orders.StatusInventoryReserved, res.TransactionID)
	if errors.Is(err, orders.ErrStatusMismatch) {
		return c.swallowDuplicate(ctx, o, orders.StatusPaymentProcessing)
	}
	if err != nil {
		return err
	}
	return c.publisher.Publish(ctx, StepMessage{OrderID: o.OrderID, UserID: o.UserID, Step: StepCommit})
}

// runCommit: inventory_reserved -> confirmed or failed. The per-order
// decrement tags make redelivery of this step a no-op for items already
// committed. There is no compensating refund when the commit fails after a
// successful charge; the order is marked failed with the item list.
func (c *Coordinator) runCommit(ctx context.Context, o *orders.Order) error {
	if o.Status != orders.StatusInventoryReserved {
		return c.swallowDuplicate(ctx, o, orders.StatusInventoryReserved)
	}

	res, err := c.committer.Run(ctx, o.OrderID, o.Items)
	if err != nil {
		return err // transient, redeliver; applied decrements will no-op
	}
	if !res.Success() {
		reason := "inventory commit failed for: " + strings.Join(res.FailedProductIDs, ", ")
		log.Printf("[saga] commit failed order=%s %s", o.OrderID, reason)
		return c.fail(ctx, o, reason)
	}

	err = c.orders.TransitionStatus(ctx, o.UserID, o.OrderID, orders.StatusInventoryReserved, orders.StatusConfirmed)
	if errors.Is(err, orders.ErrStatusMismatch) {
		return c.swallowDuplicate(ctx, o, orders.StatusInventoryReserved)
	}
	if err != nil {
		return err
	}
	return c.publisher.Publish(ctx, StepMessage{OrderID: o.OrderID, UserID: o.UserID, Step: StepNotify})
}

// runNotify is best-effort: a failed send is returned for redelivery but the
// order stays confirmed regardless.
func (c *Coordinator) runNotify(ctx context.Context, o *orders.Order) error {
	if o.Status != orders.StatusConfirmed {
		log.Printf("[saga] notify skipped order=%s status=%s", o.OrderID, o.Status)
		return nil
	}
	err := c.notifier.SendConfirmation(ctx, notify.Confirmation{
		OrderID: o.OrderID,
		Email:   o.Email,
		Totals:  o.Totals,
	})
	if err != nil {
		log.Printf("[saga] confirmation send failed order=%s: %v", o.OrderID, err)
		return err
	}
	log.Printf("[saga] confirmed order=%s notified=%s", o.OrderID, o.Email)
	return nil
}

func (c *Coordinator) fail(ctx context.Context, o *orders.Order, reason string) error {
	err := c.orders.MarkFailed(ctx, o.UserID, o.OrderID, reason)
	if errors.Is(err, orders.ErrStatusMismatch) {
		// already terminal, nothing to do
		return nil
	}
	return err
}

// swallowDuplicate decides what to do when a step finds the order in an
// unexpected state. Deliveries for steps that already ran are consumed, but
// not blindly: each step publishes its successor only after the status
// write, so an advanced non-terminal order may have lost that message. For
// those, the step matching the current status is rescheduled before the
// delivery is consumed; the conditional transitions make a redundant resend
// harmless. Anything else is retried.
func (c *Coordinator) swallowDuplicate(ctx context.Context, o *orders.Order, expected orders.Status) error {
	curr, err := c.orders.Get(ctx, o.UserID, o.OrderID)
	if err != nil {
		return err
	}
	if curr == nil {
		return fmt.Errorf("order disappeared: %s", o.OrderID)
	}
	if curr.Status == orders.StatusFailed || statusRank(curr.Status) > statusRank(expected) {
		if step, ok := resumeStep(curr.Status); ok {
			log.Printf("[saga] duplicate delivery order=%s status=%s expected=%s, rescheduling %s",
				o.OrderID, curr.Status, expected, step)
			return c.publisher.Publish(ctx, StepMessage{OrderID: o.OrderID, UserID: o.UserID, Step: step})
		}
		log.Printf("[saga] duplicate delivery order=%s status=%s expected=%s", o.OrderID, curr.Status, expected)
		return nil
	}
	return fmt.Errorf("order %s in state %s, expected %s", o.OrderID, curr.Status, expected)
}

// resumeStep names the step that moves an order in the given status forward.
// Terminal statuses have none; a confirmed order is never rescheduled either,
// since re-running notify would resend the confirmation.
func resumeStep(s orders.Status) (string, bool) {
	switch s {
	case orders.StatusValidating:
		return StepValidate, true
	case orders.StatusPaymentProcessing:
		return StepCharge, true
	case orders.StatusInventoryReserved:
		return StepCommit, true
	}
	return "", false
}

func statusRank(s orders.Status) int {
	switch s {
	case orders.StatusPending:
		return 0
	case orders.StatusValidating:
		return 1
	case orders.StatusPaymentProcessing:
		return 2
	case orders.StatusInventoryReserved:
		return 3
	case orders.StatusConfirmed:
		return 4
	}
	return 5
}
