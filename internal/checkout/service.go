package checkout

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/storelab/go-checkout-saga/internal/cart"
	"github.com/storelab/go-checkout-saga/internal/orders"
	"github.com/storelab/go-checkout-saga/internal/saga"
)

// ErrEmptyCart indicates checkout was started with no line items.
var ErrEmptyCart = errors.New("cart is empty, nothing to checkout")

// CartAccess is the slice of the cart service checkout needs: a read of the
// current aggregate and the post-snapshot clear.
type CartAccess interface {
	Get(ctx context.Context, userID string) (*cart.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// OrderCreator persists the new pending order.
type OrderCreator interface {
	Create(ctx context.Context, o orders.Order) error
}

// Summary is returned to the caller immediately; the saga runs out of band
// and the caller polls order status.
type Summary struct {
	OrderID   string          `json:"orderId"`
	Status    orders.Status   `json:"status"`
	Total     decimal.Decimal `json:"total"`
	Currency  string          `json:"currency"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Service snapshots a non-empty cart into a pending order and launches the
// saga. There is no idempotency token here: two concurrent starts before the
// cart clears produce two distinct orders.
type Service struct {
	carts     CartAccess
	orders    OrderCreator
	publisher saga.StepPublisher
	nowFunc   func() time.Time
	idFunc    func() string
}

// NewService builds a checkout Service.
func NewService(carts CartAccess, orderStore OrderCreator, publisher saga.StepPublisher) *Service {
	return &Service{
		carts:     carts,
		orders:    orderStore,
		publisher: publisher,
		nowFunc:   time.Now,
		idFunc:    newOrderID,
	}
}

// Start creates the pending order from the cart snapshot, schedules the
// first saga step, and clears the cart.
func (s *Service) Start(ctx context.Context, userID, email string, addr orders.ShippingAddress, paymentMethodID string) (*Summary, error) {
	c, err := s.carts.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	now := s.nowFunc().UTC()
	o := orders.Order{
		OrderID:         s.idFunc(),
		UserID:          userID,
		Status:          orders.StatusPending,
		Items:           snapshotItems(c.Items),
		Totals:          c.Totals,
		ShippingAddress: addr,
		PaymentMethodID: paymentMethodID,
		Email:           email,
		CreatedAt:       now,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.publisher.Publish(ctx, saga.StepMessage{
		OrderID: o.OrderID,
		UserID:  userID,
		Step:    saga.StepValidate,
	}); err != nil {
		// The order exists but the saga never started; surface the failure
		// so the client retries (which creates a fresh order).
		return nil, fmt.Errorf("schedule saga: %w", err)
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		// Order and saga are already in flight; log and move on.
		log.Printf("[checkout] clear cart failed user=%s order=%s: %v", userID, o.OrderID, err)
	}

	return &Summary{
		OrderID:   o.OrderID,
		Status:    o.Status,
		Total:     o.Totals.Total,
		Currency:  o.Totals.Currency,
		CreatedAt: now,
	}, nil
}

// snapshotItems deep-copies the cart lines so later cart mutations can never
// reach the order.
func snapshotItems(items []cart.CartItem) []cart.CartItem {
	out := make([]cart.CartItem, len(items))
	copy(out, items)
	return out
}

func newOrderID() string {
	return "ord-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
