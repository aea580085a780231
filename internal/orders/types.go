package orders

import (
	"time"

	"github.com/storelab/go-checkout-saga/internal/cart"
)

// Status is the saga state of an order.
type Status string

const (
	StatusPending           Status = "pending"
	StatusValidating        Status = "validating"
	StatusPaymentProcessing Status = "payment_processing"
	StatusInventoryReserved Status = "inventory_reserved"
	StatusConfirmed         Status = "confirmed"
	StatusFailed            Status = "failed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

// String representation (for logging)
func (s Status) String() string { return string(s) }

// CanTransitionTo guards the order state machine: the saga advances one
// step at a time, and any non-terminal state may fail.
func CanTransitionTo(from, to Status) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusValidating
	case StatusValidating:
		return to == StatusPaymentProcessing
	case StatusPaymentProcessing:
		return to == StatusInventoryReserved
	case StatusInventoryReserved:
		return to == StatusConfirmed
	}
	return false
}

// ShippingAddress is captured verbatim from the checkout request.
type ShippingAddress struct {
	Name       string `dynamodbav:"name,omitempty" json:"name,omitempty"`
	Line1      string `dynamodbav:"line1,omitempty" json:"line1,omitempty"`
	Line2      string `dynamodbav:"line2,omitempty" json:"line2,omitempty"`
	City       string `dynamodbav:"city,omitempty" json:"city,omitempty"`
	State      string `dynamodbav:"state,omitempty" json:"state,omitempty"`
	PostalCode string `dynamodbav:"postal_code,omitempty" json:"postalCode,omitempty"`
	Country    string `dynamodbav:"country,omitempty" json:"country,omitempty"`
}

// Order represents the item stored in the orders DynamoDB table. Items and
// totals are an immutable snapshot of the cart taken at checkout time; they
// never change even if catalog prices later do.
type Order struct {
	PK              string          `dynamodbav:"PK" json:"-"` // USER#<userId>
	SK              string          `dynamodbav:"SK" json:"-"` // ORDER#<orderId>
	OrderID         string          `dynamodbav:"order_id" json:"orderId"`
	UserID          string          `dynamodbav:"user_id" json:"userId"`
	Status          Status          `dynamodbav:"status" json:"status"`
	Items           []cart.CartItem `dynamodbav:"items" json:"items"`
	Totals          cart.Totals     `dynamodbav:"totals" json:"totals"`
	ShippingAddress ShippingAddress `dynamodbav:"shipping_address" json:"shippingAddress"`
	PaymentMethodID string          `dynamodbav:"payment_method_id" json:"paymentMethodId"`
	Email           string          `dynamodbav:"email,omitempty" json:"email,omitempty"`
	TransactionID   string          `dynamodbav:"transaction_id,omitempty" json:"transactionId,omitempty"`
	FailureReason   string          `dynamodbav:"failure_reason,omitempty" json:"failureReason,omitempty"`
	Attempts        int             `dynamodbav:"attempts,omitempty" json:"-"`
	CreatedAt       time.Time       `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt       time.Time       `dynamodbav:"updated_at" json:"updatedAt"`

	// Sparse index attributes: status listing and global order listing.
	GSI1PK string `dynamodbav:"GSI1PK" json:"-"` // STATUS#<status>
	GSI1SK string `dynamodbav:"GSI1SK" json:"-"` // <createdAt>#<orderId>
	GSI2PK string `dynamodbav:"GSI2PK" json:"-"` // ORDER
	GSI2SK string `dynamodbav:"GSI2SK" json:"-"` // <createdAt>#<orderId>
}

func orderPK(userID string) string  { return "USER#" + userID }
func orderSK(orderID string) string { return "ORDER#" + orderID }
func statusKey(s Status) string     { return "STATUS#" + string(s) }
