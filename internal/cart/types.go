package cart

import (
	"time"

	"github.com/shopspring/decimal"
)

// CartItem is a single line in the cart. Price, name and image are captured
// when the line is created and never re-read from the catalog afterwards.
type CartItem struct {
	ProductID   string          `dynamodbav:"product_id" json:"productId"`
	ProductName string          `dynamodbav:"product_name" json:"productName"`
	Quantity    int             `dynamodbav:"quantity" json:"quantity"`
	Price       decimal.Decimal `dynamodbav:"price" json:"price"`
	Currency    string          `dynamodbav:"currency" json:"currency"`
	ImageURL    string          `dynamodbav:"image_url,omitempty" json:"imageUrl"`
	AddedAt     time.Time       `dynamodbav:"added_at" json:"addedAt"`
}

// Totals are always derived from the current items; they are stored for
// convenience but never mutated independently.
type Totals struct {
	Subtotal decimal.Decimal `dynamodbav:"subtotal" json:"subtotal"`
	Tax      decimal.Decimal `dynamodbav:"tax" json:"tax"`
	Shipping decimal.Decimal `dynamodbav:"shipping" json:"shipping"`
	Total    decimal.Decimal `dynamodbav:"total" json:"total"`
	Currency string          `dynamodbav:"currency" json:"currency"`
}

// Cart is the persisted aggregate for one user or guest session.
// Version backs the compare-and-swap on write; ExpiresAt feeds the
// DynamoDB TTL garbage collector.
type Cart struct {
	PK        string     `dynamodbav:"PK" json:"-"` // USER#<id>
	SK        string     `dynamodbav:"SK" json:"-"` // CART
	UserID    string     `dynamodbav:"user_id" json:"userId"`
	Items     []CartItem `dynamodbav:"items" json:"items"`
	Totals    Totals     `dynamodbav:"totals" json:"totals"`
	Version   int64      `dynamodbav:"version" json:"-"`
	CreatedAt time.Time  `dynamodbav:"created_at" json:"createdAt"`
	UpdatedAt time.Time  `dynamodbav:"updated_at" json:"updatedAt"`
	ExpiresAt int64      `dynamodbav:"expires_at" json:"-"` // TTL epoch seconds
}

// IsEmpty reports whether the cart has no line items.
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

func cartPK(userID string) string { return "USER#" + userID }

const cartSK = "CART"

// cartTTL is how long an untouched cart survives before the storage layer
// garbage-collects it.
const cartTTL = 30 * 24 * time.Hour
