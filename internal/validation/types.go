package validation

// AddItemRequest is the payload for POST /cart.
type AddItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"` // must be >= 1
}

// UpdateItemRequest is the payload for PUT /cart/items/{productId}.
// Quantity is a pointer so an explicit zero (remove the line) survives
// the required check.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,min=0"`
}

// Address mirrors the shipping address fields captured at checkout.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// CheckoutRequest is the payload for POST /checkout/start.
type CheckoutRequest struct {
	ShippingAddress Address `json:"shippingAddress"`
	PaymentMethodID string  `json:"paymentMethodId" validate:"required"`
}
