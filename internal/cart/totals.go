package cart

import "github.com/shopspring/decimal"

// DefaultCurrency is applied to all totals.
const DefaultCurrency = "USD"

var (
	taxRate          = decimal.NewFromFloat(0.08)
	shippingFlat     = decimal.NewFromFloat(9.99)
	freeShippingFrom = decimal.NewFromInt(50)
)

// ComputeTotals derives cart totals from the given items:
// subtotal = sum(price * quantity), tax = 8% of subtotal, flat 9.99
// shipping under a 50.00 subtotal, everything rounded to 2 places.
func ComputeTotals(items []CartItem) Totals {
	subtotal := decimal.Zero
	for _, it := range items {
		subtotal = subtotal.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(taxRate).Round(2)

	shipping := decimal.Zero.Round(2)
	if subtotal.LessThan(freeShippingFrom) {
		shipping = shippingFlat
	}

	total := subtotal.Add(tax).Add(shipping).Round(2)

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    total,
		Currency: DefaultCurrency,
	}
}
