package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents the item stored in the products DynamoDB table.
// Monetary values are persisted through decimal's text encoding so no
// float drift enters the table.
type Product struct {
	PK          string          `dynamodbav:"PK"` // PRODUCT#<id>
	SK          string          `dynamodbav:"SK"` // METADATA
	ProductID   string          `dynamodbav:"product_id"`
	Name        string          `dynamodbav:"name"`
	Description string          `dynamodbav:"description,omitempty"`
	Price       decimal.Decimal `dynamodbav:"price"`
	Currency    string          `dynamodbav:"currency"`
	Images      []string        `dynamodbav:"images,omitempty"`
	Inventory   int             `dynamodbav:"inventory"`
	CreatedAt   time.Time       `dynamodbav:"created_at"`
	UpdatedAt   time.Time       `dynamodbav:"updated_at"`
}

// ImageURL returns the primary image reference, empty if none.
func (p *Product) ImageURL() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

func productPK(productID string) string { return "PRODUCT#" + productID }

const productSK = "METADATA"
