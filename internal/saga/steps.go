package saga

import (
	"context"
	"errors"
	"fmt"

	"github.com/storelab/go-checkout-saga/internal/cart"
	"github.com/storelab/go-checkout-saga/internal/catalog"
)

// CatalogStore is the slice of the product store the saga steps need.
type CatalogStore interface {
	Get(ctx context.Context, productID string) (*catalog.Product, error)
	Decrement(ctx context.Context, productID string, qty int, orderID string) error
}

// ValidationResult reports whether every line item can be fulfilled.
type ValidationResult struct {
	Available             bool
	UnavailableProductIDs []string
}

// InventoryValidator is the read-only first saga step: it checks current
// stock for every line item. A missing product counts as unavailable.
type InventoryValidator struct {
	catalog CatalogStore
}

func NewInventoryValidator(c CatalogStore) *InventoryValidator {
	return &InventoryValidator{catalog: c}
}

func (v *InventoryValidator) Run(ctx context.Context, items []cart.CartItem) (*ValidationResult, error) {
	res := &ValidationResult{Available: true}
	for _, it := range items {
		p, err := v.catalog.Get(ctx, it.ProductID)
		if errors.Is(err, catalog.ErrNotFound) {
			res.Available = false
			res.UnavailableProductIDs = append(res.UnavailableProductIDs, it.ProductID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("check product %s: %w", it.ProductID, err)
		}
		if p.Inventory < it.Quantity {
			res.Available = false
			res.UnavailableProductIDs = append(res.UnavailableProductIDs, it.ProductID)
		}
	}
	return res, nil
}

// CommitResult lists the items whose decrement could not be applied.
type CommitResult struct {
	FailedProductIDs []string
}

// Success reports whether every item decremented cleanly.
func (r *CommitResult) Success() bool { return len(r.FailedProductIDs) == 0 }

// InventoryCommitter decrements stock for every line item via the store's
// atomic conditional decrement. Each decrement is tagged per order, so a
// redelivered commit step never double-decrements. All items are attempted
// so the failure report is complete.
type InventoryCommitter struct {
	catalog CatalogStore
}

func NewInventoryCommitter(c CatalogStore) *InventoryCommitter {
	return &InventoryCommitter{catalog: c}
}

func (c *InventoryCommitter) Run(ctx context.Context, orderID string, items []cart.CartItem) (*CommitResult, error) {
	res := &CommitResult{}
	for _, it := range items {
		err := c.catalog.Decrement(ctx, it.ProductID, it.Quantity, orderID)
		if errors.Is(err, catalog.ErrInsufficientStock) || errors.Is(err, catalog.ErrNotFound) {
			res.FailedProductIDs = append(res.FailedProductIDs, it.ProductID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("decrement product %s: %w", it.ProductID, err)
		}
	}
	return res, nil
}
