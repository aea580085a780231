package cart

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/storelab/go-checkout-saga/internal/catalog"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrInvalidQuantity indicates a quantity outside the allowed range.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrCartNotFound indicates the user has no persisted cart.
	ErrCartNotFound = errors.New("cart not found")
)

// CartStore is the persistence surface the service depends on.
type CartStore interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Put(ctx context.Context, c *Cart) error
	Delete(ctx context.Context, userID string) error
}

// ProductCatalog is the read surface into the product catalog collaborator.
type ProductCatalog interface {
	Get(ctx context.Context, productID string) (*catalog.Product, error)
}

// Cache is a read-through cache for carts. Implementations live in
// internal/cache; a miss is signalled with an error wrapping cache.ErrMiss.
type Cache interface {
	Get(ctx context.Context, userID string) (*Cart, error)
	Set(ctx context.Context, userID string, c *Cart) error
	Delete(ctx context.Context, userID string) error
	IsMiss(err error) bool
}

// Service owns cart mutations and derived totals.
type Service struct {
	store    CartStore
	products ProductCatalog
	cache    Cache
	sfg      singleflight.Group // prevents cache stampede on reads
	nowFunc  func() time.Time
}

// NewService builds a cart Service.
func NewService(store CartStore, products ProductCatalog, cache Cache) *Service {
	return &Service{
		store:    store,
		products: products,
		cache:    cache,
		nowFunc:  time.Now,
	}
}

// Get returns the user's cart, or an empty default when none exists.
// The empty default is never persisted.
func (s *Service) Get(ctx context.Context, userID string) (*Cart, error) {
	v, err, _ := s.sfg.Do(userID, func() (interface{}, error) {
		c, err := s.cache.Get(ctx, userID)
		if err == nil {
			return c, nil
		}
		if !s.cache.IsMiss(err) {
			log.Printf("cart cache get error: %v", err) // log cache error but continue
		}

		c, err = s.store.Get(ctx, userID)
		if err != nil {
			return nil, err
		}
		if c == nil {
			return s.emptyCart(userID), nil
		}

		if errSet := s.cache.Set(ctx, userID, c); errSet != nil {
			log.Printf("cart cache set error: %v", errSet)
		}
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Cart), nil
}

// AddItem adds qty of a product to the cart, creating the cart lazily.
// Price, name and image are captured from the catalog at this moment and
// stay locked for the life of the line. Repeated adds accumulate quantity.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.Inventory < qty {
		return nil, catalog.ErrInsufficientStock
	}

	c, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c = s.emptyCart(userID)
	}

	found := false
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			c.Items[i].Quantity += qty
			found = true
			break
		}
	}
	if !found {
		c.Items = append(c.Items, CartItem{
			ProductID:   productID,
			ProductName: p.Name,
			Quantity:    qty,
			Price:       p.Price,
			Currency:    p.Currency,
			ImageURL:    p.ImageURL(),
			AddedAt:     s.nowFunc().UTC(),
		})
	}

	return s.save(ctx, c)
}

// SetQuantity replaces the quantity of a line. Zero removes the line;
// negative quantities are rejected. A productID with no matching line is a
// no-op beyond refreshing timestamps.
func (s *Service) SetQuantity(ctx context.Context, userID, productID string, qty int) (*Cart, error) {
	if qty < 0 {
		return nil, ErrInvalidQuantity
	}

	c, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCartNotFound
	}

	if qty == 0 {
		c.Items = removeLine(c.Items, productID)
	} else {
		for i := range c.Items {
			if c.Items[i].ProductID == productID {
				c.Items[i].Quantity = qty
				break
			}
		}
	}

	return s.save(ctx, c)
}

// RemoveItem drops a line from the cart. Removing an absent product is a
// no-op, so the operation is idempotent.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	c, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCartNotFound
	}

	c.Items = removeLine(c.Items, productID)
	return s.save(ctx, c)
}

// Clear deletes the cart record entirely.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.store.Delete(ctx, userID); err != nil {
		return err
	}
	s.invalidate(userID)
	return nil
}

// save recomputes totals, refreshes timestamps and TTL, and persists the
// cart with its version check. Runs after every mutation.
func (s *Service) save(ctx context.Context, c *Cart) (*Cart, error) {
	now := s.nowFunc().UTC()
	c.Totals = ComputeTotals(c.Items)
	c.UpdatedAt = now
	c.ExpiresAt = now.Add(cartTTL).Unix()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}

	if err := s.store.Put(ctx, c); err != nil {
		return nil, err
	}
	s.invalidate(c.UserID)
	return c, nil
}

func (s *Service) invalidate(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		log.Printf("cart cache invalidate error: %v", err)
	}
}

func (s *Service) emptyCart(userID string) *Cart {
	return &Cart{
		UserID: userID,
		Items:  []CartItem{},
		Totals: Totals{Currency: DefaultCurrency},
	}
}

func removeLine(items []CartItem, productID string) []CartItem {
	out := items[:0]
	for _, it := range items {
		if it.ProductID != productID {
			out = append(out, it)
		}
	}
	return out
}
