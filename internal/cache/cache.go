package cache

import (
	"context"
	"errors"

	"github.com/storelab/go-checkout-saga/internal/cart"
)

// ErrCacheMiss signals the cart is not cached; callers fall through to the store.
var ErrCacheMiss = errors.New("cache miss")

// Noop satisfies the cart cache surface when no Redis endpoint is
// configured; every read is a miss and writes are discarded.
type Noop struct{}

func (Noop) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	return nil, ErrCacheMiss
}

func (Noop) Set(ctx context.Context, userID string, c *cart.Cart) error { return nil }

func (Noop) Delete(ctx context.Context, userID string) error { return nil }

func (Noop) IsMiss(err error) bool { return errors.Is(err, ErrCacheMiss) }
