package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/storelab/go-checkout-saga/internal/cart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *RedisCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCache(client)
}

func testCart() *cart.Cart {
	items := []cart.CartItem{
		{ProductID: "prod-1", ProductName: "Widget", Quantity: 2, Price: decimal.RequireFromString("10.00"), Currency: "USD"},
	}
	return &cart.Cart{
		UserID: "user-1",
		Items:  items,
		Totals: cart.ComputeTotals(items),
	}
}

func TestRedisCache_SetGetRoundTrip(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "user-1", testCart()))

	got, err := c.Get(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "prod-1", got.Items[0].ProductID)
	assert.True(t, got.Items[0].Price.Equal(decimal.RequireFromString("10.00")),
		"decimal price must survive the JSON round-trip")
	assert.True(t, got.Totals.Total.Equal(decimal.RequireFromString("31.59")))
}

func TestRedisCache_MissOnUnknownUser(t *testing.T) {
	c := newTestCache(t)

	_, err := c.Get(context.Background(), "nobody")
	require.Error(t, err)
	assert.True(t, c.IsMiss(err))
}

func TestRedisCache_DeleteInvalidates(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "user-1", testCart()))
	require.NoError(t, c.Delete(ctx, "user-1"))

	_, err := c.Get(ctx, "user-1")
	assert.True(t, c.IsMiss(err))
}

func TestRedisCache_DeleteAbsentIsNoOp(t *testing.T) {
	c := newTestCache(t)
	assert.NoError(t, c.Delete(context.Background(), "nobody"))
}

func TestNoop_AlwaysMisses(t *testing.T) {
	n := Noop{}
	ctx := context.Background()

	require.NoError(t, n.Set(ctx, "user-1", testCart()))
	_, err := n.Get(ctx, "user-1")
	assert.True(t, n.IsMiss(err))
	assert.NoError(t, n.Delete(ctx, "user-1"))
}
