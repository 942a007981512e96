package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCacheRoundTrip(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	type payload struct {
		Name  string  `json:"name"`
		Value float64 `json:"value"`
	}

	// Missing key reads as not found, not as an error
	var out payload
	found, err := GetCache(ctx, rdb, "missing", &out)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, SetCache(ctx, rdb, "k", payload{Name: "wallet", Value: 42.5}, time.Minute))
	found, err = GetCache(ctx, rdb, "k", &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, payload{Name: "wallet", Value: 42.5}, out)

	require.NoError(t, DeleteCache(ctx, rdb, "k"))
	found, err = GetCache(ctx, rdb, "k", &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInvalidateWalletCache(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, SetCache(ctx, rdb, WalletCacheKey(7), "w", time.Minute))
	require.NoError(t, SetCache(ctx, rdb, TxHistoryCacheKey(7, 1, 20), "h", time.Minute))
	require.NoError(t, SetCache(ctx, rdb, WalletCacheKey(8), "other", time.Minute))

	InvalidateWalletCache(ctx, rdb, 7)

	var s string
	found, err := GetCache(ctx, rdb, WalletCacheKey(7), &s)
	require.NoError(t, err)
	assert.False(t, found)
	found, err = GetCache(ctx, rdb, TxHistoryCacheKey(7, 1, 20), &s)
	require.NoError(t, err)
	assert.False(t, found)

	// Other users' entries survive
	found, err = GetCache(ctx, rdb, WalletCacheKey(8), &s)
	require.NoError(t, err)
	assert.True(t, found)
}
