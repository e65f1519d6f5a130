package redisx

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestIdempotency_ClaimCompleteReplay(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	idem := &Idempotency{RDB: rdb}

	_, claimed, err := idem.Claim(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.True(t, claimed)

	_, _, err = idem.Claim(ctx, "u1", "k1")
	assert.ErrorIs(t, err, ErrInFlight)

	// same key from another user is independent
	_, claimed, err = idem.Claim(ctx, "u2", "k1")
	require.NoError(t, err)
	assert.True(t, claimed)

	require.NoError(t, idem.Complete(ctx, "u1", "k1", "order-1"))
	id, claimed, err := idem.Claim(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.False(t, claimed)
	assert.Equal(t, "order-1", id)
}

func TestIdempotency_ReleaseAllowsRetry(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	idem := &Idempotency{RDB: rdb}

	_, _, err := idem.Claim(ctx, "u1", "k1")
	require.NoError(t, err)
	require.NoError(t, idem.Release(ctx, "u1", "k1"))
	_, claimed, err := idem.Claim(ctx, "u1", "k1")
	require.NoError(t, err)
	assert.True(t, claimed)

	require.NoError(t, idem.Complete(ctx, "u1", "k1", "order-1"))
	assert.Equal(t, TTLIdempotency, mr.TTL(Key(KeyIdemOrderPlace, "u1", "k1")))
}

func TestStatusCache_IgnoresOlderEntries(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)
	c := &StatusCache{RDB: rdb}
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, ok, err := c.Get(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, "o1", StatusEntry{Status: "cancelled", UpdatedAt: t0.Add(time.Minute)}))
	require.NoError(t, c.Put(ctx, "o1", StatusEntry{Status: "placed", UpdatedAt: t0}))

	got, ok, err := c.Get(ctx, "o1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cancelled", got.Status)
}

func TestFirstSeen(t *testing.T) {
	ctx := context.Background()
	_, rdb := newRedis(t)

	first, err := FirstSeen(ctx, rdb, "projector", "ev-1")
	require.NoError(t, err)
	assert.True(t, first)

	first, err = FirstSeen(ctx, rdb, "projector", "ev-1")
	require.NoError(t, err)
	assert.False(t, first)

	require.NoError(t, Forget(ctx, rdb, "projector", "ev-1"))
	ok, err := Exists(ctx, rdb, Key(KeyDedup, "projector", "ev-1"))
	require.NoError(t, err)
	assert.False(t, ok)
}
