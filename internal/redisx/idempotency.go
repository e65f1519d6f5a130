package redisx

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const pending = "pending"

// ErrInFlight means another request with the same key is still placing.
var ErrInFlight = errors.New("request with this idempotency key is in progress")

// Idempotency remembers which order an Idempotency-Key produced, per user.
type Idempotency struct {
	RDB redis.Cmdable
}

// Claim takes the key for a new placement. When the key already produced an
// order, that order id is returned and claimed is false.
func (i *Idempotency) Claim(ctx context.Context, userID, key string) (orderID string, claimed bool, err error) {
	k := Key(KeyIdemOrderPlace, userID, key)
	ok, err := i.RDB.SetNX(ctx, k, pending, TTLIdemPending).Result()
	if err != nil {
		return "", false, err
	}
	if ok {
		return "", true, nil
	}
	v, err := i.RDB.Get(ctx, k).Result()
	if isNil(err) {
		// expired between SETNX and GET, coba sekali lagi
		return i.Claim(ctx, userID, key)
	}
	if err != nil {
		return "", false, err
	}
	if v == pending {
		return "", false, ErrInFlight
	}
	return v, false, nil
}

// Complete records the order a claimed key produced.
func (i *Idempotency) Complete(ctx context.Context, userID, key, orderID string) error {
	return i.RDB.Set(ctx, Key(KeyIdemOrderPlace, userID, key), orderID, TTLIdempotency).Err()
}

// Release drops a claim whose placement failed so the client may retry.
func (i *Idempotency) Release(ctx context.Context, userID, key string) error {
	return i.RDB.Del(ctx, Key(KeyIdemOrderPlace, userID, key)).Err()
}
