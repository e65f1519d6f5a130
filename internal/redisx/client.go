package redisx

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func Exists(ctx context.Context, rdb redis.Cmdable, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// FirstSeen marks id as processed for service and reports whether this is
// the first time. Dipakai consumer untuk dedup event (at-least-once).
func FirstSeen(ctx context.Context, rdb redis.Cmdable, service, id string) (bool, error) {
	return rdb.SetNX(ctx, Key(KeyDedup, service, id), "1", TTLDedup).Result()
}

// Forget undoes FirstSeen so a failed handler can be retried.
func Forget(ctx context.Context, rdb redis.Cmdable, service, id string) error {
	return rdb.Del(ctx, Key(KeyDedup, service, id)).Err()
}

func isNil(err error) bool { return errors.Is(err, redis.Nil) }
