package redisx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type StatusEntry struct {
	UserID    string    `json:"user_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StatusCache holds the latest known status per order.
type StatusCache struct {
	RDB redis.Cmdable
}

// Put stores e unless the cache already holds a newer entry, so events
// replayed out of order cannot move the status backwards.
func (c *StatusCache) Put(ctx context.Context, orderID string, e StatusEntry) error {
	cur, ok, err := c.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if ok && cur.UpdatedAt.After(e.UpdatedAt) {
		return nil
	}
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.RDB.Set(ctx, Key(KeyOrderStatus, orderID), b, TTLStatusCache).Err()
}

func (c *StatusCache) Get(ctx context.Context, orderID string) (StatusEntry, bool, error) {
	var e StatusEntry
	b, err := c.RDB.Get(ctx, Key(KeyOrderStatus, orderID)).Bytes()
	if isNil(err) {
		return e, false, nil
	}
	if err != nil {
		return e, false, err
	}
	if err := json.Unmarshal(b, &e); err != nil {
		return e, false, err
	}
	return e, true, nil
}
