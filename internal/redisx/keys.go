package redisx

import (
	"fmt"
	"time"
)

const (
	// Idempotency place order: idem:order:place:{user_id}:{key} -> order_id | "pending"
	KeyIdemOrderPlace = "idem:order:place:%s:%s"

	// Cache status order: order_status:{order_id} -> {"status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLIdemPending = 30 * time.Second
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

func Key(format string, args ...any) string { return fmt.Sprintf(format, args...) }
