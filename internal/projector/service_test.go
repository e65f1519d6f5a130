package projector

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
)

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, "projector"), mr
}

func message(eventID, eventType string, payload any) kafkago.Message {
	env := orders.Envelope{
		EventID: eventID, EventType: eventType, EventVersion: 1, OccurredAt: t0,
		Payload: kafkax.MustMarshal(payload),
	}
	return kafkago.Message{Value: kafkax.MustMarshal(env)}
}

func placed(eventID string) kafkago.Message {
	return message(eventID, orders.EventOrderPlaced, orders.OrderPlacedPayload{
		OrderID: "o1", UserID: "u1", Status: orders.StatusPlaced, PlacedAt: t0,
	})
}

func cancelled(eventID string) kafkago.Message {
	return message(eventID, orders.EventOrderStatusChanged, orders.OrderStatusChangedPayload{
		OrderID: "o1", UserID: "u1", From: orders.StatusPlaced, To: orders.StatusCancelled, ChangedAt: t0.Add(time.Minute),
	})
}

func status(t *testing.T, s *Service) string {
	t.Helper()
	e, ok, err := s.Cache.Get(context.Background(), "o1")
	require.NoError(t, err)
	require.True(t, ok)
	return e.Status
}

func TestHandle_ProjectsLatestStatus(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)

	require.NoError(t, s.Handle(ctx, placed("e1")))
	assert.Equal(t, "placed", status(t, s))

	require.NoError(t, s.Handle(ctx, cancelled("e2")))
	assert.Equal(t, "cancelled", status(t, s))
}

func TestHandle_OutOfOrderAndDuplicates(t *testing.T) {
	ctx := context.Background()
	s, mr := newService(t)

	require.NoError(t, s.Handle(ctx, cancelled("e2")))
	require.NoError(t, s.Handle(ctx, placed("e1")))
	assert.Equal(t, "cancelled", status(t, s))

	assert.True(t, mr.Exists(redisx.Key(redisx.KeyDedup, "projector", "e1")))

	mr.Del(redisx.Key(redisx.KeyOrderStatus, "o1"))
	require.NoError(t, s.Handle(ctx, cancelled("e2")))
	_, ok, err := s.Cache.Get(ctx, "o1")
	require.NoError(t, err)
	assert.False(t, ok, "a duplicate event must not be applied again")
}

func TestHandle_IgnoresGarbageAndUnknownEvents(t *testing.T) {
	ctx := context.Background()
	s, mr := newService(t)

	assert.NoError(t, s.Handle(ctx, kafkago.Message{Value: []byte("{oops")}))
	assert.NoError(t, s.Handle(ctx, message("e9", "StockReserved", map[string]string{})))
	assert.Empty(t, mr.Keys())
}

func TestHandle_RedisDownIsRetried(t *testing.T) {
	s, mr := newService(t)
	mr.Close()
	assert.Error(t, s.Handle(context.Background(), placed("e1")))
}
