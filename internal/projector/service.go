// Package projector keeps the order status cache in step with the order
// event streams.
package projector

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
)

type Service struct {
	Redis       redis.Cmdable
	Cache       *redisx.StatusCache
	ServiceName string
}

func New(rdb redis.Cmdable, serviceName string) *Service {
	return &Service{Redis: rdb, Cache: &redisx.StatusCache{RDB: rdb}, ServiceName: serviceName}
}

// Handle dipasang sebagai handler consumer untuk order.placed dan order.status.
func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// pesan rusak tidak akan pernah sukses, commit saja
		log.Warn().Err(err).Str("topic", m.Topic).Int64("offset", m.Offset).Msg("skipping undecodable message")
		return nil
	}
	if env.EventType != orders.EventOrderPlaced && env.EventType != orders.EventOrderStatusChanged {
		return nil
	}

	// 2) dedup via Redis (pakai event_id)
	first, err := redisx.FirstSeen(ctx, s.Redis, s.ServiceName, env.EventID)
	if err != nil {
		return err
	}
	if !first {
		return nil
	}

	if err := s.apply(ctx, env); err != nil {
		if ferr := redisx.Forget(ctx, s.Redis, s.ServiceName, env.EventID); ferr != nil {
			log.Warn().Err(ferr).Str("event_id", env.EventID).Msg("dedup key not released")
		}
		return err
	}
	return nil
}

func (s *Service) apply(ctx context.Context, env orders.Envelope) error {
	var (
		orderID string
		userID  string
		status  orders.Status
		at      time.Time
	)
	switch env.EventType {
	case orders.EventOrderPlaced:
		p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
		if err != nil {
			return err
		}
		orderID, userID, status, at = p.OrderID, p.UserID, p.Status, p.PlacedAt
	case orders.EventOrderStatusChanged:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusChangedPayload](env.Payload)
		if err != nil {
			return err
		}
		orderID, userID, status, at = p.OrderID, p.UserID, p.To, p.ChangedAt
	}

	if err := s.Cache.Put(ctx, orderID, redisx.StatusEntry{UserID: userID, Status: string(status), UpdatedAt: at}); err != nil {
		return err
	}
	log.Debug().Str("order_id", orderID).Str("status", string(status)).Str("event_id", env.EventID).Msg("status projected")
	return nil
}
