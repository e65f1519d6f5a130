// Package events publishes committed order changes to Kafka.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-storefront-orders/internal/kafka"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

const envelopeVersion = 1

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header) bool
}

// Sink implements checkout.EventSink. Placed goes to order.placed and
// Status to order.status; a nil publisher disables that stream.
type Sink struct {
	Placed   Publisher
	Status   Publisher
	Producer string // service name stamped on every envelope
	Now      func() time.Time
}

func (s *Sink) OrderPlaced(ctx context.Context, o *orders.Order) {
	s.publish(ctx, s.Placed, orders.EventOrderPlaced, o.ID, orders.NewOrderPlacedPayload(o))
}

func (s *Sink) OrderStatusChanged(ctx context.Context, o *orders.Order, from orders.Status) {
	s.publish(ctx, s.Status, orders.EventOrderStatusChanged, o.ID, orders.OrderStatusChangedPayload{
		OrderID:   o.ID,
		UserID:    o.UserID,
		From:      from,
		To:        o.Status,
		ChangedAt: o.UpdatedAt,
	})
}

func (s *Sink) publish(ctx context.Context, p Publisher, eventType, orderID string, payload any) {
	if p == nil {
		return
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    s.now(),
		Producer:      s.Producer,
		TraceID:       TraceID(ctx),
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	if !p.Publish(orders.PartitionKey(orderID), kafkax.MustMarshal(ev), kafkax.EventHeaders(eventType, envelopeVersion)...) {
		log.Ctx(ctx).Warn().Str("order_id", orderID).Str("event_type", eventType).Msg("event not queued")
	}
}

func (s *Sink) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

type traceKey struct{}

// WithTraceID stores the request id that ends up in envelope.trace_id.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

func TraceID(ctx context.Context) string {
	id, _ := ctx.Value(traceKey{}).(string)
	return id
}
