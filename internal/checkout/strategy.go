package checkout

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/payment"
)

// Strategy is one way of paying for an order. Every strategy ends in
// Coordinator.Place.
type Strategy interface {
	Place(ctx context.Context, req PlaceRequest) (*orders.Order, error)
}

// CashStrategy places directly; the courier collects on delivery.
type CashStrategy struct {
	Coordinator *Coordinator
}

func (s *CashStrategy) Place(ctx context.Context, req PlaceRequest) (*orders.Order, error) {
	req.PaymentIntentID = ""
	return s.Coordinator.Place(ctx, req)
}

// CardStrategy requires the client to have confirmed a payment intent with
// the processor before the order is placed. The intent must cover exactly
// the reserved total priced with Pricing, and pays for one order only.
type CardStrategy struct {
	Coordinator *Coordinator
	Payments    payment.Processor
	Pricing     Pricing
}

func (s *CardStrategy) Place(ctx context.Context, req PlaceRequest) (*orders.Order, error) {
	if req.PaymentIntentID == "" {
		return nil, &orders.ValidationError{Field: "payment_intent_id", Reason: "required for card payments"}
	}
	intent, err := s.Payments.RetrieveIntent(ctx, req.PaymentIntentID)
	if err != nil {
		return nil, &orders.PaymentSetupError{Reason: "cannot retrieve payment intent", Err: err}
	}
	if intent.Status != payment.StatusSucceeded {
		return nil, &orders.PaymentSetupError{Reason: "payment intent is " + string(intent.Status) + ", not succeeded"}
	}
	if uid, ok := intent.Metadata[metaUserID]; ok && uid != req.UserID {
		return nil, &orders.PaymentSetupError{Reason: "payment intent belongs to another user"}
	}
	req.verifyCharge = func(res *Reservation) error {
		_, _, due := s.Pricing.Charge(res.TotalCents)
		if intent.AmountCents != due {
			return &orders.PaymentSetupError{
				Reason: fmt.Sprintf("payment intent %s covers %d cents, order costs %d", intent.ID, intent.AmountCents, due),
			}
		}
		return nil
	}
	return s.Coordinator.Place(ctx, req)
}

// EventSink hears about committed changes. Implementations must not block.
type EventSink interface {
	OrderPlaced(ctx context.Context, o *orders.Order)
	OrderStatusChanged(ctx context.Context, o *orders.Order, from orders.Status)
}

// Checkout validates the request, picks the strategy for the payment method
// and reports the placed order to Events.
type Checkout struct {
	Card   Strategy
	Cash   Strategy
	Events EventSink
}

func (c *Checkout) Place(ctx context.Context, req PlaceRequest) (*orders.Order, error) {
	in, err := validate(req)
	if err != nil {
		return nil, err
	}

	var s Strategy
	switch in.method {
	case orders.PaymentCard:
		s = c.Card
	case orders.PaymentCash:
		s = c.Cash
	}
	if s == nil {
		return nil, &orders.ValidationError{Field: "payment_method", Reason: string(in.method) + " payments are not enabled"}
	}

	o, err := s.Place(ctx, req)
	if err != nil {
		return nil, err
	}
	if c.Events != nil {
		c.Events.OrderPlaced(ctx, o)
	}
	log.Ctx(ctx).Debug().Str("order_id", o.ID).Str("payment_method", string(o.PaymentMethod)).Msg("checkout done")
	return o, nil
}
