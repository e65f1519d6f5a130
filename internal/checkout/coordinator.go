package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

const (
	DefaultDeliveryWindow = 7 * 24 * time.Hour
	MinDeliveryAddressLen = 10
)

// Phase names the steps of one placement attempt.
type Phase string

const (
	PhaseValidating   Phase = "validating"
	PhaseReadingCart  Phase = "reading_cart"
	PhaseReserving    Phase = "reserving"
	PhaseVerifying    Phase = "verifying_charge"
	PhasePersisting   Phase = "persisting"
	PhaseClearingCart Phase = "clearing_cart"
	PhaseCommitted    Phase = "committed"
	PhaseAborted      Phase = "aborted"
)

type PlaceRequest struct {
	UserID          string
	DeliveryAddress string
	PaymentMethod   string
	PaymentIntentID string

	// verifyCharge, when set, checks the reservation against what the
	// customer already paid. It runs inside the placement transaction.
	verifyCharge func(res *Reservation) error
}

// Observer is told how every placement attempt ended.
type Observer interface {
	PlacementFinished(outcome string, d time.Duration)
}

// Coordinator turns a user's cart into an order in one store transaction:
// read cart, reserve stock, insert order, clear cart. Any failure rolls all
// of it back.
type Coordinator struct {
	Store          orders.Store
	DeliveryWindow time.Duration
	Now            func() time.Time
	Observer       Observer
}

type validatedRequest struct {
	userID          string
	address         string
	method          orders.PaymentMethod
	paymentIntentID string
}

func validate(req PlaceRequest) (validatedRequest, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return validatedRequest{}, &orders.ValidationError{Field: "user_id", Reason: "authenticated user required"}
	}
	addr := strings.TrimSpace(req.DeliveryAddress)
	if len([]rune(addr)) < MinDeliveryAddressLen {
		return validatedRequest{}, &orders.ValidationError{
			Field: "delivery_address", Reason: "must be at least 10 characters",
		}
	}
	method, err := orders.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return validatedRequest{}, err
	}
	return validatedRequest{
		userID:          req.UserID,
		address:         addr,
		method:          method,
		paymentIntentID: strings.TrimSpace(req.PaymentIntentID),
	}, nil
}

// Place runs one placement attempt. The returned order has product display
// fields resolved; that lookup happens after commit and its failure does not
// fail the placement.
func (c *Coordinator) Place(ctx context.Context, req PlaceRequest) (*orders.Order, error) {
	start := c.now()
	logger := log.Ctx(ctx).With().Str("user_id", req.UserID).Logger()
	phase := PhaseValidating
	enter := func(p Phase) {
		phase = p
		logger.Debug().Str("phase", string(p)).Msg("placement phase")
	}

	in, err := validate(req)
	if err != nil {
		c.finish(&logger, phase, err, start)
		return nil, err
	}

	var placed *orders.Order
	err = c.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		enter(PhaseReadingCart)
		cart, err := readPlaceableCart(ctx, tx, in.userID)
		if err != nil {
			return err
		}

		enter(PhaseReserving)
		res, err := Reserve(ctx, tx, cart.Items)
		if err != nil {
			return err
		}
		if req.verifyCharge != nil {
			enter(PhaseVerifying)
			if err := req.verifyCharge(res); err != nil {
				return err
			}
		}

		enter(PhasePersisting)
		now := c.now()
		o := &orders.Order{
			ID:                uuid.NewString(),
			UserID:            in.userID,
			Items:             res.Items,
			TotalCents:        res.TotalCents,
			Status:            orders.StatusPlaced,
			DeliveryAddress:   in.address,
			PaymentMethod:     in.method,
			PaymentIntentID:   in.paymentIntentID,
			EstimatedDelivery: now.Add(c.deliveryWindow()),
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		if err := o.Validate(); err != nil {
			return err
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}

		enter(PhaseClearingCart)
		if err := tx.ClearCart(ctx, cart.ID); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		c.finish(&logger, phase, err, start)
		return nil, err
	}
	c.finish(&logger, PhaseCommitted, nil, start)

	resolveProducts(ctx, c.Store, placed)
	return placed, nil
}

func (c *Coordinator) finish(logger *zerolog.Logger, last Phase, err error, start time.Time) {
	d := c.now().Sub(start)
	outcome := string(PhaseCommitted)
	if err != nil {
		outcome = orders.Code(err)
		logger.Warn().Err(err).Str("phase", string(PhaseAborted)).Str("failed_at", string(last)).
			Str("code", outcome).Int64("duration_ms", d.Milliseconds()).Msg("order placement aborted")
	} else {
		logger.Info().Str("phase", string(last)).Int64("duration_ms", d.Milliseconds()).Msg("order placed")
	}
	if c.Observer != nil {
		c.Observer.PlacementFinished(outcome, d)
	}
}

func (c *Coordinator) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now().UTC()
}

func (c *Coordinator) deliveryWindow() time.Duration {
	if c.DeliveryWindow > 0 {
		return c.DeliveryWindow
	}
	return DefaultDeliveryWindow
}
