package checkout

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

// Lifecycle serves placed orders: reads, and the two terminal transitions.
// Cancel gives the reservation back; Complete turns it into sold stock.
type Lifecycle struct {
	Store  orders.Store
	Events EventSink
	Now    func() time.Time
}

func (l *Lifecycle) Get(ctx context.Context, userID, orderID string) (*orders.Order, error) {
	o, err := l.Store.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, &orders.ForbiddenError{Resource: "order " + orderID}
	}
	resolveProducts(ctx, l.Store, o)
	return o, nil
}

// List filters by status when status is non-empty.
func (l *Lifecycle) List(ctx context.Context, userID, status string) ([]orders.Order, error) {
	var st orders.Status
	if status != "" {
		var err error
		if st, err = orders.ParseStatus(status); err != nil {
			return nil, err
		}
	}
	list, err := l.Store.ListOrders(ctx, userID, st)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*orders.Order, len(list))
	for i := range list {
		ptrs[i] = &list[i]
	}
	resolveProducts(ctx, l.Store, ptrs...)
	return list, nil
}

func (l *Lifecycle) Cancel(ctx context.Context, userID, orderID string) (*orders.Order, error) {
	return l.transition(ctx, userID, orderID, orders.StatusCancelled, Release)
}

// Complete is called by fulfillment, not by the customer, so it has no owner check.
func (l *Lifecycle) Complete(ctx context.Context, orderID string) (*orders.Order, error) {
	return l.transition(ctx, "", orderID, orders.StatusCompleted, Consume)
}

type stockEffect func(ctx context.Context, tx orders.Tx, items []orders.OrderItem) error

func (l *Lifecycle) transition(ctx context.Context, userID, orderID string, to orders.Status, effect stockEffect) (*orders.Order, error) {
	var (
		updated *orders.Order
		from    orders.Status
	)
	err := l.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		o, err := tx.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if userID != "" && o.UserID != userID {
			return &orders.ForbiddenError{Resource: "order " + orderID}
		}
		from = o.Status
		if err := o.Transition(to, l.now()); err != nil {
			return err
		}
		if err := effect(ctx, tx, o.Items); err != nil {
			return err
		}
		if err := tx.UpdateOrderStatus(ctx, o.ID, o.Status, o.UpdatedAt); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Ctx(ctx).Info().Str("order_id", orderID).Str("from", string(from)).Str("to", string(to)).Msg("order status changed")
	if l.Events != nil {
		l.Events.OrderStatusChanged(ctx, updated, from)
	}
	resolveProducts(ctx, l.Store, updated)
	return updated, nil
}

func (l *Lifecycle) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now().UTC()
}
