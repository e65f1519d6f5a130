package checkout

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

// Reservation is what a successful Reserve committed to, inside the
// enclosing transaction.
type Reservation struct {
	Items      []orders.OrderItem
	TotalCents int64
}

// Reserve takes every cart line or none of them. Each product row is locked
// by ProductForUpdate, so concurrent placements against the same product are
// serialized by the store, and the reserved counter is moved with a targeted
// increment. The returned error is the first failing line in cart order; the
// caller must abort the transaction, which discards earlier increments.
//
// The committed unit price is the live product price, not the cart snapshot.
func Reserve(ctx context.Context, tx orders.Tx, lines []orders.CartItem) (*Reservation, error) {
	res := &Reservation{Items: make([]orders.OrderItem, 0, len(lines))}

	for _, line := range lines {
		if line.Qty < 1 {
			return nil, &orders.ValidationError{Field: "qty", Reason: "quantity must be at least 1 for product " + line.ProductID}
		}

		p, err := tx.ProductForUpdate(ctx, line.ProductID)
		if errors.Is(err, orders.ErrNotFound) {
			return nil, &orders.ProductNotFoundError{ProductID: line.ProductID}
		}
		if err != nil {
			return nil, err
		}
		if !p.Active {
			return nil, &orders.ProductInactiveError{ProductID: p.ID, Name: p.Name}
		}
		if avail := p.Available(); avail < line.Qty {
			return nil, &orders.InsufficientStockError{
				ProductID: p.ID, Name: p.Name, Available: avail, Requested: line.Qty,
			}
		}

		if err := tx.AddReserved(ctx, p.ID, line.Qty); err != nil {
			return nil, err
		}

		res.Items = append(res.Items, orders.OrderItem{
			ProductID:  p.ID,
			Qty:        line.Qty,
			PriceCents: p.PriceCents,
			AddedAt:    line.AddedAt,
		})
		res.TotalCents += p.PriceCents * int64(line.Qty)
	}
	return res, nil
}

// Release gives back what an order reserved. Used when a placed order is cancelled.
func Release(ctx context.Context, tx orders.Tx, items []orders.OrderItem) error {
	for _, it := range items {
		if err := tx.AddReserved(ctx, it.ProductID, -it.Qty); err != nil {
			return err
		}
	}
	return nil
}

// Consume converts an order's reservation into sold stock on completion.
func Consume(ctx context.Context, tx orders.Tx, items []orders.OrderItem) error {
	for _, it := range items {
		if err := tx.ConsumeReserved(ctx, it.ProductID, it.Qty); err != nil {
			return err
		}
	}
	return nil
}
