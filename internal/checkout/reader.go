package checkout

import (
	"context"
	"errors"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

// CartSource is satisfied by orders.Store (plain read) and orders.Tx
// (locking read inside a transaction).
type CartSource interface {
	ActiveCart(ctx context.Context, userID string) (*orders.Cart, error)
}

// ReadCart returns the user's active cart. It never mutates. A user with no
// active cart gets orders.ErrNotFound.
func ReadCart(ctx context.Context, src CartSource, userID string) (*orders.Cart, error) {
	return src.ActiveCart(ctx, userID)
}

// readPlaceableCart is ReadCart with the placement rule applied: no cart and
// an emptied cart are the same client error.
func readPlaceableCart(ctx context.Context, src CartSource, userID string) (*orders.Cart, error) {
	c, err := ReadCart(ctx, src, userID)
	if errors.Is(err, orders.ErrNotFound) {
		return nil, &orders.EmptyCartError{UserID: userID}
	}
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, &orders.EmptyCartError{UserID: userID}
	}
	return c, nil
}
