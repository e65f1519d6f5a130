// Package cart manages a user's active cart. The cart is only a wish list:
// adding an item checks availability but reserves nothing.
package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

type Service struct {
	Store orders.Store
	Now   func() time.Time
}

// View is the cart as the client renders it.
type View struct {
	*orders.Cart
	SubtotalCents int64 `json:"subtotal_cents"`
	TotalItems    int   `json:"total_items"`
}

func newView(c *orders.Cart) *View {
	return &View{Cart: c, SubtotalCents: c.SubtotalCents(), TotalItems: c.TotalItems()}
}

// Get returns the active cart, or an empty unsaved one when the user has none.
func (s *Service) Get(ctx context.Context, userID string) (*View, error) {
	if userID == "" {
		return nil, &orders.ValidationError{Field: "user_id", Reason: "authenticated user required"}
	}
	c, err := s.Store.ActiveCart(ctx, userID)
	if errors.Is(err, orders.ErrNotFound) {
		now := s.now()
		return newView(&orders.Cart{
			UserID: userID, Status: orders.CartStatusActive,
			Items: []orders.CartItem{}, CreatedAt: now, UpdatedAt: now,
		}), nil
	}
	if err != nil {
		return nil, err
	}
	return newView(c), nil
}

// AddItem puts qty of a product into the cart, creating the cart on first
// use. Adding a product already in the cart merges the quantities and
// refreshes the price snapshot.
func (s *Service) AddItem(ctx context.Context, userID, productID string, qty int) (*View, error) {
	if qty < 1 {
		return nil, &orders.ValidationError{Field: "qty", Reason: "must be at least 1"}
	}
	if productID == "" {
		return nil, &orders.ValidationError{Field: "product_id", Reason: "required"}
	}

	var out *orders.Cart
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		c, err := s.activeOrNew(ctx, tx, userID)
		if err != nil {
			return err
		}
		p, err := sellable(ctx, tx, productID)
		if err != nil {
			return err
		}

		now := s.now()
		idx := c.ItemIndex(productID)
		want := qty
		if idx >= 0 {
			want += c.Items[idx].Qty
		}
		if p.Available() < want {
			return &orders.InsufficientStockError{ProductID: p.ID, Name: p.Name, Available: p.Available(), Requested: want}
		}
		if idx >= 0 {
			c.Items[idx].Qty = want
			c.Items[idx].PriceCents = p.PriceCents
		} else {
			c.Items = append(c.Items, orders.CartItem{
				ID: uuid.NewString(), ProductID: p.ID, Qty: qty, PriceCents: p.PriceCents, AddedAt: now,
			})
		}
		c.UpdatedAt = now
		if err := tx.SaveCart(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Debug().Str("user_id", userID).Str("product_id", productID).Int("qty", qty).Msg("cart item added")
	return newView(out), nil
}

func (s *Service) UpdateItemQuantity(ctx context.Context, userID, itemID string, qty int) (*View, error) {
	if qty < 1 {
		return nil, &orders.ValidationError{Field: "qty", Reason: "must be at least 1"}
	}
	var out *orders.Cart
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		c, idx, err := cartWithItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		p, err := sellable(ctx, tx, c.Items[idx].ProductID)
		if err != nil {
			return err
		}
		if p.Available() < qty {
			return &orders.InsufficientStockError{ProductID: p.ID, Name: p.Name, Available: p.Available(), Requested: qty}
		}
		c.Items[idx].Qty = qty
		c.UpdatedAt = s.now()
		if err := tx.SaveCart(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newView(out), nil
}

func (s *Service) RemoveItem(ctx context.Context, userID, itemID string) (*View, error) {
	var out *orders.Cart
	err := s.Store.InTx(ctx, func(ctx context.Context, tx orders.Tx) error {
		c, idx, err := cartWithItem(ctx, tx, userID, itemID)
		if err != nil {
			return err
		}
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
		c.UpdatedAt = s.now()
		if err := tx.SaveCart(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newView(out), nil
}

func (s *Service) activeOrNew(ctx context.Context, tx orders.Tx, userID string) (*orders.Cart, error) {
	c, err := tx.ActiveCart(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, orders.ErrNotFound) {
		return nil, err
	}
	now := s.now()
	return &orders.Cart{
		ID: uuid.NewString(), UserID: userID, Status: orders.CartStatusActive,
		Items: []orders.CartItem{}, CreatedAt: now, UpdatedAt: now,
	}, nil
}

func cartWithItem(ctx context.Context, tx orders.Tx, userID, itemID string) (*orders.Cart, int, error) {
	c, err := tx.ActiveCart(ctx, userID)
	if err != nil {
		return nil, -1, err
	}
	for i, it := range c.Items {
		if it.ID == itemID {
			return c, i, nil
		}
	}
	return nil, -1, orders.ErrNotFound
}

func sellable(ctx context.Context, tx orders.Tx, productID string) (*orders.Product, error) {
	p, err := tx.ProductForUpdate(ctx, productID)
	if errors.Is(err, orders.ErrNotFound) {
		return nil, &orders.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return nil, err
	}
	if !p.Active {
		return nil, &orders.ProductInactiveError{ProductID: p.ID, Name: p.Name}
	}
	return p, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
