package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

type pgTx struct{ tx pgx.Tx }

var _ Tx = (*pgTx)(nil)

const (
	productColumns = `id, sku, name, image_url, price_cents, stock, reserved, active, created_at, updated_at`
	cartColumns    = `id, user_id, status, created_at, updated_at`
	orderColumns   = `id, user_id, status, total_cents, delivery_address, payment_method,
		payment_intent_id, estimated_delivery, created_at, updated_at`
)

// ActiveCart locks the cart row so two placements from the same cart serialize.
func (t *pgTx) ActiveCart(ctx context.Context, userID string) (*Cart, error) {
	return loadActiveCart(ctx, t.tx, userID, true)
}

func (t *pgTx) SaveCart(ctx context.Context, c *Cart) error {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO carts(id, user_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at`,
		c.ID, c.UserID, c.Status, c.CreatedAt, c.UpdatedAt); err != nil {
		return err
	}
	if _, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, c.ID); err != nil {
		return err
	}
	for i, it := range c.Items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO cart_items(id, cart_id, position, product_id, qty, price_cents, added_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			it.ID, c.ID, i, it.ProductID, it.Qty, it.PriceCents, it.AddedAt); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) ClearCart(ctx context.Context, cartID string) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID); err != nil {
		return err
	}
	_, err := t.tx.Exec(ctx, `UPDATE carts SET updated_at = now() WHERE id=$1`, cartID)
	return err
}

func (t *pgTx) ProductForUpdate(ctx context.Context, productID string) (*Product, error) {
	return loadProduct(ctx, t.tx, productID, true)
}

// AddReserved only touches reserved. The WHERE clause keeps 0 <= reserved <= stock
// even if a caller skipped the availability check.
func (t *pgTx) AddReserved(ctx context.Context, productID string, delta int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET reserved = reserved + $2, updated_at = now()
		WHERE id=$1 AND reserved + $2 >= 0 AND reserved + $2 <= stock`, productID, delta)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("reserved counter of %s cannot move by %d", productID, delta)
	}
	return nil
}

func (t *pgTx) ConsumeReserved(ctx context.Context, productID string, qty int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock - $2, reserved = reserved - $2, updated_at = now()
		WHERE id=$1 AND reserved >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("product %s has less than %d reserved", productID, qty)
	}
	return nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, total_cents, delivery_address, payment_method,
			payment_intent_id, estimated_delivery, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.UserID, string(o.Status), o.TotalCents, o.DeliveryAddress, string(o.PaymentMethod),
		o.PaymentIntentID, o.EstimatedDelivery, o.CreatedAt, o.UpdatedAt); err != nil {
		if isUniqueViolation(err, constraintIntentOnce) {
			return IntentAlreadyUsed(o.PaymentIntentID)
		}
		return err
	}
	for i, it := range o.Items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_items(order_id, line_no, product_id, qty, price_cents, added_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			o.ID, i, it.ProductID, it.Qty, it.PriceCents, it.AddedAt); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) OrderForUpdate(ctx context.Context, orderID string) (*Order, error) {
	return loadOrder(ctx, t.tx, orderID, true)
}

func (t *pgTx) UpdateOrderStatus(ctx context.Context, orderID string, s Status, at time.Time) error {
	ct, err := t.tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, orderID, string(s), at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrNotFound
	}
	return nil
}

func loadActiveCart(ctx context.Context, q querier, userID string, lock bool) (*Cart, error) {
	sql := `SELECT ` + cartColumns + ` FROM carts WHERE user_id=$1 AND status='active'`
	if lock {
		sql += ` FOR UPDATE`
	}
	var c Cart
	err := q.QueryRow(ctx, sql, userID).Scan(&c.ID, &c.UserID, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT id, product_id, qty, price_cents, added_at
		FROM cart_items WHERE cart_id=$1 ORDER BY position`, c.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	c.Items = []CartItem{}
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.ID, &it.ProductID, &it.Qty, &it.PriceCents, &it.AddedAt); err != nil {
			return nil, err
		}
		c.Items = append(c.Items, it)
	}
	return &c, rows.Err()
}

func loadProduct(ctx context.Context, q querier, productID string, lock bool) (*Product, error) {
	sql := `SELECT ` + productColumns + ` FROM products WHERE id=$1`
	if lock {
		sql += ` FOR UPDATE`
	}
	p, err := scanProduct(q.QueryRow(ctx, sql, productID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.ImageURL, &p.PriceCents, &p.Stock,
		&p.Reserved, &p.Active, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func loadOrder(ctx context.Context, q querier, orderID string, lock bool) (*Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	if lock {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, sql, orderID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `SELECT product_id, qty, price_cents, added_at
		FROM order_items WHERE order_id=$1 ORDER BY line_no`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ProductID, &it.Qty, &it.PriceCents, &it.AddedAt); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return o, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o      Order
		status string
		method string
	)
	if err := row.Scan(&o.ID, &o.UserID, &status, &o.TotalCents, &o.DeliveryAddress, &method,
		&o.PaymentIntentID, &o.EstimatedDelivery, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.Status = Status(status)
	o.PaymentMethod = PaymentMethod(method)
	return &o, nil
}
