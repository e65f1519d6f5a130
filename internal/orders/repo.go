package orders

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the PostgreSQL Store.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txAttempts bounds how often a transaction that lost a serialization or
// deadlock race is replayed.
const txAttempts = 3

func (r *Repo) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	var err error
	for attempt := 1; attempt <= txAttempts; attempt++ {
		err = r.inTx(ctx, fn)
		if !retryable(err) || ctx.Err() != nil {
			return err
		}
	}
	return err
}

func (r *Repo) inTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return &TransactionAbortError{Err: err}
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		if IsDomainError(err) {
			return err
		}
		return &TransactionAbortError{Err: err}
	}
	if err := tx.Commit(ctx); err != nil {
		return &TransactionAbortError{Err: err}
	}
	return nil
}

// Unique indexes whose violation the repo interprets.
const (
	constraintOneActiveCart = "carts_one_active_per_user"
	constraintIntentOnce    = "orders_payment_intent_once"
)

// retryable matches serialization_failure, deadlock_detected, and a lost
// race to create a user's first cart: on replay the winner's cart is visible.
func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01" || isUniqueViolation(err, constraintOneActiveCart)
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

func (r *Repo) ActiveCart(ctx context.Context, userID string) (*Cart, error) {
	return loadActiveCart(ctx, r.DB, userID, false)
}

func (r *Repo) Product(ctx context.Context, productID string) (*Product, error) {
	return loadProduct(ctx, r.DB, productID, false)
}

func (r *Repo) ProductsByID(ctx context.Context, ids []string) (map[string]Product, error) {
	out := make(map[string]Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = *p
	}
	return out, rows.Err()
}

func (r *Repo) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY sku`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *Repo) Order(ctx context.Context, orderID string) (*Order, error) {
	return loadOrder(ctx, r.DB, orderID, false)
}

func (r *Repo) ListOrders(ctx context.Context, userID string, status Status) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+` FROM orders
		WHERE user_id=$1 AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id`, userID, string(status))
	if err != nil {
		return nil, err
	}
	out := []Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, *o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(out))
	idx := make(map[string]int, len(out))
	for i, o := range out {
		ids = append(ids, o.ID)
		idx[o.ID] = i
	}
	irows, err := r.DB.Query(ctx, `SELECT order_id, product_id, qty, price_cents, added_at
		FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, line_no`, ids)
	if err != nil {
		return nil, err
	}
	defer irows.Close()
	for irows.Next() {
		var orderID string
		var it OrderItem
		if err := irows.Scan(&orderID, &it.ProductID, &it.Qty, &it.PriceCents, &it.AddedAt); err != nil {
			return nil, err
		}
		i := idx[orderID]
		out[i].Items = append(out[i].Items, it)
	}
	return out, irows.Err()
}

// IsDomainError reports whether err is one of the typed checkout errors, as
// opposed to a failure of the store itself.
func IsDomainError(err error) bool {
	c := Code(err)
	return c != "INTERNAL" && c != "OK"
}
