package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id          TEXT PRIMARY KEY,
		sku         TEXT NOT NULL UNIQUE,
		name        TEXT NOT NULL,
		image_url   TEXT NOT NULL DEFAULT '',
		price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
		stock       INT NOT NULL CHECK (stock >= 0),
		reserved    INT NOT NULL DEFAULT 0 CHECK (reserved >= 0 AND reserved <= stock),
		active      BOOLEAN NOT NULL DEFAULT TRUE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS carts (
		id         TEXT PRIMARY KEY,
		user_id    TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'active',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS carts_one_active_per_user ON carts(user_id) WHERE status = 'active'`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		id          TEXT PRIMARY KEY,
		cart_id     TEXT NOT NULL REFERENCES carts(id) ON DELETE CASCADE,
		position    INT NOT NULL,
		product_id  TEXT NOT NULL REFERENCES products(id),
		qty         INT NOT NULL CHECK (qty >= 1),
		price_cents BIGINT NOT NULL,
		added_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (cart_id, product_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id                 TEXT PRIMARY KEY,
		user_id            TEXT NOT NULL,
		status             TEXT NOT NULL CHECK (status IN ('placed', 'completed', 'cancelled')),
		total_cents        BIGINT NOT NULL CHECK (total_cents >= 0),
		delivery_address   TEXT NOT NULL,
		payment_method     TEXT NOT NULL CHECK (payment_method IN ('card', 'cash')),
		payment_intent_id  TEXT NOT NULL DEFAULT '',
		estimated_delivery TIMESTAMPTZ NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS orders_user_created ON orders(user_id, created_at DESC)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS orders_payment_intent_once ON orders(payment_intent_id) WHERE payment_intent_id <> ''`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id    TEXT NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		line_no     INT NOT NULL,
		product_id  TEXT NOT NULL REFERENCES products(id),
		qty         INT NOT NULL CHECK (qty >= 1),
		price_cents BIGINT NOT NULL CHECK (price_cents >= 0),
		added_at    TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (order_id, line_no)
	)`,
}

// Migrate creates the tables when they do not exist yet.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}

// SeedProducts inserts products that do not exist yet. Existing rows,
// including their stock, are left alone.
func SeedProducts(ctx context.Context, db *pgxpool.Pool, products []orders.Product) error {
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(`INSERT INTO products(id, sku, name, image_url, price_cents, stock, reserved, active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING`,
			p.ID, p.SKU, p.Name, p.ImageURL, p.PriceCents, p.Stock, p.Reserved, p.Active, p.CreatedAt, p.UpdatedAt)
	}
	return db.SendBatch(ctx, batch).Close()
}
