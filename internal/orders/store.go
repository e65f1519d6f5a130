package orders

import (
	"context"
	"time"
)

// Tx is the set of writes the checkout core performs inside one store
// transaction. Reads through Tx lock the row they return until commit.
type Tx interface {
	ActiveCart(ctx context.Context, userID string) (*Cart, error)
	SaveCart(ctx context.Context, c *Cart) error
	ClearCart(ctx context.Context, cartID string) error

	ProductForUpdate(ctx context.Context, productID string) (*Product, error)
	// AddReserved touches only the reserved counter. delta may be negative
	// when a reservation is released.
	AddReserved(ctx context.Context, productID string, delta int) error
	// ConsumeReserved turns a reservation into a sale: stock and reserved
	// both drop by qty.
	ConsumeReserved(ctx context.Context, productID string, qty int) error

	InsertOrder(ctx context.Context, o *Order) error
	OrderForUpdate(ctx context.Context, orderID string) (*Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, s Status, at time.Time) error
}

// Store is implemented by Repo (PostgreSQL) and memstore.Store.
type Store interface {
	// InTx runs fn in a transaction. A non-nil error from fn rolls back
	// every write fn made. Domain errors come back unchanged; anything else,
	// including a failed commit, is reported as *TransactionAbortError.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	ActiveCart(ctx context.Context, userID string) (*Cart, error)
	Product(ctx context.Context, productID string) (*Product, error)
	ProductsByID(ctx context.Context, ids []string) (map[string]Product, error)
	ListProducts(ctx context.Context) ([]Product, error)
	Order(ctx context.Context, orderID string) (*Order, error)
	// ListOrders returns the user's orders newest first. Empty status means all.
	ListOrders(ctx context.Context, userID string, status Status) ([]Order, error)
}
