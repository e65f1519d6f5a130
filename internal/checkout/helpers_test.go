package checkout

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront-orders/internal/memstore"
	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

const validAddress = "12 Harbour Street, Springfield"

func product(id string, priceCents int64, stock, reserved int) orders.Product {
	return orders.Product{
		ID: id, SKU: "SKU-" + id, Name: "Product " + id,
		PriceCents: priceCents, Stock: stock, Reserved: reserved, Active: true,
	}
}

func cartFor(userID string, items ...orders.CartItem) orders.Cart {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = userID + "-line-" + items[i].ProductID
		}
		if items[i].AddedAt.IsZero() {
			items[i].AddedAt = fixedNow.Add(-time.Hour)
		}
	}
	return orders.Cart{
		ID: "cart-" + userID, UserID: userID, Status: orders.CartStatusActive,
		Items: items, CreatedAt: fixedNow.Add(-2 * time.Hour), UpdatedAt: fixedNow.Add(-time.Hour),
	}
}

func line(productID string, qty int, snapshotCents int64) orders.CartItem {
	return orders.CartItem{ProductID: productID, Qty: qty, PriceCents: snapshotCents}
}

func newCoordinator(store orders.Store) *Coordinator {
	return &Coordinator{Store: store, Now: clock}
}

func mustProduct(t *testing.T, s orders.Store, id string) orders.Product {
	t.Helper()
	p, err := s.Product(context.Background(), id)
	require.NoError(t, err)
	return *p
}

func mustCart(t *testing.T, s orders.Store, userID string) *orders.Cart {
	t.Helper()
	c, err := s.ActiveCart(context.Background(), userID)
	require.NoError(t, err)
	return c
}

// countingStore records every store access so tests can assert that a
// request was rejected before the store was touched.
type countingStore struct {
	orders.Store
	calls atomic.Int64
}

func (c *countingStore) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	c.calls.Add(1)
	return c.Store.InTx(ctx, fn)
}

func (c *countingStore) ActiveCart(ctx context.Context, userID string) (*orders.Cart, error) {
	c.calls.Add(1)
	return c.Store.ActiveCart(ctx, userID)
}

func (c *countingStore) ProductsByID(ctx context.Context, ids []string) (map[string]orders.Product, error) {
	c.calls.Add(1)
	return c.Store.ProductsByID(ctx, ids)
}

type recordedEvent struct {
	kind  string
	order string
	from  orders.Status
	to    orders.Status
}

type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingSink) OrderPlaced(_ context.Context, o *orders.Order) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{kind: "placed", order: o.ID, to: o.Status})
}

func (r *recordingSink) OrderStatusChanged(_ context.Context, o *orders.Order, from orders.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{kind: "status", order: o.ID, from: from, to: o.Status})
}

func newStore() *memstore.Store { return memstore.New() }
