// Package memstore is an in-memory orders.Store. Transactions are serialized
// and run against a private copy of the data that is swapped in on commit,
// so a failed transaction leaves no trace.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

// Hook runs before every write a transaction makes. A non-nil return fails
// that write. op is the Tx method name, id the product, cart or order id.
type Hook func(op, id string) error

type Store struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	state *state

	Hook Hook
}

type state struct {
	products map[string]*orders.Product
	carts    map[string]*orders.Cart // by cart id
	orders   map[string]*orders.Order
}

var _ orders.Store = (*Store)(nil)

func New() *Store {
	return &Store{state: &state{
		products: map[string]*orders.Product{},
		carts:    map[string]*orders.Cart{},
		orders:   map[string]*orders.Order{},
	}}
}

// PutProduct seeds or replaces a catalog entry.
func (s *Store) PutProduct(p orders.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.state.products[p.ID] = &cp
}

// PutCart seeds or replaces a cart.
func (s *Store) PutCart(c orders.Cart) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.carts[c.ID] = c.Clone()
}

func (s *Store) OrderCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.orders)
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx orders.Tx) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return &orders.TransactionAbortError{Err: err}
	}

	s.mu.RLock()
	work := s.state.clone()
	s.mu.RUnlock()

	if err := fn(ctx, &memTx{st: work, hook: s.Hook}); err != nil {
		if orders.IsDomainError(err) {
			return err
		}
		return &orders.TransactionAbortError{Err: err}
	}
	if err := ctx.Err(); err != nil {
		return &orders.TransactionAbortError{Err: err}
	}

	s.mu.Lock()
	s.state = work
	s.mu.Unlock()
	return nil
}

func (s *Store) ActiveCart(_ context.Context, userID string) (*orders.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.activeCart(userID)
}

func (s *Store) Product(_ context.Context, productID string) (*orders.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.state.products[productID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) ProductsByID(_ context.Context, ids []string) (map[string]orders.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]orders.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.state.products[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

func (s *Store) ListProducts(_ context.Context) ([]orders.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]orders.Product, 0, len(s.state.products))
	for _, p := range s.state.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (s *Store) Order(_ context.Context, orderID string) (*orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.state.orders[orderID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return o.Clone(), nil
}

func (s *Store) ListOrders(_ context.Context, userID string, status orders.Status) ([]orders.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []orders.Order{}
	for _, o := range s.state.orders {
		if o.UserID != userID || (status != "" && o.Status != status) {
			continue
		}
		out = append(out, *o.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (st *state) clone() *state {
	cp := &state{
		products: make(map[string]*orders.Product, len(st.products)),
		carts:    make(map[string]*orders.Cart, len(st.carts)),
		orders:   make(map[string]*orders.Order, len(st.orders)),
	}
	for k, p := range st.products {
		pc := *p
		cp.products[k] = &pc
	}
	for k, c := range st.carts {
		cp.carts[k] = c.Clone()
	}
	for k, o := range st.orders {
		cp.orders[k] = o.Clone()
	}
	return cp
}

func (st *state) activeCart(userID string) (*orders.Cart, error) {
	for _, c := range st.carts {
		if c.UserID == userID && c.Status == orders.CartStatusActive {
			return c.Clone(), nil
		}
	}
	return nil, orders.ErrNotFound
}

type memTx struct {
	st   *state
	hook Hook
}

func (t *memTx) before(op, id string) error {
	if t.hook == nil {
		return nil
	}
	return t.hook(op, id)
}

func (t *memTx) ActiveCart(_ context.Context, userID string) (*orders.Cart, error) {
	return t.st.activeCart(userID)
}

func (t *memTx) SaveCart(_ context.Context, c *orders.Cart) error {
	if err := t.before("SaveCart", c.ID); err != nil {
		return err
	}
	t.st.carts[c.ID] = c.Clone()
	return nil
}

func (t *memTx) ClearCart(_ context.Context, cartID string) error {
	if err := t.before("ClearCart", cartID); err != nil {
		return err
	}
	c, ok := t.st.carts[cartID]
	if !ok {
		return orders.ErrNotFound
	}
	c.Items = []orders.CartItem{}
	c.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *memTx) ProductForUpdate(_ context.Context, productID string) (*orders.Product, error) {
	p, ok := t.st.products[productID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (t *memTx) AddReserved(_ context.Context, productID string, delta int) error {
	if err := t.before("AddReserved", productID); err != nil {
		return err
	}
	p, ok := t.st.products[productID]
	if !ok {
		return orders.ErrNotFound
	}
	next := p.Reserved + delta
	if next < 0 || next > p.Stock {
		return errReservedBounds{productID: productID, delta: delta}
	}
	p.Reserved = next
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *memTx) ConsumeReserved(_ context.Context, productID string, qty int) error {
	if err := t.before("ConsumeReserved", productID); err != nil {
		return err
	}
	p, ok := t.st.products[productID]
	if !ok {
		return orders.ErrNotFound
	}
	if p.Reserved < qty {
		return errReservedBounds{productID: productID, delta: -qty}
	}
	p.Stock -= qty
	p.Reserved -= qty
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, o *orders.Order) error {
	if err := t.before("InsertOrder", o.ID); err != nil {
		return err
	}
	if o.PaymentIntentID != "" {
		for _, other := range t.st.orders {
			if other.PaymentIntentID == o.PaymentIntentID {
				return orders.IntentAlreadyUsed(o.PaymentIntentID)
			}
		}
	}
	t.st.orders[o.ID] = o.Clone()
	return nil
}

func (t *memTx) OrderForUpdate(_ context.Context, orderID string) (*orders.Order, error) {
	o, ok := t.st.orders[orderID]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return o.Clone(), nil
}

func (t *memTx) UpdateOrderStatus(_ context.Context, orderID string, s orders.Status, at time.Time) error {
	if err := t.before("UpdateOrderStatus", orderID); err != nil {
		return err
	}
	o, ok := t.st.orders[orderID]
	if !ok {
		return orders.ErrNotFound
	}
	o.Status = s
	o.UpdatedAt = at
	return nil
}

type errReservedBounds struct {
	productID string
	delta     int
}

func (e errReservedBounds) Error() string {
	return fmt.Sprintf("reserved counter of %s cannot move by %d", e.productID, e.delta)
}
