package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

func TestPlace_SingleLineCart(t *testing.T) {
	store := newStore()
	store.PutProduct(product("P1", 2000, 10, 0))
	store.PutCart(cartFor("u1", line("P1", 2, 2000)))

	o, err := newCoordinator(store).Place(context.Background(), PlaceRequest{
		UserID: "u1", DeliveryAddress: validAddress, PaymentMethod: "cash",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(4000), o.TotalCents)
	assert.Equal(t, orders.StatusPlaced, o.Status)
	assert.Equal(t, orders.PaymentCash, o.PaymentMethod)
	assert.Equal(t, fixedNow.Add(DefaultDeliveryWindow), o.EstimatedDelivery)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Qty)
	require.NotNil(t, o.Items[0].Product)
	assert.Equal(t, "Product P1", o.Items[0].Product.Name)

	assert.Equal(t, 2, mustProduct(t, store, "P1").Reserved)
	assert.Empty(t, mustCart(t, store, "u1").Items)

	stored, err := store.Order(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4000), stored.TotalCents)
}

func TestPlace_EmptyCart(t *testing.T) {
	store := newStore()
	store.PutProduct(product("P1", 2000, 10, 0))
	c := newCoordinator(store)
	req := PlaceRequest{UserID: "u1", DeliveryAddress: validAddress, PaymentMethod: "cash"}

	// no cart at all
	_, err := c.Place(context.Background(), req)
	var ece *orders.EmptyCartError
	require.True(t, errors.As(err, &ece), "got %v", err)

	// cart exists but holds nothing
	store.PutCart(cartFor("u1"))
	_, err = c.Place(context.Background(), req)
	require.True(t, errors.As(err, &ece), "got %v", err)

	assert.Zero(t, store.OrderCount())
}

func TestPlace_InsufficientStock(t *testing.T) {
	store := newStore()
	store.PutProduct(product("P1", 2000, 3, 1))
	store.PutCart(cartFor("u1", line("P1", 5, 2000)))

	_, err := newCoordinator(store).Place(context.Background(), PlaceRequest{
		UserID: "u1", DeliveryAddress: validAddress, PaymentMethod: "card",
	})
	var ise *orders.InsufficientStockError
	require.True(t, errors.As(err, &ise), "got %v", err)
	assert.Equal(t, 2, ise.Available)
	assert.Equal(t, 5, ise.Requested)
	assert.Equal(t, "Insufficient stock for Product P1. Available: 2, Requested: 5", err.Error())

	assert.Zero(t, store.OrderCount())
	assert.Equal(t, 1, mustProduct(t, store, "P1").Reserved)
	assert.Len(t, mustCart(t, store, "u1").Items, 1)
}

func TestPlace_ShortAddressRejectedBeforeStoreAccess(t *testing.T) {
	inner := newStore()
	inner.PutProduct(product("P1", 2000, 10, 0))
	inner.PutCart(cartFor("u1", line("P1", 1, 2000)))
	store := &countingStore{Store: inner}

	_, err := newCoordinator(store).Place(context.Background(), PlaceRequest{
		UserID: "u1", DeliveryAddress: "short", PaymentMethod: "cash",
	})
	var ve *orders.ValidationError
	require.True(t, errors.As(err, &ve), "got %v", err)
	assert.Equal(t, "delivery_address", ve.Field)
	assert.Zero(t, store.calls.Load())
}

func TestPlace_AddressIsTrimmedBeforeLengthCheck(t *testing.T) {
	store := newStore()
	_, err := newCoordinator(store).Place(context.Background(), PlaceRequest{
		UserID: "u1", DeliveryAddress: "   9 chars   ", PaymentMethod: "cash",
	})
	var ve *orders.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "delivery_address", ve.Field)
}

func TestPlace_InvalidPaymentMethod(t *testing.T) {
	store := &countingStore{Store: newStore()}
	_, err := newCoordinator(store).Place(context.Background(), PlaceRequest{
		UserID: "u1", DeliveryAddress: validAddress, PaymentMethod: "barter",
	})
	var ve *orders.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "payment_method", ve.Field)
	assert.Zero(t, store.calls.Load())
}

func TestPlace_PaymentMethodNormalized(t *testing.T) {
	store := newStore()
	store.PutProduct(product("P1", 500, 10, 0))
	store.PutCart(cartFor("u1", line("P1", 1, 500)))

	o, err := newCoordinator(store).Place(context.Background(), PlaceRequest{
		UserID: "u1", DeliveryAddress: "  " + validAddress + "  ", PaymentMethod: " CASH ",
	})
	require.NoError(t, err)
	assert.Equal(t, orders.PaymentCash, o.PaymentMethod)
	assert.Equal(t, validAddress, o.DeliveryAddress)
}

func TestPlace_SecondPlacementFromSameCart(t *testing.T) {
	store := newStore()
	store.PutProduct(product("P1", 2000, 10, 0))
	store.PutCart(cartFor("u1", line("P1", 2, 2000)))
	c := newCoordinator(store)
	req := PlaceRequest{UserID: "u1", DeliveryAddress: validAddress, PaymentMethod: "cash"}

	_, err := c.Place(context.Background(), req)
	require.NoError(t, err)

	_, err = c.Place(context.Background(), req)
	var ece *orders.EmptyCartError
	require.True(t, errors.As(err, &ece), "got %v", err)
	assert.Equal(t, 1, store.OrderCount())
	assert.Equal(t, 2, mustProduct(t, store, "P1").Reserved)
}

func TestPlace_CommitsLivePriceNotCartSnapshot(t *testing.T) {
	store := newStore()
	store.PutProduct(product("P1", 2500, 10, 0))
	store.PutProduct(product("P2", 199, 10, 0))
	store.PutCart(cartFor("u1", line("P1", 2, 1800), line("P2", 3, 150)))

	o, err := newCoordinator(store).Place(context.Background(), PlaceRequest{
		UserID: "u1", DeliveryAddress: validAddress, PaymentMethod: "cash",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2500), o.Items[0].PriceCents)
	assert.Equal(t, int64(199), o.Items[1].PriceCents)

	var sum int64
	for _, it := range o.Items {
		sum += it.PriceCents * int64(it.Qty)
	}
	assert.Equal(t, sum, o.TotalCents)
	assert.Equal(t, int64(5597), o.TotalCents)
}

func TestPlace_ReservationFailures(t *testing.T) {
	cases := []struct {
		name  string
		setup func(p *orders.Product)
		check func(t *testing.T, err error)
	}{
		{
			name:  "inactive",
			setup: func(p *orders.Product) { p.Active = false },
			check: func(t *testing.T, err error) {
				var pie *orders.ProductInactiveError
				assert.True(t, errors.As(err, &pie), "got %v", err)
			},
		},
		{
			name:  "zero available",
			setup: func(p *orders.Product) { p.Reserved = p.Stock },
			check: func(t *testing.T, err error) {
				var ise *orders.InsufficientStockError
				require.True(t, errors.As(err, &ise), "got %v", err)
				assert.Equal(t, 0, ise.Available)
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newStore()
			p := product("P1", 1000, 5, 0)
			tc.setup(&p)
			store.PutProduct(p)
			store.PutProduct(product("P0", 1000, 5, 0))
			store.PutCart(cartFor("u1", line("P0", 1, 1000), line("P1", 1, 1000)))

			_, err := newCoordinator(store).Place(context.Background(), PlaceRequest{
				UserID: "u1", DeliveryAddress: validAddress, PaymentMethod: "cash",
			})
			tc.check(t, err)
			assert.Equal(t, 0, mustProduct(t, store, "P0").Reserved)
			assert.Zero(t, store.OrderCount())
		})
	}
}

func TestPlace_MissingProduct(t *testing.T) {
	store := newStore()
	store.PutCart(cartFor("u1", line("ghost", 1, 1000)))

	_, err := newCoordinator(store).Place(context.Background(), PlaceRequest{
		UserID: "u1", DeliveryAddress: validAddress, PaymentMethod: "cash",
	})
	var pnf *orders.ProductNotFoundError
	require.True(t, errors.As(err, &pnf), "got %v", err)
	assert.Equal(t, "ghost", pnf.ProductID)
}

func TestPlace_RollsBackOnFailureAtEveryStep(t *testing.T) {
	const n = 4
	injected := errors.New("injected store failure")

	type target struct{ op, id string }
	var targets []target
	for k := 0; k < n; k++ {
		targets = append(targets, target{"AddReserved", fmt.Sprintf("P%d", k)})
	}
	targets = append(targets, target{"InsertOrder", ""}, target{"ClearCart", "cart-u1"})

	for _, tg := range targets {
		t.Run(tg.op+"/"+tg.id, func(t *testing.T) {
			store := newStore()
			var lines []orders.CartItem
			for k := 0; k < n; k++ {
				id := fmt.Sprintf("P%d", k)
				store.PutProduct(product(id, int64(100*(k+1)), 10, 1))
				lines = append(lines, line(id, 2, 100))
			}
			store.PutCart(cartFor("u1", lines...))
			before := mustCart(t, store, "u1")

			store.Hook = func(op, id string) error {
				if op == tg.op && (tg.id == "" || id == tg.id) {
					return injected
				}
				return nil
			}

			_, err := newCoordinator(store).Place(context.Background(), PlaceRequest{
				UserID: "u1", DeliveryAddress: validAddress, PaymentMethod: "cash",
			})
			require.ErrorIs(t, err, injected)
			var tae *orders.TransactionAbortError
			assert.True(t, errors.As(err, &tae))

			for k := 0; k < n; k++ {
				p := mustProduct(t, store, fmt.Sprintf("P%d", k))
				assert.Equal(t, 1, p.Reserved, "product %s kept a reservation", p.ID)
				assert.LessOrEqual(t, p.Reserved, p.Stock)
			}
			assert.Equal(t, before, mustCart(t, store, "u1"))
			assert.Zero(t, store.OrderCount())
		})
	}
}

func TestPlace_ConcurrentPlacementsOnSameProduct(t *testing.T) {
	store := newStore()
	store.PutProduct(product("P1", 1000, 5, 0))
	store.PutCart(cartFor("u1", line("P1", 3, 1000)))
	store.PutCart(cartFor("u2", line("P1", 3, 1000)))
	c := newCoordinator(store)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, user := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(i int, user string) {
			defer wg.Done()
			_, errs[i] = c.Place(context.Background(), PlaceRequest{
				UserID: user, DeliveryAddress: validAddress, PaymentMethod: "cash",
			})
		}(i, user)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		var ise *orders.InsufficientStockError
		switch {
		case err == nil:
			ok++
		case errors.As(err, &ise):
			short++
			assert.Equal(t, 2, ise.Available)
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)
	assert.Equal(t, 3, mustProduct(t, store, "P1").Reserved)
	assert.Equal(t, 1, store.OrderCount())
}

func TestPlace_ManyConcurrentBuyersNeverOversell(t *testing.T) {
	store := newStore()
	store.PutProduct(product("P1", 1000, 7, 0))
	const buyers = 20
	for i := 0; i < buyers; i++ {
		store.PutCart(cartFor(fmt.Sprintf("u%d", i), line("P1", 1, 1000)))
	}
	c := newCoordinator(store)

	var wg sync.WaitGroup
	var mu sync.Mutex
	placed := 0
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.Place(context.Background(), PlaceRequest{
				UserID: fmt.Sprintf("u%d", i), DeliveryAddress: validAddress, PaymentMethod: "cash",
			})
			if err == nil {
				mu.Lock()
				placed++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	p := mustProduct(t, store, "P1")
	assert.Equal(t, 7, placed)
	assert.Equal(t, 7, p.Reserved)
	assert.LessOrEqual(t, p.Reserved, p.Stock)
}

type outcomeRecorder struct {
	mu       sync.Mutex
	outcomes []string
}

func (o *outcomeRecorder) PlacementFinished(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func TestPlace_ReportsOutcomeToObserver(t *testing.T) {
	store := newStore()
	store.PutProduct(product("P1", 1000, 5, 0))
	store.PutCart(cartFor("u1", line("P1", 1, 1000)))
	rec := &outcomeRecorder{}
	c := &Coordinator{Store: store, Now: clock, Observer: rec}

	_, err := c.Place(context.Background(), PlaceRequest{UserID: "u1", DeliveryAddress: validAddress, PaymentMethod: "cash"})
	require.NoError(t, err)
	_, err = c.Place(context.Background(), PlaceRequest{UserID: "u1", DeliveryAddress: validAddress, PaymentMethod: "cash"})
	require.Error(t, err)

	assert.Equal(t, []string{"committed", "EMPTY_CART"}, rec.outcomes)
}
