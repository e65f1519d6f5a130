package memstore

import (
	"time"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

// DemoCatalog is the small catalog loaded in dev mode and by SEED_CATALOG.
func DemoCatalog(now time.Time) []orders.Product {
	p := func(id, sku, name string, price int64, stock int) orders.Product {
		return orders.Product{
			ID: id, SKU: sku, Name: name, ImageURL: "/img/" + sku + ".jpg",
			PriceCents: price, Stock: stock, Active: true, CreatedAt: now, UpdatedAt: now,
		}
	}
	return []orders.Product{
		p("prod-tee", "TEE-001", "Cotton Tee", 1999, 50),
		p("prod-hoodie", "HOOD-001", "Fleece Hoodie", 4999, 20),
		p("prod-cap", "CAP-001", "Canvas Cap", 1499, 30),
		p("prod-mug", "MUG-001", "Enamel Mug", 1200, 5),
		p("prod-poster", "POST-001", "Launch Poster", 900, 0),
	}
}

// Seed loads products into s.
func (s *Store) Seed(products []orders.Product) {
	for _, p := range products {
		s.PutProduct(p)
	}
}
