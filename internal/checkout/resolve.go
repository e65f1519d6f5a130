package checkout

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

type productLookup interface {
	ProductsByID(ctx context.Context, ids []string) (map[string]orders.Product, error)
}

// resolveProducts attaches display fields to order lines. Missing products
// and lookup failures leave the line unresolved.
func resolveProducts(ctx context.Context, store productLookup, list ...*orders.Order) {
	seen := map[string]bool{}
	var ids []string
	for _, o := range list {
		for _, it := range o.Items {
			if !seen[it.ProductID] {
				seen[it.ProductID] = true
				ids = append(ids, it.ProductID)
			}
		}
	}
	if len(ids) == 0 {
		return
	}

	products, err := store.ProductsByID(ctx, ids)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("resolve order products")
		return
	}
	for _, o := range list {
		for i := range o.Items {
			if p, ok := products[o.Items[i].ProductID]; ok {
				o.Items[i].Product = p.Ref()
			}
		}
	}
}
