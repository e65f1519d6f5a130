package httpx

import (
	"github.com/go-chi/chi/v5"
)

// Mount wires the handlers onto r. The catalog is open, fulfillment routes
// need the shared token, cart and customer order routes need a user.
func Mount(r chi.Router, products *ProductsHandler, carts *CartHandler, ords *OrdersHandler) {
	products.Register(r)
	ords.RegisterFulfillment(r)
	r.Group(func(r chi.Router) {
		r.Use(requireUser)
		carts.Register(r)
		ords.Register(r)
	})
}
