package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-storefront-orders/internal/checkout"
	"github.com/ariefcatur/go-storefront-orders/internal/redisx"
)

const HeaderIdempotencyKey = "Idempotency-Key"

// Idempotency is satisfied by *redisx.Idempotency.
type Idempotency interface {
	Claim(ctx context.Context, userID, key string) (orderID string, claimed bool, err error)
	Complete(ctx context.Context, userID, key, orderID string) error
	Release(ctx context.Context, userID, key string) error
}

// StatusCache is satisfied by *redisx.StatusCache.
type StatusCache interface {
	Get(ctx context.Context, orderID string) (redisx.StatusEntry, bool, error)
}

type OrdersHandler struct {
	Checkout  *checkout.Checkout
	Preparer  *checkout.PaymentPreparer
	Lifecycle *checkout.Lifecycle

	// FulfillmentToken guards the warehouse routes. Empty disables them.
	FulfillmentToken string

	// optional
	Idempotency Idempotency
	Status      StatusCache
}

type placeOrderReq struct {
	DeliveryAddress string `json:"delivery_address"`
	PaymentMethod   string `json:"payment_method"`
	PaymentIntentID string `json:"payment_intent_id"`
}

type statusResp struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
	Cached    bool      `json:"cached"`
}

// Register mounts the customer routes; they expect requireUser upstream.
func (h *OrdersHandler) Register(r chi.Router) {
	r.Post("/orders/payment-intent", h.preparePayment)
	r.Post("/orders", h.placeOrder)
	r.Get("/orders", h.listOrders)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
}

// RegisterFulfillment mounts routes called by the warehouse, not by
// customers. Callers authenticate with FulfillmentToken.
func (h *OrdersHandler) RegisterFulfillment(r chi.Router) {
	r.With(requireFulfillment(h.FulfillmentToken)).Post("/orders/{id}/complete", h.completeOrder)
}

func (h *OrdersHandler) preparePayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	p, err := h.Preparer.Prepare(ctx, userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	uid := userID(r)
	key := strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey))
	if key != "" && h.Idempotency != nil {
		existing, claimed, err := h.Idempotency.Claim(ctx, uid, key)
		switch {
		case errors.Is(err, redisx.ErrInFlight):
			writeJSON(w, http.StatusConflict, errorBody{Error: err.Error(), Code: "IDEMPOTENCY_IN_PROGRESS"})
			return
		case err != nil:
			// redis down: the store stays the source of truth, place without the shortcut
			log.Ctx(ctx).Warn().Err(err).Msg("idempotency claim failed")
			key = ""
		case !claimed:
			o, err := h.Lifecycle.Get(ctx, uid, existing)
			if err != nil {
				writeError(w, r, err)
				return
			}
			w.Header().Set("Idempotent-Replayed", "true")
			writeJSON(w, http.StatusOK, o)
			return
		}
	}

	o, err := h.Checkout.Place(ctx, checkout.PlaceRequest{
		UserID:          uid,
		DeliveryAddress: req.DeliveryAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentIntentID: req.PaymentIntentID,
	})
	if key != "" && h.Idempotency != nil {
		// pakai context baru: request ctx bisa saja sudah timeout
		bg, done := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer done()
		if err != nil {
			_ = h.Idempotency.Release(bg, uid, key)
		} else if cerr := h.Idempotency.Complete(bg, uid, key, o.ID); cerr != nil {
			log.Ctx(ctx).Warn().Err(cerr).Str("order_id", o.ID).Msg("idempotency record not saved")
		}
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.Lifecycle.List(r.Context(), userID(r), r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Lifecycle.Get(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// getStatus answers from the projected cache when it can and falls back to
// the store.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	uid := userID(r)

	// 1) coba cache
	if h.Status != nil {
		e, ok, err := h.Status.Get(r.Context(), orderID)
		if err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Str("order_id", orderID).Msg("status cache read failed")
		}
		if ok && e.UserID == uid {
			writeJSON(w, http.StatusOK, statusResp{OrderID: orderID, Status: e.Status, UpdatedAt: e.UpdatedAt, Cached: true})
			return
		}
	}

	// 2) fallback DB
	o, err := h.Lifecycle.Get(r.Context(), uid, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResp{OrderID: o.ID, Status: string(o.Status), UpdatedAt: o.UpdatedAt})
}

func (h *OrdersHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Lifecycle.Cancel(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// completeOrder answers with the status only; the warehouse has no business
// reading the customer's order.
func (h *OrdersHandler) completeOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.Lifecycle.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResp{OrderID: o.ID, Status: string(o.Status), UpdatedAt: o.UpdatedAt})
}

var (
	_ Idempotency = (*redisx.Idempotency)(nil)
	_ StatusCache = (*redisx.StatusCache)(nil)
)
