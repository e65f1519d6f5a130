package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
)

type errorBody struct {
	Error   string         `json:"error"`
	Code    string         `json:"code"`
	Details map[string]any `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and a body that tells the client what to fix.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := describe(err)
	ev := log.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Ctx(r.Context()).Error()
	}
	ev.Err(err).Str("code", body.Code).Int("status", status).Msg("request failed")
	writeJSON(w, status, body)
}

func describe(err error) (int, errorBody) {
	var (
		ve  *orders.ValidationError
		ece *orders.EmptyCartError
		pnf *orders.ProductNotFoundError
		pie *orders.ProductInactiveError
		ise *orders.InsufficientStockError
		ite *orders.InvalidTransitionError
		fe  *orders.ForbiddenError
		tae *orders.TransactionAbortError
		pse *orders.PaymentSetupError
	)
	body := errorBody{Error: err.Error(), Code: orders.Code(err)}
	switch {
	case errors.As(err, &ve):
		body.Details = map[string]any{"field": ve.Field}
		return http.StatusBadRequest, body
	case errors.As(err, &ece):
		body.Error = "Your cart is empty. Add items before placing an order."
		return http.StatusBadRequest, body
	case errors.As(err, &pnf):
		body.Details = map[string]any{"product_id": pnf.ProductID}
		return http.StatusNotFound, body
	case errors.As(err, &pie):
		body.Details = map[string]any{"product_id": pie.ProductID}
		return http.StatusConflict, body
	case errors.As(err, &ise):
		body.Details = map[string]any{"product_id": ise.ProductID, "available": ise.Available, "requested": ise.Requested}
		return http.StatusConflict, body
	case errors.As(err, &ite):
		body.Details = map[string]any{"from": ite.From, "to": ite.To}
		return http.StatusConflict, body
	case errors.As(err, &fe):
		return http.StatusForbidden, body
	case errors.Is(err, orders.ErrNotFound):
		body.Error = "not found"
		return http.StatusNotFound, body
	case errors.As(err, &pse):
		body.Error = "Payment could not be set up. Please try again."
		return http.StatusBadGateway, body
	case errors.As(err, &tae):
		body.Error = "The order could not be saved. Please try again."
		return http.StatusServiceUnavailable, body
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error", Code: "INTERNAL"}
	}
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &orders.ValidationError{Field: "body", Reason: "invalid json"}
	}
	return nil
}
