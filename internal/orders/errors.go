package orders

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("not found")

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

type EmptyCartError struct {
	UserID string
}

func (e *EmptyCartError) Error() string {
	return "cannot place order: cart is empty"
}

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

type ProductInactiveError struct {
	ProductID string
	Name      string
}

func (e *ProductInactiveError) Error() string {
	return fmt.Sprintf("product %s is no longer available", displayName(e.Name, e.ProductID))
}

type InsufficientStockError struct {
	ProductID string
	Name      string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Available: %d, Requested: %d",
		displayName(e.Name, e.ProductID), e.Available, e.Requested)
}

// TransactionAbortError means the store could not commit. Nothing was
// persisted, so the whole placement may be retried from scratch.
type TransactionAbortError struct {
	Err error
}

func (e *TransactionAbortError) Error() string {
	return fmt.Sprintf("transaction aborted: %v", e.Err)
}

func (e *TransactionAbortError) Unwrap() error { return e.Err }

type PaymentSetupError struct {
	Reason string
	Err    error
}

func (e *PaymentSetupError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("payment setup failed: %s: %v", e.Reason, e.Err)
	}
	return "payment setup failed: " + e.Reason
}

func (e *PaymentSetupError) Unwrap() error { return e.Err }

// IntentAlreadyUsed reports that an order paid with intentID already exists.
func IntentAlreadyUsed(intentID string) error {
	return &PaymentSetupError{Reason: "payment intent " + intentID + " already paid for another order"}
}

type InvalidTransitionError struct {
	OrderID string
	From    Status
	To      Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s cannot move from %s to %s", e.OrderID, e.From, e.To)
}

type ForbiddenError struct {
	Resource string
}

func (e *ForbiddenError) Error() string {
	return "forbidden: " + e.Resource + " belongs to another user"
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}

// Code is the stable machine-readable name of an error, used in API
// responses, logs and metric labels.
func Code(err error) string {
	var (
		ve  *ValidationError
		ece *EmptyCartError
		pnf *ProductNotFoundError
		pie *ProductInactiveError
		ise *InsufficientStockError
		ite *InvalidTransitionError
		fe  *ForbiddenError
		tae *TransactionAbortError
		pse *PaymentSetupError
	)
	switch {
	case err == nil:
		return "OK"
	case errors.As(err, &ve):
		return "VALIDATION_ERROR"
	case errors.As(err, &ece):
		return "EMPTY_CART"
	case errors.As(err, &pnf):
		return "PRODUCT_NOT_FOUND"
	case errors.As(err, &pie):
		return "PRODUCT_INACTIVE"
	case errors.As(err, &ise):
		return "INSUFFICIENT_STOCK"
	case errors.As(err, &ite):
		return "INVALID_TRANSITION"
	case errors.As(err, &fe):
		return "FORBIDDEN"
	case errors.As(err, &tae):
		return "TRANSACTION_ABORTED"
	case errors.As(err, &pse):
		return "PAYMENT_SETUP_FAILED"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	}
	return "INTERNAL"
}
