// Package payment talks to the external card processor.
package payment

import "context"

type IntentStatus string

const (
	StatusRequiresPaymentMethod IntentStatus = "requires_payment_method"
	StatusRequiresConfirmation  IntentStatus = "requires_confirmation"
	StatusProcessing            IntentStatus = "processing"
	StatusSucceeded             IntentStatus = "succeeded"
	StatusCanceled              IntentStatus = "canceled"
)

type Intent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
	Currency     string
	Status       IntentStatus
	Metadata     map[string]string
}

type CreateParams struct {
	AmountCents int64
	Currency    string
	Metadata    map[string]string
}

// Processor registers charge amounts and reports on client-side confirmations.
type Processor interface {
	CreateIntent(ctx context.Context, p CreateParams) (*Intent, error)
	RetrieveIntent(ctx context.Context, id string) (*Intent, error)
}
