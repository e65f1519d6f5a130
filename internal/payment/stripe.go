package payment

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

type StripeProcessor struct {
	client *paymentintent.Client
}

func NewStripe(secretKey string) *StripeProcessor {
	return &StripeProcessor{client: &paymentintent.Client{
		B:   stripe.GetBackend(stripe.APIBackend),
		Key: secretKey,
	}}
}

func (s *StripeProcessor) CreateIntent(ctx context.Context, p CreateParams) (*Intent, error) {
	if p.AmountCents <= 0 {
		return nil, errors.New("amount must be positive")
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.AmountCents),
		Currency: stripe.String(p.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	pi, err := s.client.New(params)
	if err != nil {
		return nil, err
	}
	log.Ctx(ctx).Debug().Str("payment_intent_id", pi.ID).Int64("amount_cents", pi.Amount).Msg("stripe intent created")
	return fromStripe(pi), nil
}

func (s *StripeProcessor) RetrieveIntent(ctx context.Context, id string) (*Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.client.Get(id, params)
	if err != nil {
		return nil, err
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *Intent {
	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       IntentStatus(pi.Status),
		Metadata:     pi.Metadata,
	}
}
