package checkout

import (
	"context"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-storefront-orders/internal/orders"
	"github.com/ariefcatur/go-storefront-orders/internal/payment"
)

const (
	metaUserID    = "user_id"
	metaItemCount = "item_count"
)

var (
	DefaultShipping = decimal.NewFromInt(10)
	DefaultTaxRate  = decimal.RequireFromString("0.10")
)

// Quote is the charge for a cart: subtotal at live prices, flat shipping,
// and tax on the subtotal.
type Quote struct {
	SubtotalCents int64  `json:"subtotal_cents"`
	ShippingCents int64  `json:"shipping_cents"`
	TaxCents      int64  `json:"tax_cents"`
	AmountCents   int64  `json:"amount_cents"`
	Currency      string `json:"currency"`
	ItemCount     int    `json:"item_count"`
}

type PreparedPayment struct {
	ClientSecret    string `json:"client_secret"`
	PaymentIntentID string `json:"payment_intent_id"`
	Quote
}

// Pricing turns an order subtotal into the amount charged to the card.
// The preparer and the card strategy must share one Pricing, otherwise no
// intent ever matches the order it pays for.
type Pricing struct {
	Shipping decimal.Decimal // in currency units, e.g. 10.00
	TaxRate  decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{Shipping: DefaultShipping, TaxRate: DefaultTaxRate}
}

// Charge splits the amount due for subtotalCents. Tax is on the subtotal
// only and rounds half up to the cent.
func (p Pricing) Charge(subtotalCents int64) (shipping, tax, amount int64) {
	sub := decimal.NewFromInt(subtotalCents)
	s := p.Shipping.Shift(2).Round(0)
	t := sub.Mul(p.TaxRate).Round(0)
	return s.IntPart(), t.IntPart(), sub.Add(s).Add(t).IntPart()
}

// PaymentPreparer registers a cart's charge with the processor. It holds no
// locks and is not part of any placement transaction.
type PaymentPreparer struct {
	Store     orders.Store
	Processor payment.Processor
	Currency  string
	Pricing
}

func NewPaymentPreparer(store orders.Store, proc payment.Processor) *PaymentPreparer {
	return &PaymentPreparer{
		Store:     store,
		Processor: proc,
		Currency:  "usd",
		Pricing:   DefaultPricing(),
	}
}

func (p *PaymentPreparer) Quote(ctx context.Context, userID string) (*Quote, error) {
	cart, err := readPlaceableCart(ctx, p.Store, userID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(cart.Items))
	for _, it := range cart.Items {
		ids = append(ids, it.ProductID)
	}
	products, err := p.Store.ProductsByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	var subtotal int64
	for _, it := range cart.Items {
		prod, ok := products[it.ProductID]
		if !ok {
			return nil, &orders.ProductNotFoundError{ProductID: it.ProductID}
		}
		if !prod.Active {
			return nil, &orders.ProductInactiveError{ProductID: prod.ID, Name: prod.Name}
		}
		subtotal += prod.PriceCents * int64(it.Qty)
	}

	shipping, tax, amount := p.Charge(subtotal)
	return &Quote{
		SubtotalCents: subtotal,
		ShippingCents: shipping,
		TaxCents:      tax,
		AmountCents:   amount,
		Currency:      p.Currency,
		ItemCount:     len(cart.Items),
	}, nil
}

// Prepare computes the quote and creates the payment intent. Processor
// failures come back as *orders.PaymentSetupError.
func (p *PaymentPreparer) Prepare(ctx context.Context, userID string) (*PreparedPayment, error) {
	q, err := p.Quote(ctx, userID)
	if err != nil {
		return nil, err
	}
	intent, err := p.Processor.CreateIntent(ctx, payment.CreateParams{
		AmountCents: q.AmountCents,
		Currency:    q.Currency,
		Metadata: map[string]string{
			metaUserID:    userID,
			metaItemCount: strconv.Itoa(q.ItemCount),
		},
	})
	if err != nil {
		return nil, &orders.PaymentSetupError{Reason: "processor rejected payment intent", Err: err}
	}
	if intent.ClientSecret == "" {
		return nil, &orders.PaymentSetupError{Reason: "processor returned no client secret for " + intent.ID}
	}
	return &PreparedPayment{ClientSecret: intent.ClientSecret, PaymentIntentID: intent.ID, Quote: *q}, nil
}
