package orders

import "strings"

type PaymentMethod string

const (
	PaymentCard PaymentMethod = "card"
	PaymentCash PaymentMethod = "cash"
)

// cod is what the storefront client sends for cash on delivery.
var paymentAliases = map[string]PaymentMethod{
	"card": PaymentCard,
	"cash": PaymentCash,
	"cod":  PaymentCash,
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m, ok := paymentAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", &ValidationError{Field: "payment_method", Reason: "must be one of: card, cash"}
	}
	return m, nil
}
