package payment

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrIntentNotFound = errors.New("payment intent not found")

// MockProcessor keeps intents in memory. Intents are created in
// requires_payment_method; Confirm stands in for the client-side step.
type MockProcessor struct {
	mu      sync.Mutex
	intents map[string]*Intent

	// FailCreate makes every CreateIntent fail with this error.
	FailCreate error
}

func NewMock() *MockProcessor {
	return &MockProcessor{intents: map[string]*Intent{}}
}

func (m *MockProcessor) CreateIntent(ctx context.Context, p CreateParams) (*Intent, error) {
	if m.FailCreate != nil {
		return nil, m.FailCreate
	}
	if p.AmountCents <= 0 {
		return nil, errors.New("amount must be positive")
	}
	id := "pi_" + uuid.NewString()[:8]
	in := &Intent{
		ID:           id,
		ClientSecret: fmt.Sprintf("%s_secret_%s", id, uuid.NewString()[:8]),
		AmountCents:  p.AmountCents,
		Currency:     p.Currency,
		Status:       StatusRequiresPaymentMethod,
		Metadata:     p.Metadata,
	}

	m.mu.Lock()
	m.intents[id] = in
	m.mu.Unlock()

	log.Ctx(ctx).Info().Str("payment_intent_id", id).Int64("amount_cents", p.AmountCents).Msg("mock payment intent created")
	cp := *in
	return &cp, nil
}

func (m *MockProcessor) RetrieveIntent(_ context.Context, id string) (*Intent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.intents[id]
	if !ok {
		return nil, ErrIntentNotFound
	}
	cp := *in
	return &cp, nil
}

func (m *MockProcessor) Confirm(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.intents[id]
	if !ok {
		return ErrIntentNotFound
	}
	in.Status = StatusSucceeded
	return nil
}
