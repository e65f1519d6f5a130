package payment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockProcessor_Lifecycle(t *testing.T) {
	ctx := context.Background()
	m := NewMock()

	in, err := m.CreateIntent(ctx, CreateParams{AmountCents: 3200, Currency: "usd", Metadata: map[string]string{"user_id": "u1"}})
	require.NoError(t, err)
	assert.Equal(t, StatusRequiresPaymentMethod, in.Status)
	assert.Contains(t, in.ClientSecret, in.ID+"_secret_")

	require.NoError(t, m.Confirm(in.ID))
	got, err := m.RetrieveIntent(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, got.Status)
	assert.Equal(t, "u1", got.Metadata["user_id"])

	_, err = m.RetrieveIntent(ctx, "pi_missing")
	assert.ErrorIs(t, err, ErrIntentNotFound)
	assert.ErrorIs(t, m.Confirm("pi_missing"), ErrIntentNotFound)

	_, err = m.CreateIntent(ctx, CreateParams{AmountCents: 0, Currency: "usd"})
	assert.Error(t, err)
}
