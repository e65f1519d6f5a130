package orders

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPlaced, StatusCompleted))
	assert.True(t, CanTransition(StatusPlaced, StatusCancelled))

	assert.False(t, CanTransition(StatusCompleted, StatusCancelled))
	assert.False(t, CanTransition(StatusCancelled, StatusPlaced))
	assert.False(t, CanTransition(StatusCompleted, StatusPlaced))
	assert.False(t, CanTransition(StatusPlaced, StatusPlaced))
	assert.False(t, CanTransition("pending", StatusCompleted))
}

func TestOrderTransition_RejectsLeavingTerminalState(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o := &Order{ID: "o1", Status: StatusPlaced}

	require.NoError(t, o.Transition(StatusCancelled, now))
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, now, o.UpdatedAt)

	err := o.Transition(StatusCompleted, now.Add(time.Hour))
	var ite *InvalidTransitionError
	require.True(t, errors.As(err, &ite))
	assert.Equal(t, StatusCancelled, ite.From)
	assert.Equal(t, StatusCompleted, ite.To)
	assert.Equal(t, StatusCancelled, o.Status)
	assert.Equal(t, now, o.UpdatedAt)
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus(" Completed ")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, s)

	_, err = ParseStatus("pending")
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestParsePaymentMethod(t *testing.T) {
	cases := map[string]PaymentMethod{
		"card":  PaymentCard,
		" CARD": PaymentCard,
		"Cash":  PaymentCash,
		"cod":   PaymentCash,
	}
	for in, want := range cases {
		got, err := ParsePaymentMethod(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParsePaymentMethod("bitcoin")
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "payment_method", ve.Field)
}
