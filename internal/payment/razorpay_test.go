package payment

import (
	"io"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresCredentials(t *testing.T) {
	logger := zerolog.New(io.Discard)

	_, err := New("", "secret", &logger)
	assert.Error(t, err)

	_, err = New("key", "", &logger)
	assert.Error(t, err)

	c, err := New("key", "secret", &logger)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestVerifySignature(t *testing.T) {
	logger := zerolog.New(io.Discard)
	c, err := New("rzp_test_key", "rzp_test_secret", &logger)
	require.NoError(t, err)

	orderID := "order_Nxy123"
	paymentID := "pay_Nab456"
	valid := signPayload("rzp_test_secret", orderID, paymentID)

	assert.NoError(t, c.VerifySignature(orderID, paymentID, valid))

	// Tampered signature.
	assert.ErrorIs(t, c.VerifySignature(orderID, paymentID, valid+"00"), ErrSignatureMismatch)

	// Signature for a different order does not transfer.
	other := signPayload("rzp_test_secret", "order_other", paymentID)
	assert.ErrorIs(t, c.VerifySignature(orderID, paymentID, other), ErrSignatureMismatch)

	// Signed with the wrong secret.
	wrongKey := signPayload("other_secret", orderID, paymentID)
	assert.ErrorIs(t, c.VerifySignature(orderID, paymentID, wrongKey), ErrSignatureMismatch)
}
