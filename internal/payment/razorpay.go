// Package payment talks to the Razorpay gateway: raising orders for paid
// sessions and verifying the signed confirmation the client posts back.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
	"github.com/rs/zerolog"
)

// ErrSignatureMismatch means the confirmation was not signed with our key
// secret: a forged or corrupted callback. Never treated as success.
var ErrSignatureMismatch = errors.New("payment signature mismatch")

// Intent is the client-facing handle for an outstanding charge.
type Intent struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// Client wraps the Razorpay SDK with our verification logic.
type Client struct {
	keyID     string
	keySecret string
	rz        *razorpay.Client
	logger    *zerolog.Logger
}

// New builds a gateway client. keyID and keySecret must be non-empty.
func New(keyID, keySecret string, logger *zerolog.Logger) (*Client, error) {
	if keyID == "" || keySecret == "" {
		return nil, errors.New("payment credentials missing")
	}
	return &Client{
		keyID:     keyID,
		keySecret: keySecret,
		rz:        razorpay.NewClient(keyID, keySecret),
		logger:    logger,
	}, nil
}

// CreateOrder raises a gateway order for the given amount and returns the
// intent handed to the client checkout.
func (c *Client) CreateOrder(amountMinor int64, currency string) (*Intent, error) {
	data := map[string]interface{}{
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  uuid.New().String(),
	}

	body, err := c.rz.Order.Create(data, nil)
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	orderID, ok := body["id"].(string)
	if !ok || orderID == "" {
		return nil, errors.New("gateway order response missing id")
	}

	c.logger.Info().Str("order_id", orderID).Int64("amount", amountMinor).Msg("Gateway order created")

	return &Intent{
		OrderID:  orderID,
		Amount:   amountMinor,
		Currency: currency,
		KeyID:    c.keyID,
	}, nil
}

// VerifySignature checks the HMAC-SHA256 signature Razorpay computes over
// "order_id|payment_id" with the key secret.
func (c *Client) VerifySignature(orderID, paymentID, signature string) error {
	expected := signPayload(c.keySecret, orderID, paymentID)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureMismatch
	}
	return nil
}

func signPayload(secret, orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}
