package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/core/domain"
	"github.com/aaronpeter20/InventoryManagementSystem/internal/port"
)

const paymentKeyPrefix = "payment:"

// PaymentConfirmation is the callback a payment gateway sends once a
// replenishment has been paid.
type PaymentConfirmation struct {
	GatewayOrderID  string
	PaymentID       string
	Signature       string
	ReplenishmentID string
}

type replenishmentPayer interface {
	MarkReplenishmentPaid(ctx context.Context, requestID string) (*domain.Replenishment, error)
}

// PaymentVerifier checks gateway signatures and marks replenishments paid.
type PaymentVerifier struct {
	secret []byte
	idem   port.IdempotencyStore
	ledger replenishmentPayer
}

func NewPaymentVerifier(secret string, idem port.IdempotencyStore, ledger replenishmentPayer) *PaymentVerifier {
	return &PaymentVerifier{secret: []byte(secret), idem: idem, ledger: ledger}
}

// Sign returns the hex HMAC-SHA256 of "orderID|paymentID", the signature the
// gateway attaches to its callback.
func (v *PaymentVerifier) Sign(gatewayOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(gatewayOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (v *PaymentVerifier) Verify(ctx context.Context, c PaymentConfirmation) (*domain.Replenishment, error) {
	if c.GatewayOrderID == "" || c.PaymentID == "" || c.Signature == "" || c.ReplenishmentID == "" {
		return nil, invalid("missing payment details")
	}
	if len(v.secret) == 0 {
		return nil, fmt.Errorf("%w: no gateway secret configured", ErrInvalidSignature)
	}

	expected := v.Sign(c.GatewayOrderID, c.PaymentID)
	if !hmac.Equal([]byte(expected), []byte(c.Signature)) {
		return nil, ErrInvalidSignature
	}

	key := paymentKeyPrefix + c.PaymentID
	ok, err := v.idem.SetIdempotency(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("idempotency check failed: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: payment %s", ErrDuplicatePayment, c.PaymentID)
	}

	r, err := v.ledger.MarkReplenishmentPaid(ctx, c.ReplenishmentID)
	if err != nil {
		// let the gateway retry once the cause is fixed
		if rbErr := v.idem.DeleteIdempotency(ctx, key); rbErr != nil {
			return nil, fmt.Errorf("%w (idempotency rollback failed: %v)", err, rbErr)
		}
		return nil, err
	}
	return r, nil
}
