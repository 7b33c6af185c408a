package payment

import (
	"context"
	"errors"
	"fmt"

	"ms-raffle/internal/logger"
	"ms-raffle/internal/models"
	"ms-raffle/internal/payment/storage"
)

var (
	ErrCaptureNotFound   = errors.New("payment reference not found")
	ErrCaptureNotOwned   = errors.New("payment reference belongs to another user")
	ErrCaptureNotSettled = errors.New("payment has not been captured")
	ErrCaptureTooSmall   = errors.New("captured amount does not cover the price")
)

// Cent-level tolerance for comparing money stored as float64.
const amountEpsilon = 0.005

// Verifier is the checkout payment gate: a purchase that needs card money may
// only proceed against a capture that already settled for this user.
type Verifier struct {
	Store  storage.Store
	Logger *logger.Logger
}

func NewVerifier(store storage.Store, log *logger.Logger) *Verifier {
	return &Verifier{Store: store, Logger: log}
}

// VerifyCapture checks that paymentRef names a settled capture owned by
// userID covering at least amount.
func (v *Verifier) VerifyCapture(ctx context.Context, paymentRef, userID string, amount float64) error {
	payment, err := v.Store.GetPayment(paymentRef)
	if err != nil {
		v.Logger.Warn("PAYMENT", fmt.Sprintf("Capture lookup failed for ref %s: %v", paymentRef, err))
		return ErrCaptureNotFound
	}
	if payment.UserID != userID {
		v.Logger.Warn("PAYMENT", fmt.Sprintf("Capture %s presented by user %s but owned by %s", paymentRef, userID, payment.UserID))
		return ErrCaptureNotOwned
	}
	if payment.Status != models.StatusSuccess {
		return fmt.Errorf("%w: status is %s", ErrCaptureNotSettled, payment.Status)
	}
	if payment.Amount+amountEpsilon < amount {
		return fmt.Errorf("%w: captured %.2f, need %.2f", ErrCaptureTooSmall, payment.Amount, amount)
	}

	v.Logger.Info("PAYMENT", fmt.Sprintf("Capture %s verified for user %s (%.2f %s)", paymentRef, userID, payment.Amount, payment.Currency))
	return nil
}
