package payment_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ms-raffle/internal/logger"
	"ms-raffle/internal/models"
	"ms-raffle/internal/payment"
)

// MockStore mocks the payment storage layer
type MockStore struct {
	mock.Mock
}

func (m *MockStore) SavePayment(p *models.Payment) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *MockStore) GetPayment(id string) (*models.Payment, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Payment), args.Error(1)
}

func (m *MockStore) UpdatePayment(p *models.Payment) error {
	args := m.Called(p)
	return args.Error(0)
}

func (m *MockStore) ListPayments(userID string, limit, offset int) ([]*models.Payment, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Payment), args.Error(1)
}

func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockStore) HealthCheck() error {
	args := m.Called()
	return args.Error(0)
}

func settledPayment(userID string, amount float64) *models.Payment {
	return &models.Payment{
		PaymentID:   "pay_1",
		UserID:      userID,
		Status:      models.StatusSuccess,
		Amount:      amount,
		Currency:    "usd",
		CreatedDate: time.Now(),
	}
}

func TestVerifyCaptureAccepted(t *testing.T) {
	store := new(MockStore)
	store.On("GetPayment", "pay_1").Return(settledPayment("user1", 25), nil)

	verifier := payment.NewVerifier(store, logger.NewLogger())
	err := verifier.VerifyCapture(context.Background(), "pay_1", "user1", 25)
	assert.NoError(t, err)
}

func TestVerifyCaptureUnknownRef(t *testing.T) {
	store := new(MockStore)
	store.On("GetPayment", "pay_missing").Return(nil, errors.New("payment not found"))

	verifier := payment.NewVerifier(store, logger.NewLogger())
	err := verifier.VerifyCapture(context.Background(), "pay_missing", "user1", 10)
	assert.ErrorIs(t, err, payment.ErrCaptureNotFound)
}

func TestVerifyCaptureWrongOwner(t *testing.T) {
	store := new(MockStore)
	store.On("GetPayment", "pay_1").Return(settledPayment("someone-else", 25), nil)

	verifier := payment.NewVerifier(store, logger.NewLogger())
	err := verifier.VerifyCapture(context.Background(), "pay_1", "user1", 25)
	assert.ErrorIs(t, err, payment.ErrCaptureNotOwned)
}

func TestVerifyCaptureNotSettled(t *testing.T) {
	pending := settledPayment("user1", 25)
	pending.Status = models.StatusPending

	store := new(MockStore)
	store.On("GetPayment", "pay_1").Return(pending, nil)

	verifier := payment.NewVerifier(store, logger.NewLogger())
	err := verifier.VerifyCapture(context.Background(), "pay_1", "user1", 25)
	assert.ErrorIs(t, err, payment.ErrCaptureNotSettled)
}

func TestVerifyCaptureAmountShort(t *testing.T) {
	store := new(MockStore)
	store.On("GetPayment", "pay_1").Return(settledPayment("user1", 20), nil)

	verifier := payment.NewVerifier(store, logger.NewLogger())
	err := verifier.VerifyCapture(context.Background(), "pay_1", "user1", 20.5)
	assert.ErrorIs(t, err, payment.ErrCaptureTooSmall)

	// Sub-cent float drift is tolerated
	err = verifier.VerifyCapture(context.Background(), "pay_1", "user1", 20.001)
	assert.NoError(t, err)
}
