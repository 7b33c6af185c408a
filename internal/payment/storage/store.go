package storage

import (
	"ms-raffle/internal/models"
)

type Store interface {
	// Payment operations
	SavePayment(payment *models.Payment) error
	GetPayment(id string) (*models.Payment, error)
	UpdatePayment(payment *models.Payment) error
	ListPayments(userID string, limit, offset int) ([]*models.Payment, error)

	// Health and maintenance
	Close() error
	HealthCheck() error
}
