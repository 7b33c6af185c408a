package models

import (
	"time"
)

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "pending"
	StatusSuccess   PaymentStatus = "success"
	StatusFailed    PaymentStatus = "failed"
	StatusRefunded  PaymentStatus = "refunded"
	StatusCancelled PaymentStatus = "cancelled"
)

// Payment is one card capture attempt. PaymentID doubles as the payment_ref a
// purchase request presents; checkout only proceeds once the row is success.
type Payment struct {
	PaymentID     string        `json:"payment_id" bun:"payment_id,pk"`
	UserID        string        `json:"user_id" bun:"user_id"`
	Status        PaymentStatus `json:"status" bun:"status"`
	Amount        float64       `json:"amount" bun:"amount"`
	Currency      string        `json:"currency" bun:"currency"`
	TransactionID string        `json:"transaction_id,omitempty" bun:"transaction_id,nullzero"`
	CreatedDate   time.Time     `json:"created_date" bun:"created_date"`
	UpdatedDate   time.Time     `json:"updated_date,omitempty" bun:"updated_date,nullzero"`
}

type PaymentEvent struct {
	Type      string    `json:"type"`
	PaymentID string    `json:"payment_id"`
	Payment   *Payment  `json:"payment"`
	Timestamp time.Time `json:"timestamp"`
}
