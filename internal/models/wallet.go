package models

import (
	"time"

	"github.com/uptrace/bun"
)

type WalletTransactionType string

const (
	WalletDebit  WalletTransactionType = "debit"
	WalletCredit WalletTransactionType = "credit"
)

// WalletTransaction is one wallet movement. WinningTicketID is set only on
// prize-credit rows and carries a unique index, so a retried purchase can
// never credit the same winning ticket twice.
type WalletTransaction struct {
	bun.BaseModel `bun:"table:wallet_transactions"`

	ID              string                `bun:"id,pk" json:"id"`
	UserID          string                `bun:"user_id,notnull" json:"user_id"`
	CompetitionID   string                `bun:"competition_id,nullzero" json:"competition_id,omitempty"`
	EntryID         string                `bun:"entry_id,nullzero" json:"entry_id,omitempty"`
	WinningTicketID int64                 `bun:"winning_ticket_id,nullzero,unique" json:"winning_ticket_id,omitempty"`
	Type            WalletTransactionType `bun:"type,notnull" json:"type"`
	Amount          float64               `bun:"amount,notnull" json:"amount"`
	CreatedAt       time.Time             `bun:"created_at,notnull" json:"created_at"`
}
