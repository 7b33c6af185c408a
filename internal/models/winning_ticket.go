package models

import (
	"time"

	"github.com/uptrace/bun"
)

type WinningTicketStatus string

const (
	WinningTicketAvailable WinningTicketStatus = "available"
	WinningTicketClaimed   WinningTicketStatus = "claimed"
)

// WinningTicket is one pre-drawn winning ticket number. A prize with
// total_quantity N expands into N rows. (competition_id, ticket_number) is
// unique, and the available→claimed transition happens exactly once.
type WinningTicket struct {
	bun.BaseModel `bun:"table:winning_tickets"`

	ID              int64               `bun:"id,pk,autoincrement" json:"id"`
	CompetitionID   string              `bun:"competition_id,notnull" json:"competition_id"`
	PrizeID         string              `bun:"prize_id,notnull" json:"prize_id"`
	TicketNumber    int64               `bun:"ticket_number,notnull" json:"ticket_number"`
	Status          WinningTicketStatus `bun:"status,notnull" json:"status"`
	ClaimedByUserID string              `bun:"claimed_by_user_id,nullzero" json:"claimed_by_user_id,omitempty"`
	ClaimedAt       time.Time           `bun:"claimed_at,nullzero" json:"claimed_at,omitempty"`
	EntryID         string              `bun:"entry_id,nullzero" json:"entry_id,omitempty"`
}

// ClaimedTicket is what the claim processor reports back to the checkout flow.
type ClaimedTicket struct {
	TicketNumber   int64   `json:"ticket_number"`
	PrizeID        string  `json:"prize_id"`
	PrizeName      string  `json:"prize_name"`
	IsWalletCredit bool    `json:"is_wallet_credit"`
	CreditAmount   float64 `json:"credit_amount,omitempty"`
	WinningID      int64   `json:"-"`
}
