package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Entry records one purchase transaction and the contiguous block of ticket
// numbers it was allocated. payment_ref is unique (NULL when wallet-funded)
// so a card capture can fund at most one entry.
type Entry struct {
	bun.BaseModel `bun:"table:entries"`

	ID            string    `bun:"id,pk" json:"id"`
	CompetitionID string    `bun:"competition_id,notnull" json:"competition_id"`
	UserID        string    `bun:"user_id,notnull" json:"user_id"`
	TicketNumbers []int64   `bun:"ticket_numbers,array" json:"ticket_numbers"`
	TicketStart   int64     `bun:"ticket_start,notnull" json:"ticket_start"`
	TicketEnd     int64     `bun:"ticket_end,notnull" json:"ticket_end"`
	Quantity      int       `bun:"quantity,notnull" json:"quantity"`
	AmountPaid    float64   `bun:"amount_paid,notnull" json:"amount_paid"`
	WalletAmount  float64   `bun:"wallet_amount,notnull,default:0" json:"wallet_amount"`
	CardAmount    float64   `bun:"card_amount,notnull,default:0" json:"card_amount"`
	PaymentRef    string    `bun:"payment_ref,nullzero,unique" json:"payment_ref,omitempty"`
	CreatedAt     time.Time `bun:"created_at,notnull" json:"created_at"`
}

// EntryWithWinnings joins an entry with the winning tickets it claimed, for
// the "my entries" query.
type EntryWithWinnings struct {
	Entry          Entry           `json:"entry"`
	WinningTickets []WinningTicket `json:"winning_tickets"`
}

type PurchaseRequest struct {
	Quantity   int    `json:"quantity"`
	PaymentRef string `json:"payment_ref,omitempty"`
}

type PurchaseResult struct {
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
	CompetitionID  string          `json:"competition_id"`
	EntryID        string          `json:"entry_id,omitempty"`
	TicketNumbers  []int64         `json:"ticket_numbers,omitempty"`
	WinningTickets []ClaimedTicket `json:"winning_tickets,omitempty"`
}

type CheckoutItem struct {
	CompetitionID string `json:"competition_id"`
	Quantity      int    `json:"quantity"`
}

type CheckoutRequest struct {
	Items      []CheckoutItem `json:"items"`
	PaymentRef string         `json:"payment_ref,omitempty"`
}

// CheckoutResponse aggregates per-item results. Items are independent
// transactions, so one failed item does not undo a committed sibling.
type CheckoutResponse struct {
	Results []PurchaseResult `json:"results"`
}
