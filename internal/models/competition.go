package models

import (
	"time"

	"github.com/uptrace/bun"
)

type CompetitionType string

const (
	CompetitionTypeRaffle     CompetitionType = "raffle"
	CompetitionTypeInstantWin CompetitionType = "instant_win"
)

type CompetitionStatus string

const (
	CompetitionStatusDraft     CompetitionStatus = "draft"
	CompetitionStatusActive    CompetitionStatus = "active"
	CompetitionStatusEnded     CompetitionStatus = "ended"
	CompetitionStatusCancelled CompetitionStatus = "cancelled"
)

type Competition struct {
	bun.BaseModel `bun:"table:competitions"`

	ID                      string            `bun:"id,pk" json:"id"`
	Title                   string            `bun:"title,notnull" json:"title"`
	TotalTickets            int64             `bun:"total_tickets,notnull" json:"total_tickets"`
	TicketsSold             int64             `bun:"tickets_sold,notnull,default:0" json:"tickets_sold"`
	TicketPrice             float64           `bun:"ticket_price,notnull" json:"ticket_price"`
	Type                    CompetitionType   `bun:"type,notnull" json:"type"`
	Status                  CompetitionStatus `bun:"status,notnull" json:"status"`
	WinningTicketsGenerated bool              `bun:"winning_tickets_generated,notnull,default:false" json:"winning_tickets_generated"`
	CreatedAt               time.Time         `bun:"created_at,notnull" json:"created_at"`
}

// TicketCounter is the per-competition allocation cursor. TotalTickets is a
// copy of the competition's capacity taken at activation so the conditional
// increment touches a single row.
type TicketCounter struct {
	bun.BaseModel `bun:"table:ticket_counters"`

	CompetitionID    string `bun:"competition_id,pk" json:"competition_id"`
	LastTicketNumber int64  `bun:"last_ticket_number,notnull,default:0" json:"last_ticket_number"`
	TotalTickets     int64  `bun:"total_tickets,notnull" json:"total_tickets"`
}
