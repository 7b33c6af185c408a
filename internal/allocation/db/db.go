package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-raffle/internal/models"
)

// DB wraps a bun connection or transaction. The checkout flow constructs one
// per transaction so allocation commits or rolls back with the purchase.
type DB struct {
	Bun bun.IDB
}

// ReserveBlock performs the atomic conditional increment. The WHERE clause
// makes the capacity check and the increment a single statement; zero affected
// rows means the capacity would have been exceeded.
func (d *DB) ReserveBlock(ctx context.Context, competitionID string, count int64) (*models.TicketCounter, bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.TicketCounter)(nil)).
		Set("last_ticket_number = last_ticket_number + ?", count).
		Where("competition_id = ?", competitionID).
		Where("last_ticket_number + ? <= total_tickets", count).
		Exec(ctx)
	if err != nil {
		return nil, false, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if rows == 0 {
		return nil, false, nil
	}

	// Inside the surrounding transaction the row is locked by our update, so
	// this read observes exactly the value we wrote.
	counter, err := d.GetCounter(ctx, competitionID)
	if err != nil {
		return nil, false, err
	}
	return counter, true, nil
}

func (d *DB) GetCounter(ctx context.Context, competitionID string) (*models.TicketCounter, error) {
	var counter models.TicketCounter
	err := d.Bun.NewSelect().
		Model(&counter).
		Where("competition_id = ?", competitionID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &counter, nil
}

func (d *DB) SeedCounter(ctx context.Context, competitionID string, totalTickets int64) error {
	counter := models.TicketCounter{
		CompetitionID:    competitionID,
		LastTicketNumber: 0,
		TotalTickets:     totalTickets,
	}
	_, err := d.Bun.NewInsert().
		Model(&counter).
		On("CONFLICT (competition_id) DO NOTHING").
		Exec(ctx)
	return err
}
