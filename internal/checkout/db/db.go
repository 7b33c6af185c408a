package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-raffle/internal/models"
)

type DB struct {
	Bun bun.IDB
}

func (d *DB) GetCompetition(ctx context.Context, id string) (*models.Competition, error) {
	var competition models.Competition
	err := d.Bun.NewSelect().
		Model(&competition).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &competition, nil
}

func (d *DB) CreateEntry(ctx context.Context, entry models.Entry) error {
	_, err := d.Bun.NewInsert().Model(&entry).Exec(ctx)
	return err
}

func (d *DB) GetEntryByID(ctx context.Context, id string) (*models.Entry, error) {
	var entry models.Entry
	err := d.Bun.NewSelect().
		Model(&entry).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// PaymentRefInUse reports whether an entry already consumed a payment
// reference. The unique payment_ref column is the hard guard; this check
// turns the violation into a clean rejection before the insert.
func (d *DB) PaymentRefInUse(ctx context.Context, paymentRef string) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Entry)(nil)).
		Where("payment_ref = ?", paymentRef).
		Exists(ctx)
}

// IncrementTicketsSold bumps the denormalized sold counter with an atomic
// add. The allocator's conditional update already guarantees the bound, so
// no predicate is needed here beyond the id. Returns the updated competition
// so the caller can detect sell-out.
func (d *DB) IncrementTicketsSold(ctx context.Context, competitionID string, count int64) (*models.Competition, error) {
	_, err := d.Bun.NewUpdate().
		Model((*models.Competition)(nil)).
		Set("tickets_sold = tickets_sold + ?", count).
		Where("id = ?", competitionID).
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	return d.GetCompetition(ctx, competitionID)
}

// GetEntriesWithWinningsByUserID returns a user's entries joined with the
// winning tickets each entry claimed, newest entry first.
func (d *DB) GetEntriesWithWinningsByUserID(ctx context.Context, userID string) ([]models.EntryWithWinnings, error) {
	var entries []models.Entry
	err := d.Bun.NewSelect().
		Model(&entries).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return []models.EntryWithWinnings{}, nil
	}

	entryIDs := make([]string, len(entries))
	for i, entry := range entries {
		entryIDs[i] = entry.ID
	}

	var winnings []models.WinningTicket
	err = d.Bun.NewSelect().
		Model(&winnings).
		Where("entry_id IN (?)", bun.In(entryIDs)).
		Order("ticket_number").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	winningsByEntry := make(map[string][]models.WinningTicket)
	for _, wt := range winnings {
		winningsByEntry[wt.EntryID] = append(winningsByEntry[wt.EntryID], wt)
	}

	result := make([]models.EntryWithWinnings, len(entries))
	for i, entry := range entries {
		result[i] = models.EntryWithWinnings{
			Entry:          entry,
			WinningTickets: winningsByEntry[entry.ID],
		}
		if result[i].WinningTickets == nil {
			result[i].WinningTickets = []models.WinningTicket{}
		}
	}
	return result, nil
}
