package db

import (
	"context"
	"database/sql"

	"github.com/uptrace/bun"

	"ms-raffle/internal/models"
)

type DB struct {
	Bun *bun.DB
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

func (d *DB) GetPrizes(ctx context.Context, competitionID string) ([]models.Prize, error) {
	var prizes []models.Prize
	err := d.Bun.NewSelect().
		Model(&prizes).
		Where("competition_id = ?", competitionID).
		Order("phase", "id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return prizes, nil
}

// SaveGeneration writes the winning set and flips the competition's lock flag
// in one transaction. The flag update is conditional on the flag being unset,
// so two concurrent runs cannot both persist a set; with override the prior
// set is deleted first and the flag check is skipped.
func (d *DB) SaveGeneration(ctx context.Context, competitionID string, tickets []models.WinningTicket, override bool) (bool, error) {
	saved := false
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		query := tx.NewUpdate().
			Model((*models.Competition)(nil)).
			Set("winning_tickets_generated = ?", true).
			Where("id = ?", competitionID)
		if !override {
			query = query.Where("winning_tickets_generated = ?", false)
		}
		res, err := query.Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}

		if override {
			_, err = tx.NewDelete().
				Model((*models.WinningTicket)(nil)).
				Where("competition_id = ?", competitionID).
				Exec(ctx)
			if err != nil {
				return err
			}
		}

		if len(tickets) > 0 {
			_, err = tx.NewInsert().
				Model(&tickets).
				Exec(ctx)
			if err != nil {
				return err
			}
		}

		saved = true
		return nil
	})
	return saved, err
}

// GetWinningTickets returns the full winning set for a competition, ordered
// for deterministic output.
func (d *DB) GetWinningTickets(ctx context.Context, competitionID string) ([]models.WinningTicket, error) {
	var tickets []models.WinningTicket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("competition_id = ?", competitionID).
		Order("prize_id", "ticket_number").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}
