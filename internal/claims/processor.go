package claims

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-raffle/internal/models"
)

// Processor transitions winning tickets from available to claimed when a
// purchase allocates their numbers. It always runs on the same transaction
// as the allocation that produced the numbers.
type Processor struct{}

func NewProcessor() *Processor {
	return &Processor{}
}

// ClaimMatching finds the available winning tickets among the allocated
// numbers and claims them for the given entry. Each claim is a conditional
// update guarded by status = 'available': a row lost to a concurrent
// transaction affects zero rows and is skipped silently rather than treated
// as an error. Returns only the tickets actually claimed here.
func (p *Processor) ClaimMatching(ctx context.Context, idb bun.IDB, competitionID string, ticketNumbers []int64, entryID, userID string) ([]models.ClaimedTicket, error) {
	if len(ticketNumbers) == 0 {
		return nil, nil
	}

	var candidates []models.WinningTicket
	err := idb.NewSelect().
		Model(&candidates).
		Where("competition_id = ?", competitionID).
		Where("ticket_number IN (?)", bun.In(ticketNumbers)).
		Where("status = ?", models.WinningTicketAvailable).
		Order("ticket_number").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	prizes, err := p.prizesByID(ctx, idb, candidates)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	claimed := make([]models.ClaimedTicket, 0, len(candidates))
	for _, ticket := range candidates {
		res, err := idb.NewUpdate().
			Model((*models.WinningTicket)(nil)).
			Set("status = ?", models.WinningTicketClaimed).
			Set("claimed_by_user_id = ?", userID).
			Set("claimed_at = ?", now).
			Set("entry_id = ?", entryID).
			Where("id = ?", ticket.ID).
			Where("status = ?", models.WinningTicketAvailable).
			Exec(ctx)
		if err != nil {
			return nil, err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			// Lost the race to a concurrent claim; not ours to report.
			continue
		}

		prize := prizes[ticket.PrizeID]
		claimed = append(claimed, models.ClaimedTicket{
			TicketNumber:   ticket.TicketNumber,
			PrizeID:        ticket.PrizeID,
			PrizeName:      prize.Name,
			IsWalletCredit: prize.IsWalletCredit,
			CreditAmount:   prize.CreditAmount,
			WinningID:      ticket.ID,
		})
	}
	return claimed, nil
}

func (p *Processor) prizesByID(ctx context.Context, idb bun.IDB, tickets []models.WinningTicket) (map[string]models.Prize, error) {
	ids := make([]string, 0, len(tickets))
	seen := make(map[string]bool)
	for _, t := range tickets {
		if !seen[t.PrizeID] {
			seen[t.PrizeID] = true
			ids = append(ids, t.PrizeID)
		}
	}

	var prizes []models.Prize
	err := idb.NewSelect().
		Model(&prizes).
		Where("id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Prize, len(prizes))
	for _, prize := range prizes {
		byID[prize.ID] = prize
	}
	return byID, nil
}
