package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-raffle/internal/models"
)

// ErrInsufficientBalance is returned when a debit would push the wallet
// negative.
var ErrInsufficientBalance = errors.New("insufficient wallet balance")

// DB handles wallet balances and their transaction log. Like the allocator it
// wraps bun.IDB so the checkout transaction can compose it.
type DB struct {
	Bun bun.IDB
}

func (d *DB) GetBalance(ctx context.Context, userID string) (float64, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Column("wallet_balance").
		Where("id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return 0, err
	}
	return user.WalletBalance, nil
}

// Debit takes amount out of the user's wallet for a purchase. The balance
// check rides in the UPDATE's predicate, mirroring the ticket counter, so a
// concurrent debit cannot overdraw.
func (d *DB) Debit(ctx context.Context, userID string, amount float64, competitionID, entryID string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("wallet_balance = wallet_balance - ?", amount).
		Where("id = ?", userID).
		Where("wallet_balance >= ?", amount).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInsufficientBalance
	}

	txn := models.WalletTransaction{
		ID:            uuid.NewString(),
		UserID:        userID,
		CompetitionID: competitionID,
		EntryID:       entryID,
		Type:          models.WalletDebit,
		Amount:        amount,
		CreatedAt:     time.Now(),
	}
	_, err = d.Bun.NewInsert().Model(&txn).Exec(ctx)
	return err
}

// CreditPrize pays a wallet-credit prize into the winner's wallet. The unique
// index on winning_ticket_id makes the insert the idempotency guard: a retry
// for the same winning ticket inserts nothing and credits nothing.
func (d *DB) CreditPrize(ctx context.Context, userID string, amount float64, competitionID, entryID string, winningTicketID int64) (bool, error) {
	txn := models.WalletTransaction{
		ID:              uuid.NewString(),
		UserID:          userID,
		CompetitionID:   competitionID,
		EntryID:         entryID,
		WinningTicketID: winningTicketID,
		Type:            models.WalletCredit,
		Amount:          amount,
		CreatedAt:       time.Now(),
	}
	res, err := d.Bun.NewInsert().
		Model(&txn).
		On("CONFLICT (winning_ticket_id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if rows == 0 {
		return false, nil
	}

	_, err = d.Bun.NewUpdate().
		Model((*models.User)(nil)).
		Set("wallet_balance = wallet_balance + ?", amount).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetTransactions returns a user's wallet history, newest first.
func (d *DB) GetTransactions(ctx context.Context, userID string) ([]models.WalletTransaction, error) {
	var txns []models.WalletTransaction
	err := d.Bun.NewSelect().
		Model(&txns).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return txns, nil
}
