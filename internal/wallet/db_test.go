package wallet_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-raffle/internal/models"
	"ms-raffle/internal/wallet"
)

func setupWalletDB(t *testing.T) (*wallet.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()

	for _, model := range []interface{}{
		(*models.User)(nil),
		(*models.WalletTransaction)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	return &wallet.DB{Bun: bunDB}, bunDB
}

func seedUser(t *testing.T, bunDB *bun.DB, id string, balance float64) {
	user := models.User{ID: id, Email: id + "@example.com", FullName: "Test User", WalletBalance: balance}
	_, err := bunDB.NewInsert().Model(&user).Exec(context.Background())
	require.NoError(t, err)
}

func TestDebitReducesBalanceAndLogs(t *testing.T) {
	walletDB, bunDB := setupWalletDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedUser(t, bunDB, "user1", 50)

	require.NoError(t, walletDB.Debit(ctx, "user1", 20, "comp1", "entry1"))

	balance, err := walletDB.GetBalance(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 30.0, balance)

	txns, err := walletDB.GetTransactions(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, models.WalletDebit, txns[0].Type)
	assert.Equal(t, 20.0, txns[0].Amount)
	assert.Equal(t, "entry1", txns[0].EntryID)
}

func TestDebitRejectsOverdraw(t *testing.T) {
	walletDB, bunDB := setupWalletDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedUser(t, bunDB, "user1", 10)

	err := walletDB.Debit(ctx, "user1", 10.01, "comp1", "entry1")
	assert.ErrorIs(t, err, wallet.ErrInsufficientBalance)

	// Balance untouched, nothing logged
	balance, err := walletDB.GetBalance(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, balance)

	txns, err := walletDB.GetTransactions(ctx, "user1")
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestCreditPrizeIsIdempotent(t *testing.T) {
	walletDB, bunDB := setupWalletDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedUser(t, bunDB, "user1", 0)

	credited, err := walletDB.CreditPrize(ctx, "user1", 25, "comp1", "entry1", 99)
	require.NoError(t, err)
	assert.True(t, credited)

	// Same winning ticket again: no second credit
	credited, err = walletDB.CreditPrize(ctx, "user1", 25, "comp1", "entry1", 99)
	require.NoError(t, err)
	assert.False(t, credited)

	balance, err := walletDB.GetBalance(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 25.0, balance)

	txns, err := walletDB.GetTransactions(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestCreditPrizeDistinctTickets(t *testing.T) {
	walletDB, bunDB := setupWalletDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedUser(t, bunDB, "user1", 0)

	credited, err := walletDB.CreditPrize(ctx, "user1", 10, "comp1", "entry1", 1)
	require.NoError(t, err)
	assert.True(t, credited)

	credited, err = walletDB.CreditPrize(ctx, "user1", 15, "comp1", "entry1", 2)
	require.NoError(t, err)
	assert.True(t, credited)

	balance, err := walletDB.GetBalance(ctx, "user1")
	require.NoError(t, err)
	assert.Equal(t, 25.0, balance)
}

func TestDebitsDoNotCollideOnUniqueIndex(t *testing.T) {
	walletDB, bunDB := setupWalletDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedUser(t, bunDB, "user1", 100)

	// Debit rows leave winning_ticket_id NULL, so multiple debits coexist
	// under the unique index
	require.NoError(t, walletDB.Debit(ctx, "user1", 10, "comp1", "entry1"))
	require.NoError(t, walletDB.Debit(ctx, "user1", 10, "comp1", "entry2"))

	txns, err := walletDB.GetTransactions(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, txns, 2)
}
