package claims_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-raffle/internal/claims"
	"ms-raffle/internal/models"
)

func setupClaimsDB(t *testing.T) *bun.DB {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()

	for _, model := range []interface{}{
		(*models.WinningTicket)(nil),
		(*models.Prize)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	return bunDB
}

func seedWinningTicket(t *testing.T, bunDB *bun.DB, prizeID string, number int64) {
	ticket := models.WinningTicket{
		CompetitionID: "comp1",
		PrizeID:       prizeID,
		TicketNumber:  number,
		Status:        models.WinningTicketAvailable,
	}
	_, err := bunDB.NewInsert().Model(&ticket).Exec(context.Background())
	require.NoError(t, err)
}

func seedPrize(t *testing.T, bunDB *bun.DB, prize models.Prize) {
	_, err := bunDB.NewInsert().Model(&prize).Exec(context.Background())
	require.NoError(t, err)
}

func TestClaimMatchingClaimsOnlyAllocatedWinners(t *testing.T) {
	bunDB := setupClaimsDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedPrize(t, bunDB, models.Prize{ID: "p1", CompetitionID: "comp1", Name: "Earbuds", Phase: 1, TotalQuantity: 2, IsInstantWin: true})
	seedWinningTicket(t, bunDB, "p1", 5)
	seedWinningTicket(t, bunDB, "p1", 42)

	processor := claims.NewProcessor()
	claimed, err := processor.ClaimMatching(ctx, bunDB, "comp1", []int64{3, 4, 5, 6}, "entry1", "user1")
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, int64(5), claimed[0].TicketNumber)
	assert.Equal(t, "p1", claimed[0].PrizeID)
	assert.Equal(t, "Earbuds", claimed[0].PrizeName)

	// Ticket 42 was not in the allocated block, so it stays available
	var remaining models.WinningTicket
	err = bunDB.NewSelect().Model(&remaining).Where("ticket_number = ?", 42).Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.WinningTicketAvailable, remaining.Status)

	// The claimed row carries the entry and user
	var won models.WinningTicket
	err = bunDB.NewSelect().Model(&won).Where("ticket_number = ?", 5).Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.WinningTicketClaimed, won.Status)
	assert.Equal(t, "user1", won.ClaimedByUserID)
	assert.Equal(t, "entry1", won.EntryID)
	assert.False(t, won.ClaimedAt.IsZero())
}

func TestClaimMatchingIsIdempotentPerTicket(t *testing.T) {
	bunDB := setupClaimsDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedPrize(t, bunDB, models.Prize{ID: "p1", CompetitionID: "comp1", Name: "Credit", Phase: 1, TotalQuantity: 1, IsInstantWin: true, IsWalletCredit: true, CreditAmount: 10})
	seedWinningTicket(t, bunDB, "p1", 7)

	processor := claims.NewProcessor()
	first, err := processor.ClaimMatching(ctx, bunDB, "comp1", []int64{7}, "entry1", "user1")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, first[0].IsWalletCredit)
	assert.Equal(t, 10.0, first[0].CreditAmount)

	// A second claim over the same number finds nothing available
	second, err := processor.ClaimMatching(ctx, bunDB, "comp1", []int64{7}, "entry2", "user2")
	require.NoError(t, err)
	assert.Empty(t, second)

	// The original claim is untouched
	var won models.WinningTicket
	err = bunDB.NewSelect().Model(&won).Where("ticket_number = ?", 7).Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, "user1", won.ClaimedByUserID)
}

func TestClaimMatchingEmptyInput(t *testing.T) {
	bunDB := setupClaimsDB(t)
	defer bunDB.Close()

	processor := claims.NewProcessor()
	claimed, err := processor.ClaimMatching(context.Background(), bunDB, "comp1", nil, "entry1", "user1")
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestClaimMatchingIgnoresOtherCompetitions(t *testing.T) {
	bunDB := setupClaimsDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	seedPrize(t, bunDB, models.Prize{ID: "p1", CompetitionID: "comp2", Name: "Console", Phase: 1, TotalQuantity: 1, IsInstantWin: true})
	ticket := models.WinningTicket{
		CompetitionID: "comp2",
		PrizeID:       "p1",
		TicketNumber:  5,
		Status:        models.WinningTicketAvailable,
	}
	_, err := bunDB.NewInsert().Model(&ticket).Exec(ctx)
	require.NoError(t, err)

	processor := claims.NewProcessor()
	claimed, err := processor.ClaimMatching(ctx, bunDB, "comp1", []int64{5}, "entry1", "user1")
	require.NoError(t, err)
	assert.Empty(t, claimed)
}
