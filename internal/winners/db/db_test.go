package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"

	"ms-raffle/internal/models"
	"ms-raffle/internal/winners/db"
)

func setupWinnersDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ctx := context.Background()

	for _, model := range []interface{}{
		(*models.Competition)(nil),
		(*models.Prize)(nil),
		(*models.WinningTicket)(nil),
	} {
		if _, err := bunDB.NewCreateTable().Model(model).Exec(ctx); err != nil {
			t.Fatalf("Failed to create table: %v", err)
		}
	}

	competition := models.Competition{
		ID:           "comp1",
		Title:        "Test Competition",
		TotalTickets: 90,
		TicketPrice:  1,
		Type:         models.CompetitionTypeInstantWin,
		Status:       models.CompetitionStatusDraft,
		CreatedAt:    time.Now(),
	}
	if _, err := bunDB.NewInsert().Model(&competition).Exec(ctx); err != nil {
		t.Fatalf("Failed to seed competition: %v", err)
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func winningSet(numbers ...int64) []models.WinningTicket {
	tickets := make([]models.WinningTicket, len(numbers))
	for i, n := range numbers {
		tickets[i] = models.WinningTicket{
			CompetitionID: "comp1",
			PrizeID:       "p1",
			TicketNumber:  n,
			Status:        models.WinningTicketAvailable,
		}
	}
	return tickets
}

func TestSaveGenerationFirstRun(t *testing.T) {
	winnersDB, bunDB := setupWinnersDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	saved, err := winnersDB.SaveGeneration(ctx, "comp1", winningSet(3, 17, 42), false)
	require.NoError(t, err)
	assert.True(t, saved)

	competition, err := winnersDB.GetCompetition(ctx, "comp1")
	require.NoError(t, err)
	assert.True(t, competition.WinningTicketsGenerated)

	tickets, err := winnersDB.GetWinningTickets(ctx, "comp1")
	require.NoError(t, err)
	assert.Len(t, tickets, 3)
}

func TestSaveGenerationSecondRunBlocked(t *testing.T) {
	winnersDB, bunDB := setupWinnersDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	saved, err := winnersDB.SaveGeneration(ctx, "comp1", winningSet(3), false)
	require.NoError(t, err)
	require.True(t, saved)

	// Without override the flag blocks a second set
	saved, err = winnersDB.SaveGeneration(ctx, "comp1", winningSet(50), false)
	require.NoError(t, err)
	assert.False(t, saved)

	tickets, err := winnersDB.GetWinningTickets(ctx, "comp1")
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, int64(3), tickets[0].TicketNumber)
}

func TestSaveGenerationOverrideReplacesSet(t *testing.T) {
	winnersDB, bunDB := setupWinnersDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	saved, err := winnersDB.SaveGeneration(ctx, "comp1", winningSet(3, 17), false)
	require.NoError(t, err)
	require.True(t, saved)

	saved, err = winnersDB.SaveGeneration(ctx, "comp1", winningSet(50, 60, 70), true)
	require.NoError(t, err)
	assert.True(t, saved)

	tickets, err := winnersDB.GetWinningTickets(ctx, "comp1")
	require.NoError(t, err)
	require.Len(t, tickets, 3)
	assert.Equal(t, int64(50), tickets[0].TicketNumber)
	assert.Equal(t, int64(60), tickets[1].TicketNumber)
	assert.Equal(t, int64(70), tickets[2].TicketNumber)
}

func TestGetPrizesOrdered(t *testing.T) {
	winnersDB, bunDB := setupWinnersDB(t)
	defer bunDB.Close()
	ctx := context.Background()

	prizes := []models.Prize{
		{ID: "b", CompetitionID: "comp1", Name: "Phase 2 Prize", Phase: 2, TotalQuantity: 1, IsInstantWin: true},
		{ID: "a", CompetitionID: "comp1", Name: "Phase 1 Prize", Phase: 1, TotalQuantity: 1, IsInstantWin: true},
	}
	_, err := bunDB.NewInsert().Model(&prizes).Exec(ctx)
	require.NoError(t, err)

	got, err := winnersDB.GetPrizes(ctx, "comp1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "b", got[1].ID)
}
