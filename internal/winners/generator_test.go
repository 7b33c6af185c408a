package winners_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ms-raffle/internal/logger"
	"ms-raffle/internal/models"
	"ms-raffle/internal/winners"
)

// MockDB mocks the generator's database layer
type MockDB struct {
	mock.Mock
}

func (m *MockDB) GetCompetition(ctx context.Context, id string) (*models.Competition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Competition), args.Error(1)
}

func (m *MockDB) GetPrizes(ctx context.Context, competitionID string) ([]models.Prize, error) {
	args := m.Called(ctx, competitionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Prize), args.Error(1)
}

func (m *MockDB) SaveGeneration(ctx context.Context, competitionID string, tickets []models.WinningTicket, override bool) (bool, error) {
	args := m.Called(ctx, competitionID, tickets, override)
	return args.Bool(0), args.Error(1)
}

// MockLock mocks the redis generation lock
type MockLock struct {
	mock.Mock
}

func (m *MockLock) Acquire(competitionID string) (bool, error) {
	args := m.Called(competitionID)
	return args.Bool(0), args.Error(1)
}

func (m *MockLock) Release(competitionID string) error {
	args := m.Called(competitionID)
	return args.Error(0)
}

func newTestGenerator(db *MockDB, lock *MockLock) *winners.Generator {
	return winners.NewGeneratorWithRand(db, lock, logger.NewLogger(), rand.New(rand.NewSource(42)))
}

func instantWinCompetition(total int64) *models.Competition {
	return &models.Competition{
		ID:           "comp1",
		Title:        "Test Competition",
		TotalTickets: total,
		Type:         models.CompetitionTypeInstantWin,
		Status:       models.CompetitionStatusDraft,
	}
}

func TestPhaseBounds(t *testing.T) {
	assert.Equal(t, winners.PhaseRange{Start: 1, End: 333}, winners.PhaseBounds(1000, 1))
	assert.Equal(t, winners.PhaseRange{Start: 334, End: 666}, winners.PhaseBounds(1000, 2))
	assert.Equal(t, winners.PhaseRange{Start: 667, End: 1000}, winners.PhaseBounds(1000, 3))

	// Ranges tile the whole space with no gap or overlap
	for _, total := range []int64{3, 10, 99, 1000, 1001} {
		p1 := winners.PhaseBounds(total, 1)
		p2 := winners.PhaseBounds(total, 2)
		p3 := winners.PhaseBounds(total, 3)
		assert.Equal(t, int64(1), p1.Start)
		assert.Equal(t, p1.End+1, p2.Start)
		assert.Equal(t, p2.End+1, p3.Start)
		assert.Equal(t, total, p3.End)
	}
}

func TestRaffleBounds(t *testing.T) {
	r := winners.RaffleBounds(500)
	assert.Equal(t, int64(1), r.Start)
	assert.Equal(t, int64(500), r.End)
	assert.Equal(t, int64(500), r.Size())
}

func TestGenerateDrawsWithinPhases(t *testing.T) {
	db := new(MockDB)
	lock := new(MockLock)
	gen := newTestGenerator(db, lock)

	prizes := []models.Prize{
		{ID: "p1", CompetitionID: "comp1", Phase: 1, TotalQuantity: 5, IsInstantWin: true},
		{ID: "p2", CompetitionID: "comp1", Phase: 1, TotalQuantity: 3, IsInstantWin: true},
		{ID: "p3", CompetitionID: "comp1", Phase: 2, TotalQuantity: 4, IsInstantWin: true},
		{ID: "p4", CompetitionID: "comp1", Phase: 3, TotalQuantity: 2, IsInstantWin: true},
	}

	lock.On("Acquire", "comp1").Return(true, nil)
	lock.On("Release", "comp1").Return(nil)
	db.On("GetCompetition", mock.Anything, "comp1").Return(instantWinCompetition(900), nil)
	db.On("GetPrizes", mock.Anything, "comp1").Return(prizes, nil)
	db.On("SaveGeneration", mock.Anything, "comp1", mock.Anything, false).Return(true, nil)

	numbers, err := gen.Generate(context.Background(), "comp1", false)
	require.NoError(t, err)
	require.Len(t, numbers, 4)

	phaseFor := map[string]int{"p1": 1, "p2": 1, "p3": 2, "p4": 3}
	seen := make(map[int64]string)
	for prizeID, prizeNumbers := range numbers {
		bounds := winners.PhaseBounds(900, phaseFor[prizeID])
		for _, n := range prizeNumbers {
			assert.True(t, bounds.Contains(n), "number %d for prize %s outside phase %d", n, prizeID, phaseFor[prizeID])
			if other, dup := seen[n]; dup {
				t.Fatalf("number %d drawn for both %s and %s", n, other, prizeID)
			}
			seen[n] = prizeID
		}
	}

	assert.Len(t, numbers["p1"], 5)
	assert.Len(t, numbers["p2"], 3)
	assert.Len(t, numbers["p3"], 4)
	assert.Len(t, numbers["p4"], 2)

	// Returned numbers come back sorted per prize
	for _, prizeNumbers := range numbers {
		for i := 1; i < len(prizeNumbers); i++ {
			assert.Less(t, prizeNumbers[i-1], prizeNumbers[i])
		}
	}

	db.AssertExpectations(t)
	lock.AssertExpectations(t)
}

func TestGenerateFillsEntirePhase(t *testing.T) {
	db := new(MockDB)
	lock := new(MockLock)
	gen := newTestGenerator(db, lock)

	// Quantity equal to the whole phase range: every number wins exactly once
	prizes := []models.Prize{
		{ID: "p1", CompetitionID: "comp1", Phase: 1, TotalQuantity: 3, IsInstantWin: true},
	}

	lock.On("Acquire", "comp1").Return(true, nil)
	lock.On("Release", "comp1").Return(nil)
	db.On("GetCompetition", mock.Anything, "comp1").Return(instantWinCompetition(9), nil)
	db.On("GetPrizes", mock.Anything, "comp1").Return(prizes, nil)
	db.On("SaveGeneration", mock.Anything, "comp1", mock.Anything, false).Return(true, nil)

	numbers, err := gen.Generate(context.Background(), "comp1", false)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, numbers["p1"])
}

func TestGenerateRaffleUsesFullRange(t *testing.T) {
	db := new(MockDB)
	lock := new(MockLock)
	gen := newTestGenerator(db, lock)

	competition := &models.Competition{
		ID:           "comp1",
		TotalTickets: 500,
		Type:         models.CompetitionTypeRaffle,
		Status:       models.CompetitionStatusDraft,
	}
	prizes := []models.Prize{
		{ID: "grand", CompetitionID: "comp1", TotalQuantity: 1},
	}

	lock.On("Acquire", "comp1").Return(true, nil)
	lock.On("Release", "comp1").Return(nil)
	db.On("GetCompetition", mock.Anything, "comp1").Return(competition, nil)
	db.On("GetPrizes", mock.Anything, "comp1").Return(prizes, nil)
	db.On("SaveGeneration", mock.Anything, "comp1", mock.Anything, false).Return(true, nil)

	numbers, err := gen.Generate(context.Background(), "comp1", false)
	require.NoError(t, err)
	require.Len(t, numbers["grand"], 1)
	assert.True(t, winners.RaffleBounds(500).Contains(numbers["grand"][0]))
}

func TestGenerateRejectsMultiPrizeRaffle(t *testing.T) {
	db := new(MockDB)
	lock := new(MockLock)
	gen := newTestGenerator(db, lock)

	competition := &models.Competition{
		ID:           "comp1",
		TotalTickets: 500,
		Type:         models.CompetitionTypeRaffle,
	}
	prizes := []models.Prize{
		{ID: "grand", TotalQuantity: 1},
		{ID: "second", TotalQuantity: 1},
	}

	lock.On("Acquire", "comp1").Return(true, nil)
	lock.On("Release", "comp1").Return(nil)
	db.On("GetCompetition", mock.Anything, "comp1").Return(competition, nil)
	db.On("GetPrizes", mock.Anything, "comp1").Return(prizes, nil)

	_, err := gen.Generate(context.Background(), "comp1", false)
	assert.ErrorIs(t, err, winners.ErrRafflePrizeCount)
}

func TestGenerateRejectsPhaseOverflow(t *testing.T) {
	db := new(MockDB)
	lock := new(MockLock)
	gen := newTestGenerator(db, lock)

	// Phase 1 of 9 tickets holds 3 numbers, prize wants 4
	prizes := []models.Prize{
		{ID: "p1", Phase: 1, TotalQuantity: 4, IsInstantWin: true},
	}

	lock.On("Acquire", "comp1").Return(true, nil)
	lock.On("Release", "comp1").Return(nil)
	db.On("GetCompetition", mock.Anything, "comp1").Return(instantWinCompetition(9), nil)
	db.On("GetPrizes", mock.Anything, "comp1").Return(prizes, nil)

	_, err := gen.Generate(context.Background(), "comp1", false)
	assert.ErrorIs(t, err, winners.ErrPhaseCapacityExceeded)
	db.AssertNotCalled(t, "SaveGeneration", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerateRejectsRepeatWithoutOverride(t *testing.T) {
	db := new(MockDB)
	lock := new(MockLock)
	gen := newTestGenerator(db, lock)

	competition := instantWinCompetition(900)
	competition.WinningTicketsGenerated = true

	lock.On("Acquire", "comp1").Return(true, nil)
	lock.On("Release", "comp1").Return(nil)
	db.On("GetCompetition", mock.Anything, "comp1").Return(competition, nil)

	_, err := gen.Generate(context.Background(), "comp1", false)
	assert.ErrorIs(t, err, winners.ErrAlreadyLocked)
}

func TestGenerateOverrideRedraws(t *testing.T) {
	db := new(MockDB)
	lock := new(MockLock)
	gen := newTestGenerator(db, lock)

	competition := instantWinCompetition(900)
	competition.WinningTicketsGenerated = true
	prizes := []models.Prize{
		{ID: "p1", Phase: 1, TotalQuantity: 2, IsInstantWin: true},
	}

	lock.On("Acquire", "comp1").Return(true, nil)
	lock.On("Release", "comp1").Return(nil)
	db.On("GetCompetition", mock.Anything, "comp1").Return(competition, nil)
	db.On("GetPrizes", mock.Anything, "comp1").Return(prizes, nil)
	db.On("SaveGeneration", mock.Anything, "comp1", mock.Anything, true).Return(true, nil)

	numbers, err := gen.Generate(context.Background(), "comp1", true)
	require.NoError(t, err)
	assert.Len(t, numbers["p1"], 2)
}

func TestGenerateRejectsNoPrizes(t *testing.T) {
	db := new(MockDB)
	lock := new(MockLock)
	gen := newTestGenerator(db, lock)

	lock.On("Acquire", "comp1").Return(true, nil)
	lock.On("Release", "comp1").Return(nil)
	db.On("GetCompetition", mock.Anything, "comp1").Return(instantWinCompetition(900), nil)
	db.On("GetPrizes", mock.Anything, "comp1").Return([]models.Prize{}, nil)

	_, err := gen.Generate(context.Background(), "comp1", false)
	assert.ErrorIs(t, err, winners.ErrNoPrizes)
}

func TestGenerateWhileLockHeld(t *testing.T) {
	db := new(MockDB)
	lock := new(MockLock)
	gen := newTestGenerator(db, lock)

	lock.On("Acquire", "comp1").Return(false, nil)

	_, err := gen.Generate(context.Background(), "comp1", false)
	assert.ErrorIs(t, err, winners.ErrGenerationInProgress)
	db.AssertNotCalled(t, "GetCompetition", mock.Anything, mock.Anything)
	lock.AssertNotCalled(t, "Release", mock.Anything)
}
