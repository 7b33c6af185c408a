package winners

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"ms-raffle/internal/logger"
	"ms-raffle/internal/models"
)

var (
	// ErrAlreadyLocked means winning tickets were already generated for this
	// competition and the caller did not request an explicit override.
	ErrAlreadyLocked = errors.New("winning tickets already generated for this competition")
	// ErrPhaseCapacityExceeded means the prize quantities in some phase sum to
	// more than that phase's ticket range can hold.
	ErrPhaseCapacityExceeded = errors.New("prize quantities exceed phase capacity")
	ErrNoPrizes              = errors.New("competition has no prizes configured")
	ErrRafflePrizeCount      = errors.New("raffle competitions must have exactly one prize")
	ErrGenerationInProgress  = errors.New("winning ticket generation already in progress")
)

// NumPhases is the fixed number of instant-win phases.
const NumPhases = 3

// PhaseRange is an inclusive range of ticket numbers.
type PhaseRange struct {
	Start int64
	End   int64
}

func (r PhaseRange) Size() int64 {
	return r.End - r.Start + 1
}

func (r PhaseRange) Contains(n int64) bool {
	return n >= r.Start && n <= r.End
}

// PhaseBounds splits [1, totalTickets] into thirds by integer division:
// phase 1 = [1, T/3], phase 2 = [T/3+1, 2T/3], phase 3 = [2T/3+1, T].
// The last phase absorbs the rounding remainder.
func PhaseBounds(totalTickets int64, phase int) PhaseRange {
	switch phase {
	case 1:
		return PhaseRange{Start: 1, End: totalTickets / 3}
	case 2:
		return PhaseRange{Start: totalTickets/3 + 1, End: 2 * totalTickets / 3}
	default:
		return PhaseRange{Start: 2*totalTickets/3 + 1, End: totalTickets}
	}
}

// RaffleBounds is the single implicit phase of a raffle competition.
func RaffleBounds(totalTickets int64) PhaseRange {
	return PhaseRange{Start: 1, End: totalTickets}
}

type DBLayer interface {
	GetCompetition(ctx context.Context, id string) (*models.Competition, error)
	GetPrizes(ctx context.Context, competitionID string) ([]models.Prize, error)
	// SaveGeneration persists the winning set in one transaction, flipping the
	// competition's generation flag with a conditional update. saved is false
	// when the flag was already set and override was not requested.
	SaveGeneration(ctx context.Context, competitionID string, tickets []models.WinningTicket, override bool) (saved bool, err error)
}

// GenerationLock serializes admin-triggered generation runs per competition.
type GenerationLock interface {
	Acquire(competitionID string) (bool, error)
	Release(competitionID string) error
}

// Generator draws the winning ticket numbers for a competition. It runs once
// per competition, before tickets go on sale.
type Generator struct {
	DB     DBLayer
	Lock   GenerationLock
	Logger *logger.Logger
	rng    *rand.Rand
}

func NewGenerator(db DBLayer, lock GenerationLock, log *logger.Logger) *Generator {
	return &Generator{
		DB:     db,
		Lock:   lock,
		Logger: log,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewGeneratorWithRand injects a deterministic source, used by tests.
func NewGeneratorWithRand(db DBLayer, lock GenerationLock, log *logger.Logger, rng *rand.Rand) *Generator {
	return &Generator{DB: db, Lock: lock, Logger: log, rng: rng}
}

// Generate draws and persists the full winning set for a competition,
// returning the numbers per prize. With override it first discards any prior
// set; otherwise a repeat call fails with ErrAlreadyLocked.
func (g *Generator) Generate(ctx context.Context, competitionID string, override bool) (map[string][]int64, error) {
	if g.Lock != nil {
		ok, err := g.Lock.Acquire(competitionID)
		if err != nil {
			return nil, fmt.Errorf("generation lock error: %w", err)
		}
		if !ok {
			return nil, ErrGenerationInProgress
		}
		defer func() {
			if err := g.Lock.Release(competitionID); err != nil {
				g.Logger.Error("WINNERS", fmt.Sprintf("Failed to release generation lock for %s: %v", competitionID, err))
			}
		}()
	}

	competition, err := g.DB.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("competition %s not found: %w", competitionID, err)
	}
	if competition.WinningTicketsGenerated && !override {
		return nil, ErrAlreadyLocked
	}

	prizes, err := g.DB.GetPrizes(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load prizes for competition %s: %w", competitionID, err)
	}
	if len(prizes) == 0 {
		return nil, ErrNoPrizes
	}

	numbersByPrize, err := g.draw(competition, prizes)
	if err != nil {
		return nil, err
	}

	tickets := make([]models.WinningTicket, 0)
	for _, prize := range prizes {
		for _, n := range numbersByPrize[prize.ID] {
			tickets = append(tickets, models.WinningTicket{
				CompetitionID: competitionID,
				PrizeID:       prize.ID,
				TicketNumber:  n,
				Status:        models.WinningTicketAvailable,
			})
		}
	}

	saved, err := g.DB.SaveGeneration(ctx, competitionID, tickets, override)
	if err != nil {
		return nil, fmt.Errorf("failed to persist winning tickets for competition %s: %w", competitionID, err)
	}
	if !saved {
		return nil, ErrAlreadyLocked
	}

	g.Logger.Info("WINNERS", fmt.Sprintf("Generated %d winning tickets across %d prizes for competition %s",
		len(tickets), len(prizes), competitionID))
	return numbersByPrize, nil
}

// draw validates phase capacities and picks the numbers. All validation runs
// before any drawing so a capacity failure generates nothing.
func (g *Generator) draw(competition *models.Competition, prizes []models.Prize) (map[string][]int64, error) {
	prizesByPhase := make(map[int][]models.Prize)

	if competition.Type == models.CompetitionTypeRaffle {
		if len(prizes) != 1 {
			return nil, ErrRafflePrizeCount
		}
		prizesByPhase[1] = prizes
	} else {
		for _, p := range prizes {
			if p.Phase < 1 || p.Phase > NumPhases {
				return nil, fmt.Errorf("prize %s has invalid phase %d", p.ID, p.Phase)
			}
			prizesByPhase[p.Phase] = append(prizesByPhase[p.Phase], p)
		}
	}

	phaseRange := func(phase int) PhaseRange {
		if competition.Type == models.CompetitionTypeRaffle {
			return RaffleBounds(competition.TotalTickets)
		}
		return PhaseBounds(competition.TotalTickets, phase)
	}

	for phase, phasePrizes := range prizesByPhase {
		var total int64
		for _, p := range phasePrizes {
			if p.TotalQuantity < 1 {
				return nil, fmt.Errorf("prize %s has invalid quantity %d", p.ID, p.TotalQuantity)
			}
			total += int64(p.TotalQuantity)
		}
		if total > phaseRange(phase).Size() {
			return nil, fmt.Errorf("%w: phase %d needs %d tickets but only has %d",
				ErrPhaseCapacityExceeded, phase, total, phaseRange(phase).Size())
		}
	}

	result := make(map[string][]int64)
	for phase, phasePrizes := range prizesByPhase {
		for prizeID, numbers := range g.drawPhase(phaseRange(phase), phasePrizes) {
			result[prizeID] = numbers
		}
	}
	return result, nil
}

// drawPhase shuffles the phase's full number range and slices one segment per
// prize. This keeps draws unique within and across prizes without rejection
// sampling, which degrades when quantities approach the range size.
func (g *Generator) drawPhase(r PhaseRange, prizes []models.Prize) map[string][]int64 {
	pool := make([]int64, r.Size())
	for i := range pool {
		pool[i] = r.Start + int64(i)
	}
	g.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})

	out := make(map[string][]int64, len(prizes))
	idx := 0
	for _, p := range prizes {
		numbers := append([]int64(nil), pool[idx:idx+p.TotalQuantity]...)
		idx += p.TotalQuantity
		sort.Slice(numbers, func(i, j int) bool { return numbers[i] < numbers[j] })
		out[p.ID] = numbers
	}
	return out
}
