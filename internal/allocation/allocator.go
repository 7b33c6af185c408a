package allocation

import (
	"context"
	"errors"
	"fmt"

	"ms-raffle/internal/models"
)

// ErrInsufficientTickets is returned when a competition does not have enough
// unallocated tickets left to satisfy the requested quantity.
var ErrInsufficientTickets = errors.New("insufficient tickets remaining")

type DBLayer interface {
	// ReserveBlock advances the competition's counter by count in a single
	// conditional update. reserved is false when capacity would be exceeded,
	// in which case the counter was not touched.
	ReserveBlock(ctx context.Context, competitionID string, count int64) (counter *models.TicketCounter, reserved bool, err error)
	SeedCounter(ctx context.Context, competitionID string, totalTickets int64) error
	GetCounter(ctx context.Context, competitionID string) (*models.TicketCounter, error)
}

// Allocation is a contiguous block of freshly reserved ticket numbers.
type Allocation struct {
	StartNumber   int64
	TicketNumbers []int64
}

// Allocator hands out contiguous blocks of ticket numbers. The database's
// conditional update is the only serialization point; there is no
// application-level locking and numbers are never reused.
type Allocator struct {
	DB DBLayer
}

func NewAllocator(db DBLayer) *Allocator {
	return &Allocator{DB: db}
}

func (a *Allocator) Allocate(ctx context.Context, competitionID string, count int) (*Allocation, error) {
	if count < 1 {
		return nil, fmt.Errorf("invalid ticket count %d: must be at least 1", count)
	}

	counter, reserved, err := a.DB.ReserveBlock(ctx, competitionID, int64(count))
	if err != nil {
		return nil, fmt.Errorf("failed to reserve ticket block for competition %s: %w", competitionID, err)
	}
	if !reserved {
		return nil, ErrInsufficientTickets
	}

	start := counter.LastTicketNumber - int64(count) + 1
	numbers := make([]int64, count)
	for i := range numbers {
		numbers[i] = start + int64(i)
	}

	return &Allocation{StartNumber: start, TicketNumbers: numbers}, nil
}

// SeedCounter creates the allocation cursor for a competition when it goes
// active. TotalTickets is copied onto the counter row so the hot-path update
// stays on a single row.
func (a *Allocator) SeedCounter(ctx context.Context, competitionID string, totalTickets int64) error {
	if totalTickets < 1 {
		return fmt.Errorf("invalid total tickets %d for competition %s", totalTickets, competitionID)
	}
	return a.DB.SeedCounter(ctx, competitionID, totalTickets)
}
