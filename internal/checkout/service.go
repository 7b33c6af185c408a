package checkout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-raffle/internal/allocation"
	allocdb "ms-raffle/internal/allocation/db"
	entrydb "ms-raffle/internal/checkout/db"
	"ms-raffle/internal/claims"
	"ms-raffle/internal/logger"
	"ms-raffle/internal/models"
	"ms-raffle/internal/wallet"
)

var (
	ErrCompetitionNotActive = errors.New("competition is not active")
	ErrInvalidQuantity      = errors.New("ticket quantity must be at least 1")
	// ErrPaymentRequired means the wallet cannot cover the price and no
	// verified card payment reference was supplied.
	ErrPaymentRequired      = errors.New("card payment required but not verified")
	// ErrCaptureConsumed means the payment reference already funded another
	// entry.
	ErrCaptureConsumed      = errors.New("payment reference already used")
	ErrGenerationNotRun     = errors.New("winning tickets have not been generated")
	ErrCompetitionNotDraft  = errors.New("competition is not in draft state")
)

// PaymentVerifier gates card-funded purchases: the external capture must have
// succeeded before the purchase transaction runs.
type PaymentVerifier interface {
	VerifyCapture(ctx context.Context, paymentRef, userID string, amount float64) error
}

type KafkaPublisher interface {
	PublishEntryCreated(entry models.Entry) error
	PublishPrizeClaimed(entry models.Entry, claimed models.ClaimedTicket) error
	PublishCompetitionSoldOut(competitionID string) error
}

// Service is the checkout orchestrator. Each purchased line item runs as one
// transaction: allocate tickets, record the entry, claim winnings, bump the
// sold counter, settle the wallet. Either all of it commits or none does.
type Service struct {
	Bun      *bun.DB
	Payments PaymentVerifier
	Kafka    KafkaPublisher
	Claims   *claims.Processor
	Logger   *logger.Logger
}

func NewService(bunDB *bun.DB, payments PaymentVerifier, kafka KafkaPublisher, log *logger.Logger) *Service {
	return &Service{
		Bun:      bunDB,
		Payments: payments,
		Kafka:    kafka,
		Claims:   claims.NewProcessor(),
		Logger:   log,
	}
}

// Checkout processes a cart. Items target independent competitions and run as
// independent transactions: one item failing does not undo a committed
// sibling, and the response reports each item's outcome.
func (s *Service) Checkout(ctx context.Context, userID string, req models.CheckoutRequest) *models.CheckoutResponse {
	results := make([]models.PurchaseResult, 0, len(req.Items))
	for _, item := range req.Items {
		result, err := s.PurchaseItem(ctx, userID, item.CompetitionID, models.PurchaseRequest{
			Quantity:   item.Quantity,
			PaymentRef: req.PaymentRef,
		})
		if err != nil {
			results = append(results, models.PurchaseResult{
				Success:       false,
				Message:       err.Error(),
				CompetitionID: item.CompetitionID,
			})
			continue
		}
		results = append(results, *result)
	}
	return &models.CheckoutResponse{Results: results}
}

// PurchaseItem runs one line item end to end.
func (s *Service) PurchaseItem(ctx context.Context, userID, competitionID string, req models.PurchaseRequest) (*models.PurchaseResult, error) {
	if req.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	store := &entrydb.DB{Bun: s.Bun}
	competition, err := store.GetCompetition(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("competition %s not found: %w", competitionID, err)
	}
	if competition.Status != models.CompetitionStatusActive {
		return nil, ErrCompetitionNotActive
	}

	price := float64(req.Quantity) * competition.TicketPrice

	// The payment gate runs before the transaction: a card-funded purchase
	// must present an already-captured payment. The wallet balance read here
	// is only a preview; the authoritative split happens inside the
	// transaction.
	walletDB := &wallet.DB{Bun: s.Bun}
	balance, err := walletDB.GetBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet for user %s: %w", userID, err)
	}
	if balance < price {
		if req.PaymentRef == "" {
			return nil, ErrPaymentRequired
		}
		if err := s.Payments.VerifyCapture(ctx, req.PaymentRef, userID, price-balance); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentRequired, err)
		}
	}

	var (
		entry    models.Entry
		claimed  []models.ClaimedTicket
		soldOut  bool
	)
	err = s.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		txWallet := &wallet.DB{Bun: tx}
		txStore := &entrydb.DB{Bun: tx}
		allocator := allocation.NewAllocator(&allocdb.DB{Bun: tx})

		txBalance, err := txWallet.GetBalance(ctx, userID)
		if err != nil {
			return err
		}
		walletAmount := math.Min(txBalance, price)
		cardAmount := price - walletAmount

		// The pre-transaction gate ran against a balance preview that may be
		// stale by now. The split computed here is the one that commits, so
		// the capture is re-verified against it, and the reference is tied to
		// this entry (unique payment_ref) so it cannot fund a second purchase.
		paymentRef := ""
		if cardAmount > 0 {
			if req.PaymentRef == "" {
				return ErrPaymentRequired
			}
			if err := s.Payments.VerifyCapture(ctx, req.PaymentRef, userID, cardAmount); err != nil {
				return fmt.Errorf("%w: %v", ErrPaymentRequired, err)
			}
			used, err := txStore.PaymentRefInUse(ctx, req.PaymentRef)
			if err != nil {
				return fmt.Errorf("failed to check payment reference: %w", err)
			}
			if used {
				return ErrCaptureConsumed
			}
			paymentRef = req.PaymentRef
		}

		block, err := allocator.Allocate(ctx, competitionID, req.Quantity)
		if err != nil {
			return err
		}

		entry = models.Entry{
			ID:            uuid.NewString(),
			CompetitionID: competitionID,
			UserID:        userID,
			TicketNumbers: block.TicketNumbers,
			TicketStart:   block.StartNumber,
			TicketEnd:     block.TicketNumbers[len(block.TicketNumbers)-1],
			Quantity:      req.Quantity,
			AmountPaid:    price,
			WalletAmount:  walletAmount,
			CardAmount:    cardAmount,
			PaymentRef:    paymentRef,
			CreatedAt:     time.Now(),
		}
		if err := txStore.CreateEntry(ctx, entry); err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}

		claimed, err = s.Claims.ClaimMatching(ctx, tx, competitionID, block.TicketNumbers, entry.ID, userID)
		if err != nil {
			return fmt.Errorf("failed to claim winning tickets: %w", err)
		}

		updated, err := txStore.IncrementTicketsSold(ctx, competitionID, int64(req.Quantity))
		if err != nil {
			return fmt.Errorf("failed to update sold count: %w", err)
		}
		soldOut = updated.TicketsSold >= updated.TotalTickets

		if walletAmount > 0 {
			if err := txWallet.Debit(ctx, userID, walletAmount, competitionID, entry.ID); err != nil {
				return fmt.Errorf("failed to debit wallet: %w", err)
			}
		}
		for _, c := range claimed {
			if !c.IsWalletCredit {
				continue
			}
			credited, err := txWallet.CreditPrize(ctx, userID, c.CreditAmount, competitionID, entry.ID, c.WinningID)
			if err != nil {
				return fmt.Errorf("failed to credit prize: %w", err)
			}
			if !credited {
				s.Logger.Warn("CHECKOUT", fmt.Sprintf("Winning ticket %d already credited, skipping", c.WinningID))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.Logger.LogPurchase("PURCHASE", entry.ID, fmt.Sprintf("user %s bought %d tickets [%d-%d] in competition %s (%d wins)",
		userID, req.Quantity, entry.TicketStart, entry.TicketEnd, competitionID, len(claimed)))

	s.publishEvents(entry, claimed, soldOut)

	return &models.PurchaseResult{
		Success:        true,
		Message:        "purchase complete",
		CompetitionID:  competitionID,
		EntryID:        entry.ID,
		TicketNumbers:  entry.TicketNumbers,
		WinningTickets: claimed,
	}, nil
}

// publishEvents streams post-commit notifications. Publish failures are
// logged and never unwind a committed purchase.
func (s *Service) publishEvents(entry models.Entry, claimed []models.ClaimedTicket, soldOut bool) {
	if s.Kafka == nil {
		return
	}
	if err := s.Kafka.PublishEntryCreated(entry); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish entry created event: %v", err))
	}
	for _, c := range claimed {
		if err := s.Kafka.PublishPrizeClaimed(entry, c); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish prize claimed event: %v", err))
		}
	}
	if soldOut {
		if err := s.Kafka.PublishCompetitionSoldOut(entry.CompetitionID); err != nil {
			s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish sold out event: %v", err))
		}
	}
}

// GetMyEntries returns the caller's entries joined with claimed winnings.
func (s *Service) GetMyEntries(ctx context.Context, userID string) ([]models.EntryWithWinnings, error) {
	store := &entrydb.DB{Bun: s.Bun}
	return store.GetEntriesWithWinningsByUserID(ctx, userID)
}

// GetEntry returns one entry, for receipt rendering.
func (s *Service) GetEntry(ctx context.Context, entryID string) (*models.Entry, error) {
	store := &entrydb.DB{Bun: s.Bun}
	return store.GetEntryByID(ctx, entryID)
}

// GetCompetition is the public competition read.
func (s *Service) GetCompetition(ctx context.Context, competitionID string) (*models.Competition, error) {
	store := &entrydb.DB{Bun: s.Bun}
	return store.GetCompetition(ctx, competitionID)
}

// ActivateCompetition flips a draft competition live: winning tickets must
// already be generated, then the ticket counter is seeded and the status set.
func (s *Service) ActivateCompetition(ctx context.Context, competitionID string) error {
	return s.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		txStore := &entrydb.DB{Bun: tx}
		competition, err := txStore.GetCompetition(ctx, competitionID)
		if err != nil {
			return fmt.Errorf("competition %s not found: %w", competitionID, err)
		}
		if competition.Status != models.CompetitionStatusDraft {
			return ErrCompetitionNotDraft
		}
		if !competition.WinningTicketsGenerated {
			return ErrGenerationNotRun
		}

		allocator := allocation.NewAllocator(&allocdb.DB{Bun: tx})
		if err := allocator.SeedCounter(ctx, competitionID, competition.TotalTickets); err != nil {
			return fmt.Errorf("failed to seed ticket counter: %w", err)
		}

		_, err = tx.NewUpdate().
			Model((*models.Competition)(nil)).
			Set("status = ?", models.CompetitionStatusActive).
			Where("id = ?", competitionID).
			Where("status = ?", models.CompetitionStatusDraft).
			Exec(ctx)
		return err
	})
}
