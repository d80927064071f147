package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vbonduro/roadiebag/internal/db"
	"github.com/vbonduro/roadiebag/internal/domain"
	"github.com/vbonduro/roadiebag/internal/logging"
)

// checkoutLedger is the subset of store.CheckoutStore that CheckoutService requires.
type checkoutLedger interface {
	Current(ctx context.Context) (*domain.Checkout, error)
	Draw(ctx context.Context) (*domain.Checkout, error)
	DecrementRounds(ctx context.Context) (*domain.Checkout, error)
	MarkDone(ctx context.Context) (*domain.Checkout, error)
	History(ctx context.Context, itemID int64) ([]*domain.Checkout, error)
	Availability(ctx context.Context, itemID int64) (*domain.Availability, error)
}

// CheckoutService coordinates the single active checkout. It holds no state
// of its own; the ledger is the source of truth.
type CheckoutService struct {
	ledger checkoutLedger
	logger *slog.Logger
}

func NewCheckoutService(ledger checkoutLedger, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{ledger: ledger, logger: logger}
}

// GetCurrent returns the active checkout, or nil if there is none.
func (s *CheckoutService) GetCurrent(ctx context.Context) (*domain.Checkout, error) {
	return s.ledger.Current(ctx)
}

// GetRandom returns the active checkout, drawing a new one if none is active.
// A draw that loses a race with another writer is retried once.
func (s *CheckoutService) GetRandom(ctx context.Context) (*domain.Checkout, error) {
	logger := logging.FromContext(ctx, s.logger)

	c, err := s.ledger.Draw(ctx)
	if err != nil && db.IsConflict(err) {
		logger.Warn("checkout draw conflicted, retrying", "error", err)
		c, err = s.ledger.Draw(ctx)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("checkout drawn", "checkout_id", c.ID, "item_id", c.ItemID,
		"rounds_left", c.RoundsLeft, "rounds_total", c.RoundsTotal)
	return c, nil
}

// DecrementRounds counts down the active checkout. It returns nil if nothing
// is checked out.
func (s *CheckoutService) DecrementRounds(ctx context.Context) (*domain.Checkout, error) {
	c, err := s.ledger.DecrementRounds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to decrement rounds: %w", err)
	}
	logger := logging.FromContext(ctx, s.logger)
	switch {
	case c == nil:
		logger.Debug("decrement ignored, nothing checked out")
	case c.Done:
		logger.Info("checkout done", "checkout_id", c.ID, "item_id", c.ItemID)
	default:
		logger.Info("rounds decremented", "checkout_id", c.ID, "rounds_left", c.RoundsLeft)
	}
	return c, nil
}

// MarkDone finishes the active checkout early. It is a no-op if nothing is
// checked out.
func (s *CheckoutService) MarkDone(ctx context.Context) error {
	c, err := s.ledger.MarkDone(ctx)
	if err != nil {
		return fmt.Errorf("failed to mark checkout done: %w", err)
	}
	if c != nil {
		logging.FromContext(ctx, s.logger).Info("checkout done", "checkout_id", c.ID,
			"item_id", c.ItemID, "rounds_left", c.RoundsLeft)
	}
	return nil
}

func (s *CheckoutService) ItemHistory(ctx context.Context, itemID int64) ([]*domain.Checkout, error) {
	return s.ledger.History(ctx, itemID)
}

func (s *CheckoutService) ItemAvailability(ctx context.Context, itemID int64) (*domain.Availability, error) {
	return s.ledger.Availability(ctx, itemID)
}
