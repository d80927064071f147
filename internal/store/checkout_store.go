package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vbonduro/roadiebag/internal/db"
	"github.com/vbonduro/roadiebag/internal/domain"
)

// MaxRounds is the upper bound of a checkout's round count; the lower bound is 1.
const MaxRounds = 6

const checkoutColumns = `id, item_id, rounds_left, rounds_total, done, created_at, updated_at`

// availableItemsSQL selects the ids of items with at least one unit left.
// Every checkout ever created counts against quantity, done or not.
const availableItemsSQL = `
	SELECT i.id
	FROM items i
	LEFT JOIN checkouts c ON c.item_id = i.id
	GROUP BY i.id, i.quantity, i.infinite
	HAVING i.infinite = ? OR i.quantity - COUNT(c.id) >= 1`

// Sampler draws a uniform integer in [0, n).
type Sampler interface {
	IntN(n int) int
}

// CheckoutStore is the ledger of checkouts. Every mutation starts by taking
// the checkout guard row, which serializes writers across processes.
type CheckoutStore struct {
	db      *db.DB
	sampler Sampler
	now     func() time.Time
}

func NewCheckoutStore(d *db.DB, sampler Sampler) *CheckoutStore {
	return &CheckoutStore{db: d, sampler: sampler, now: now}
}

// Current returns the active checkout, or nil if there is none.
func (s *CheckoutStore) Current(ctx context.Context) (*domain.Checkout, error) {
	return s.current(ctx, s.db)
}

func (s *CheckoutStore) current(ctx context.Context, q querier) (*domain.Checkout, error) {
	// The literal lets the planner use the partial unique index on done.
	c, err := scanCheckout(q.QueryRowContext(ctx, `
		SELECT `+checkoutColumns+` FROM checkouts
		WHERE done = `+s.db.Dialect.BoolLiteral(false)+` LIMIT 1
	`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current checkout: %w", err)
	}
	return c, nil
}

func (s *CheckoutStore) lockGuard(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, s.db.Rebind(`UPDATE checkout_guard SET touched_at = ? WHERE id = 1`), s.now())
	if err != nil {
		return fmt.Errorf("failed to acquire checkout guard: %w", err)
	}
	return nil
}

// Draw returns the active checkout if one exists. Otherwise it picks an
// available item uniformly at random, starts a checkout of it with a random
// round count, and returns that. domain.ErrNoItemsAvailable is returned when
// every item is used up.
func (s *CheckoutStore) Draw(ctx context.Context) (*domain.Checkout, error) {
	var drawn *domain.Checkout
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.lockGuard(ctx, tx); err != nil {
			return err
		}

		current, err := s.current(ctx, tx)
		if err != nil {
			return err
		}
		if current != nil {
			drawn = current
			return nil
		}

		var n int
		err = tx.QueryRowContext(ctx, s.db.Rebind(`
			SELECT COUNT(*) FROM (`+availableItemsSQL+`) available
		`), true).Scan(&n)
		if err != nil {
			return fmt.Errorf("failed to count available items: %w", err)
		}
		if n == 0 {
			return domain.ErrNoItemsAvailable
		}

		offset := s.sampler.IntN(n)
		var itemID int64
		err = tx.QueryRowContext(ctx, s.db.Rebind(availableItemsSQL+`
			ORDER BY i.id LIMIT 1 OFFSET ?
		`), true, offset).Scan(&itemID)
		if err != nil {
			return fmt.Errorf("failed to select item at offset %d of %d: %w", offset, n, err)
		}

		rounds := 1 + s.sampler.IntN(MaxRounds)
		ts := s.now()
		c := &domain.Checkout{
			ItemID:      itemID,
			RoundsLeft:  rounds,
			RoundsTotal: rounds,
			CreatedAt:   ts,
			UpdatedAt:   ts,
		}
		err = tx.QueryRowContext(ctx, s.db.Rebind(`
			INSERT INTO checkouts (item_id, rounds_left, rounds_total, done, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?) RETURNING id
		`), c.ItemID, c.RoundsLeft, c.RoundsTotal, false, ts, ts).Scan(&c.ID)
		if err != nil {
			return fmt.Errorf("failed to create checkout: %w", err)
		}

		drawn = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return drawn, nil
}

// DecrementRounds counts down one round of the active checkout, marking it
// done when no rounds remain. It returns nil if nothing is checked out.
func (s *CheckoutStore) DecrementRounds(ctx context.Context) (*domain.Checkout, error) {
	return s.mutateCurrent(ctx, func(c *domain.Checkout) {
		c.RoundsLeft--
		c.Done = c.RoundsLeft <= 0
	})
}

// MarkDone finishes the active checkout without touching its round count.
// It returns the finished checkout, or nil if nothing was checked out.
func (s *CheckoutStore) MarkDone(ctx context.Context) (*domain.Checkout, error) {
	return s.mutateCurrent(ctx, func(c *domain.Checkout) {
		c.Done = true
	})
}

func (s *CheckoutStore) mutateCurrent(ctx context.Context, mutate func(*domain.Checkout)) (*domain.Checkout, error) {
	var updated *domain.Checkout
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := s.lockGuard(ctx, tx); err != nil {
			return err
		}

		c, err := s.current(ctx, tx)
		if err != nil || c == nil {
			return err
		}

		mutate(c)
		ts := s.now()
		if !ts.After(c.UpdatedAt) {
			ts = c.UpdatedAt.Add(time.Microsecond)
		}
		c.UpdatedAt = ts

		_, err = tx.ExecContext(ctx, s.db.Rebind(`
			UPDATE checkouts SET rounds_left = ?, done = ?, updated_at = ? WHERE id = ?
		`), c.RoundsLeft, c.Done, c.UpdatedAt, c.ID)
		if err != nil {
			return fmt.Errorf("failed to update checkout: %w", err)
		}

		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// History lists every checkout of an item, newest first.
func (s *CheckoutStore) History(ctx context.Context, itemID int64) ([]*domain.Checkout, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT 1 FROM items WHERE id = ?`), itemID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`
		SELECT `+checkoutColumns+` FROM checkouts WHERE item_id = ? ORDER BY id DESC
	`), itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkouts: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	checkouts := make([]*domain.Checkout, 0)
	for rows.Next() {
		c, err := scanCheckout(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkout: %w", err)
		}
		checkouts = append(checkouts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkouts: %w", err)
	}

	return checkouts, nil
}

// Availability reports how many units of an item have been consumed and how
// many remain.
func (s *CheckoutStore) Availability(ctx context.Context, itemID int64) (*domain.Availability, error) {
	var quantity, consumed int
	var infinite bool
	err := s.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT i.quantity, i.infinite, COUNT(c.id)
		FROM items i
		LEFT JOIN checkouts c ON c.item_id = i.id
		WHERE i.id = ?
		GROUP BY i.id, i.quantity, i.infinite
	`), itemID).Scan(&quantity, &infinite, &consumed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", itemID, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability: %w", err)
	}

	a := &domain.Availability{ItemID: itemID, Consumed: consumed}
	if !infinite {
		remaining := max(quantity-consumed, 0)
		a.Remaining = &remaining
	}
	return a, nil
}

func scanCheckout(row scanner) (*domain.Checkout, error) {
	c := &domain.Checkout{}
	if err := row.Scan(&c.ID, &c.ItemID, &c.RoundsLeft, &c.RoundsTotal, &c.Done,
		&c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return c, nil
}
