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

const itemColumns = `id, name, description, quantity, size, infinite, created_at, updated_at`

// ItemStore persists the catalog.
type ItemStore struct {
	db  *db.DB
	now func() time.Time
}

func NewItemStore(d *db.DB) *ItemStore {
	return &ItemStore{db: d, now: now}
}

// Create validates spec and inserts it. Validation happens inside the write
// transaction so a rejected spec never leaves a partial row.
func (s *ItemStore) Create(ctx context.Context, spec domain.ItemSpec) (*domain.Item, error) {
	var item *domain.Item
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := spec.Validate(); err != nil {
			return err
		}

		ts := s.now()
		var id int64
		err := tx.QueryRowContext(ctx, s.db.Rebind(`
			INSERT INTO items (name, description, quantity, size, infinite, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id
		`), spec.Name, spec.Description, spec.Quantity, int16(spec.Size), spec.Infinite, ts, ts).Scan(&id)
		if err != nil {
			return fmt.Errorf("failed to create item: %w", err)
		}

		item, err = s.get(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ItemStore) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	return s.get(ctx, s.db, id)
}

func (s *ItemStore) get(ctx context.Context, q querier, id int64) (*domain.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx, s.db.Rebind(`
		SELECT `+itemColumns+` FROM items WHERE id = ?
	`), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return item, nil
}

// Update replaces every mutable field of the item. updated_at always moves
// forward, even if the clock has not.
func (s *ItemStore) Update(ctx context.Context, id int64, spec domain.ItemSpec) (*domain.Item, error) {
	var item *domain.Item
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := spec.Validate(); err != nil {
			return err
		}

		current, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}

		ts := s.now()
		if !ts.After(current.UpdatedAt) {
			ts = current.UpdatedAt.Add(time.Microsecond)
		}

		_, err = tx.ExecContext(ctx, s.db.Rebind(`
			UPDATE items
			SET name = ?, description = ?, quantity = ?, size = ?, infinite = ?, updated_at = ?
			WHERE id = ?
		`), spec.Name, spec.Description, spec.Quantity, int16(spec.Size), spec.Infinite, ts, id)
		if err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}

		item, err = s.get(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes the item. The foreign key cascades to its checkout history.
func (s *ItemStore) Delete(ctx context.Context, id int64) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, s.db.Rebind(`DELETE FROM items WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return fmt.Errorf("item %d: %w", id, domain.ErrNotFound)
		}
		return nil
	})
}

// List returns one page of items matching filter, newest id first. The count
// and the page are read in one transaction so the totals describe the rows.
func (s *ItemStore) List(ctx context.Context, filter domain.ItemFilter) (*domain.ItemPage, error) {
	q := composeItemQuery(s.db.Dialect, filter)

	var page *domain.ItemPage
	err := withTx(ctx, s.db, func(tx *sql.Tx) error {
		var total int
		err := tx.QueryRowContext(ctx, s.db.Rebind(`SELECT COUNT(*) FROM items`+q.where), q.args...).Scan(&total)
		if err != nil {
			return fmt.Errorf("failed to count items: %w", err)
		}

		items, err := s.listPage(ctx, tx, q)
		if err != nil {
			return err
		}

		page = &domain.ItemPage{
			Items:        items,
			PageNum:      q.pageNum,
			PageSize:     q.pageSize,
			TotalPages:   totalPages(total, q.pageSize),
			TotalResults: total,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (s *ItemStore) listPage(ctx context.Context, tx *sql.Tx, q itemQuery) ([]*domain.Item, error) {
	args := append(append([]any{}, q.args...), q.pageSize, q.offset())
	rows, err := tx.QueryContext(ctx, s.db.Rebind(`
		SELECT `+itemColumns+` FROM items`+q.where+`
		ORDER BY id DESC LIMIT ? OFFSET ?
	`), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	items := make([]*domain.Item, 0, min(q.pageSize, DefaultPageSize))
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating items: %w", err)
	}
	return items, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*domain.Item, error) {
	item := &domain.Item{}
	var description sql.NullString
	var size int16
	if err := row.Scan(&item.ID, &item.Name, &description, &item.Quantity, &size,
		&item.Infinite, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	if description.Valid {
		item.Description = &description.String
	}
	item.Size = domain.ItemSize(size)
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return item, nil
}
