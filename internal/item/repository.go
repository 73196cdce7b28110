package item

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Repository defines the persistence interface for registered items.
// The abstraction keeps the registry testable without a database.
type Repository interface {
	// List retrieves all registered items ordered by name.
	List(ctx context.Context) ([]Item, error)

	// Get retrieves one item by name.
	// Returns ErrNotFound if the item is not registered.
	Get(ctx context.Context, name string) (*Item, error)

	// Sync reconciles the stored registry with the configured items:
	// configured items are inserted or their mode updated, items no
	// longer configured are removed. Last-value statistics survive a
	// mode change.
	Sync(ctx context.Context, items []Item) error

	// Checkpoint persists last-value statistics for an item.
	Checkpoint(ctx context.Context, name string, value float64, at time.Time) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open, migrated SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List retrieves all registered items ordered by name.
func (r *SQLiteRepository) List(ctx context.Context) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT name, mode, created_at, last_value, last_enqueued_at
		FROM items
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	return items, nil
}

// Get retrieves one item by name.
func (r *SQLiteRepository) Get(ctx context.Context, name string) (*Item, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT name, mode, created_at, last_value, last_enqueued_at
		FROM items
		WHERE name = ?`, name)

	it, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying item %s: %w", name, err)
	}
	return it, nil
}

// Sync reconciles the stored registry with the configured items.
func (r *SQLiteRepository) Sync(ctx context.Context, items []Item) error {
	for _, it := range items {
		if !it.Mode.Valid() {
			return fmt.Errorf("%w: %s for item %s", ErrInvalidMode, it.Mode, it.Name)
		}
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting registry sync: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, it := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO items (name, mode) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET mode = excluded.mode`,
			it.Name, string(it.Mode),
		); err != nil {
			return fmt.Errorf("upserting item %s: %w", it.Name, err)
		}
	}

	// Remove items that are no longer configured.
	names := make([]any, 0, len(items))
	placeholders := make([]byte, 0, 2*len(items))
	for i, it := range items {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		names = append(names, it.Name)
	}

	if len(items) == 0 {
		if _, err := tx.ExecContext(ctx, "DELETE FROM items"); err != nil {
			return fmt.Errorf("clearing registry: %w", err)
		}
	} else {
		query := fmt.Sprintf("DELETE FROM items WHERE name NOT IN (%s)", placeholders)
		if _, err := tx.ExecContext(ctx, query, names...); err != nil {
			return fmt.Errorf("pruning registry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing registry sync: %w", err)
	}
	return nil
}

// Checkpoint persists last-value statistics for an item.
func (r *SQLiteRepository) Checkpoint(ctx context.Context, name string, value float64, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE items SET last_value = ?, last_enqueued_at = ?
		WHERE name = ?`,
		value, at.UTC(), name,
	)
	if err != nil {
		return fmt.Errorf("checkpointing item %s: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checkpointing item %s: %w", name, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanItem.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (*Item, error) {
	var it Item
	var mode string
	var lastValue sql.NullFloat64
	var lastEnqueued sql.NullTime

	if err := s.Scan(&it.Name, &mode, &it.CreatedAt, &lastValue, &lastEnqueued); err != nil {
		return nil, err
	}

	it.Mode = Mode(mode)
	if lastValue.Valid {
		v := lastValue.Float64
		it.LastValue = &v
	}
	if lastEnqueued.Valid {
		t := lastEnqueued.Time
		it.LastEnqueuedAt = &t
	}

	return &it, nil
}
