// Package db provides CRUD repository operations for the Snapfolio data models.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/evchen/snapfolio/internal/errors"
	"github.com/evchen/snapfolio/internal/models"
	"github.com/evchen/snapfolio/internal/uuid"
)

// Repository provides CRUD operations for all local collections.
// User-initiated mutations mark the record dirty in the same transaction;
// sync-applied writes go through the PutSynced variants and leave the dirty
// flag untouched.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository instance.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db.DB}
}

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func notFound(table, id string) error {
	return apperrors.New(apperrors.ErrNotFound, fmt.Sprintf("%s/%s not found", table, id))
}

// =====================================================
// Item Operations
// =====================================================

// CreateItem creates a new item and flags it dirty for the next sync pass.
func (r *Repository) CreateItem(ctx context.Context, item *models.Item) error {
	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = uuid.New()
	}
	item.CreatedAt = now
	item.UpdatedAt = now

	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
		INSERT INTO items (id, title, description, source, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, query, item.ID, item.Title, item.Description,
			item.Source, formatTime(item.CreatedAt), formatTime(item.UpdatedAt)); err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
		return markDirtyTx(ctx, tx, models.CollectionItems, item.ID, now)
	})
}

// GetItem retrieves an item by ID.
func (r *Repository) GetItem(ctx context.Context, id string) (*models.Item, error) {
	query := `
	SELECT id, title, description, source, created_at, updated_at
	FROM items WHERE id = ?
	`
	item, err := scanItem(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("items", id)
	}
	return item, err
}

// ListItems returns items ordered by creation time, newest first.
func (r *Repository) ListItems(ctx context.Context, limit, offset int) ([]*models.Item, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
	SELECT id, title, description, source, created_at, updated_at
	FROM items ORDER BY created_at DESC LIMIT ? OFFSET ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var items []*models.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// UpdateItem updates an existing item, advances its timestamp, and flags it
// dirty.
func (r *Repository) UpdateItem(ctx context.Context, item *models.Item) error {
	now := time.Now().UTC()
	item.UpdatedAt = now

	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
		UPDATE items SET title = ?, description = ?, source = ?, updated_at = ?
		WHERE id = ?
		`
		res, err := tx.ExecContext(ctx, query, item.Title, item.Description,
			item.Source, formatTime(item.UpdatedAt), item.ID)
		if err != nil {
			return fmt.Errorf("failed to update item: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return notFound("items", item.ID)
		}
		return markDirtyTx(ctx, tx, models.CollectionItems, item.ID, now)
	})
}

// DeleteItem removes an item. The sync metadata row is retained (and flagged
// dirty) so the push phase can observe the local deletion.
func (r *Repository) DeleteItem(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		deleted = true
		return markDirtyTx(ctx, tx, models.CollectionItems, id, time.Now().UTC())
	})
	return deleted, err
}

// CountItems returns the number of local items.
func (r *Repository) CountItems(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&count)
	return count, err
}

// PutItemSynced upserts an item without touching its dirty flag. Used when
// applying remote state during sync.
func (r *Repository) PutItemSynced(ctx context.Context, item *models.Item) error {
	query := `
	INSERT INTO items (id, title, description, source, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		source = excluded.source,
		updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, item.ID, item.Title, item.Description,
		item.Source, formatTime(item.CreatedAt), formatTime(item.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert item: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanItem(row rowScanner) (*models.Item, error) {
	var item models.Item
	var createdAt, updatedAt string
	if err := row.Scan(&item.ID, &item.Title, &item.Description, &item.Source,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if item.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &item, nil
}
