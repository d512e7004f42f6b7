package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evchen/snapfolio/internal/models"
	"github.com/evchen/snapfolio/internal/uuid"
)

// =====================================================
// Tag Operations
// =====================================================

// CreateTag creates a new tag and flags it dirty for the next sync pass.
// Local tag names are deliberately not unique: two devices may create tags
// with the same name and distinct ids, and the collision is only detected
// against the remote store during push.
func (r *Repository) CreateTag(ctx context.Context, tag *models.Tag) error {
	now := time.Now().UTC()
	if tag.ID == "" {
		tag.ID = uuid.New()
	}
	tag.CreatedAt = now
	tag.UpdatedAt = now

	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
		INSERT INTO tags (id, name, color, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, query, tag.ID, tag.Name, tag.Color,
			formatTime(tag.CreatedAt), formatTime(tag.UpdatedAt)); err != nil {
			return fmt.Errorf("failed to insert tag: %w", err)
		}
		return markDirtyTx(ctx, tx, models.CollectionTags, tag.ID, now)
	})
}

// GetTag retrieves a tag by ID.
func (r *Repository) GetTag(ctx context.Context, id string) (*models.Tag, error) {
	query := `
	SELECT id, name, color, created_at, updated_at
	FROM tags WHERE id = ?
	`
	tag, err := scanTag(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("tags", id)
	}
	return tag, err
}

// ListTags returns all tags ordered by name.
func (r *Repository) ListTags(ctx context.Context) ([]*models.Tag, error) {
	query := `
	SELECT id, name, color, created_at, updated_at
	FROM tags ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []*models.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// UpdateTag updates an existing tag and flags it dirty.
func (r *Repository) UpdateTag(ctx context.Context, tag *models.Tag) error {
	now := time.Now().UTC()
	tag.UpdatedAt = now

	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
		UPDATE tags SET name = ?, color = ?, updated_at = ?
		WHERE id = ?
		`
		res, err := tx.ExecContext(ctx, query, tag.Name, tag.Color,
			formatTime(tag.UpdatedAt), tag.ID)
		if err != nil {
			return fmt.Errorf("failed to update tag: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return notFound("tags", tag.ID)
		}
		return markDirtyTx(ctx, tx, models.CollectionTags, tag.ID, now)
	})
}

// DeleteTag removes a tag; junction rows cascade.
func (r *Repository) DeleteTag(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete tag: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		deleted = true
		return markDirtyTx(ctx, tx, models.CollectionTags, id, time.Now().UTC())
	})
	return deleted, err
}

// CountTags returns the number of local tags.
func (r *Repository) CountTags(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tags`).Scan(&count)
	return count, err
}

// PutTagSynced upserts a tag without touching its dirty flag.
func (r *Repository) PutTagSynced(ctx context.Context, tag *models.Tag) error {
	query := `
	INSERT INTO tags (id, name, color, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		color = excluded.color,
		updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, tag.ID, tag.Name, tag.Color,
		formatTime(tag.CreatedAt), formatTime(tag.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert tag: %w", err)
	}
	return nil
}

func scanTag(row rowScanner) (*models.Tag, error) {
	var tag models.Tag
	var createdAt, updatedAt string
	if err := row.Scan(&tag.ID, &tag.Name, &tag.Color, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if tag.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if tag.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &tag, nil
}
