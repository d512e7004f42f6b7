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
// Folder Operations
// =====================================================

// CreateFolder creates a new folder and flags it dirty for the next sync pass.
func (r *Repository) CreateFolder(ctx context.Context, folder *models.Folder) error {
	now := time.Now().UTC()
	if folder.ID == "" {
		folder.ID = uuid.New()
	}
	folder.CreatedAt = now
	folder.UpdatedAt = now

	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
		INSERT INTO folders (id, name, color, is_public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, query, folder.ID, folder.Name, folder.Color,
			folder.IsPublic, formatTime(folder.CreatedAt), formatTime(folder.UpdatedAt)); err != nil {
			return fmt.Errorf("failed to insert folder: %w", err)
		}
		return markDirtyTx(ctx, tx, models.CollectionFolders, folder.ID, now)
	})
}

// GetFolder retrieves a folder by ID.
func (r *Repository) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	query := `
	SELECT id, name, color, is_public, created_at, updated_at
	FROM folders WHERE id = ?
	`
	folder, err := scanFolder(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("folders", id)
	}
	return folder, err
}

// ListFolders returns all folders ordered by name.
func (r *Repository) ListFolders(ctx context.Context) ([]*models.Folder, error) {
	query := `
	SELECT id, name, color, is_public, created_at, updated_at
	FROM folders ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	defer rows.Close()

	var folders []*models.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, err
		}
		folders = append(folders, folder)
	}
	return folders, rows.Err()
}

// UpdateFolder updates an existing folder and flags it dirty.
func (r *Repository) UpdateFolder(ctx context.Context, folder *models.Folder) error {
	now := time.Now().UTC()
	folder.UpdatedAt = now

	return r.withTx(ctx, func(tx *sql.Tx) error {
		query := `
		UPDATE folders SET name = ?, color = ?, is_public = ?, updated_at = ?
		WHERE id = ?
		`
		res, err := tx.ExecContext(ctx, query, folder.Name, folder.Color,
			folder.IsPublic, formatTime(folder.UpdatedAt), folder.ID)
		if err != nil {
			return fmt.Errorf("failed to update folder: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return notFound("folders", folder.ID)
		}
		return markDirtyTx(ctx, tx, models.CollectionFolders, folder.ID, now)
	})
}

// DeleteFolder removes a folder; junction rows cascade.
func (r *Repository) DeleteFolder(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete folder: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return nil
		}
		deleted = true
		return markDirtyTx(ctx, tx, models.CollectionFolders, id, time.Now().UTC())
	})
	return deleted, err
}

// CountFolders returns the number of local folders.
func (r *Repository) CountFolders(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM folders`).Scan(&count)
	return count, err
}

// PutFolderSynced upserts a folder without touching its dirty flag.
func (r *Repository) PutFolderSynced(ctx context.Context, folder *models.Folder) error {
	query := `
	INSERT INTO folders (id, name, color, is_public, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		color = excluded.color,
		is_public = excluded.is_public,
		updated_at = excluded.updated_at
	`
	_, err := r.db.ExecContext(ctx, query, folder.ID, folder.Name, folder.Color,
		folder.IsPublic, formatTime(folder.CreatedAt), formatTime(folder.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert folder: %w", err)
	}
	return nil
}

func scanFolder(row rowScanner) (*models.Folder, error) {
	var folder models.Folder
	var createdAt, updatedAt string
	if err := row.Scan(&folder.ID, &folder.Name, &folder.Color, &folder.IsPublic,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if folder.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if folder.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &folder, nil
}
