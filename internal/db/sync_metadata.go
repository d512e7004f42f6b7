package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/evchen/snapfolio/internal/models"
)

// =====================================================
// Sync Metadata Store
// =====================================================
//
// One row per (table_name, record_id). Rows are created the first time a
// record is mutated locally and are never deleted, so the table doubles as
// an audit of everything that ever existed locally.

const markDirtyQuery = `
INSERT INTO sync_metadata (table_name, record_id, is_dirty, last_synced_at, updated_at)
VALUES (?, ?, 1, NULL, ?)
ON CONFLICT(table_name, record_id) DO UPDATE SET
	is_dirty = 1,
	updated_at = excluded.updated_at
`

func markDirtyTx(ctx context.Context, tx *sql.Tx, col models.Collection, id string, now time.Time) error {
	if _, err := tx.ExecContext(ctx, markDirtyQuery, col.TableName(), id, formatTime(now)); err != nil {
		return fmt.Errorf("failed to mark %s/%s dirty: %w", col, id, err)
	}
	return nil
}

// MarkDirty flags a record as having unsynced local changes. Idempotent:
// repeated calls before a sync collapse to a single dirty flag.
func (r *Repository) MarkDirty(ctx context.Context, col models.Collection, id string) error {
	_, err := r.db.ExecContext(ctx, markDirtyQuery, col.TableName(), id, formatTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("failed to mark %s/%s dirty: %w", col, id, err)
	}
	return nil
}

// MarkSynced clears the dirty flag and records the sync time.
func (r *Repository) MarkSynced(ctx context.Context, col models.Collection, id string) error {
	now := formatTime(time.Now().UTC())
	query := `
	INSERT INTO sync_metadata (table_name, record_id, is_dirty, last_synced_at, updated_at)
	VALUES (?, ?, 0, ?, ?)
	ON CONFLICT(table_name, record_id) DO UPDATE SET
		is_dirty = 0,
		last_synced_at = excluded.last_synced_at,
		updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, col.TableName(), id, now, now); err != nil {
		return fmt.Errorf("failed to mark %s/%s synced: %w", col, id, err)
	}
	return nil
}

// DirtyIDs returns the ids currently flagged dirty for a collection.
// Ordered by record id for stable iteration.
func (r *Repository) DirtyIDs(ctx context.Context, col models.Collection) ([]string, error) {
	query := `
	SELECT record_id FROM sync_metadata
	WHERE table_name = ? AND is_dirty = 1
	ORDER BY record_id
	`
	rows, err := r.db.QueryContext(ctx, query, col.TableName())
	if err != nil {
		return nil, fmt.Errorf("failed to query dirty records: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LastSyncTime returns the maximum last_synced_at across all records, or the
// epoch sentinel when nothing has ever synced. The sentinel makes the first
// pull request every remote record regardless of age.
func (r *Repository) LastSyncTime(ctx context.Context) (time.Time, error) {
	var last sql.NullString
	query := `SELECT MAX(last_synced_at) FROM sync_metadata WHERE last_synced_at IS NOT NULL`
	if err := r.db.QueryRowContext(ctx, query).Scan(&last); err != nil {
		return time.Time{}, fmt.Errorf("failed to query last sync time: %w", err)
	}
	if !last.Valid {
		return models.EpochSentinel, nil
	}
	return parseTime(last.String)
}

// GetSyncMetadata returns the metadata row for one record, or nil when the
// record has never been tracked.
func (r *Repository) GetSyncMetadata(ctx context.Context, col models.Collection, id string) (*models.SyncMetadataRecord, error) {
	query := `
	SELECT table_name, record_id, is_dirty, last_synced_at, updated_at
	FROM sync_metadata WHERE table_name = ? AND record_id = ?
	`
	var rec models.SyncMetadataRecord
	var lastSynced sql.NullString
	var updatedAt string
	err := r.db.QueryRowContext(ctx, query, col.TableName(), id).Scan(
		&rec.TableName, &rec.RecordID, &rec.IsDirty, &lastSynced, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if lastSynced.Valid {
		t, err := parseTime(lastSynced.String)
		if err != nil {
			return nil, err
		}
		rec.LastSyncedAt = &t
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}
