package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/evchen/snapfolio/internal/models"
	"github.com/evchen/snapfolio/internal/uuid"
)

// =====================================================
// Conflict Log
// =====================================================
//
// Append-only audit trail. No update or delete operations exist; entries are
// written once per detected conflict and kept forever.

// AppendConflict writes one conflict log entry. A storage failure propagates
// to the caller since audit continuity matters.
func (r *Repository) AppendConflict(ctx context.Context, entry *models.ConflictLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New()
	}
	query := `
	INSERT INTO conflict_log (id, table_name, record_id, conflict_type,
		local_payload, remote_payload, resolution, resolved_payload, detected_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query, entry.ID, entry.TableName, entry.RecordID,
		string(entry.ConflictType), string(entry.LocalPayload), nullablePayload(entry.RemotePayload),
		string(entry.Resolution), nullablePayload(entry.ResolvedPayload), formatTime(entry.DetectedAt))
	if err != nil {
		return fmt.Errorf("failed to append conflict log entry: %w", err)
	}
	return nil
}

// RecentConflicts returns the newest conflict log entries, newest first.
func (r *Repository) RecentConflicts(ctx context.Context, limit int) ([]models.ConflictLogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
	SELECT id, table_name, record_id, conflict_type, local_payload,
		remote_payload, resolution, resolved_payload, detected_at
	FROM conflict_log
	ORDER BY detected_at DESC, id
	LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conflict log: %w", err)
	}
	defer rows.Close()

	var entries []models.ConflictLogEntry
	for rows.Next() {
		var entry models.ConflictLogEntry
		var conflictType, resolution, localPayload, detectedAt string
		var remotePayload, resolvedPayload sql.NullString
		if err := rows.Scan(&entry.ID, &entry.TableName, &entry.RecordID, &conflictType,
			&localPayload, &remotePayload, &resolution, &resolvedPayload, &detectedAt); err != nil {
			return nil, err
		}
		entry.ConflictType = models.ConflictType(conflictType)
		entry.Resolution = models.Resolution(resolution)
		entry.LocalPayload = []byte(localPayload)
		if remotePayload.Valid {
			entry.RemotePayload = []byte(remotePayload.String)
		}
		if resolvedPayload.Valid {
			entry.ResolvedPayload = []byte(resolvedPayload.String)
		}
		if entry.DetectedAt, err = parseTime(detectedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// CountConflicts returns the total number of logged conflicts.
func (r *Repository) CountConflicts(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conflict_log`).Scan(&count)
	return count, err
}

func nullablePayload(p []byte) interface{} {
	if len(p) == 0 {
		return nil
	}
	return string(p)
}
