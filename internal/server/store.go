package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	apperrors "github.com/evchen/snapfolio/internal/errors"
	"github.com/evchen/snapfolio/internal/models"
)

// Fixed fractional width keeps lexicographic order equal to chronological
// order for the changed-since range scans.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_records (
	user_id TEXT NOT NULL REFERENCES users(id),
	collection TEXT NOT NULL,
	id TEXT NOT NULL,
	name TEXT,
	payload TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (user_id, collection, id)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sync_records_tag_name
	ON sync_records(user_id, name)
	WHERE collection = 'tags' AND name IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_sync_records_updated
	ON sync_records(user_id, collection, updated_at);
`

// Record is one stored sync record. Payload is the client's JSON, stored
// verbatim; name and updated_at are extracted for indexing.
type Record struct {
	UserID     string
	Collection string
	ID         string
	Name       string
	Payload    json.RawMessage
	UpdatedAt  time.Time
}

// Store persists per-user sync records in SQLite.
type Store struct {
	db *sql.DB
}

// OpenStore opens (and creates if needed) the service database.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureUser creates the user row if it does not exist yet.
func (s *Store) EnsureUser(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO users (id, created_at) VALUES (?, ?)
	ON CONFLICT(id) DO NOTHING
	`, userID, time.Now().UTC().Format(timeLayout))
	return err
}

// Get returns one record, or an error carrying ErrNotFound.
func (s *Store) Get(ctx context.Context, userID, collection, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT user_id, collection, id, COALESCE(name, ''), payload, updated_at
	FROM sync_records
	WHERE user_id = ? AND collection = ? AND id = ?
	`, userID, collection, id)
	return scanRecord(row)
}

// GetTagByName returns the user's tag with the given name, or an error
// carrying ErrNotFound.
func (s *Store) GetTagByName(ctx context.Context, userID, name string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
	SELECT user_id, collection, id, COALESCE(name, ''), payload, updated_at
	FROM sync_records
	WHERE user_id = ? AND collection = 'tags' AND name = ?
	`, userID, name)
	return scanRecord(row)
}

// Upsert creates or replaces a record. A tag name collision with a different
// record surfaces as an error carrying ErrConstraint.
func (s *Store) Upsert(ctx context.Context, record *Record) error {
	var name interface{}
	if record.Collection == models.CollectionTags.TableName() && record.Name != "" {
		name = record.Name
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO sync_records (user_id, collection, id, name, payload, updated_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id, collection, id) DO UPDATE SET
		name = excluded.name,
		payload = excluded.payload,
		updated_at = excluded.updated_at
	`, record.UserID, record.Collection, record.ID, name,
		string(record.Payload), record.UpdatedAt.UTC().Format(timeLayout))
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConstraint, "record violates a uniqueness rule", err)
		}
		return err
	}
	return nil
}

// ChangedSince returns the user's records in a collection modified strictly
// after since, oldest first.
func (s *Store) ChangedSince(ctx context.Context, userID, collection string, since time.Time) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT user_id, collection, id, COALESCE(name, ''), payload, updated_at
	FROM sync_records
	WHERE user_id = ? AND collection = ? AND updated_at > ?
	ORDER BY updated_at ASC, id ASC
	`, userID, collection, since.UTC().Format(timeLayout))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var record Record
	var payload, updatedAt string
	err := row.Scan(&record.UserID, &record.Collection, &record.ID, &record.Name, &payload, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, apperrors.New(apperrors.ErrNotFound, "record not found")
	}
	if err != nil {
		return nil, err
	}
	record.Payload = json.RawMessage(payload)
	if record.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}
	record.UpdatedAt = record.UpdatedAt.UTC()
	return &record, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
