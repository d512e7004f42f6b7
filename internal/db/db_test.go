// Package db tests for database connection management.
package db

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// openTestDB opens a migrated database in a temp directory.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := NewMigrator(db.DB).Up(); err != nil {
		t.Fatalf("Up() failed: %v", err)
	}
	return db
}

// openTestRepo opens a migrated database and wraps it in a Repository.
func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	return NewRepository(openTestDB(t))
}

// TestOpen verifies database opening with proper configuration.
func TestOpen(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "snapfolio_db_test_*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	db, err := Open(tmpDir)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	dbPath := filepath.Join(tmpDir, "snapfolio.db")
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}

	var result int
	if err := db.QueryRow("SELECT 1").Scan(&result); err != nil {
		t.Errorf("Database query failed: %v", err)
	}

	var walMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&walMode); err != nil {
		t.Errorf("Failed to check WAL mode: %v", err)
	}
	if walMode != "wal" {
		t.Errorf("WAL mode not enabled, got: %s", walMode)
	}

	var fkOn int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fkOn); err != nil {
		t.Errorf("Failed to check foreign keys: %v", err)
	}
	if fkOn != 1 {
		t.Error("Foreign keys not enabled")
	}
}

// TestOpenCreatesDataDir verifies a missing data directory is created.
func TestOpenCreatesDataDir(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", "data")
	db, err := Open(dataDir)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Error("Data directory was not created")
	}
}

// TestTimeRoundTrip verifies formatting preserves the instant.
func TestTimeRoundTrip(t *testing.T) {
	orig := time.Date(2025, 7, 14, 9, 30, 15, 123456789, time.UTC)
	parsed, err := parseTime(formatTime(orig))
	if err != nil {
		t.Fatalf("parseTime() failed: %v", err)
	}
	if !parsed.Equal(orig) {
		t.Errorf("round trip = %v, want %v", parsed, orig)
	}
}

// TestTimeLexicographicOrder verifies that string comparison of persisted
// timestamps matches chronological order, which MAX() and range filters
// depend on.
func TestTimeLexicographicOrder(t *testing.T) {
	base := time.Date(2025, 7, 14, 9, 30, 15, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(500 * time.Millisecond),
		base.Add(time.Second),
		base.Add(time.Second + time.Nanosecond),
	}
	for i := 1; i < len(times); i++ {
		a, b := formatTime(times[i-1]), formatTime(times[i])
		if !(a < b) {
			t.Errorf("formatTime(%v) = %q not lexicographically before %q", times[i-1], a, b)
		}
	}
}
