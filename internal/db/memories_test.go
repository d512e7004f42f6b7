// Package db tests for the memories anniversary query.
package db

import (
	"context"
	"testing"
	"time"

	"github.com/evchen/snapfolio/internal/models"
	"github.com/evchen/snapfolio/internal/uuid"
)

func putItemOn(t *testing.T, repo *Repository, title string, createdAt time.Time) {
	t.Helper()
	item := &models.Item{
		ID:        uuid.New(),
		Title:     title,
		Source:    "photo",
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	if err := repo.PutItemSynced(context.Background(), item); err != nil {
		t.Fatalf("PutItemSynced() failed: %v", err)
	}
}

// TestMemoriesOn verifies prior-year items near the date are grouped by
// years ago.
func TestMemoriesOn(t *testing.T) {
	repo := openTestRepo(t)
	today := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	putItemOn(t, repo, "one year ago", time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC))
	putItemOn(t, repo, "one year ago, day off", time.Date(2025, 6, 16, 9, 0, 0, 0, time.UTC))
	putItemOn(t, repo, "three years ago", time.Date(2023, 6, 14, 9, 0, 0, 0, time.UTC))
	putItemOn(t, repo, "same year", time.Date(2026, 6, 15, 8, 0, 0, 0, time.UTC))
	putItemOn(t, repo, "wrong season", time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))

	groups, err := repo.MemoriesOn(context.Background(), today, 1)
	if err != nil {
		t.Fatalf("MemoriesOn() failed: %v", err)
	}

	byYears := map[int]int{}
	for _, g := range groups {
		byYears[g.YearsAgo] = len(g.Items)
	}
	if byYears[1] != 2 {
		t.Errorf("items one year ago = %d, want 2", byYears[1])
	}
	if byYears[3] != 1 {
		t.Errorf("items three years ago = %d, want 1", byYears[3])
	}
	if byYears[0] != 0 {
		t.Error("current-year items must not appear as memories")
	}

	total := 0
	for _, g := range groups {
		total += len(g.Items)
	}
	if total != 3 {
		t.Errorf("total memory items = %d, want 3", total)
	}
}

// TestMemoriesOnZeroWindow verifies an exact-day match only.
func TestMemoriesOnZeroWindow(t *testing.T) {
	repo := openTestRepo(t)
	today := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

	putItemOn(t, repo, "exact day", time.Date(2024, 6, 15, 9, 0, 0, 0, time.UTC))
	putItemOn(t, repo, "one day off", time.Date(2024, 6, 16, 9, 0, 0, 0, time.UTC))

	groups, err := repo.MemoriesOn(context.Background(), today, 0)
	if err != nil {
		t.Fatalf("MemoriesOn() failed: %v", err)
	}
	if len(groups) != 1 || len(groups[0].Items) != 1 {
		t.Fatalf("groups = %+v, want one group with one item", groups)
	}
	if groups[0].Items[0].Title != "exact day" {
		t.Errorf("title = %q, want 'exact day'", groups[0].Items[0].Title)
	}
}

// TestMemoriesOnYearBoundary verifies the window wraps across New Year.
func TestMemoriesOnYearBoundary(t *testing.T) {
	repo := openTestRepo(t)
	today := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	putItemOn(t, repo, "new years eve", time.Date(2024, 12, 31, 22, 0, 0, 0, time.UTC))

	groups, err := repo.MemoriesOn(context.Background(), today, 1)
	if err != nil {
		t.Fatalf("MemoriesOn() failed: %v", err)
	}
	found := false
	for _, g := range groups {
		for _, item := range g.Items {
			if item.Title == "new years eve" {
				found = true
			}
		}
	}
	if !found {
		t.Error("window should wrap across the year boundary")
	}
}

// TestMemoriesOnEmpty verifies an empty library returns no groups.
func TestMemoriesOnEmpty(t *testing.T) {
	repo := openTestRepo(t)

	groups, err := repo.MemoriesOn(context.Background(), time.Now().UTC(), 1)
	if err != nil {
		t.Fatalf("MemoriesOn() failed: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("groups = %d, want 0", len(groups))
	}
}
