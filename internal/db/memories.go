package db

import (
	"context"
	"fmt"
	"time"

	"github.com/evchen/snapfolio/internal/models"
)

// MemoryGroup holds the items captured around the same calendar date in a
// single prior year.
type MemoryGroup struct {
	YearsAgo int
	Items    []models.Item
}

// MemoriesOn returns items from previous years whose creation date falls
// within windowDays of the given date's month and day. Items from the
// current year are excluded; a fresh screenshot is not a memory.
func (r *Repository) MemoriesOn(ctx context.Context, date time.Time, windowDays int) ([]MemoryGroup, error) {
	if windowDays < 0 {
		windowDays = 0
	}
	date = date.UTC()

	// Match on the day-of-year window so the query stays a single pass over
	// created_at. The window wraps across year boundaries.
	lower := date.AddDate(0, 0, -windowDays).YearDay()
	upper := date.AddDate(0, 0, windowDays).YearDay()

	var dayFilter string
	if lower <= upper {
		dayFilter = "CAST(strftime('%j', created_at) AS INTEGER) BETWEEN ? AND ?"
	} else {
		dayFilter = "(CAST(strftime('%j', created_at) AS INTEGER) >= ? OR CAST(strftime('%j', created_at) AS INTEGER) <= ?)"
	}

	query := fmt.Sprintf(`
	SELECT id, title, description, source, created_at, updated_at
	FROM items
	WHERE %s
	  AND CAST(strftime('%%Y', created_at) AS INTEGER) < ?
	ORDER BY created_at DESC
	`, dayFilter)

	rows, err := r.db.QueryContext(ctx, query, lower, upper, date.Year())
	if err != nil {
		return nil, fmt.Errorf("memories query failed: %w", err)
	}
	defer rows.Close()

	grouped := map[int][]models.Item{}
	var order []int
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		yearsAgo := date.Year() - item.CreatedAt.Year()
		if yearsAgo <= 0 {
			continue
		}
		if _, ok := grouped[yearsAgo]; !ok {
			order = append(order, yearsAgo)
		}
		grouped[yearsAgo] = append(grouped[yearsAgo], *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	groups := make([]MemoryGroup, 0, len(order))
	for _, yearsAgo := range order {
		groups = append(groups, MemoryGroup{YearsAgo: yearsAgo, Items: grouped[yearsAgo]})
	}
	return groups, nil
}
