package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evchen/snapfolio/internal/models"
)

// SearchOptions contains parameters for search queries.
type SearchOptions struct {
	// Query is the FTS5 search query (required)
	Query string

	// Limit is the maximum number of results (default: 20, max: 100)
	Limit int

	// Source filters results by item source (screenshot, url, photo)
	Source string

	// DateFrom filters results created at or after this time
	DateFrom time.Time

	// DateTo filters results created at or before this time
	DateTo time.Time
}

// SearchResult is a single search hit with its BM25 relevance score.
// Lower scores rank better, matching SQLite's rank column.
type SearchResult struct {
	Item      *models.Item
	Relevance float64
}

// SearchResponse contains search results and metadata.
type SearchResponse struct {
	Results []*SearchResult
	Total   int
	Query   string
}

// SearchItems performs FTS5 full-text search over item titles and
// descriptions, ranked by BM25.
func (r *Repository) SearchItems(ctx context.Context, opts *SearchOptions) (*SearchResponse, error) {
	if opts == nil || opts.Query == "" {
		return nil, fmt.Errorf("search query is required")
	}

	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}

	baseQuery := `
	SELECT i.id, i.title, i.description, i.source, i.created_at, i.updated_at, fts.rank
	FROM items i
	INNER JOIN items_fts fts ON i.rowid = fts.rowid
	WHERE items_fts MATCH ?
	`

	whereClauses := []string{}
	args := []interface{}{opts.Query}

	if opts.Source != "" {
		whereClauses = append(whereClauses, "i.source = ?")
		args = append(args, opts.Source)
	}
	if !opts.DateFrom.IsZero() {
		whereClauses = append(whereClauses, "i.created_at >= ?")
		args = append(args, formatTime(opts.DateFrom))
	}
	if !opts.DateTo.IsZero() {
		whereClauses = append(whereClauses, "i.created_at <= ?")
		args = append(args, formatTime(opts.DateTo))
	}

	if len(whereClauses) > 0 {
		baseQuery += " AND " + strings.Join(whereClauses, " AND ")
	}

	baseQuery += " ORDER BY fts.rank LIMIT ?"
	args = append(args, opts.Limit)

	rows, err := r.db.QueryContext(ctx, baseQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer rows.Close()

	var results []*SearchResult
	for rows.Next() {
		var item models.Item
		var createdAt, updatedAt string
		var rank float64
		err := rows.Scan(&item.ID, &item.Title, &item.Description, &item.Source,
			&createdAt, &updatedAt, &rank)
		if err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		if item.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if item.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		results = append(results, &SearchResult{Item: &item, Relevance: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating search results: %w", err)
	}

	// Total count without the limit applied.
	countQuery := `
	SELECT COUNT(*)
	FROM items i
	INNER JOIN items_fts fts ON i.rowid = fts.rowid
	WHERE items_fts MATCH ?
	`
	countArgs := []interface{}{opts.Query}
	if len(whereClauses) > 0 {
		countQuery += " AND " + strings.Join(whereClauses, " AND ")
		countArgs = append(countArgs, args[1:len(args)-1]...)
	}

	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count search results: %w", err)
	}

	return &SearchResponse{
		Results: results,
		Total:   total,
		Query:   opts.Query,
	}, nil
}

// SearchItemsSimple performs a search with just the query string.
func (r *Repository) SearchItemsSimple(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	return r.SearchItems(ctx, &SearchOptions{Query: query, Limit: limit})
}
