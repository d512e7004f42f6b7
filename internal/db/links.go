package db

import (
	"context"
	"fmt"
	"time"

	"github.com/evchen/snapfolio/internal/models"
)

// =====================================================
// Junction Table Operations
// =====================================================
//
// Folder and tag membership is local organization state; the junction tables
// are not part of the synchronized collections.

// AddItemToFolder links an item into a folder. Idempotent.
func (r *Repository) AddItemToFolder(ctx context.Context, itemID, folderID string) error {
	query := `
	INSERT INTO item_folders (item_id, folder_id, created_at)
	VALUES (?, ?, ?)
	ON CONFLICT(item_id, folder_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, itemID, folderID, formatTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("failed to link item to folder: %w", err)
	}
	return nil
}

// RemoveItemFromFolder unlinks an item from a folder.
func (r *Repository) RemoveItemFromFolder(ctx context.Context, itemID, folderID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM item_folders WHERE item_id = ? AND folder_id = ?`, itemID, folderID)
	if err != nil {
		return fmt.Errorf("failed to unlink item from folder: %w", err)
	}
	return nil
}

// ListFolderItems returns the items linked into a folder, newest first.
func (r *Repository) ListFolderItems(ctx context.Context, folderID string) ([]*models.Item, error) {
	query := `
	SELECT i.id, i.title, i.description, i.source, i.created_at, i.updated_at
	FROM items i
	INNER JOIN item_folders f ON f.item_id = i.id
	WHERE f.folder_id = ?
	ORDER BY i.created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folder items: %w", err)
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

// TagItem attaches a tag to an item. Idempotent.
func (r *Repository) TagItem(ctx context.Context, itemID, tagID string) error {
	query := `
	INSERT INTO item_tags (item_id, tag_id, created_at)
	VALUES (?, ?, ?)
	ON CONFLICT(item_id, tag_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, itemID, tagID, formatTime(time.Now().UTC()))
	if err != nil {
		return fmt.Errorf("failed to tag item: %w", err)
	}
	return nil
}

// UntagItem detaches a tag from an item.
func (r *Repository) UntagItem(ctx context.Context, itemID, tagID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM item_tags WHERE item_id = ? AND tag_id = ?`, itemID, tagID)
	if err != nil {
		return fmt.Errorf("failed to untag item: %w", err)
	}
	return nil
}

// ListItemTags returns the tags attached to an item, ordered by name.
func (r *Repository) ListItemTags(ctx context.Context, itemID string) ([]*models.Tag, error) {
	query := `
	SELECT t.id, t.name, t.color, t.created_at, t.updated_at
	FROM tags t
	INNER JOIN item_tags it ON it.tag_id = t.id
	WHERE it.item_id = ?
	ORDER BY t.name
	`
	rows, err := r.db.QueryContext(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list item tags: %w", err)
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
