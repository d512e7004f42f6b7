package db

import (
	"context"

	"github.com/evchen/snapfolio/internal/models"
)

// =====================================================
// Typed collection adapters
// =====================================================
//
// Each adapter exposes one synced table through a uniform method set so the
// sync engine can treat folders, tags, and items the same way without
// switching on table names.

// ItemCollection adapts item storage for the sync engine.
type ItemCollection struct{ repo *Repository }

// FolderCollection adapts folder storage for the sync engine.
type FolderCollection struct{ repo *Repository }

// TagCollection adapts tag storage for the sync engine.
type TagCollection struct{ repo *Repository }

// Items returns the item collection adapter.
func (r *Repository) Items() *ItemCollection { return &ItemCollection{repo: r} }

// Folders returns the folder collection adapter.
func (r *Repository) Folders() *FolderCollection { return &FolderCollection{repo: r} }

// Tags returns the tag collection adapter.
func (r *Repository) Tags() *TagCollection { return &TagCollection{repo: r} }

func (c *ItemCollection) Collection() models.Collection { return models.CollectionItems }

func (c *ItemCollection) Get(ctx context.Context, id string) (*models.Item, error) {
	return c.repo.GetItem(ctx, id)
}

func (c *ItemCollection) PutSynced(ctx context.Context, item *models.Item) error {
	return c.repo.PutItemSynced(ctx, item)
}

func (c *ItemCollection) Count(ctx context.Context) (int, error) {
	return c.repo.CountItems(ctx)
}

func (c *FolderCollection) Collection() models.Collection { return models.CollectionFolders }

func (c *FolderCollection) Get(ctx context.Context, id string) (*models.Folder, error) {
	return c.repo.GetFolder(ctx, id)
}

func (c *FolderCollection) PutSynced(ctx context.Context, folder *models.Folder) error {
	return c.repo.PutFolderSynced(ctx, folder)
}

func (c *FolderCollection) Count(ctx context.Context) (int, error) {
	return c.repo.CountFolders(ctx)
}

func (c *TagCollection) Collection() models.Collection { return models.CollectionTags }

func (c *TagCollection) Get(ctx context.Context, id string) (*models.Tag, error) {
	return c.repo.GetTag(ctx, id)
}

func (c *TagCollection) PutSynced(ctx context.Context, tag *models.Tag) error {
	return c.repo.PutTagSynced(ctx, tag)
}

func (c *TagCollection) Count(ctx context.Context) (int, error) {
	return c.repo.CountTags(ctx)
}
