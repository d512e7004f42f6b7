// Package models provides data model definitions for the Snapfolio core.
package models

import (
	"fmt"
	"time"
)

// Collection identifies one of the three synchronized entity collections.
// It replaces string-keyed table dispatch: everything that needs a table
// name goes through TableName().
type Collection int

const (
	CollectionFolders Collection = iota
	CollectionTags
	CollectionItems
)

// SyncOrder is the fixed push order. Folders before tags before items keeps
// sync output deterministic; items reference folders and tags only through
// junction tables, so the order is not an integrity requirement.
var SyncOrder = [3]Collection{CollectionFolders, CollectionTags, CollectionItems}

// TableName returns the storage table name for the collection.
func (c Collection) TableName() string {
	switch c {
	case CollectionFolders:
		return "folders"
	case CollectionTags:
		return "tags"
	case CollectionItems:
		return "items"
	default:
		return fmt.Sprintf("collection(%d)", int(c))
	}
}

// String returns the table name.
func (c Collection) String() string {
	return c.TableName()
}

// ParseCollection maps a table name back to its Collection.
func ParseCollection(name string) (Collection, bool) {
	switch name {
	case "folders":
		return CollectionFolders, true
	case "tags":
		return CollectionTags, true
	case "items":
		return CollectionItems, true
	}
	return 0, false
}

// Entity is implemented by every synchronized record type.
type Entity interface {
	EntityID() string
	EntityUpdatedAt() time.Time
}
