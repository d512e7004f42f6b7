// Package sync provides cloud synchronization for the local content library.
package sync

import (
	"context"
	"time"

	"github.com/evchen/snapfolio/internal/models"
)

// MetadataStore tracks the dirty flag and sync timestamps for every record in
// the synced collections.
type MetadataStore interface {
	// MarkDirty flags a record as having local changes pending upload.
	MarkDirty(ctx context.Context, col models.Collection, id string) error

	// MarkSynced clears the dirty flag and stamps the record's last sync time.
	MarkSynced(ctx context.Context, col models.Collection, id string) error

	// DirtyIDs returns every record ID in the collection with the dirty flag
	// set, in a stable order.
	DirtyIDs(ctx context.Context, col models.Collection) ([]string, error)

	// LastSyncTime returns the most recent sync timestamp across all
	// collections, or models.EpochSentinel if nothing has ever synced.
	LastSyncTime(ctx context.Context) (time.Time, error)
}

// ConflictStore persists the append-only conflict audit log.
type ConflictStore interface {
	AppendConflict(ctx context.Context, entry *models.ConflictLogEntry) error
}

// LocalCollection is the engine's view of one synced table in the local
// database.
type LocalCollection[T models.Entity] interface {
	// Get returns the record, or an error carrying ErrNotFound when absent.
	Get(ctx context.Context, id string) (T, error)

	// PutSynced creates or overwrites the record without setting the dirty
	// flag. Used when a remote version wins.
	PutSynced(ctx context.Context, record T) error

	// Count returns the number of records in the collection.
	Count(ctx context.Context) (int, error)
}

// RemoteCollection is the engine's view of one synced collection on the
// remote store.
type RemoteCollection[T models.Entity] interface {
	// Get returns the remote record, or an error carrying ErrNotFound.
	Get(ctx context.Context, id string) (T, error)

	// Upsert creates or replaces the remote record. A uniqueness violation
	// surfaces as an error carrying ErrConstraint.
	Upsert(ctx context.Context, record T) error

	// ChangedSince returns remote records modified strictly after since.
	ChangedSince(ctx context.Context, since time.Time) ([]T, error)
}

// RemoteStore is the authenticated remote endpoint the engine syncs against.
type RemoteStore interface {
	// IsAuthenticated reports whether a signed-in user session exists.
	IsAuthenticated() bool

	// UserID returns the authenticated user's ID, empty when signed out.
	UserID() string

	// EnsureUser makes sure the authenticated user exists on the remote
	// store, creating the account record if needed.
	EnsureUser(ctx context.Context) error

	// Ping checks remote reachability.
	Ping(ctx context.Context) error

	Folders() RemoteCollection[*models.Folder]
	Tags() RemoteCollection[*models.Tag]
	Items() RemoteCollection[*models.Item]

	// TagByName looks up a remote tag by its exact name. Returns an error
	// carrying ErrNotFound when no such tag exists.
	TagByName(ctx context.Context, name string) (*models.Tag, error)
}

// Local bundles the local stores the engine reads and writes.
type Local struct {
	Metadata  MetadataStore
	Conflicts ConflictStore
	Folders   LocalCollection[*models.Folder]
	Tags      LocalCollection[*models.Tag]
	Items     LocalCollection[*models.Item]
}
