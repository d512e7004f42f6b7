// Package db tests for sync metadata tracking.
package db

import (
	"context"
	"testing"
	"time"

	"github.com/evchen/snapfolio/internal/models"
	"github.com/evchen/snapfolio/internal/uuid"
)

// TestMarkDirtyAndDirtyIDs verifies dirty flagging per collection.
func TestMarkDirtyAndDirtyIDs(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	idA, idB := "aaaa-record", "bbbb-record"
	if err := repo.MarkDirty(ctx, models.CollectionItems, idB); err != nil {
		t.Fatalf("MarkDirty() failed: %v", err)
	}
	if err := repo.MarkDirty(ctx, models.CollectionItems, idA); err != nil {
		t.Fatalf("MarkDirty() failed: %v", err)
	}
	if err := repo.MarkDirty(ctx, models.CollectionFolders, "cccc-folder"); err != nil {
		t.Fatalf("MarkDirty() failed: %v", err)
	}

	ids, err := repo.DirtyIDs(ctx, models.CollectionItems)
	if err != nil {
		t.Fatalf("DirtyIDs() failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("len(ids) = %d, want 2", len(ids))
	}
	// Stable order.
	if ids[0] != idA || ids[1] != idB {
		t.Errorf("ids = %v, want [%s %s]", ids, idA, idB)
	}

	folderIDs, err := repo.DirtyIDs(ctx, models.CollectionFolders)
	if err != nil {
		t.Fatalf("DirtyIDs() failed: %v", err)
	}
	if len(folderIDs) != 1 {
		t.Errorf("folder dirty count = %d, want 1", len(folderIDs))
	}
}

// TestMarkDirtyIdempotent verifies repeat flagging keeps one row.
func TestMarkDirtyIdempotent(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	id := uuid.New()
	for i := 0; i < 3; i++ {
		if err := repo.MarkDirty(ctx, models.CollectionTags, id); err != nil {
			t.Fatalf("MarkDirty() failed: %v", err)
		}
	}
	ids, err := repo.DirtyIDs(ctx, models.CollectionTags)
	if err != nil {
		t.Fatalf("DirtyIDs() failed: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("len(ids) = %d, want 1", len(ids))
	}
}

// TestMarkSynced verifies the dirty flag clears and the sync time is set.
func TestMarkSynced(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	id := uuid.New()
	if err := repo.MarkDirty(ctx, models.CollectionItems, id); err != nil {
		t.Fatalf("MarkDirty() failed: %v", err)
	}
	if err := repo.MarkSynced(ctx, models.CollectionItems, id); err != nil {
		t.Fatalf("MarkSynced() failed: %v", err)
	}

	ids, err := repo.DirtyIDs(ctx, models.CollectionItems)
	if err != nil {
		t.Fatalf("DirtyIDs() failed: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("dirty ids after MarkSynced = %v, want none", ids)
	}

	meta, err := repo.GetSyncMetadata(ctx, models.CollectionItems, id)
	if err != nil {
		t.Fatalf("GetSyncMetadata() failed: %v", err)
	}
	if meta == nil {
		t.Fatal("metadata row missing after MarkSynced")
	}
	if meta.IsDirty {
		t.Error("IsDirty should be false after MarkSynced")
	}
	if meta.LastSyncedAt == nil {
		t.Error("LastSyncedAt should be set after MarkSynced")
	}
}

// TestMarkSyncedWithoutPriorDirty verifies MarkSynced works for records that
// were never flagged, as pull-created records are.
func TestMarkSyncedWithoutPriorDirty(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	id := uuid.New()
	if err := repo.MarkSynced(ctx, models.CollectionFolders, id); err != nil {
		t.Fatalf("MarkSynced() failed: %v", err)
	}
	meta, err := repo.GetSyncMetadata(ctx, models.CollectionFolders, id)
	if err != nil {
		t.Fatalf("GetSyncMetadata() failed: %v", err)
	}
	if meta == nil || meta.IsDirty || meta.LastSyncedAt == nil {
		t.Errorf("metadata = %+v, want clean row with sync time", meta)
	}
}

// TestLastSyncTimeEpochSentinel verifies the never-synced sentinel.
func TestLastSyncTimeEpochSentinel(t *testing.T) {
	repo := openTestRepo(t)

	last, err := repo.LastSyncTime(context.Background())
	if err != nil {
		t.Fatalf("LastSyncTime() failed: %v", err)
	}
	if !last.Equal(models.EpochSentinel) {
		t.Errorf("LastSyncTime() = %v, want epoch sentinel", last)
	}
}

// TestLastSyncTimeMax verifies the newest sync time wins across collections.
func TestLastSyncTimeMax(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	if err := repo.MarkSynced(ctx, models.CollectionItems, uuid.New()); err != nil {
		t.Fatalf("MarkSynced() failed: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := repo.MarkSynced(ctx, models.CollectionFolders, uuid.New()); err != nil {
		t.Fatalf("MarkSynced() failed: %v", err)
	}

	last, err := repo.LastSyncTime(ctx)
	if err != nil {
		t.Fatalf("LastSyncTime() failed: %v", err)
	}
	if last.Equal(models.EpochSentinel) {
		t.Fatal("LastSyncTime() should not be the sentinel after syncing")
	}
	if time.Since(last) > time.Minute {
		t.Errorf("LastSyncTime() = %v, want recent", last)
	}

	// Dirty records never move the bound.
	meta, err := repo.GetSyncMetadata(ctx, models.CollectionFolders, "never-synced")
	if err != nil {
		t.Fatalf("GetSyncMetadata() failed: %v", err)
	}
	if meta != nil {
		t.Error("untracked record should have no metadata row")
	}
}

// TestRedirtyPreservesLastSynced verifies editing a synced record keeps its
// last sync timestamp while setting the dirty flag.
func TestRedirtyPreservesLastSynced(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	id := uuid.New()
	if err := repo.MarkSynced(ctx, models.CollectionItems, id); err != nil {
		t.Fatalf("MarkSynced() failed: %v", err)
	}
	metaBefore, err := repo.GetSyncMetadata(ctx, models.CollectionItems, id)
	if err != nil || metaBefore == nil || metaBefore.LastSyncedAt == nil {
		t.Fatalf("GetSyncMetadata() = %+v, %v", metaBefore, err)
	}

	if err := repo.MarkDirty(ctx, models.CollectionItems, id); err != nil {
		t.Fatalf("MarkDirty() failed: %v", err)
	}
	metaAfter, err := repo.GetSyncMetadata(ctx, models.CollectionItems, id)
	if err != nil {
		t.Fatalf("GetSyncMetadata() failed: %v", err)
	}
	if !metaAfter.IsDirty {
		t.Error("record should be dirty after MarkDirty")
	}
	if metaAfter.LastSyncedAt == nil || !metaAfter.LastSyncedAt.Equal(*metaBefore.LastSyncedAt) {
		t.Errorf("LastSyncedAt changed from %v to %v", metaBefore.LastSyncedAt, metaAfter.LastSyncedAt)
	}
}
