package sync

import (
	"context"
	"encoding/json"
	"fmt"
	stdsync "sync"
	"time"

	apperrors "github.com/evchen/snapfolio/internal/errors"
	"github.com/evchen/snapfolio/internal/logging"
	"github.com/evchen/snapfolio/internal/models"
	"github.com/evchen/snapfolio/internal/sync/conflict"
)

// Engine orchestrates full bidirectional synchronization between the local
// library and the remote store. One Engine serves one local database; SyncAll
// is safe to call from multiple goroutines but only one pass runs at a time.
type Engine struct {
	local    Local
	remote   RemoteStore
	resolver *conflict.Resolver

	clock   func() time.Time
	probe   func(ctx context.Context) error
	onEvent EventHandler

	mu         stdsync.Mutex
	state      State
	lastSync   *time.Time
	lastResult *Result
	lastErr    error
	errHistory []string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.clock = now }
}

// WithOnlineProbe overrides the connectivity check run before each pass.
// The default probe pings the remote store.
func WithOnlineProbe(probe func(ctx context.Context) error) Option {
	return func(e *Engine) { e.probe = probe }
}

// WithEventHandler registers a handler for sync lifecycle events.
func WithEventHandler(handler EventHandler) Option {
	return func(e *Engine) { e.onEvent = handler }
}

// NewEngine creates a sync engine over the given local stores and remote
// endpoint.
func NewEngine(local Local, remote RemoteStore, opts ...Option) *Engine {
	e := &Engine{
		local:    local,
		remote:   remote,
		resolver: conflict.NewResolver(),
		clock:    time.Now,
		state:    StateIdle,
	}
	e.probe = remote.Ping
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the engine's current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status returns a snapshot of the engine: auth and connectivity state,
// per-collection local and pending-dirty counts, and the last pass outcome.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	var pending Counts
	for _, col := range models.SyncOrder {
		ids, err := e.local.Metadata.DirtyIDs(ctx, col)
		if err != nil {
			return nil, fmt.Errorf("failed to count dirty %s: %w", col, err)
		}
		pending.add(col, len(ids))
	}

	var local Counts
	for _, c := range []struct {
		col   models.Collection
		count func(context.Context) (int, error)
	}{
		{models.CollectionFolders, e.local.Folders.Count},
		{models.CollectionTags, e.local.Tags.Count},
		{models.CollectionItems, e.local.Items.Count},
	} {
		n, err := c.count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", c.col, err)
		}
		local.add(c.col, n)
	}

	online := e.probe(ctx) == nil

	e.mu.Lock()
	defer e.mu.Unlock()
	status := &Status{
		State:           e.state,
		IsAuthenticated: e.remote.IsAuthenticated(),
		IsOnline:        online,
		LastSyncAt:      e.lastSync,
		LocalCounts:     local,
		PendingChanges:  pending,
		LastResult:      e.lastResult,
	}
	if e.lastErr != nil {
		status.LastError = e.lastErr.Error()
	}
	if len(e.errHistory) > 0 {
		status.RecentFailures = append([]string(nil), e.errHistory...)
	}
	return status, nil
}

// SyncAll runs one full sync pass: push dirty local records, then pull remote
// changes since the last sync. Individual record failures and per-collection
// pull failures are collected in the result and never abort the pass; only a
// failed precondition or cancellation does.
func (e *Engine) SyncAll(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.state == StateSyncing {
		e.mu.Unlock()
		return nil, apperrors.New(apperrors.ErrSyncInProgress, "sync already in progress")
	}
	e.state = StateSyncing
	e.mu.Unlock()

	result := &Result{StartedAt: e.clock()}

	if err := e.checkPreconditions(ctx); err != nil {
		e.finish(result, err)
		return nil, err
	}

	e.emit(Event{Type: EventStarted})
	logging.Info("Sync started", map[string]interface{}{"user_id": e.remote.UserID()})

	if err := e.pushAll(ctx, result); err != nil {
		e.finish(result, err)
		return result, err
	}

	// The pull bound is read after the push so records uploaded moments ago
	// are not immediately pulled back down.
	since, err := e.local.Metadata.LastSyncTime(ctx)
	if err != nil {
		err = apperrors.Wrap(apperrors.ErrDatabase, "failed to read last sync time", err)
		e.finish(result, err)
		return result, err
	}

	if err := e.pullAll(ctx, since, result); err != nil {
		e.finish(result, err)
		return result, err
	}

	e.finish(result, nil)
	logging.Info("Sync completed", map[string]interface{}{
		"pushed":             result.Pushed.Total(),
		"pulled":             result.Pulled.Total(),
		"conflicts_resolved": result.ConflictsResolved,
		"conflicts_logged":   result.ConflictsLogged,
		"skipped":            result.Skipped,
		"errors":             len(result.Errors),
		"duration_ms":        result.Duration.Milliseconds(),
	})
	return result, nil
}

// checkPreconditions enforces the auth and connectivity gates before any
// records move.
func (e *Engine) checkPreconditions(ctx context.Context) error {
	if !e.remote.IsAuthenticated() {
		return apperrors.New(apperrors.ErrSyncNotAuthenticated, "sign in required before sync")
	}
	if err := e.probe(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrRemoteUnavailable, "remote store unreachable", err)
	}
	if err := e.remote.EnsureUser(ctx); err != nil {
		return apperrors.Wrap(apperrors.ErrSyncFailed, "failed to ensure remote user", err)
	}
	return nil
}

func (e *Engine) finish(result *Result, err error) {
	result.FinishedAt = e.clock()
	result.Duration = result.FinishedAt.Sub(result.StartedAt)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastResult = result
	e.lastErr = err
	if err != nil {
		e.state = StateFailed
		e.recordFailure(err)
		e.emit(Event{Type: EventFailed, Message: err.Error(), Result: result})
		logging.Error("Sync failed", err)
		return
	}
	e.state = StateIdle
	t := result.FinishedAt
	e.lastSync = &t
	e.emit(Event{Type: EventCompleted, Result: result})
}

// pushAll uploads dirty records collection by collection in the fixed order.
func (e *Engine) pushAll(ctx context.Context, result *Result) error {
	if err := pushCollection(ctx, e, models.CollectionFolders, e.local.Folders, e.remote.Folders(), nil, result); err != nil {
		return err
	}
	if err := pushCollection(ctx, e, models.CollectionTags, e.local.Tags, e.remote.Tags(), e.tagNamePrecheck(), result); err != nil {
		return err
	}
	return pushCollection(ctx, e, models.CollectionItems, e.local.Items, e.remote.Items(), nil, result)
}

func (e *Engine) pullAll(ctx context.Context, since time.Time, result *Result) error {
	if err := pullCollection(ctx, e, models.CollectionFolders, e.local.Folders, e.remote.Folders(), since, result); err != nil {
		return err
	}
	if err := pullCollection(ctx, e, models.CollectionTags, e.local.Tags, e.remote.Tags(), since, result); err != nil {
		return err
	}
	return pullCollection(ctx, e, models.CollectionItems, e.local.Items, e.remote.Items(), since, result)
}

// precheckFunc inspects a dirty record before upload. A non-nil entry means
// the record must be skipped this pass and the entry logged.
type precheckFunc[T models.Entity] func(ctx context.Context, record T) (*models.ConflictLogEntry, error)

// tagNamePrecheck detects a remote tag carrying the same name under a
// different ID. Such tags are skipped and logged rather than merged; merging
// would silently rewrite item links on other devices.
func (e *Engine) tagNamePrecheck() precheckFunc[*models.Tag] {
	return func(ctx context.Context, tag *models.Tag) (*models.ConflictLogEntry, error) {
		remoteTag, err := e.remote.TagByName(ctx, tag.Name)
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if remoteTag.ID == tag.ID {
			return nil, nil
		}
		localPayload, err := json.Marshal(tag)
		if err != nil {
			return nil, err
		}
		remotePayload, err := json.Marshal(remoteTag)
		if err != nil {
			return nil, err
		}
		return &models.ConflictLogEntry{
			TableName:     models.CollectionTags.TableName(),
			RecordID:      tag.ID,
			ConflictType:  models.ConflictTypeName,
			LocalPayload:  localPayload,
			RemotePayload: remotePayload,
			Resolution:    models.ResolutionSkipped,
			DetectedAt:    e.clock(),
		}, nil
	}
}

// logConflict appends one audit entry and notifies listeners. A failed append
// propagates so the caller can leave the record dirty; the audit trail is
// written before any data moves.
func (e *Engine) logConflict(ctx context.Context, result *Result, entry *models.ConflictLogEntry) error {
	if err := e.local.Conflicts.AppendConflict(ctx, entry); err != nil {
		return err
	}
	result.ConflictsLogged++
	e.emit(Event{
		Type:       EventConflict,
		RecordID:   entry.RecordID,
		Message:    string(entry.ConflictType) + ": " + string(entry.Resolution),
		Collection: collectionOf(entry.TableName),
	})
	return nil
}

func collectionOf(tableName string) models.Collection {
	col, _ := models.ParseCollection(tableName)
	return col
}

// pushCollection uploads every dirty record of one collection. Returns an
// error only on cancellation; record failures land in the result.
func pushCollection[T models.Entity](ctx context.Context, e *Engine, col models.Collection, local LocalCollection[T], remote RemoteCollection[T], precheck precheckFunc[T], result *Result) error {
	ids, err := e.local.Metadata.DirtyIDs(ctx, col)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrDatabase, "failed to list dirty records", err)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}

		localRec, err := local.Get(ctx, id)
		if apperrors.Is(err, apperrors.ErrNotFound) {
			// Deleted locally after being marked dirty. Nothing to upload.
			result.Skipped++
			continue
		}
		if err != nil {
			result.recordError(col, id, "push", err)
			continue
		}

		if precheck != nil {
			entry, err := precheck(ctx, localRec)
			if err != nil {
				result.recordError(col, id, "push", err)
				continue
			}
			if entry != nil {
				if err := e.logConflict(ctx, result, entry); err != nil {
					result.recordError(col, id, "push", err)
					continue
				}
				result.Skipped++
				continue
			}
		}

		remoteRec, err := remote.Get(ctx, id)
		switch {
		case apperrors.Is(err, apperrors.ErrNotFound):
			if pushUpsert(ctx, e, col, id, localRec, remote, result) {
				result.Pushed.add(col, 1)
			}
		case err != nil:
			result.recordError(col, id, "push", err)
		default:
			pushResolve(ctx, e, col, id, localRec, remoteRec, local, remote, result)
		}
	}

	e.emit(Event{Type: EventProgress, Collection: col, Message: "push complete"})
	return nil
}

// pushResolve handles a dirty record that also exists remotely: both sides
// changed, so the resolver picks a winner by timestamp.
func pushResolve[T models.Entity](ctx context.Context, e *Engine, col models.Collection, id string, localRec, remoteRec T, local LocalCollection[T], remote RemoteCollection[T], result *Result) {
	decision := e.resolver.Resolve(localRec.EntityUpdatedAt(), remoteRec.EntityUpdatedAt())
	result.ConflictsResolved++

	localPayload, err := json.Marshal(localRec)
	if err != nil {
		result.recordError(col, id, "push", err)
		return
	}
	remotePayload, err := json.Marshal(remoteRec)
	if err != nil {
		result.recordError(col, id, "push", err)
		return
	}

	entry := &models.ConflictLogEntry{
		TableName:     col.TableName(),
		RecordID:      id,
		ConflictType:  models.ConflictTypeUpdate,
		LocalPayload:  localPayload,
		RemotePayload: remotePayload,
		DetectedAt:    e.clock(),
	}

	if decision.Winner == conflict.WinnerLocal {
		entry.Resolution = models.ResolutionLocalWins
		entry.ResolvedPayload = localPayload
		if err := e.logConflict(ctx, result, entry); err != nil {
			result.recordError(col, id, "push", err)
			return
		}
		if pushUpsert(ctx, e, col, id, localRec, remote, result) {
			result.Pushed.add(col, 1)
		}
		return
	}

	// Remote wins: the remote payload overwrites the local record, and the
	// upload proceeds with the winning payload so the remote row's
	// modification time reflects this resolution.
	entry.Resolution = models.ResolutionRemoteWins
	entry.ResolvedPayload = remotePayload
	if err := e.logConflict(ctx, result, entry); err != nil {
		result.recordError(col, id, "push", err)
		return
	}
	if err := local.PutSynced(ctx, remoteRec); err != nil {
		result.recordError(col, id, "push", err)
		return
	}
	pushUpsert(ctx, e, col, id, remoteRec, remote, result)
}

// pushUpsert uploads one record and marks it synced. Returns true when the
// record landed remotely and the metadata update succeeded.
func pushUpsert[T models.Entity](ctx context.Context, e *Engine, col models.Collection, id string, record T, remote RemoteCollection[T], result *Result) bool {
	if err := remote.Upsert(ctx, record); err != nil {
		if apperrors.Is(err, apperrors.ErrConstraint) {
			payload, merr := json.Marshal(record)
			if merr != nil {
				result.recordError(col, id, "push", merr)
				return false
			}
			entry := &models.ConflictLogEntry{
				TableName:    col.TableName(),
				RecordID:     id,
				ConflictType: models.ConflictTypeUniqueConstraint,
				LocalPayload: payload,
				Resolution:   models.ResolutionSkipped,
				DetectedAt:   e.clock(),
			}
			if lerr := e.logConflict(ctx, result, entry); lerr != nil {
				result.recordError(col, id, "push", lerr)
				return false
			}
			result.Skipped++
			return false
		}
		result.recordError(col, id, "push", err)
		return false
	}
	if err := e.local.Metadata.MarkSynced(ctx, col, id); err != nil {
		result.recordError(col, id, "push", err)
		return false
	}
	return true
}

// pullCollection downloads remote records changed since the given bound and
// applies the ones that are strictly newer than their local counterparts.
// A local record that is newer or equally new is left untouched: the next
// push settles it through the resolver, which also covers the equal-time
// case with its local preference.
func pullCollection[T models.Entity](ctx context.Context, e *Engine, col models.Collection, local LocalCollection[T], remote RemoteCollection[T], since time.Time, result *Result) error {
	changed, err := remote.ChangedSince(ctx, since)
	if err != nil {
		// One collection's listing failure must not stop the pull of the
		// others; record it and move on.
		result.recordError(col, "", "pull",
			apperrors.Wrap(apperrors.ErrSyncFailed, "failed to list remote changes", err))
		return nil
	}

	for _, remoteRec := range changed {
		if err := ctx.Err(); err != nil {
			return err
		}
		id := remoteRec.EntityID()

		localRec, err := local.Get(ctx, id)
		switch {
		case apperrors.Is(err, apperrors.ErrNotFound):
			if pullApply(ctx, e, col, id, remoteRec, local, result) {
				result.Pulled.add(col, 1)
			}
		case err != nil:
			result.recordError(col, id, "pull", err)
		case remoteRec.EntityUpdatedAt().After(localRec.EntityUpdatedAt()):
			if pullApply(ctx, e, col, id, remoteRec, local, result) {
				result.Pulled.add(col, 1)
			}
		}
	}

	e.emit(Event{Type: EventProgress, Collection: col, Message: "pull complete"})
	return nil
}

func pullApply[T models.Entity](ctx context.Context, e *Engine, col models.Collection, id string, record T, local LocalCollection[T], result *Result) bool {
	if err := local.PutSynced(ctx, record); err != nil {
		result.recordError(col, id, "pull", err)
		return false
	}
	if err := e.local.Metadata.MarkSynced(ctx, col, id); err != nil {
		result.recordError(col, id, "pull", err)
		return false
	}
	return true
}
