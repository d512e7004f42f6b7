// Package scheduler runs periodic background sync passes.
package scheduler

import (
	"context"
	"time"

	apperrors "github.com/evchen/snapfolio/internal/errors"
	"github.com/evchen/snapfolio/internal/logging"
	"github.com/evchen/snapfolio/internal/sync"
)

// Syncer is the slice of the engine the scheduler drives.
type Syncer interface {
	SyncAll(ctx context.Context) (*sync.Result, error)
	State() sync.State
}

// DefaultInterval is used when no interval is configured.
const DefaultInterval = 5 * time.Minute

// passTimeout bounds one background pass so a stalled remote cannot pin the
// scheduler loop forever.
const passTimeout = 5 * time.Minute

// Scheduler triggers sync passes on a fixed interval while the process runs.
// Passes are skipped when a sync is already in flight or the remote store is
// unreachable.
type Scheduler struct {
	syncer   Syncer
	interval time.Duration
}

// New creates a scheduler. A non-positive interval falls back to
// DefaultInterval.
func New(syncer Syncer, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{syncer: syncer, interval: interval}
}

// Run blocks, firing a sync pass every interval until ctx is cancelled.
// Callers typically run it on its own goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info("Sync scheduler started", map[string]interface{}{
		"interval": s.interval.String(),
	})

	for {
		select {
		case <-ctx.Done():
			logging.Info("Sync scheduler stopped", nil)
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if s.syncer.State() == sync.StateSyncing {
		return
	}

	passCtx, cancel := context.WithTimeout(ctx, passTimeout)
	defer cancel()

	result, err := s.syncer.SyncAll(passCtx)
	if err != nil {
		// Expected when another caller started a pass first, or when the
		// device is offline. Both clear up on their own.
		if apperrors.Is(err, apperrors.ErrSyncInProgress) {
			return
		}
		if apperrors.Is(err, apperrors.ErrRemoteUnavailable) {
			logging.Debug("Skipping scheduled sync, remote unreachable", nil)
			return
		}
		logging.Warn("Scheduled sync failed", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if result != nil && !result.Ok() {
		logging.Warn("Scheduled sync completed with record errors", map[string]interface{}{
			"errors": len(result.Errors),
		})
	}
}
