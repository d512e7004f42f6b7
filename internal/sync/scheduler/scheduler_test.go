// Package scheduler tests.
package scheduler

import (
	"context"
	stdsync "sync"
	"testing"
	"time"

	apperrors "github.com/evchen/snapfolio/internal/errors"
	"github.com/evchen/snapfolio/internal/sync"
)

type fakeSyncer struct {
	mu      stdsync.Mutex
	calls   int
	state   sync.State
	err     error
	result  *sync.Result
	syncedC chan struct{}
}

func newFakeSyncer() *fakeSyncer {
	return &fakeSyncer{
		state:   sync.StateIdle,
		result:  &sync.Result{},
		syncedC: make(chan struct{}, 16),
	}
}

func (f *fakeSyncer) SyncAll(context.Context) (*sync.Result, error) {
	f.mu.Lock()
	f.calls++
	err := f.err
	result := f.result
	f.mu.Unlock()

	select {
	case f.syncedC <- struct{}{}:
	default:
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (f *fakeSyncer) State() sync.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeSyncer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// TestNewDefaultsInterval verifies the fallback for a non-positive interval.
func TestNewDefaultsInterval(t *testing.T) {
	s := New(newFakeSyncer(), 0)
	if s.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultInterval)
	}
	s = New(newFakeSyncer(), -time.Second)
	if s.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", s.interval, DefaultInterval)
	}
	s = New(newFakeSyncer(), time.Minute)
	if s.interval != time.Minute {
		t.Errorf("interval = %v, want 1m", s.interval)
	}
}

// TestRunFiresPasses verifies ticks trigger sync passes until cancellation.
func TestRunFiresPasses(t *testing.T) {
	syncer := newFakeSyncer()
	s := New(syncer, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	// Wait for at least two passes.
	for i := 0; i < 2; i++ {
		select {
		case <-syncer.syncedC:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for a scheduled pass")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancellation")
	}

	if syncer.callCount() < 2 {
		t.Errorf("calls = %d, want at least 2", syncer.callCount())
	}
}

// TestRunOnceSkipsWhileSyncing verifies an in-flight pass is not doubled.
func TestRunOnceSkipsWhileSyncing(t *testing.T) {
	syncer := newFakeSyncer()
	syncer.state = sync.StateSyncing
	s := New(syncer, time.Minute)

	s.runOnce(context.Background())
	if syncer.callCount() != 0 {
		t.Errorf("calls = %d, want 0 while a pass is in flight", syncer.callCount())
	}
}

// TestRunOnceToleratesExpectedErrors verifies the quiet-failure cases do not
// panic or retry inline.
func TestRunOnceToleratesExpectedErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"in progress", apperrors.New(apperrors.ErrSyncInProgress, "busy")},
		{"offline", apperrors.New(apperrors.ErrRemoteUnavailable, "unreachable")},
		{"other failure", apperrors.New(apperrors.ErrSyncFailed, "boom")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			syncer := newFakeSyncer()
			syncer.err = tc.err
			s := New(syncer, time.Minute)

			s.runOnce(context.Background())
			if syncer.callCount() != 1 {
				t.Errorf("calls = %d, want 1", syncer.callCount())
			}
		})
	}
}

// TestRunOnceReportsRecordErrors verifies a pass with record errors still
// counts as one completed call.
func TestRunOnceReportsRecordErrors(t *testing.T) {
	syncer := newFakeSyncer()
	syncer.result = &sync.Result{Errors: []sync.RecordError{{RecordID: "x", Phase: "push", Message: "boom"}}}
	s := New(syncer, time.Minute)

	s.runOnce(context.Background())
	if syncer.callCount() != 1 {
		t.Errorf("calls = %d, want 1", syncer.callCount())
	}
}
