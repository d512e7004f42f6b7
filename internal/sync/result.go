package sync

import (
	"time"

	"github.com/evchen/snapfolio/internal/models"
)

// State represents the engine's current lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateFailed  State = "failed"
)

// RecordError describes a single record that failed during a sync pass.
// Record failures never abort the pass; they are collected here.
type RecordError struct {
	Collection models.Collection `json:"collection"`
	RecordID   string            `json:"record_id"`
	Phase      string            `json:"phase"`
	Message    string            `json:"message"`
}

// Counts holds per-collection record tallies for one direction.
type Counts struct {
	Folders int `json:"folders"`
	Tags    int `json:"tags"`
	Items   int `json:"items"`
}

// Total returns the sum across collections.
func (c Counts) Total() int {
	return c.Folders + c.Tags + c.Items
}

func (c *Counts) add(col models.Collection, n int) {
	switch col {
	case models.CollectionFolders:
		c.Folders += n
	case models.CollectionTags:
		c.Tags += n
	case models.CollectionItems:
		c.Items += n
	}
}

// Result is the aggregate outcome of one SyncAll pass.
type Result struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`

	Pushed Counts `json:"pushed"`
	Pulled Counts `json:"pulled"`

	// ConflictsResolved counts last-write-wins decisions made during push.
	ConflictsResolved int `json:"conflicts_resolved"`

	// ConflictsLogged counts every entry written to the conflict log during
	// this pass, including skips that resolved nothing.
	ConflictsLogged int `json:"conflicts_logged"`

	// Skipped counts records left for a later pass: tag name collisions,
	// uniqueness violations, and dirty records missing locally.
	Skipped int `json:"skipped"`

	// Errors holds per-record failures. The pass succeeded for every record
	// not listed here.
	Errors []RecordError `json:"errors,omitempty"`
}

// Ok reports whether the pass completed with no record errors.
func (r *Result) Ok() bool {
	return len(r.Errors) == 0
}

func (r *Result) recordError(col models.Collection, id, phase string, err error) {
	r.Errors = append(r.Errors, RecordError{
		Collection: col,
		RecordID:   id,
		Phase:      phase,
		Message:    err.Error(),
	})
}

// Status is a point-in-time snapshot of the engine for status endpoints.
type Status struct {
	State           State      `json:"state"`
	IsAuthenticated bool       `json:"is_authenticated"`
	IsOnline        bool       `json:"is_online"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`

	// LocalCounts holds the total records per collection in the local store;
	// PendingChanges holds how many of them are dirty and awaiting upload.
	LocalCounts    Counts `json:"local_counts"`
	PendingChanges Counts `json:"pending_changes"`

	LastResult     *Result  `json:"last_result,omitempty"`
	LastError      string   `json:"last_error,omitempty"`
	RecentFailures []string `json:"recent_failures,omitempty"`
}
