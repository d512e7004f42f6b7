// Package conflict provides conflict resolution for multi-device synchronization.
package conflict

import (
	"time"
)

// Winner identifies which side of a conflict prevailed.
type Winner string

const (
	WinnerLocal  Winner = "local"
	WinnerRemote Winner = "remote"
)

const (
	ReasonLocalNewer    = "local newer"
	ReasonRemoteNewer   = "remote newer"
	ReasonSameTimestamp = "same timestamp, preferring local"
)

// Decision is the outcome of comparing two versions of the same record.
type Decision struct {
	Winner Winner
	Reason string
}

// Resolver resolves concurrent-edit conflicts with a last-write-wins strategy.
// It compares timestamps only and never inspects record payloads, so the same
// resolver serves every synced collection.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve compares the modification timestamps of both sides and picks a
// winner. Equal timestamps resolve to the local side so that a device never
// discards its own edit without a strictly newer remote one.
func (r *Resolver) Resolve(localUpdatedAt, remoteUpdatedAt time.Time) Decision {
	switch {
	case localUpdatedAt.After(remoteUpdatedAt):
		return Decision{Winner: WinnerLocal, Reason: ReasonLocalNewer}
	case remoteUpdatedAt.After(localUpdatedAt):
		return Decision{Winner: WinnerRemote, Reason: ReasonRemoteNewer}
	default:
		return Decision{Winner: WinnerLocal, Reason: ReasonSameTimestamp}
	}
}
