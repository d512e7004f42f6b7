// Package models provides data model definitions for the Snapfolio core.
package models

import (
	"encoding/json"
	"time"
)

// ConflictType classifies a detected local/remote divergence.
type ConflictType string

const (
	ConflictTypeUpdate           ConflictType = "update_conflict"
	ConflictTypeName             ConflictType = "name_conflict"
	ConflictTypeUniqueConstraint ConflictType = "unique_constraint_violation"
)

// Resolution records how a conflict was settled.
type Resolution string

const (
	ResolutionLocalWins  Resolution = "local_wins"
	ResolutionRemoteWins Resolution = "remote_wins"
	ResolutionSkipped    Resolution = "skipped"
)

// ConflictLogEntry is an immutable audit record of one detected conflict.
// Entries are append-only; the engine never mutates or deletes them.
type ConflictLogEntry struct {
	ID              string          `json:"id"`
	TableName       string          `json:"table_name"`
	RecordID        string          `json:"record_id"`
	ConflictType    ConflictType    `json:"conflict_type"`
	LocalPayload    json.RawMessage `json:"local_payload"`
	RemotePayload   json.RawMessage `json:"remote_payload,omitempty"`
	Resolution      Resolution      `json:"resolution"`
	ResolvedPayload json.RawMessage `json:"resolved_payload,omitempty"`
	DetectedAt      time.Time       `json:"detected_at"`
}
