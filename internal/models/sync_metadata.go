// Package models provides data model definitions for the Snapfolio core.
package models

import "time"

// EpochSentinel is the lower bound used for the first pull on an install
// that has never synced.
var EpochSentinel = time.Unix(0, 0).UTC()

// SyncMetadataRecord tracks per-record sync state. The pair
// (TableName, RecordID) is unique; a row is created the first time a record
// is mutated locally and is never deleted afterwards.
type SyncMetadataRecord struct {
	TableName    string     `json:"table_name"`
	RecordID     string     `json:"record_id"`
	IsDirty      bool       `json:"is_dirty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
