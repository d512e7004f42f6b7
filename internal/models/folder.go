// Package models provides data model definitions for the Snapfolio core.
package models

import "time"

// Folder represents a user-defined container for organizing items.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityID implements Entity.
func (f *Folder) EntityID() string { return f.ID }

// EntityUpdatedAt implements Entity.
func (f *Folder) EntityUpdatedAt() time.Time { return f.UpdatedAt }

// Touch advances the UpdatedAt timestamp.
func (f *Folder) Touch() {
	f.UpdatedAt = time.Now().UTC()
}
