// Package models provides data model definitions for the Snapfolio core.
package models

import "time"

// Tag represents a user-defined label for organizing items.
type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityID implements Entity.
func (t *Tag) EntityID() string { return t.ID }

// EntityUpdatedAt implements Entity.
func (t *Tag) EntityUpdatedAt() time.Time { return t.UpdatedAt }

// Touch advances the UpdatedAt timestamp.
func (t *Tag) Touch() {
	t.UpdatedAt = time.Now().UTC()
}
