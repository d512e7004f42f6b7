// Package models provides data model definitions for the Snapfolio core.
package models

import "time"

// Item represents a captured piece of content: a screenshot, a shared URL,
// or a photo.
type Item struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EntityID implements Entity.
func (i *Item) EntityID() string { return i.ID }

// EntityUpdatedAt implements Entity.
func (i *Item) EntityUpdatedAt() time.Time { return i.UpdatedAt }

// Touch advances the UpdatedAt timestamp.
func (i *Item) Touch() {
	i.UpdatedAt = time.Now().UTC()
}
