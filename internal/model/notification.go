package model

import "time"

// Notification types. Fixed set: the notification system is not a
// general-purpose event bus.
const (
	NotifyAssigned      = "assigned"
	NotifyDueSoon       = "due-soon"
	NotifyStatusChanged = "status-changed"
	NotifyMentioned     = "mentioned"
	NotifyCommented     = "commented"
	NotifyProjectAdded  = "project-added"
)

type Notification struct {
	ID         int64          `json:"id"`
	UserID     int64          `json:"user_id"`
	Type       string         `json:"type"`
	EntityType string         `json:"entity_type,omitempty"`
	EntityID   *int64         `json:"entity_id,omitempty"`
	Title      string         `json:"title"`
	Message    string         `json:"message"`
	Read       bool           `json:"read"`
	ReadAt     *time.Time     `json:"read_at,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
