package model

import "time"

// Activity actions recorded in the project feed.
const (
	ActionTaskCreated       = "task-created"
	ActionTaskUpdated       = "task-updated"
	ActionTaskStatusChanged = "task-status-changed"
	ActionTaskAssigned      = "task-assigned"
	ActionTaskDeleted       = "task-deleted"
	ActionCommentAdded      = "comment-added"
	ActionCommentUpdated    = "comment-updated"
	ActionCommentDeleted    = "comment-deleted"
	ActionAttachmentAdded   = "attachment-added"
	ActionAttachmentDeleted = "attachment-deleted"
	ActionProjectCreated    = "project-created"
	ActionProjectUpdated    = "project-updated"
	ActionMemberAdded       = "member-added"
	ActionMemberRemoved     = "member-removed"
)

type Activity struct {
	ID          int64          `json:"id"`
	ProjectID   int64          `json:"project_id"`
	TaskID      *int64         `json:"task_id,omitempty"`
	UserID      int64          `json:"user_id"`
	User        *UserRef       `json:"user,omitempty"`
	Action      string         `json:"action"`
	Description string         `json:"description"`
	Changes     map[string]any `json:"changes,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ActivityStat is one row of a per-project activity breakdown.
type ActivityStat struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}
