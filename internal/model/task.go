package model

import "time"

// Task statuses.
const (
	TaskTodo       = "todo"
	TaskInProgress = "in-progress"
	TaskReview     = "review"
	TaskDone       = "done"
)

// Task priorities.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

type Task struct {
	ID              int64      `json:"id"`
	ProjectID       int64      `json:"project_id"`
	Title           string     `json:"title"`
	Description     string     `json:"description,omitempty"`
	CreatorID       int64      `json:"creator_id"`
	Creator         *UserRef   `json:"creator,omitempty"`
	AssigneeID      *int64     `json:"assignee_id,omitempty"`
	Assignee        *UserRef   `json:"assignee,omitempty"`
	Status          string     `json:"status"`
	Priority        string     `json:"priority"`
	DueDate         *time.Time `json:"due_date,omitempty"`
	CompletedDate   *time.Time `json:"completed_date,omitempty"`
	Progress        int        `json:"progress"`
	Subtasks        []Subtask  `json:"subtasks"`
	Tags            []string   `json:"tags"`
	AttachmentCount int        `json:"attachment_count"`
	CommentCount    int        `json:"comment_count"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type Subtask struct {
	ID        int64  `json:"id"`
	TaskID    int64  `json:"task_id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Position  int    `json:"position"`
}
