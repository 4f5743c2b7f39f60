package model

import "time"

type Comment struct {
	ID              int64      `json:"id"`
	TaskID          int64      `json:"task_id"`
	AuthorID        int64      `json:"author_id"`
	Author          *UserRef   `json:"author,omitempty"`
	Content         string     `json:"content"`
	ParentCommentID *int64     `json:"parent_comment_id,omitempty"`
	Mentions        []int64    `json:"mentions"`
	Reactions       []Reaction `json:"reactions"`
	Replies         []Comment  `json:"replies,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Reaction groups all users who reacted to a comment with the same emoji.
type Reaction struct {
	Emoji   string  `json:"emoji"`
	UserIDs []int64 `json:"user_ids"`
}
