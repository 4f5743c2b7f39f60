package model

import "time"

type Attachment struct {
	ID         int64      `json:"id"`
	TaskID     int64      `json:"task_id"`
	ProjectID  int64      `json:"project_id"`
	FileName   string     `json:"file_name"`
	FileType   string     `json:"file_type"`
	FileSize   int64      `json:"file_size"`
	StorageKey string     `json:"-"`
	UploadedBy int64      `json:"uploaded_by"`
	Uploader   *UserRef   `json:"uploader,omitempty"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty"`
	DeletedBy  *int64     `json:"deleted_by,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
