package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/dukerupert/crewdeck/internal/model"
)

type AttachmentStore struct {
	db *sql.DB
}

func NewAttachmentStore(db *sql.DB) *AttachmentStore {
	return &AttachmentStore{db: db}
}

func scanAttachment(scanner interface{ Scan(...any) error }) (*model.Attachment, error) {
	var a model.Attachment
	var uploader model.UserRef
	err := scanner.Scan(
		&a.ID, &a.TaskID, &a.ProjectID, &a.FileName, &a.FileType, &a.FileSize,
		&a.StorageKey, &a.UploadedBy, &a.DeletedAt, &a.DeletedBy,
		&a.CreatedAt, &a.UpdatedAt, &uploader.Name, &uploader.Email,
	)
	if err != nil {
		return nil, err
	}
	uploader.ID = a.UploadedBy
	a.Uploader = &uploader
	return &a, nil
}

const attachmentCols = `att.id, att.task_id, att.project_id, att.file_name, att.file_type, att.file_size,
	att.storage_key, att.uploaded_by, att.deleted_at, att.deleted_by,
	att.created_at, att.updated_at, u.name, u.email`

func (s *AttachmentStore) Create(taskID, projectID int64, fileName, fileType string, fileSize int64, storageKey string, uploadedBy int64) (*model.Attachment, error) {
	res, err := s.db.Exec(
		`INSERT INTO attachments (task_id, project_id, file_name, file_type, file_size, storage_key, uploaded_by)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		taskID, projectID, fileName, fileType, fileSize, storageKey, uploadedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert attachment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("attachment id: %w", err)
	}
	return s.GetByID(id)
}

func (s *AttachmentStore) GetByID(id int64) (*model.Attachment, error) {
	row := s.db.QueryRow(
		`SELECT `+attachmentCols+` FROM attachments att
			JOIN users u ON u.id = att.uploaded_by WHERE att.id = ?`,
		id,
	)
	a, err := scanAttachment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment: %w", err)
	}
	return a, nil
}

// ListByTask returns attachments for a task, newest first. Soft-deleted
// rows are excluded.
func (s *AttachmentStore) ListByTask(taskID int64) ([]model.Attachment, error) {
	rows, err := s.db.Query(
		`SELECT `+attachmentCols+` FROM attachments att
			JOIN users u ON u.id = att.uploaded_by
			WHERE att.task_id = ? AND att.deleted_at IS NULL
			ORDER BY att.created_at DESC`,
		taskID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	defer rows.Close()

	attachments := []model.Attachment{}
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		attachments = append(attachments, *a)
	}
	return attachments, rows.Err()
}

// SoftDelete marks an attachment deleted without removing the stored
// object, keeping the row for audit.
func (s *AttachmentStore) SoftDelete(id, deletedBy int64) error {
	res, err := s.db.Exec(
		`UPDATE attachments
			SET deleted_at = CURRENT_TIMESTAMP, deleted_by = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ? AND deleted_at IS NULL`,
		deletedBy, id,
	)
	if err != nil {
		return fmt.Errorf("soft delete attachment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete attachment: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
