package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/dukerupert/crewdeck/internal/auth"
	"github.com/dukerupert/crewdeck/internal/blob"
	"github.com/dukerupert/crewdeck/internal/model"
	"github.com/dukerupert/crewdeck/internal/store"
)

const maxUploadSize = 10 << 20 // 10 MiB

// allowedFileTypes is the upload MIME allow-list. Anything else is
// rejected before a byte hits storage.
var allowedFileTypes = map[string]bool{
	"image/png":          true,
	"image/jpeg":         true,
	"image/gif":          true,
	"image/webp":         true,
	"application/pdf":    true,
	"text/plain":         true,
	"text/csv":           true,
	"application/zip":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       true,
}

type AttachmentHandler struct {
	attachments *store.AttachmentStore
	tasks       *store.TaskStore
	projects    *store.ProjectStore
	activities  *store.ActivityStore
	blobs       blob.Store
	logger      *slog.Logger
}

func NewAttachmentHandler(as *store.AttachmentStore, ts *store.TaskStore, ps *store.ProjectStore, acts *store.ActivityStore, blobs blob.Store, logger *slog.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		attachments: as,
		tasks:       ts,
		projects:    ps,
		activities:  acts,
		blobs:       blobs,
		logger:      logger.With("component", "attachments"),
	}
}

func (h *AttachmentHandler) loadTask(w http.ResponseWriter, r *http.Request) (*model.Task, bool) {
	id, err := parseIDParam(r, "taskID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return nil, false
	}
	task, err := h.tasks.GetByID(id)
	if err != nil {
		h.logger.Error("get task", "task_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load task")
		return nil, false
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return nil, false
	}
	m, err := membership(r, h.projects, task.ProjectID)
	if err != nil {
		h.logger.Error("check membership", "project_id", task.ProjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check project access")
		return nil, false
	}
	if m == nil {
		writeError(w, http.StatusForbidden, "not a member of this project")
		return nil, false
	}
	return task, true
}

func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file exceeds the 10 MB limit")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	fileType := header.Header.Get("Content-Type")
	if !allowedFileTypes[fileType] {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("file type %q is not allowed", fileType))
		return
	}

	key := blob.NewKey()
	if err := h.blobs.Put(r.Context(), key, file, header.Size, fileType); err != nil {
		h.logger.Error("store blob", "key", key, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store file")
		return
	}

	userID := auth.UserID(r.Context())
	fileName := filepath.Base(header.Filename)
	attachment, err := h.attachments.Create(task.ID, task.ProjectID, fileName, fileType, header.Size, key, userID)
	if err != nil {
		h.logger.Error("create attachment", "task_id", task.ID, "error", err)
		if derr := h.blobs.Delete(r.Context(), key); derr != nil {
			h.logger.Warn("orphaned blob", "key", key, "error", derr)
		}
		writeError(w, http.StatusInternalServerError, "failed to save attachment")
		return
	}

	if err := h.tasks.AdjustAttachmentCount(task.ID, 1); err != nil {
		h.logger.Warn("adjust attachment count", "task_id", task.ID, "error", err)
	}
	if err := h.activities.Log(task.ProjectID, &task.ID, userID, model.ActionAttachmentAdded, "attached "+fileName, nil, nil); err != nil {
		h.logger.Warn("log activity", "task_id", task.ID, "error", err)
	}

	writeSuccess(w, http.StatusCreated, "file uploaded", attachment)
}

func (h *AttachmentHandler) List(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	attachments, err := h.attachments.ListByTask(task.ID)
	if err != nil {
		h.logger.Error("list attachments", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list attachments")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", attachments)
}

// loadAttachment resolves {attachmentID} under a task route.
func (h *AttachmentHandler) loadAttachment(w http.ResponseWriter, r *http.Request, task *model.Task) (*model.Attachment, bool) {
	id, err := parseIDParam(r, "attachmentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid attachment id")
		return nil, false
	}
	attachment, err := h.attachments.GetByID(id)
	if err != nil {
		h.logger.Error("get attachment", "attachment_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load attachment")
		return nil, false
	}
	if attachment == nil || attachment.TaskID != task.ID || attachment.DeletedAt != nil {
		writeError(w, http.StatusNotFound, "attachment not found")
		return nil, false
	}
	return attachment, true
}

func (h *AttachmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	attachment, ok := h.loadAttachment(w, r, task)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, "ok", attachment)
}

func (h *AttachmentHandler) Download(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	attachment, ok := h.loadAttachment(w, r, task)
	if !ok {
		return
	}

	body, err := h.blobs.Get(r.Context(), attachment.StorageKey)
	if err != nil {
		h.logger.Error("read blob", "key", attachment.StorageKey, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", attachment.FileType)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", attachment.FileSize))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", attachment.FileName))
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("stream attachment", "attachment_id", attachment.ID, "error", err)
	}
}

func (h *AttachmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	attachment, ok := h.loadAttachment(w, r, task)
	if !ok {
		return
	}

	userID := auth.UserID(r.Context())
	if attachment.UploadedBy != userID && !auth.IsAdmin(r.Context()) {
		writeError(w, http.StatusForbidden, "only the uploader can delete an attachment")
		return
	}

	if err := h.attachments.SoftDelete(attachment.ID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "attachment not found")
			return
		}
		h.logger.Error("delete attachment", "attachment_id", attachment.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete attachment")
		return
	}

	if err := h.tasks.AdjustAttachmentCount(task.ID, -1); err != nil {
		h.logger.Warn("adjust attachment count", "task_id", task.ID, "error", err)
	}
	if err := h.activities.Log(task.ProjectID, &task.ID, userID, model.ActionAttachmentDeleted, "removed "+attachment.FileName, nil, nil); err != nil {
		h.logger.Warn("log activity", "task_id", task.ID, "error", err)
	}

	writeSuccess(w, http.StatusOK, "attachment deleted", nil)
}
