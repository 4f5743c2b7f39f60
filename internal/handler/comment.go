package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/crewdeck/internal/auth"
	"github.com/dukerupert/crewdeck/internal/model"
	"github.com/dukerupert/crewdeck/internal/relay"
	"github.com/dukerupert/crewdeck/internal/store"
)

type CommentHandler struct {
	comments      *store.CommentStore
	tasks         *store.TaskStore
	projects      *store.ProjectStore
	activities    *store.ActivityStore
	notifications *store.NotificationStore
	relay         *relay.Relay
	logger        *slog.Logger
}

func NewCommentHandler(cs *store.CommentStore, ts *store.TaskStore, ps *store.ProjectStore, as *store.ActivityStore, ns *store.NotificationStore, rl *relay.Relay, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		comments:      cs,
		tasks:         ts,
		projects:      ps,
		activities:    as,
		notifications: ns,
		relay:         rl,
		logger:        logger.With("component", "comments"),
	}
}

// loadTask resolves the {taskID} path segment and checks project
// membership, answering the request on any failure.
func (h *CommentHandler) loadTask(w http.ResponseWriter, r *http.Request) (*model.Task, bool) {
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

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	comments, err := h.comments.ListByTask(task.ID)
	if err != nil {
		h.logger.Error("list comments", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list comments")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", comments)
}

type commentRequest struct {
	Content         string  `json:"content"`
	ParentCommentID *int64  `json:"parent_comment_id"`
	Mentions        []int64 `json:"mentions"`
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	userID := auth.UserID(r.Context())
	comment, err := h.comments.Create(task.ID, userID, req.Content, req.ParentCommentID, req.Mentions)
	if err != nil {
		h.logger.Error("create comment", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create comment")
		return
	}

	if err := h.tasks.AdjustCommentCount(task.ID, 1); err != nil {
		h.logger.Warn("adjust comment count", "task_id", task.ID, "error", err)
	}
	if err := h.activities.Log(task.ProjectID, &task.ID, userID, model.ActionCommentAdded, "commented on "+task.Title, nil, nil); err != nil {
		h.logger.Warn("log activity", "task_id", task.ID, "error", err)
	}

	for _, mentioned := range req.Mentions {
		if mentioned == userID {
			continue
		}
		h.notifyUser(mentioned, model.NotifyMentioned, task, "You were mentioned",
			fmt.Sprintf("You were mentioned in a comment on %q", task.Title))
	}
	if task.AssigneeID != nil && *task.AssigneeID != userID && !contains(req.Mentions, *task.AssigneeID) {
		h.notifyUser(*task.AssigneeID, model.NotifyCommented, task, "New comment",
			fmt.Sprintf("New comment on %q", task.Title))
	}

	h.relay.CommentAdded(task.ProjectID, comment)
	writeSuccess(w, http.StatusCreated, "comment added", comment)
}

func contains(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// loadComment resolves the {commentID} path segment under a task route.
func (h *CommentHandler) loadComment(w http.ResponseWriter, r *http.Request, task *model.Task) (*model.Comment, bool) {
	id, err := parseIDParam(r, "commentID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid comment id")
		return nil, false
	}
	comment, err := h.comments.GetByID(id)
	if err != nil {
		h.logger.Error("get comment", "comment_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load comment")
		return nil, false
	}
	if comment == nil || comment.TaskID != task.ID {
		writeError(w, http.StatusNotFound, "comment not found")
		return nil, false
	}
	return comment, true
}

func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	comment, ok := h.loadComment(w, r, task)
	if !ok {
		return
	}
	if comment.AuthorID != auth.UserID(r.Context()) && !auth.IsAdmin(r.Context()) {
		writeError(w, http.StatusForbidden, "only the author can edit a comment")
		return
	}

	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	updated, err := h.comments.Update(comment.ID, req.Content)
	if err != nil {
		h.logger.Error("update comment", "comment_id", comment.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update comment")
		return
	}

	if err := h.activities.Log(task.ProjectID, &task.ID, auth.UserID(r.Context()), model.ActionCommentUpdated, "edited a comment", nil, nil); err != nil {
		h.logger.Warn("log activity", "task_id", task.ID, "error", err)
	}
	h.relay.CommentUpdated(updated)

	writeSuccess(w, http.StatusOK, "comment updated", updated)
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	comment, ok := h.loadComment(w, r, task)
	if !ok {
		return
	}
	if comment.AuthorID != auth.UserID(r.Context()) && !auth.IsAdmin(r.Context()) {
		writeError(w, http.StatusForbidden, "only the author can delete a comment")
		return
	}

	if err := h.comments.Delete(comment.ID); err != nil {
		h.logger.Error("delete comment", "comment_id", comment.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete comment")
		return
	}

	if err := h.tasks.AdjustCommentCount(task.ID, -1); err != nil {
		h.logger.Warn("adjust comment count", "task_id", task.ID, "error", err)
	}
	if err := h.activities.Log(task.ProjectID, &task.ID, auth.UserID(r.Context()), model.ActionCommentDeleted, "deleted a comment", nil, nil); err != nil {
		h.logger.Warn("log activity", "task_id", task.ID, "error", err)
	}
	h.relay.CommentDeleted(task.ID, comment.ID)

	writeSuccess(w, http.StatusOK, "comment deleted", nil)
}

type reactionRequest struct {
	Emoji string `json:"emoji"`
}

func (h *CommentHandler) AddReaction(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	comment, ok := h.loadComment(w, r, task)
	if !ok {
		return
	}

	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Emoji == "" {
		writeError(w, http.StatusBadRequest, "emoji is required")
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.comments.AddReaction(comment.ID, req.Emoji, userID); err != nil {
		h.logger.Error("add reaction", "comment_id", comment.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add reaction")
		return
	}
	h.relay.ReactionAdded(task.ID, comment.ID, req.Emoji, userID)
	writeSuccess(w, http.StatusOK, "reaction added", nil)
}

func (h *CommentHandler) RemoveReaction(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	comment, ok := h.loadComment(w, r, task)
	if !ok {
		return
	}
	emoji := r.PathValue("emoji")
	if emoji == "" {
		writeError(w, http.StatusBadRequest, "emoji is required")
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.comments.RemoveReaction(comment.ID, emoji, userID); err != nil {
		h.logger.Error("remove reaction", "comment_id", comment.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove reaction")
		return
	}
	h.relay.ReactionRemoved(task.ID, comment.ID, emoji, userID)
	writeSuccess(w, http.StatusOK, "reaction removed", nil)
}

func (h *CommentHandler) notifyUser(userID int64, kind string, task *model.Task, title, message string) {
	n, err := h.notifications.Create(userID, kind, "task", &task.ID, title, message,
		map[string]any{"project_id": task.ProjectID})
	if err != nil {
		h.logger.Warn("create notification", "user_id", userID, "error", err)
		return
	}
	h.relay.Notify(n)
}
