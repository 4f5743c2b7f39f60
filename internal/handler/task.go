package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/crewdeck/internal/auth"
	"github.com/dukerupert/crewdeck/internal/model"
	"github.com/dukerupert/crewdeck/internal/relay"
	"github.com/dukerupert/crewdeck/internal/store"
)

type TaskHandler struct {
	tasks         *store.TaskStore
	projects      *store.ProjectStore
	activities    *store.ActivityStore
	notifications *store.NotificationStore
	relay         *relay.Relay
	logger        *slog.Logger
}

func NewTaskHandler(ts *store.TaskStore, ps *store.ProjectStore, as *store.ActivityStore, ns *store.NotificationStore, rl *relay.Relay, logger *slog.Logger) *TaskHandler {
	return &TaskHandler{
		tasks:         ts,
		projects:      ps,
		activities:    as,
		notifications: ns,
		relay:         rl,
		logger:        logger.With("component", "tasks"),
	}
}

// requireMember answers the request itself when access fails and
// reports whether the handler should continue.
func (h *TaskHandler) requireMember(w http.ResponseWriter, r *http.Request, projectID int64) bool {
	m, err := membership(r, h.projects, projectID)
	if err != nil {
		h.logger.Error("check membership", "project_id", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check project access")
		return false
	}
	if m == nil {
		writeError(w, http.StatusForbidden, "not a member of this project")
		return false
	}
	return true
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseIDParam(r, "projectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	if !h.requireMember(w, r, projectID) {
		return
	}

	filter := store.TaskFilter{
		Status:   r.URL.Query().Get("status"),
		Priority: r.URL.Query().Get("priority"),
		Search:   r.URL.Query().Get("search"),
	}
	if raw := r.URL.Query().Get("assignee"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid assignee id")
			return
		}
		filter.Assignee = &id
	}

	tasks, err := h.tasks.ListByProject(projectID, filter)
	if err != nil {
		h.logger.Error("list tasks", "project_id", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tasks")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	writeSuccess(w, http.StatusOK, "ok", task)
}

// loadTask parses the task id, checks project membership and answers
// the request on any failure.
func (h *TaskHandler) loadTask(w http.ResponseWriter, r *http.Request) (*model.Task, bool) {
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
	if !h.requireMember(w, r, task.ProjectID) {
		return nil, false
	}
	return task, true
}

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssigneeID  *int64     `json:"assignee_id"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	projectID, err := parseIDParam(r, "projectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	if !h.requireMember(w, r, projectID) {
		return
	}

	var req createTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}

	userID := auth.UserID(r.Context())
	task, err := h.tasks.Create(projectID, req.Title, req.Description, userID, req.AssigneeID, req.Priority, req.DueDate)
	if err != nil {
		h.logger.Error("create task", "project_id", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create task")
		return
	}

	h.logActivity(task, userID, model.ActionTaskCreated, "created task "+task.Title, nil)
	if task.AssigneeID != nil && *task.AssigneeID != userID {
		h.notifyUser(*task.AssigneeID, model.NotifyAssigned, task, "Task assigned",
			fmt.Sprintf("You were assigned to %q", task.Title))
	}
	h.relay.TaskUpdated(task)

	writeSuccess(w, http.StatusCreated, "task created", task)
}

type updateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssigneeID  *int64     `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
	Progress    int        `json:"progress"`
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	req := updateTaskRequest{
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		AssigneeID:  task.AssigneeID,
		DueDate:     task.DueDate,
		Progress:    task.Progress,
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if req.Progress < 0 || req.Progress > 100 {
		writeError(w, http.StatusBadRequest, "progress must be between 0 and 100")
		return
	}

	oldStatus := task.Status
	oldAssignee := task.AssigneeID

	completedDate := task.CompletedDate
	if req.Status != oldStatus {
		if req.Status == model.TaskDone {
			now := time.Now().UTC()
			completedDate = &now
			req.Progress = 100
		} else {
			completedDate = nil
		}
	}

	updated, err := h.tasks.Update(task.ID, req.Title, req.Description, req.Status, req.Priority, req.AssigneeID, req.DueDate, completedDate, req.Progress)
	if err != nil {
		h.logger.Error("update task", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update task")
		return
	}

	userID := auth.UserID(r.Context())
	switch {
	case updated.Status != oldStatus:
		h.logActivity(updated, userID, model.ActionTaskStatusChanged,
			fmt.Sprintf("moved %q from %s to %s", updated.Title, oldStatus, updated.Status),
			map[string]any{"status": map[string]any{"from": oldStatus, "to": updated.Status}})
		if updated.AssigneeID != nil && *updated.AssigneeID != userID {
			h.notifyUser(*updated.AssigneeID, model.NotifyStatusChanged, updated, "Task status changed",
				fmt.Sprintf("%q is now %s", updated.Title, updated.Status))
		}
		h.relay.TaskStatusChanged(updated, oldStatus)
	case assigneeChanged(oldAssignee, updated.AssigneeID):
		h.logActivity(updated, userID, model.ActionTaskAssigned, "reassigned "+updated.Title, nil)
		if updated.AssigneeID != nil {
			if *updated.AssigneeID != userID {
				h.notifyUser(*updated.AssigneeID, model.NotifyAssigned, updated, "Task assigned",
					fmt.Sprintf("You were assigned to %q", updated.Title))
			}
			h.relay.TaskAssigned(updated, *updated.AssigneeID)
		} else {
			h.relay.TaskUpdated(updated)
		}
	default:
		h.logActivity(updated, userID, model.ActionTaskUpdated, "updated task "+updated.Title, nil)
		h.relay.TaskUpdated(updated)
	}

	writeSuccess(w, http.StatusOK, "task updated", updated)
}

func assigneeChanged(before, after *int64) bool {
	switch {
	case before == nil && after == nil:
		return false
	case before == nil || after == nil:
		return true
	default:
		return *before != *after
	}
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	if err := h.tasks.Delete(task.ID); err != nil {
		h.logger.Error("delete task", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete task")
		return
	}

	userID := auth.UserID(r.Context())
	if err := h.activities.Log(task.ProjectID, nil, userID, model.ActionTaskDeleted, "deleted task "+task.Title, nil, nil); err != nil {
		h.logger.Warn("log activity", "task_id", task.ID, "error", err)
	}
	writeSuccess(w, http.StatusOK, "task deleted", nil)
}

type subtaskRequest struct {
	Title string `json:"title"`
}

func (h *TaskHandler) AddSubtask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	var req subtaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}

	if err := h.tasks.AddSubtask(task.ID, req.Title); err != nil {
		h.logger.Error("add subtask", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add subtask")
		return
	}
	h.refreshAndRelay(w, task.ID, http.StatusCreated, "subtask added")
}

func (h *TaskHandler) ToggleSubtask(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid subtask index")
		return
	}

	if err := h.tasks.ToggleSubtask(task.ID, index); err != nil {
		h.logger.Error("toggle subtask", "task_id", task.ID, "index", index, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle subtask")
		return
	}
	h.refreshAndRelay(w, task.ID, http.StatusOK, "subtask toggled")
}

type tagRequest struct {
	Tag string `json:"tag"`
}

func (h *TaskHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}

	var req tagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Tag = strings.TrimSpace(req.Tag)
	if req.Tag == "" {
		writeError(w, http.StatusBadRequest, "tag is required")
		return
	}

	if err := h.tasks.AddTag(task.ID, req.Tag); err != nil {
		h.logger.Error("add tag", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add tag")
		return
	}
	h.refreshAndRelay(w, task.ID, http.StatusOK, "tag added")
}

func (h *TaskHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	task, ok := h.loadTask(w, r)
	if !ok {
		return
	}
	tag := r.PathValue("tag")
	if tag == "" {
		writeError(w, http.StatusBadRequest, "tag is required")
		return
	}

	if err := h.tasks.RemoveTag(task.ID, tag); err != nil {
		h.logger.Error("remove tag", "task_id", task.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove tag")
		return
	}
	h.refreshAndRelay(w, task.ID, http.StatusOK, "tag removed")
}

// refreshAndRelay re-reads the task so the response carries the new
// subtask and tag state, then fans the update out to the project room.
func (h *TaskHandler) refreshAndRelay(w http.ResponseWriter, taskID int64, status int, message string) {
	task, err := h.tasks.GetByID(taskID)
	if err != nil || task == nil {
		h.logger.Error("reload task", "task_id", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load task")
		return
	}
	h.relay.TaskUpdated(task)
	writeSuccess(w, status, message, task)
}

func (h *TaskHandler) logActivity(task *model.Task, userID int64, action, description string, changes map[string]any) {
	if err := h.activities.Log(task.ProjectID, &task.ID, userID, action, description, changes, nil); err != nil {
		h.logger.Warn("log activity", "task_id", task.ID, "error", err)
	}
}

func (h *TaskHandler) notifyUser(userID int64, kind string, task *model.Task, title, message string) {
	n, err := h.notifications.Create(userID, kind, "task", &task.ID, title, message,
		map[string]any{"project_id": task.ProjectID})
	if err != nil {
		h.logger.Warn("create notification", "user_id", userID, "error", err)
		return
	}
	h.relay.Notify(n)
}
