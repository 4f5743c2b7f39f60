package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/crewdeck/internal/auth"
	"github.com/dukerupert/crewdeck/internal/store"
)

type ActivityHandler struct {
	activities *store.ActivityStore
	tasks      *store.TaskStore
	projects   *store.ProjectStore
	logger     *slog.Logger
}

func NewActivityHandler(as *store.ActivityStore, ts *store.TaskStore, ps *store.ProjectStore, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{
		activities: as,
		tasks:      ts,
		projects:   ps,
		logger:     logger.With("component", "activity"),
	}
}

// requireProject parses {projectID} and checks membership, answering
// the request on failure.
func (h *ActivityHandler) requireProject(w http.ResponseWriter, r *http.Request) (int64, bool) {
	projectID, err := parseIDParam(r, "projectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return 0, false
	}
	m, err := membership(r, h.projects, projectID)
	if err != nil {
		h.logger.Error("check membership", "project_id", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check project access")
		return 0, false
	}
	if m == nil {
		writeError(w, http.StatusForbidden, "not a member of this project")
		return 0, false
	}
	return projectID, true
}

func (h *ActivityHandler) ByProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.requireProject(w, r)
	if !ok {
		return
	}
	limit, offset := parsePage(r, 50, 200)

	var (
		activities any
		err        error
	)
	if action := r.URL.Query().Get("action"); action != "" {
		activities, err = h.activities.ListByAction(action, limit, offset)
	} else {
		activities, err = h.activities.ListByProject(projectID, limit, offset)
	}
	if err != nil {
		h.logger.Error("list activity", "project_id", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list activity")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", activities)
}

func (h *ActivityHandler) ByTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseIDParam(r, "taskID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid task id")
		return
	}
	task, err := h.tasks.GetByID(taskID)
	if err != nil {
		h.logger.Error("get task", "task_id", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load task")
		return
	}
	if task == nil {
		writeError(w, http.StatusNotFound, "task not found")
		return
	}
	m, err := membership(r, h.projects, task.ProjectID)
	if err != nil {
		h.logger.Error("check membership", "project_id", task.ProjectID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to check project access")
		return
	}
	if m == nil {
		writeError(w, http.StatusForbidden, "not a member of this project")
		return
	}

	limit, _ := parsePage(r, 50, 200)
	activities, err := h.activities.ListByTask(taskID, limit)
	if err != nil {
		h.logger.Error("list task activity", "task_id", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list activity")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", activities)
}

// Mine returns the caller's own recent actions across all projects.
func (h *ActivityHandler) Mine(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r, 50, 200)
	activities, err := h.activities.ListByUser(auth.UserID(r.Context()), limit, offset)
	if err != nil {
		h.logger.Error("list user activity", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list activity")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", activities)
}

func (h *ActivityHandler) Stats(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.requireProject(w, r)
	if !ok {
		return
	}
	stats, err := h.activities.ProjectStats(projectID)
	if err != nil {
		h.logger.Error("activity stats", "project_id", projectID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", stats)
}
