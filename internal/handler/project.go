package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/crewdeck/internal/auth"
	"github.com/dukerupert/crewdeck/internal/model"
	"github.com/dukerupert/crewdeck/internal/relay"
	"github.com/dukerupert/crewdeck/internal/store"
)

type ProjectHandler struct {
	projects      *store.ProjectStore
	activities    *store.ActivityStore
	notifications *store.NotificationStore
	relay         *relay.Relay
	logger        *slog.Logger
}

func NewProjectHandler(ps *store.ProjectStore, as *store.ActivityStore, ns *store.NotificationStore, rl *relay.Relay, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects:      ps,
		activities:    as,
		notifications: ns,
		relay:         rl,
		logger:        logger.With("component", "projects"),
	}
}

func (h *ProjectHandler) member(r *http.Request, projectID int64) (*model.ProjectMember, error) {
	return membership(r, h.projects, projectID)
}

func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list projects", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", projects)
}

func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "projectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	m, err := h.member(r, id)
	if err != nil {
		h.logger.Error("check membership", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load project")
		return
	}
	if m == nil {
		writeError(w, http.StatusForbidden, "not a member of this project")
		return
	}

	project, err := h.projects.GetByID(id)
	if err != nil {
		h.logger.Error("get project", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load project")
		return
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", project)
}

type projectRequest struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	StartDate   *time.Time `json:"start_date"`
	EndDate     *time.Time `json:"end_date"`
	Budget      *float64   `json:"budget"`
	Color       string     `json:"color"`
}

func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	userID := auth.UserID(r.Context())
	project, err := h.projects.Create(req.Name, req.Description, userID, req.StartDate, req.EndDate, req.Budget, req.Color)
	if err != nil {
		h.logger.Error("create project", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	if err := h.activities.Log(project.ID, nil, userID, model.ActionProjectCreated, "created the project", nil, nil); err != nil {
		h.logger.Warn("log activity", "project_id", project.ID, "error", err)
	}

	writeSuccess(w, http.StatusCreated, "project created", project)
}

func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "projectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	m, err := h.member(r, id)
	if err != nil {
		h.logger.Error("check membership", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update project")
		return
	}
	if m == nil || (m.Role != model.MemberOwner && m.Role != model.MemberLead) {
		writeError(w, http.StatusForbidden, "only the owner or a lead can edit the project")
		return
	}

	existing, err := h.projects.GetByID(id)
	if err != nil {
		h.logger.Error("get project", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update project")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	req := projectRequest{
		Name:        existing.Name,
		Description: existing.Description,
		Status:      existing.Status,
		StartDate:   existing.StartDate,
		EndDate:     existing.EndDate,
		Budget:      existing.Budget,
		Color:       existing.Color,
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	project, err := h.projects.Update(id, req.Name, req.Description, req.Status, req.StartDate, req.EndDate, req.Budget, req.Color)
	if err != nil {
		h.logger.Error("update project", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update project")
		return
	}

	if err := h.activities.Log(id, nil, auth.UserID(r.Context()), model.ActionProjectUpdated, "updated the project", nil, nil); err != nil {
		h.logger.Warn("log activity", "project_id", id, "error", err)
	}
	h.relay.ProjectUpdated(project)

	writeSuccess(w, http.StatusOK, "project updated", project)
}

func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "projectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	m, err := h.member(r, id)
	if err != nil {
		h.logger.Error("check membership", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete project")
		return
	}
	if m == nil || m.Role != model.MemberOwner {
		writeError(w, http.StatusForbidden, "only the owner can delete the project")
		return
	}

	if err := h.projects.Delete(id); err != nil {
		h.logger.Error("delete project", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete project")
		return
	}
	writeSuccess(w, http.StatusOK, "project deleted", nil)
}

func (h *ProjectHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "projectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	m, err := h.member(r, id)
	if err != nil {
		h.logger.Error("check membership", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if m == nil {
		writeError(w, http.StatusForbidden, "not a member of this project")
		return
	}

	members, err := h.projects.ListMembers(id)
	if err != nil {
		h.logger.Error("list members", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", members)
}

type memberRequest struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

func (h *ProjectHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "projectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}

	m, err := h.member(r, id)
	if err != nil {
		h.logger.Error("check membership", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add member")
		return
	}
	if m == nil || m.Role != model.MemberOwner {
		writeError(w, http.StatusForbidden, "only the owner can add members")
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Role == "" {
		req.Role = model.MemberMember
	}

	project, err := h.projects.GetByID(id)
	if err != nil || project == nil {
		writeError(w, http.StatusNotFound, "project not found")
		return
	}

	added, err := h.projects.AddMember(id, req.UserID, req.Role)
	if err != nil {
		h.logger.Error("add member", "project_id", id, "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add member")
		return
	}

	if err := h.activities.Log(id, nil, auth.UserID(r.Context()), model.ActionMemberAdded, "added a member", nil, map[string]any{"member_id": req.UserID}); err != nil {
		h.logger.Warn("log activity", "project_id", id, "error", err)
	}

	notification, err := h.notifications.Create(req.UserID, model.NotifyProjectAdded, "project", &id,
		"Added to project", "You were added to "+project.Name, nil)
	if err != nil {
		h.logger.Warn("create notification", "user_id", req.UserID, "error", err)
	} else {
		h.relay.Notify(notification)
	}
	h.relay.MemberJoinedProject(id, added)

	writeSuccess(w, http.StatusCreated, "member added", added)
}

func (h *ProjectHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "projectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	m, err := h.member(r, id)
	if err != nil {
		h.logger.Error("check membership", "project_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}
	if m == nil || m.Role != model.MemberOwner {
		writeError(w, http.StatusForbidden, "only the owner can remove members")
		return
	}

	target, err := h.projects.GetMember(id, userID)
	if err != nil {
		h.logger.Error("get member", "project_id", id, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}
	if target == nil {
		writeError(w, http.StatusNotFound, "member not found")
		return
	}
	if target.Role == model.MemberOwner {
		writeError(w, http.StatusBadRequest, "cannot remove the project owner")
		return
	}

	if err := h.projects.RemoveMember(id, userID); err != nil {
		h.logger.Error("remove member", "project_id", id, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}

	if err := h.activities.Log(id, nil, auth.UserID(r.Context()), model.ActionMemberRemoved, "removed a member", nil, map[string]any{"member_id": userID}); err != nil {
		h.logger.Warn("log activity", "project_id", id, "error", err)
	}

	writeSuccess(w, http.StatusOK, "member removed", nil)
}
