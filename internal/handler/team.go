package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/crewdeck/internal/auth"
	"github.com/dukerupert/crewdeck/internal/model"
	"github.com/dukerupert/crewdeck/internal/store"
)

const (
	inviteCodeLength = 6 // bytes of entropy, 12 hex chars
	inviteCodeTTL    = 7 * 24 * time.Hour
)

type TeamHandler struct {
	teams  *store.TeamStore
	logger *slog.Logger
}

func NewTeamHandler(ts *store.TeamStore, logger *slog.Logger) *TeamHandler {
	return &TeamHandler{teams: ts, logger: logger.With("component", "teams")}
}

func (h *TeamHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teams.ListForUser(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list teams", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list teams")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", teams)
}

func (h *TeamHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	teams, err := h.teams.ListPublic()
	if err != nil {
		h.logger.Error("list public teams", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list teams")
		return
	}
	writeSuccess(w, http.StatusOK, "ok", teams)
}

func (h *TeamHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "teamID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid team id")
		return
	}
	team, err := h.teams.GetByID(id)
	if err != nil {
		h.logger.Error("get team", "team_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load team")
		return
	}
	if team == nil {
		writeError(w, http.StatusNotFound, "team not found")
		return
	}

	if !team.IsPublic && !auth.IsAdmin(r.Context()) {
		m, err := h.teams.GetMember(id, auth.UserID(r.Context()))
		if err != nil {
			h.logger.Error("get team member", "team_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to load team")
			return
		}
		if m == nil {
			writeError(w, http.StatusForbidden, "not a member of this team")
			return
		}
	}
	writeSuccess(w, http.StatusOK, "ok", team)
}

type teamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPublic    bool   `json:"is_public"`
}

func (h *TeamHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req teamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	team, err := h.teams.Create(req.Name, req.Description, auth.UserID(r.Context()), req.IsPublic)
	if err != nil {
		h.logger.Error("create team", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create team")
		return
	}
	writeSuccess(w, http.StatusCreated, "team created", team)
}

// requireOwner loads the team and checks that the caller owns it,
// answering the request on any failure.
func (h *TeamHandler) requireOwner(w http.ResponseWriter, r *http.Request) (*model.Team, bool) {
	id, err := parseIDParam(r, "teamID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid team id")
		return nil, false
	}
	team, err := h.teams.GetByID(id)
	if err != nil {
		h.logger.Error("get team", "team_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load team")
		return nil, false
	}
	if team == nil {
		writeError(w, http.StatusNotFound, "team not found")
		return nil, false
	}
	if team.OwnerID != auth.UserID(r.Context()) && !auth.IsAdmin(r.Context()) {
		writeError(w, http.StatusForbidden, "only the owner can manage the team")
		return nil, false
	}
	return team, true
}

func (h *TeamHandler) Update(w http.ResponseWriter, r *http.Request) {
	team, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	req := teamRequest{Name: team.Name, Description: team.Description, IsPublic: team.IsPublic}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	updated, err := h.teams.Update(team.ID, req.Name, req.Description, req.IsPublic)
	if err != nil {
		h.logger.Error("update team", "team_id", team.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update team")
		return
	}
	writeSuccess(w, http.StatusOK, "team updated", updated)
}

func (h *TeamHandler) Delete(w http.ResponseWriter, r *http.Request) {
	team, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	if err := h.teams.Delete(team.ID); err != nil {
		h.logger.Error("delete team", "team_id", team.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete team")
		return
	}
	writeSuccess(w, http.StatusOK, "team deleted", nil)
}

func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	team, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	var req memberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Role == "" {
		req.Role = model.TeamRoleMember
	}

	member, err := h.teams.AddMember(team.ID, req.UserID, req.Role)
	if err != nil {
		h.logger.Error("add team member", "team_id", team.ID, "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to add member")
		return
	}
	writeSuccess(w, http.StatusCreated, "member added", member)
}

func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	team, ok := h.requireOwner(w, r)
	if !ok {
		return
	}
	userID, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	if userID == team.OwnerID {
		writeError(w, http.StatusBadRequest, "cannot remove the team owner")
		return
	}

	if err := h.teams.RemoveMember(team.ID, userID); err != nil {
		h.logger.Error("remove team member", "team_id", team.ID, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}
	writeSuccess(w, http.StatusOK, "member removed", nil)
}

func (h *TeamHandler) GenerateInvite(w http.ResponseWriter, r *http.Request) {
	team, ok := h.requireOwner(w, r)
	if !ok {
		return
	}

	buf := make([]byte, inviteCodeLength)
	if _, err := rand.Read(buf); err != nil {
		h.logger.Error("generate invite code", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate invite code")
		return
	}
	code := hex.EncodeToString(buf)
	expires := time.Now().UTC().Add(inviteCodeTTL)

	if err := h.teams.SetInviteCode(team.ID, code, expires); err != nil {
		h.logger.Error("set invite code", "team_id", team.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate invite code")
		return
	}
	writeSuccess(w, http.StatusOK, "invite code generated", map[string]any{
		"invite_code": code,
		"expires_at":  expires,
	})
}

type joinRequest struct {
	Code string `json:"code"`
}

func (h *TeamHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return
	}

	team, err := h.teams.GetByInviteCode(req.Code)
	if err != nil {
		h.logger.Error("lookup invite code", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to join team")
		return
	}
	if team == nil {
		writeError(w, http.StatusBadRequest, "invalid or expired invite code")
		return
	}

	userID := auth.UserID(r.Context())
	existing, err := h.teams.GetMember(team.ID, userID)
	if err != nil {
		h.logger.Error("get team member", "team_id", team.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to join team")
		return
	}
	if existing != nil {
		writeError(w, http.StatusBadRequest, "already a member of this team")
		return
	}

	member, err := h.teams.AddMember(team.ID, userID, model.TeamRoleMember)
	if err != nil {
		h.logger.Error("join team", "team_id", team.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to join team")
		return
	}
	writeSuccess(w, http.StatusOK, "joined team", map[string]any{
		"team":   team,
		"member": member,
	})
}
