package handler

import (
	"net/http"

	"github.com/dukerupert/crewdeck/internal/auth"
	"github.com/dukerupert/crewdeck/internal/model"
	"github.com/dukerupert/crewdeck/internal/store"
)

// membership resolves the caller's role in a project, or nil when the
// caller does not belong to it. Admins get a synthetic owner membership
// so they pass every role gate.
func membership(r *http.Request, projects *store.ProjectStore, projectID int64) (*model.ProjectMember, error) {
	userID := auth.UserID(r.Context())
	if auth.IsAdmin(r.Context()) {
		return &model.ProjectMember{ProjectID: projectID, UserID: userID, Role: model.MemberOwner}, nil
	}
	return projects.GetMember(projectID, userID)
}
