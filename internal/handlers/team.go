package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pbms/apiserver/internal/authz"
	"github.com/pbms/apiserver/internal/services"
	"github.com/pbms/apiserver/internal/store"
	"github.com/pbms/apiserver/types"
)

// TeamHandler provides HTTP handlers for project team membership.
type TeamHandler struct {
	teamService    *services.TeamService
	projectService *services.ProjectService
	notifications  *services.NotificationService
	activity       *services.ActivityService
}

func NewTeamHandler(
	teamService *services.TeamService,
	projectService *services.ProjectService,
	notifications *services.NotificationService,
	activity *services.ActivityService,
) *TeamHandler {
	return &TeamHandler{
		teamService:    teamService,
		projectService: projectService,
		notifications:  notifications,
		activity:       activity,
	}
}

// TeamRouter registers team membership routes on the given router.
func TeamRouter(
	r chi.Router,
	teamService *services.TeamService,
	projectService *services.ProjectService,
	notifications *services.NotificationService,
	activity *services.ActivityService,
) {
	handler := NewTeamHandler(teamService, projectService, notifications, activity)

	r.With(RequirePermission(authz.ResourceProjectTeams, authz.ActionRead)).Get("/", handler.ListMembers)
	r.With(RequirePermission(authz.ResourceProjectTeams, authz.ActionWrite)).Post("/", handler.AddMember)
	r.With(RequirePermission(authz.ResourceProjectTeams, authz.ActionDelete)).Delete("/{memberID}", handler.RemoveMember)
}

func (h *TeamHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	projectID, err := parseQueryInt(r, "project_id")
	if err != nil || projectID < 1 {
		writeError(w, http.StatusBadRequest, "project_id is required")
		return
	}

	members, err := h.teamService.ListByProject(r.Context(), identity.Visibility(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list team members")
		return
	}

	writeJSON(w, http.StatusOK, members)
}

// TeamAddRequest is the JSON payload for adding a team member.
type TeamAddRequest struct {
	ProjectID int    `json:"project_id"`
	UserID    int    `json:"user_id"`
	Role      string `json:"role"`
}

func (h *TeamHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req TeamAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.ProjectID < 1 || req.UserID < 1 {
		writeError(w, http.StatusBadRequest, "project_id and user_id are required")
		return
	}

	project, err := h.projectService.Get(r.Context(), identity.Visibility(), req.ProjectID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch project")
		return
	}

	member, err := h.teamService.Add(r.Context(), types.ProjectTeam{
		ProjectID: req.ProjectID,
		UserID:    req.UserID,
		Role:      req.Role,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to add team member")
		return
	}

	h.activity.Record(r.Context(), identity.UserID, "add_member", "project_team", member.ID, "")
	h.notifications.Notify(r.Context(), member.UserID,
		"Added to project", "You were added to "+project.Name, types.NotificationTypeInfo)
	writeJSON(w, http.StatusCreated, member)
}

func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "memberID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	member, err := h.teamService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "team member not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch team member")
		return
	}

	if _, err := h.projectService.Get(r.Context(), identity.Visibility(), member.ProjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "team member not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch project")
		return
	}

	if err := h.teamService.Remove(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "team member not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to remove team member")
		return
	}

	h.activity.Record(r.Context(), identity.UserID, "remove_member", "project_team", id, "")
	w.WriteHeader(http.StatusNoContent)
}
