package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pbms/apiserver/internal/authz"
	"github.com/pbms/apiserver/internal/services"
	"github.com/pbms/apiserver/internal/store"
)

// UserHandler provides HTTP handlers for user administration.
type UserHandler struct {
	userService *services.UserService
	activity    *services.ActivityService
}

func NewUserHandler(userService *services.UserService, activity *services.ActivityService) *UserHandler {
	return &UserHandler{userService: userService, activity: activity}
}

// UserRouter registers user administration routes on the given router.
// Only administrators hold grants on the users resource.
func UserRouter(r chi.Router, userService *services.UserService, activity *services.ActivityService) {
	handler := NewUserHandler(userService, activity)

	r.With(RequirePermission(authz.ResourceUsers, authz.ActionRead)).Get("/", handler.ListUsers)
	r.Route("/{userID}", func(r chi.Router) {
		r.With(RequirePermission(authz.ResourceUsers, authz.ActionRead)).Get("/", handler.GetUser)
		r.With(RequirePermission(authz.ResourceUsers, authz.ActionWrite)).Put("/", handler.UpdateUser)
		r.With(RequirePermission(authz.ResourceUsers, authz.ActionDelete)).Delete("/", handler.DeleteUser)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// UserUpdateRequest is the JSON payload for administrative user
// updates. Omitted fields keep their current values.
type UserUpdateRequest struct {
	FullName   *string `json:"full_name"`
	Department *string `json:"department"`
	Role       *string `json:"role"`
	IsActive   *bool   `json:"is_active"`
}

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UserUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch user")
		return
	}

	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Department != nil {
		user.Department = strings.TrimSpace(*req.Department)
	}
	if req.Role != nil {
		role := authz.ParseRole(*req.Role)
		if role == authz.RoleInvalid {
			writeError(w, http.StatusBadRequest, "unknown role")
			return
		}
		user.Role = role.String()
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	updated, err := h.userService.Update(r.Context(), user)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	h.activity.Record(r.Context(), identity.UserID, "update", "user", updated.ID, updated.Role)
	writeJSON(w, http.StatusOK, updated)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if id == identity.UserID {
		writeError(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}

	h.activity.Record(r.Context(), identity.UserID, "delete", "user", id, "")
	w.WriteHeader(http.StatusNoContent)
}
