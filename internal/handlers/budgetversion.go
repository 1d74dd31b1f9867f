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

// BudgetVersionHandler provides HTTP handlers for budget versions.
type BudgetVersionHandler struct {
	versionService *services.BudgetVersionService
	projectService *services.ProjectService
	notifications  *services.NotificationService
}

func NewBudgetVersionHandler(
	versionService *services.BudgetVersionService,
	projectService *services.ProjectService,
	notifications *services.NotificationService,
) *BudgetVersionHandler {
	return &BudgetVersionHandler{
		versionService: versionService,
		projectService: projectService,
		notifications:  notifications,
	}
}

// BudgetVersionRouter registers budget version routes on the given router.
func BudgetVersionRouter(
	r chi.Router,
	versionService *services.BudgetVersionService,
	projectService *services.ProjectService,
	notifications *services.NotificationService,
) {
	handler := NewBudgetVersionHandler(versionService, projectService, notifications)

	r.With(RequirePermission(authz.ResourceBudgetVersions, authz.ActionRead)).Get("/", handler.ListVersions)
	r.With(RequirePermission(authz.ResourceBudgetVersions, authz.ActionWrite)).Post("/", handler.CreateVersion)
	r.Route("/{versionID}", func(r chi.Router) {
		r.With(RequirePermission(authz.ResourceBudgetVersions, authz.ActionRead)).Get("/", handler.GetVersion)
		r.With(RequirePermission(authz.ResourceBudgetVersions, authz.ActionAdmin)).Post("/approve", handler.ApproveVersion)
		r.With(RequirePermission(authz.ResourceBudgetVersions, authz.ActionAdmin)).Post("/reject", handler.RejectVersion)
	})
}

func (h *BudgetVersionHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
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

	versions, err := h.versionService.ListByProject(r.Context(), identity.Visibility(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list budget versions")
		return
	}

	writeJSON(w, http.StatusOK, versions)
}

func (h *BudgetVersionHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "versionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	version, err := h.versionService.Get(r.Context(), identity.Visibility(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "budget version not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch budget version")
		return
	}

	writeJSON(w, http.StatusOK, version)
}

// BudgetVersionCreateRequest is the JSON payload for proposing a new
// budget version. Version numbers are assigned server side.
type BudgetVersionCreateRequest struct {
	ProjectID   int     `json:"project_id"`
	TotalBudget float64 `json:"total_budget"`
	Notes       string  `json:"notes"`
}

func (h *BudgetVersionHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req BudgetVersionCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.ProjectID < 1 {
		writeError(w, http.StatusBadRequest, "project_id is required")
		return
	}
	if req.TotalBudget < 0 {
		writeError(w, http.StatusBadRequest, "total_budget must be non-negative")
		return
	}

	if _, err := h.projectService.Get(r.Context(), identity.Visibility(), req.ProjectID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch project")
		return
	}

	version, err := h.versionService.Create(r.Context(), types.BudgetVersion{
		ProjectID:   req.ProjectID,
		TotalBudget: req.TotalBudget,
		Notes:       req.Notes,
		CreatedBy:   identity.UserID,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create budget version")
		return
	}

	writeJSON(w, http.StatusCreated, version)
}

func (h *BudgetVersionHandler) ApproveVersion(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, types.BudgetVersionStatusApproved)
}

func (h *BudgetVersionHandler) RejectVersion(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, types.BudgetVersionStatusRejected)
}

func (h *BudgetVersionHandler) review(w http.ResponseWriter, r *http.Request, status string) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "versionID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var version types.BudgetVersion
	if status == types.BudgetVersionStatusApproved {
		version, err = h.versionService.Approve(r.Context(), identity.Visibility(), id)
	} else {
		version, err = h.versionService.Reject(r.Context(), identity.Visibility(), id)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "budget version not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update budget version")
		return
	}

	notifType := types.NotificationTypeSuccess
	if status == types.BudgetVersionStatusRejected {
		notifType = types.NotificationTypeWarning
	}
	h.notifications.Notify(r.Context(), version.CreatedBy,
		"Budget version "+status, version.Notes, notifType)

	writeJSON(w, http.StatusOK, version)
}
