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
	"github.com/pbms/apiserver/types"
)

// MilestoneHandler provides HTTP handlers for project milestones.
type MilestoneHandler struct {
	milestoneService *services.MilestoneService
	projectService   *services.ProjectService
}

func NewMilestoneHandler(milestoneService *services.MilestoneService, projectService *services.ProjectService) *MilestoneHandler {
	return &MilestoneHandler{milestoneService: milestoneService, projectService: projectService}
}

// MilestoneRouter registers milestone routes on the given router.
func MilestoneRouter(r chi.Router, milestoneService *services.MilestoneService, projectService *services.ProjectService) {
	handler := NewMilestoneHandler(milestoneService, projectService)

	r.With(RequirePermission(authz.ResourceMilestones, authz.ActionRead)).Get("/", handler.ListMilestones)
	r.With(RequirePermission(authz.ResourceMilestones, authz.ActionWrite)).Post("/", handler.CreateMilestone)
	r.Route("/{milestoneID}", func(r chi.Router) {
		r.With(RequirePermission(authz.ResourceMilestones, authz.ActionRead)).Get("/", handler.GetMilestone)
		r.With(RequirePermission(authz.ResourceMilestones, authz.ActionWrite)).Put("/", handler.UpdateMilestone)
		r.With(RequirePermission(authz.ResourceMilestones, authz.ActionDelete)).Delete("/", handler.DeleteMilestone)
	})
}

func (h *MilestoneHandler) ListMilestones(w http.ResponseWriter, r *http.Request) {
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

	milestones, err := h.milestoneService.ListByProject(r.Context(), identity.Visibility(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list milestones")
		return
	}

	writeJSON(w, http.StatusOK, milestones)
}

func (h *MilestoneHandler) GetMilestone(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "milestoneID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	milestone, err := h.milestoneService.Get(r.Context(), identity.Visibility(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "milestone not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch milestone")
		return
	}

	writeJSON(w, http.StatusOK, milestone)
}

// MilestoneUpsertRequest is the JSON payload for milestone create/update.
type MilestoneUpsertRequest struct {
	ProjectID int    `json:"project_id"`
	Name      string `json:"name"`
	DueDate   string `json:"due_date"`
	Progress  int    `json:"progress"`
	Status    string `json:"status"`
}

func (req MilestoneUpsertRequest) toMilestone() (types.Milestone, error) {
	if strings.TrimSpace(req.Name) == "" {
		return types.Milestone{}, errors.New("name is required")
	}
	due, err := parseDate(req.DueDate)
	if err != nil {
		return types.Milestone{}, err
	}
	return types.Milestone{
		ProjectID: req.ProjectID,
		Name:      strings.TrimSpace(req.Name),
		DueDate:   due,
		Progress:  req.Progress,
		Status:    req.Status,
	}, nil
}

func (h *MilestoneHandler) CreateMilestone(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req MilestoneUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.ProjectID < 1 {
		writeError(w, http.StatusBadRequest, "project_id is required")
		return
	}

	milestone, err := req.toMilestone()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
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

	created, err := h.milestoneService.Create(r.Context(), milestone)
	if err != nil {
		if errors.Is(err, services.ErrInvalidProgress) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to create milestone")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *MilestoneHandler) UpdateMilestone(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "milestoneID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req MilestoneUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	parsed, err := req.toMilestone()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.milestoneService.Get(r.Context(), identity.Visibility(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "milestone not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch milestone")
		return
	}

	existing.Name = parsed.Name
	existing.DueDate = parsed.DueDate
	existing.Progress = parsed.Progress
	if parsed.Status != "" {
		existing.Status = parsed.Status
	}

	milestone, err := h.milestoneService.Update(r.Context(), existing)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidProgress):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "milestone not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update milestone")
		}
		return
	}

	writeJSON(w, http.StatusOK, milestone)
}

func (h *MilestoneHandler) DeleteMilestone(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "milestoneID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.milestoneService.Get(r.Context(), identity.Visibility(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "milestone not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch milestone")
		return
	}

	if err := h.milestoneService.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete milestone")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
