package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pbms/apiserver/internal/authz"
	"github.com/pbms/apiserver/internal/services"
	"github.com/pbms/apiserver/internal/store"
	"github.com/pbms/apiserver/types"
)

// ProjectHandler provides HTTP handlers for projects and the dashboard.
type ProjectHandler struct {
	projectService *services.ProjectService
	activity       *services.ActivityService
}

// NewProjectHandler constructs a handler with the provided services.
func NewProjectHandler(projectService *services.ProjectService, activity *services.ActivityService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		activity:       activity,
	}
}

// ProjectRouter registers project routes on the given router. All
// routes assume RequireAuth already ran.
func ProjectRouter(r chi.Router, projectService *services.ProjectService, activity *services.ActivityService) {
	handler := NewProjectHandler(projectService, activity)

	r.With(RequirePermission(authz.ResourceProjects, authz.ActionRead)).Get("/", handler.ListProjects)
	r.With(RequirePermission(authz.ResourceProjects, authz.ActionWrite)).Post("/", handler.CreateProject)
	r.With(RequirePermission(authz.ResourceDashboard, authz.ActionRead)).Get("/dashboard/metrics", handler.DashboardMetrics)
	r.Route("/{projectID}", func(r chi.Router) {
		r.With(RequirePermission(authz.ResourceProjects, authz.ActionRead)).Get("/", handler.GetProject)
		r.With(RequirePermission(authz.ResourceProjects, authz.ActionWrite)).Put("/", handler.UpdateProject)
		r.With(RequirePermission(authz.ResourceProjects, authz.ActionDelete)).Delete("/", handler.DeleteProject)
	})
}

func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.projectService.List(r.Context(), identity.Visibility(), offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}

	writeJSON(w, http.StatusOK, ProjectListResponse{
		Items: items,
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "projectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	project, err := h.projectService.Get(r.Context(), identity.Visibility(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch project")
		return
	}

	writeJSON(w, http.StatusOK, project)
}

func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	req, err := parseProjectRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	project := req.toProject()
	if project.ProjectManagerID == 0 {
		project.ProjectManagerID = identity.UserID
	}

	created, err := h.projectService.Create(r.Context(), project)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "projectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Visibility check before the blind update.
	if _, err := h.projectService.Get(r.Context(), identity.Visibility(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch project")
		return
	}

	req, err := parseProjectRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	project := req.toProject()
	project.ID = id

	updated, err := h.projectService.Update(r.Context(), project)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update project")
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "projectID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.projectService.Get(r.Context(), identity.Visibility(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch project")
		return
	}

	if err := h.projectService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "project not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete project")
		return
	}

	h.activity.Record(r.Context(), identity.UserID, "delete", "project", id, "")
	w.WriteHeader(http.StatusNoContent)
}

// DashboardMetrics returns headline aggregates over visible projects.
func (h *ProjectHandler) DashboardMetrics(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	metrics, err := h.projectService.Metrics(r.Context(), identity.Visibility())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute metrics")
		return
	}

	writeJSON(w, http.StatusOK, metrics)
}

// ProjectUpsertRequest is the JSON payload for create and update.
type ProjectUpsertRequest struct {
	Name             string  `json:"name"`
	Description      string  `json:"description"`
	TotalBudget      float64 `json:"total_budget"`
	AllocatedBudget  float64 `json:"allocated_budget"`
	BusinessUnitID   *int    `json:"business_unit_id"`
	ProjectManagerID int     `json:"project_manager_id"`
	StartDate        string  `json:"start_date"`
	EndDate          string  `json:"end_date"`
	Status           string  `json:"status"`
}

// ProjectListResponse is the paginated list response payload.
type ProjectListResponse struct {
	Items []types.Project `json:"items"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
	Total int             `json:"total"`
}

func parseProjectRequest(r *http.Request) (parsedProjectRequest, error) {
	var req ProjectUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return parsedProjectRequest{}, errors.New("invalid request")
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return parsedProjectRequest{}, errors.New("name is required")
	}
	if req.TotalBudget < 0 || req.AllocatedBudget < 0 {
		return parsedProjectRequest{}, errors.New("budgets must not be negative")
	}

	start, err := parseDate(req.StartDate)
	if err != nil {
		return parsedProjectRequest{}, err
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		return parsedProjectRequest{}, err
	}

	if req.Status != "" {
		switch req.Status {
		case types.ProjectStatusPlanning, types.ProjectStatusActive, types.ProjectStatusOnHold,
			types.ProjectStatusCompleted, types.ProjectStatusCancelled:
		default:
			return parsedProjectRequest{}, errors.New("invalid status")
		}
	}

	return parsedProjectRequest{req: req, start: start, end: end}, nil
}

type parsedProjectRequest struct {
	req   ProjectUpsertRequest
	start *time.Time
	end   *time.Time
}

func (p parsedProjectRequest) toProject() types.Project {
	return types.Project{
		Name:             p.req.Name,
		Description:      p.req.Description,
		TotalBudget:      p.req.TotalBudget,
		AllocatedBudget:  p.req.AllocatedBudget,
		BusinessUnitID:   p.req.BusinessUnitID,
		ProjectManagerID: p.req.ProjectManagerID,
		StartDate:        p.start,
		EndDate:          p.end,
		Status:           p.req.Status,
	}
}
