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

// CategoryHandler provides HTTP handlers for budget categories.
type CategoryHandler struct {
	categoryService *services.CategoryService
	projectService  *services.ProjectService
}

func NewCategoryHandler(categoryService *services.CategoryService, projectService *services.ProjectService) *CategoryHandler {
	return &CategoryHandler{categoryService: categoryService, projectService: projectService}
}

// CategoryRouter registers budget category routes on the given router.
func CategoryRouter(r chi.Router, categoryService *services.CategoryService, projectService *services.ProjectService) {
	handler := NewCategoryHandler(categoryService, projectService)

	r.With(RequirePermission(authz.ResourceBudgetCategories, authz.ActionRead)).Get("/", handler.ListCategories)
	r.With(RequirePermission(authz.ResourceBudgetCategories, authz.ActionWrite)).Post("/", handler.CreateCategory)
	r.Route("/{categoryID}", func(r chi.Router) {
		r.With(RequirePermission(authz.ResourceBudgetCategories, authz.ActionRead)).Get("/", handler.GetCategory)
		r.With(RequirePermission(authz.ResourceBudgetCategories, authz.ActionWrite)).Put("/", handler.UpdateCategory)
		r.With(RequirePermission(authz.ResourceBudgetCategories, authz.ActionDelete)).Delete("/", handler.DeleteCategory)
	})
}

func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
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

	categories, err := h.categoryService.ListByProject(r.Context(), identity.Visibility(), projectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list budget categories")
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "categoryID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	category, err := h.categoryService.Get(r.Context(), identity.Visibility(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "budget category not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch budget category")
		return
	}

	writeJSON(w, http.StatusOK, category)
}

// CategoryUpsertRequest is the JSON payload for category create/update.
type CategoryUpsertRequest struct {
	ProjectID       int     `json:"project_id"`
	Name            string  `json:"name"`
	AllocatedAmount float64 `json:"allocated_amount"`
}

func (req CategoryUpsertRequest) validate() error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("name is required")
	}
	if req.AllocatedAmount < 0 {
		return errors.New("allocated_amount must be non-negative")
	}
	return nil
}

func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CategoryUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.ProjectID < 1 {
		writeError(w, http.StatusBadRequest, "project_id is required")
		return
	}
	if err := req.validate(); err != nil {
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

	category, err := h.categoryService.Create(r.Context(), types.BudgetCategory{
		ProjectID:       req.ProjectID,
		Name:            strings.TrimSpace(req.Name),
		AllocatedAmount: req.AllocatedAmount,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create budget category")
		return
	}

	writeJSON(w, http.StatusCreated, category)
}

func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "categoryID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req CategoryUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	existing, err := h.categoryService.Get(r.Context(), identity.Visibility(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "budget category not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch budget category")
		return
	}

	existing.Name = strings.TrimSpace(req.Name)
	existing.AllocatedAmount = req.AllocatedAmount

	category, err := h.categoryService.Update(r.Context(), existing)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "budget category not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update budget category")
		return
	}

	writeJSON(w, http.StatusOK, category)
}

func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "categoryID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.categoryService.Get(r.Context(), identity.Visibility(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "budget category not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch budget category")
		return
	}

	if err := h.categoryService.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete budget category")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
