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

// BusinessUnitHandler provides HTTP handlers for business units.
type BusinessUnitHandler struct {
	unitService *services.BusinessUnitService
	activity    *services.ActivityService
}

func NewBusinessUnitHandler(unitService *services.BusinessUnitService, activity *services.ActivityService) *BusinessUnitHandler {
	return &BusinessUnitHandler{unitService: unitService, activity: activity}
}

// BusinessUnitRouter registers business unit routes on the given router.
// Writes are restricted to administrators.
func BusinessUnitRouter(r chi.Router, unitService *services.BusinessUnitService, activity *services.ActivityService) {
	handler := NewBusinessUnitHandler(unitService, activity)

	r.With(RequirePermission(authz.ResourceBusinessUnits, authz.ActionRead)).Get("/", handler.ListUnits)
	r.With(RequirePermission(authz.ResourceBusinessUnits, authz.ActionWrite)).Post("/", handler.CreateUnit)
	r.Route("/{unitID}", func(r chi.Router) {
		r.With(RequirePermission(authz.ResourceBusinessUnits, authz.ActionRead)).Get("/", handler.GetUnit)
		r.With(RequirePermission(authz.ResourceBusinessUnits, authz.ActionWrite)).Put("/", handler.UpdateUnit)
		r.With(RequirePermission(authz.ResourceBusinessUnits, authz.ActionDelete)).Delete("/", handler.DeleteUnit)
	})
}

func (h *BusinessUnitHandler) ListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.unitService.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list business units")
		return
	}
	writeJSON(w, http.StatusOK, units)
}

func (h *BusinessUnitHandler) GetUnit(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "unitID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	unit, err := h.unitService.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "business unit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch business unit")
		return
	}

	writeJSON(w, http.StatusOK, unit)
}

// BusinessUnitUpsertRequest is the JSON payload for unit create/update.
type BusinessUnitUpsertRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *BusinessUnitHandler) CreateUnit(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req BusinessUnitUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	unit, err := h.unitService.Create(r.Context(), types.BusinessUnit{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create business unit")
		return
	}

	h.activity.Record(r.Context(), identity.UserID, "create", "business_unit", unit.ID, unit.Name)
	writeJSON(w, http.StatusCreated, unit)
}

func (h *BusinessUnitHandler) UpdateUnit(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "unitID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req BusinessUnitUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	unit, err := h.unitService.Update(r.Context(), types.BusinessUnit{
		ID:          id,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "business unit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update business unit")
		return
	}

	h.activity.Record(r.Context(), identity.UserID, "update", "business_unit", unit.ID, unit.Name)
	writeJSON(w, http.StatusOK, unit)
}

func (h *BusinessUnitHandler) DeleteUnit(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "unitID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.unitService.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "business unit not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete business unit")
		return
	}

	h.activity.Record(r.Context(), identity.UserID, "delete", "business_unit", id, "")
	w.WriteHeader(http.StatusNoContent)
}
