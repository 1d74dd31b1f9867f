package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pbms/apiserver/internal/authz"
	"github.com/pbms/apiserver/internal/services"
)

// AnalyticsHandler provides HTTP handlers for portfolio analytics.
type AnalyticsHandler struct {
	analyticsService *services.AnalyticsService
}

func NewAnalyticsHandler(analyticsService *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// AnalyticsRouter registers analytics routes on the given router.
func AnalyticsRouter(r chi.Router, analyticsService *services.AnalyticsService) {
	handler := NewAnalyticsHandler(analyticsService)

	r.With(RequirePermission(authz.ResourceAnalytics, authz.ActionRead)).Get("/risks", handler.ProjectRisks)
}

// ProjectRisks returns budget and timeline risk assessments for every
// project visible to the caller.
func (h *AnalyticsHandler) ProjectRisks(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	risks, err := h.analyticsService.Risks(r.Context(), identity.Visibility())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to compute project risks")
		return
	}

	writeJSON(w, http.StatusOK, risks)
}
