package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pbms/apiserver/internal/authz"
	"github.com/pbms/apiserver/internal/services"
)

const defaultActivityLimit = 100

// ActivityHandler exposes the administrative audit log.
type ActivityHandler struct {
	activity *services.ActivityService
}

func NewActivityHandler(activity *services.ActivityService) *ActivityHandler {
	return &ActivityHandler{activity: activity}
}

// ActivityRouter registers the audit log route. Only administrators
// hold admin grants on the users resource.
func ActivityRouter(r chi.Router, activity *services.ActivityService) {
	handler := NewActivityHandler(activity)

	r.With(RequirePermission(authz.ResourceUsers, authz.ActionAdmin)).Get("/", handler.ListActivity)
}

func (h *ActivityHandler) ListActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := parseQueryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if limit < 1 {
		limit = defaultActivityLimit
	}

	entries, err := h.activity.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list activity log")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}
