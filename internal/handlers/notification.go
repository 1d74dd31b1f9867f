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

// NotificationHandler provides HTTP handlers for in-app notifications.
// All routes operate on the authenticated user's own notifications,
// except Create which lets administrators address any user.
type NotificationHandler struct {
	notificationService *services.NotificationService
}

func NewNotificationHandler(notificationService *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

// NotificationRouter registers notification routes on the given router.
func NotificationRouter(r chi.Router, notificationService *services.NotificationService) {
	handler := NewNotificationHandler(notificationService)

	r.With(RequirePermission(authz.ResourceNotifications, authz.ActionRead)).Get("/", handler.ListNotifications)
	r.With(RequirePermission(authz.ResourceNotifications, authz.ActionAdmin)).Post("/", handler.CreateNotification)
	r.With(RequirePermission(authz.ResourceNotifications, authz.ActionWrite)).Put("/read-all", handler.MarkAllRead)
	r.Route("/{notificationID}", func(r chi.Router) {
		r.With(RequirePermission(authz.ResourceNotifications, authz.ActionWrite)).Put("/read", handler.MarkRead)
		r.With(RequirePermission(authz.ResourceNotifications, authz.ActionWrite)).Delete("/", handler.DeleteNotification)
	})
}

func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifications, err := h.notificationService.ListByUser(r.Context(), identity.UserID, unreadOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}

	writeJSON(w, http.StatusOK, notifications)
}

// NotificationCreateRequest is the JSON payload for sending a
// notification to a user.
type NotificationCreateRequest struct {
	UserID  int    `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (h *NotificationHandler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var req NotificationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if req.UserID < 1 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if strings.TrimSpace(req.Title) == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	switch req.Type {
	case "":
		req.Type = types.NotificationTypeInfo
	case types.NotificationTypeInfo, types.NotificationTypeSuccess,
		types.NotificationTypeWarning, types.NotificationTypeError:
	default:
		writeError(w, http.StatusBadRequest, "invalid type")
		return
	}

	notification, err := h.notificationService.Create(r.Context(), types.Notification{
		UserID:  req.UserID,
		Title:   strings.TrimSpace(req.Title),
		Message: req.Message,
		Type:    req.Type,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create notification")
		return
	}

	writeJSON(w, http.StatusCreated, notification)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "notificationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), id, identity.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update notification")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.notificationService.MarkAllRead(r.Context(), identity.UserID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update notifications")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *NotificationHandler) DeleteNotification(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseIDParam(r, "notificationID")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.notificationService.Delete(r.Context(), id, identity.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete notification")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
