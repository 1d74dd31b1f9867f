package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbms/apiserver/internal/authz"
	"github.com/pbms/apiserver/internal/services"
	"github.com/pbms/apiserver/types"
)

func newNotificationRouter(identity Identity) (http.Handler, *fakeNotificationRepo) {
	repo := &fakeNotificationRepo{}
	notificationService := services.NewNotificationService(repo, nil, nil)

	router := chi.NewRouter()
	router.Use(withIdentity(identity))
	router.Route("/notifications", func(r chi.Router) {
		NotificationRouter(r, notificationService)
	})
	return router, repo
}

func TestCreateNotificationDefaultsTypeToInfo(t *testing.T) {
	handler, _ := newNotificationRouter(Identity{UserID: 1, Role: authz.RoleAdmin})

	rec := doJSON(t, handler, http.MethodPost, "/notifications", map[string]any{
		"user_id": 7,
		"title":   "Budget approved",
		"message": "Version 2 was approved",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created types.Notification
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, types.NotificationTypeInfo, created.Type)
}

func TestCreateNotificationRejectsUnknownType(t *testing.T) {
	handler, repo := newNotificationRouter(Identity{UserID: 1, Role: authz.RoleAdmin})

	rec := doJSON(t, handler, http.MethodPost, "/notifications", map[string]any{
		"user_id": 7,
		"title":   "Budget approved",
		"type":    "urgent",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid type")
	assert.Empty(t, repo.notifications)
}

func TestCreateNotificationAcceptsKnownTypes(t *testing.T) {
	handler, _ := newNotificationRouter(Identity{UserID: 1, Role: authz.RoleAdmin})

	for _, typ := range []string{
		types.NotificationTypeInfo,
		types.NotificationTypeSuccess,
		types.NotificationTypeWarning,
		types.NotificationTypeError,
	} {
		rec := doJSON(t, handler, http.MethodPost, "/notifications", map[string]any{
			"user_id": 7,
			"title":   "Heads up",
			"type":    typ,
		})
		require.Equal(t, http.StatusCreated, rec.Code, "type %q", typ)
	}
}

func TestMarkReadScopedToOwner(t *testing.T) {
	handler, repo := newNotificationRouter(Identity{UserID: 7, Role: authz.RoleUser})
	repo.notifications = append(repo.notifications, types.Notification{ID: 1, UserID: 3, Title: "Not yours"})

	rec := doJSON(t, handler, http.MethodPut, "/notifications/1/read", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, repo.notifications[0].Read)
}
