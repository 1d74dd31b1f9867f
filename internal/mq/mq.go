// Package mq publishes domain events to a message broker. The server
// only produces events; delivery to users (email, push) is handled by
// consumers outside this repository.
package mq

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pbms/apiserver/types"
)

// Channel names.
const (
	ChannelNotificationCreated = "notifications.created"
)

// Backend defines the broker-agnostic publish operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Close() error
}

// Events wraps a backend with typed publish helpers.
type Events struct {
	backend Backend
}

// NewEvents constructs an Events publisher for the provided backend.
func NewEvents(backend Backend) *Events {
	return &Events{backend: backend}
}

// NotificationCreated announces a freshly inserted notification row.
func (e *Events) NotificationCreated(ctx context.Context, notification types.Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	attrs := map[string]string{
		"user_id": strconv.Itoa(notification.UserID),
		"type":    notification.Type,
	}
	_, err = e.backend.Publish(ctx, ChannelNotificationCreated, data, attrs)
	return err
}

// Close closes the underlying backend.
func (e *Events) Close() error {
	return e.backend.Close()
}
