package services

import (
	"context"

	"github.com/pbms/apiserver/internal/mq"
	"github.com/pbms/apiserver/types"
	"go.uber.org/zap"
)

// NotificationRepository defines persistence operations for notifications.
type NotificationRepository interface {
	ListByUser(ctx context.Context, userID int, unreadOnly bool) ([]types.Notification, error)
	Get(ctx context.Context, id int) (types.Notification, error)
	Create(ctx context.Context, notification types.Notification) (types.Notification, error)
	MarkRead(ctx context.Context, id, userID int) error
	MarkAllRead(ctx context.Context, userID int) error
	Delete(ctx context.Context, id, userID int) error
}

// NotificationService encapsulates notification use-cases. Inserted
// notifications are announced on the event bus when one is configured;
// a publish failure never fails the request.
type NotificationService struct {
	repo   NotificationRepository
	events *mq.Events
	logger *zap.Logger
}

// NewNotificationService constructs a NotificationService. events may
// be nil when no broker is configured.
func NewNotificationService(repo NotificationRepository, events *mq.Events, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, events: events, logger: logger}
}

func (s *NotificationService) ListByUser(ctx context.Context, userID int, unreadOnly bool) ([]types.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly)
}

func (s *NotificationService) Create(ctx context.Context, notification types.Notification) (types.Notification, error) {
	if notification.Type == "" {
		notification.Type = types.NotificationTypeInfo
	}

	created, err := s.repo.Create(ctx, notification)
	if err != nil {
		return types.Notification{}, err
	}

	if s.events != nil {
		if err := s.events.NotificationCreated(ctx, created); err != nil {
			s.logger.Warn("failed to publish notification event",
				zap.Int("notification_id", created.ID),
				zap.Error(err))
		}
	}
	return created, nil
}

// Notify is a convenience wrapper used by other services to address a
// single user.
func (s *NotificationService) Notify(ctx context.Context, userID int, title, message, typ string) {
	_, err := s.Create(ctx, types.Notification{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    typ,
	})
	if err != nil {
		s.logger.Warn("failed to create notification",
			zap.Int("user_id", userID),
			zap.Error(err))
	}
}

func (s *NotificationService) MarkRead(ctx context.Context, id, userID int) error {
	return s.repo.MarkRead(ctx, id, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID int) error {
	return s.repo.MarkAllRead(ctx, userID)
}

func (s *NotificationService) Delete(ctx context.Context, id, userID int) error {
	return s.repo.Delete(ctx, id, userID)
}
