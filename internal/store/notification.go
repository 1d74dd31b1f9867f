package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pbms/apiserver/types"
)

// NotificationRepository handles persistence for notifications.
// Notifications are always scoped to their owner; there is no
// cross-user visibility to filter.
type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID int, unreadOnly bool) ([]types.Notification, error) {
	query := `
		SELECT id, user_id, title, message, type, read, created_at
		FROM notifications
		WHERE user_id = $1`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []types.Notification
	for rows.Next() {
		var n types.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepository) Get(ctx context.Context, id int) (types.Notification, error) {
	const query = `
		SELECT id, user_id, title, message, type, read, created_at
		FROM notifications
		WHERE id = $1`
	var n types.Notification
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&n.ID, &n.UserID, &n.Title, &n.Message, &n.Type, &n.Read, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Notification{}, ErrNotFound
		}
		return types.Notification{}, err
	}
	return n, nil
}

func (r *NotificationRepository) Create(ctx context.Context, notification types.Notification) (types.Notification, error) {
	notification.CreatedAt = time.Now()

	const query = `
		INSERT INTO notifications (user_id, title, message, type, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		notification.UserID,
		notification.Title,
		notification.Message,
		notification.Type,
		notification.Read,
		notification.CreatedAt,
	).Scan(&notification.ID); err != nil {
		return types.Notification{}, err
	}
	return notification, nil
}

// MarkRead marks a single notification read, scoped to its owner.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID int) error {
	const query = `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of the user read.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID int) error {
	const query = `UPDATE notifications SET read = TRUE WHERE user_id = $1 AND read = FALSE`
	_, err := r.db.ExecContext(ctx, query, userID)
	return err
}

func (r *NotificationRepository) Delete(ctx context.Context, id, userID int) error {
	const query = `DELETE FROM notifications WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
