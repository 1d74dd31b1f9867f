package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/pbms/apiserver/types"
)

// ActivityLogRepository records administrative mutations for audit.
type ActivityLogRepository struct {
	db *sql.DB
}

func NewActivityLogRepository(db *sql.DB) *ActivityLogRepository {
	return &ActivityLogRepository{db: db}
}

func (r *ActivityLogRepository) Record(ctx context.Context, entry types.ActivityLogEntry) error {
	entry.CreatedAt = time.Now()

	const query = `
		INSERT INTO admin_activity_log (actor_id, action, entity, entity_id, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		entry.ActorID,
		entry.Action,
		entry.Entity,
		entry.EntityID,
		entry.Detail,
		entry.CreatedAt,
	)
	return err
}

func (r *ActivityLogRepository) List(ctx context.Context, limit int) ([]types.ActivityLogEntry, error) {
	if limit < 1 || limit > 500 {
		limit = 100
	}

	const query = `
		SELECT id, actor_id, action, entity, entity_id, detail, created_at
		FROM admin_activity_log
		ORDER BY id DESC
		LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []types.ActivityLogEntry
	for rows.Next() {
		var entry types.ActivityLogEntry
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.Action, &entry.Entity, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
