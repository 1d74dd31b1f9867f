package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pbms/apiserver/types"
)

// MilestoneRepository handles persistence for milestones.
type MilestoneRepository struct {
	db *sql.DB
}

func NewMilestoneRepository(db *sql.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

const milestoneColumns = `m.id, m.project_id, m.name, m.due_date, m.progress, m.status, m.created_at, m.updated_at`

func (r *MilestoneRepository) ListByProject(ctx context.Context, vis Visibility, projectID int) ([]types.Milestone, error) {
	clause, args := vis.Predicate("p", 2)
	query := fmt.Sprintf(`
		SELECT %s
		FROM milestones m
		JOIN projects p ON p.id = m.project_id
		WHERE m.project_id = $1 AND %s
		ORDER BY m.due_date NULLS LAST, m.id`, milestoneColumns, clause)

	rows, err := r.db.QueryContext(ctx, query, append([]any{projectID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var milestones []types.Milestone
	for rows.Next() {
		var m types.Milestone
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Name, &m.DueDate, &m.Progress, &m.Status, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		milestones = append(milestones, m)
	}
	return milestones, rows.Err()
}

func (r *MilestoneRepository) Get(ctx context.Context, vis Visibility, id int) (types.Milestone, error) {
	clause, args := vis.Predicate("p", 2)
	query := fmt.Sprintf(`
		SELECT %s
		FROM milestones m
		JOIN projects p ON p.id = m.project_id
		WHERE m.id = $1 AND %s`, milestoneColumns, clause)

	var m types.Milestone
	err := r.db.QueryRowContext(ctx, query, append([]any{id}, args...)...).Scan(
		&m.ID, &m.ProjectID, &m.Name, &m.DueDate, &m.Progress, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Milestone{}, ErrNotFound
		}
		return types.Milestone{}, err
	}
	return m, nil
}

func (r *MilestoneRepository) Create(ctx context.Context, milestone types.Milestone) (types.Milestone, error) {
	now := time.Now()
	milestone.CreatedAt = now
	milestone.UpdatedAt = now

	const query = `
		INSERT INTO milestones (project_id, name, due_date, progress, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		milestone.ProjectID,
		milestone.Name,
		milestone.DueDate,
		milestone.Progress,
		milestone.Status,
		milestone.CreatedAt,
		milestone.UpdatedAt,
	).Scan(&milestone.ID); err != nil {
		return types.Milestone{}, err
	}
	return milestone, nil
}

func (r *MilestoneRepository) Update(ctx context.Context, milestone types.Milestone) (types.Milestone, error) {
	milestone.UpdatedAt = time.Now()

	const query = `
		UPDATE milestones
		SET name = $1,
			due_date = $2,
			progress = $3,
			status = $4,
			updated_at = $5
		WHERE id = $6`
	result, err := r.db.ExecContext(
		ctx,
		query,
		milestone.Name,
		milestone.DueDate,
		milestone.Progress,
		milestone.Status,
		milestone.UpdatedAt,
		milestone.ID,
	)
	if err != nil {
		return types.Milestone{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Milestone{}, err
	}
	if affected == 0 {
		return types.Milestone{}, ErrNotFound
	}
	return milestone, nil
}

func (r *MilestoneRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM milestones WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
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
