package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pbms/apiserver/types"
)

// TeamRepository handles persistence for project team membership.
type TeamRepository struct {
	db *sql.DB
}

func NewTeamRepository(db *sql.DB) *TeamRepository {
	return &TeamRepository{db: db}
}

// ListByProject returns the team rows for a project the caller can see.
func (r *TeamRepository) ListByProject(ctx context.Context, vis Visibility, projectID int) ([]types.ProjectTeam, error) {
	clause, args := vis.Predicate("p", 2)
	query := fmt.Sprintf(`
		SELECT t.id, t.project_id, t.user_id, t.role, t.created_at
		FROM project_teams t
		JOIN projects p ON p.id = t.project_id
		WHERE t.project_id = $1 AND %s
		ORDER BY t.id`, clause)

	rows, err := r.db.QueryContext(ctx, query, append([]any{projectID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []types.ProjectTeam
	for rows.Next() {
		var member types.ProjectTeam
		if err := rows.Scan(&member.ID, &member.ProjectID, &member.UserID, &member.Role, &member.CreatedAt); err != nil {
			return nil, err
		}
		members = append(members, member)
	}
	return members, rows.Err()
}

func (r *TeamRepository) Get(ctx context.Context, id int) (types.ProjectTeam, error) {
	const query = `
		SELECT id, project_id, user_id, role, created_at
		FROM project_teams
		WHERE id = $1`
	var member types.ProjectTeam
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&member.ID, &member.ProjectID, &member.UserID, &member.Role, &member.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.ProjectTeam{}, ErrNotFound
		}
		return types.ProjectTeam{}, err
	}
	return member, nil
}

func (r *TeamRepository) Add(ctx context.Context, member types.ProjectTeam) (types.ProjectTeam, error) {
	member.CreatedAt = time.Now()

	const query = `
		INSERT INTO project_teams (project_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (project_id, user_id) DO UPDATE SET role = EXCLUDED.role
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		member.ProjectID,
		member.UserID,
		member.Role,
		member.CreatedAt,
	).Scan(&member.ID); err != nil {
		return types.ProjectTeam{}, err
	}
	return member, nil
}

func (r *TeamRepository) Remove(ctx context.Context, id int) error {
	const query = `DELETE FROM project_teams WHERE id = $1`
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
