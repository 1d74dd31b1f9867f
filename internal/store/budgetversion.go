package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pbms/apiserver/types"
)

// BudgetVersionRepository handles persistence for budget version
// snapshots.
type BudgetVersionRepository struct {
	db *sql.DB
}

func NewBudgetVersionRepository(db *sql.DB) *BudgetVersionRepository {
	return &BudgetVersionRepository{db: db}
}

const versionColumns = `v.id, v.project_id, v.version_number, v.total_budget, v.notes, v.status, v.created_by, v.created_at, v.updated_at`

func (r *BudgetVersionRepository) ListByProject(ctx context.Context, vis Visibility, projectID int) ([]types.BudgetVersion, error) {
	clause, args := vis.Predicate("p", 2)
	query := fmt.Sprintf(`
		SELECT %s
		FROM budget_versions v
		JOIN projects p ON p.id = v.project_id
		WHERE v.project_id = $1 AND %s
		ORDER BY v.version_number DESC`, versionColumns, clause)

	rows, err := r.db.QueryContext(ctx, query, append([]any{projectID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []types.BudgetVersion
	for rows.Next() {
		var v types.BudgetVersion
		if err := rows.Scan(&v.ID, &v.ProjectID, &v.VersionNumber, &v.TotalBudget, &v.Notes, &v.Status, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

func (r *BudgetVersionRepository) Get(ctx context.Context, vis Visibility, id int) (types.BudgetVersion, error) {
	clause, args := vis.Predicate("p", 2)
	query := fmt.Sprintf(`
		SELECT %s
		FROM budget_versions v
		JOIN projects p ON p.id = v.project_id
		WHERE v.id = $1 AND %s`, versionColumns, clause)

	var v types.BudgetVersion
	err := r.db.QueryRowContext(ctx, query, append([]any{id}, args...)...).Scan(
		&v.ID, &v.ProjectID, &v.VersionNumber, &v.TotalBudget, &v.Notes, &v.Status, &v.CreatedBy, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.BudgetVersion{}, ErrNotFound
		}
		return types.BudgetVersion{}, err
	}
	return v, nil
}

// Create inserts a snapshot with the next version_number for its
// project. The number is assigned inside the INSERT so concurrent
// creates cannot read the same sequence position.
func (r *BudgetVersionRepository) Create(ctx context.Context, version types.BudgetVersion) (types.BudgetVersion, error) {
	now := time.Now()
	version.CreatedAt = now
	version.UpdatedAt = now

	const query = `
		INSERT INTO budget_versions (project_id, version_number, total_budget, notes, status, created_by, created_at, updated_at)
		SELECT $1, COALESCE(MAX(version_number), 0) + 1, $2, $3, $4, $5, $6, $7
		FROM budget_versions
		WHERE project_id = $1
		RETURNING id, version_number`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		version.ProjectID,
		version.TotalBudget,
		version.Notes,
		version.Status,
		version.CreatedBy,
		version.CreatedAt,
		version.UpdatedAt,
	).Scan(&version.ID, &version.VersionNumber); err != nil {
		return types.BudgetVersion{}, err
	}
	return version, nil
}

func (r *BudgetVersionRepository) SetStatus(ctx context.Context, id int, status string) (types.BudgetVersion, error) {
	const query = `
		UPDATE budget_versions
		SET status = $1, updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return types.BudgetVersion{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.BudgetVersion{}, err
	}
	if affected == 0 {
		return types.BudgetVersion{}, ErrNotFound
	}
	return r.Get(ctx, Visibility{Admin: true}, id)
}
