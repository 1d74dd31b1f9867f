package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pbms/apiserver/types"
)

// ProjectRepository handles persistence for projects. Every read goes
// through the shared Visibility predicate.
type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

const projectSelect = `
	SELECT p.id, p.name, p.description, p.total_budget, p.allocated_budget, p.spent_budget,
	       p.business_unit_id, p.project_manager_id, p.start_date, p.end_date, p.status,
	       (SELECT COUNT(DISTINCT pt2.user_id) FROM project_teams pt2 WHERE pt2.project_id = p.id),
	       p.created_at, p.updated_at
	FROM projects p`

func scanProject(scanner interface{ Scan(...any) error }) (types.Project, error) {
	var p types.Project
	err := scanner.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.TotalBudget,
		&p.AllocatedBudget,
		&p.SpentBudget,
		&p.BusinessUnitID,
		&p.ProjectManagerID,
		&p.StartDate,
		&p.EndDate,
		&p.Status,
		&p.TeamSize,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Project{}, ErrNotFound
		}
		return types.Project{}, err
	}
	return p, nil
}

func (r *ProjectRepository) List(ctx context.Context, vis Visibility, offset, limit int) ([]types.Project, int, error) {
	if offset < 0 {
		offset = 0
	}
	if limit < 1 {
		limit = 20
	}

	clause, args := vis.Predicate("p", 1)

	countQuery := fmt.Sprintf(`SELECT COUNT(1) FROM projects p WHERE %s`, clause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := fmt.Sprintf(`%s WHERE %s ORDER BY p.id OFFSET $%d LIMIT $%d`,
		projectSelect, clause, len(args)+1, len(args)+2)
	rows, err := r.db.QueryContext(ctx, listQuery, append(args, offset, limit)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	projects := make([]types.Project, 0, limit)
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, 0, err
		}
		projects = append(projects, project)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

func (r *ProjectRepository) Get(ctx context.Context, vis Visibility, id int) (types.Project, error) {
	clause, args := vis.Predicate("p", 2)
	query := fmt.Sprintf(`%s WHERE p.id = $1 AND %s`, projectSelect, clause)
	return scanProject(r.db.QueryRowContext(ctx, query, append([]any{id}, args...)...))
}

func (r *ProjectRepository) Create(ctx context.Context, project types.Project) (types.Project, error) {
	now := time.Now()
	project.CreatedAt = now
	project.UpdatedAt = now

	const query = `
		INSERT INTO projects (name, description, total_budget, allocated_budget, spent_budget,
			business_unit_id, project_manager_id, start_date, end_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		project.Name,
		project.Description,
		project.TotalBudget,
		project.AllocatedBudget,
		project.SpentBudget,
		project.BusinessUnitID,
		project.ProjectManagerID,
		project.StartDate,
		project.EndDate,
		project.Status,
		project.CreatedAt,
		project.UpdatedAt,
	).Scan(&project.ID); err != nil {
		return types.Project{}, err
	}
	return project, nil
}

func (r *ProjectRepository) Update(ctx context.Context, project types.Project) (types.Project, error) {
	project.UpdatedAt = time.Now()

	const query = `
		UPDATE projects
		SET name = $1,
			description = $2,
			total_budget = $3,
			allocated_budget = $4,
			business_unit_id = $5,
			project_manager_id = $6,
			start_date = $7,
			end_date = $8,
			status = $9,
			updated_at = $10
		WHERE id = $11`
	result, err := r.db.ExecContext(
		ctx,
		query,
		project.Name,
		project.Description,
		project.TotalBudget,
		project.AllocatedBudget,
		project.BusinessUnitID,
		project.ProjectManagerID,
		project.StartDate,
		project.EndDate,
		project.Status,
		project.UpdatedAt,
		project.ID,
	)
	if err != nil {
		return types.Project{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.Project{}, err
	}
	if affected == 0 {
		return types.Project{}, ErrNotFound
	}
	return project, nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM projects WHERE id = $1`
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

// Metrics aggregates headline dashboard numbers over visible projects.
func (r *ProjectRepository) Metrics(ctx context.Context, vis Visibility) (types.DashboardMetrics, error) {
	clause, args := vis.Predicate("p", 1)

	query := fmt.Sprintf(`
		SELECT COUNT(1),
		       COUNT(1) FILTER (WHERE p.status = 'active'),
		       COALESCE(SUM(p.total_budget), 0),
		       COALESCE(SUM(p.spent_budget), 0),
		       COUNT(1) FILTER (WHERE p.spent_budget > p.total_budget),
		       COUNT(1) FILTER (WHERE p.end_date IS NOT NULL
		           AND p.end_date < CURRENT_DATE + INTERVAL '30 days'
		           AND p.status NOT IN ('completed', 'cancelled'))
		FROM projects p
		WHERE %s`, clause)

	var m types.DashboardMetrics
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&m.TotalProjects,
		&m.ActiveProjects,
		&m.TotalBudget,
		&m.SpentBudget,
		&m.OverBudget,
		&m.UpcomingDeadline,
	); err != nil {
		return types.DashboardMetrics{}, err
	}

	pendingQuery := fmt.Sprintf(`
		SELECT COUNT(1)
		FROM expenses e
		JOIN projects p ON p.id = e.project_id
		WHERE e.status = 'pending' AND %s`, clause)
	if err := r.db.QueryRowContext(ctx, pendingQuery, args...).Scan(&m.PendingExpenses); err != nil {
		return types.DashboardMetrics{}, err
	}

	return m, nil
}
