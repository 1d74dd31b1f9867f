package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pbms/apiserver/types"
)

// CategoryRepository handles persistence for budget categories.
type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

const categoryColumns = `c.id, c.project_id, c.name, c.allocated_amount, c.spent_amount, c.created_at, c.updated_at`

func (r *CategoryRepository) ListByProject(ctx context.Context, vis Visibility, projectID int) ([]types.BudgetCategory, error) {
	clause, args := vis.Predicate("p", 2)
	query := fmt.Sprintf(`
		SELECT %s
		FROM budget_categories c
		JOIN projects p ON p.id = c.project_id
		WHERE c.project_id = $1 AND %s
		ORDER BY c.id`, categoryColumns, clause)

	rows, err := r.db.QueryContext(ctx, query, append([]any{projectID}, args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []types.BudgetCategory
	for rows.Next() {
		var c types.BudgetCategory
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Name, &c.AllocatedAmount, &c.SpentAmount, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *CategoryRepository) Get(ctx context.Context, vis Visibility, id int) (types.BudgetCategory, error) {
	clause, args := vis.Predicate("p", 2)
	query := fmt.Sprintf(`
		SELECT %s
		FROM budget_categories c
		JOIN projects p ON p.id = c.project_id
		WHERE c.id = $1 AND %s`, categoryColumns, clause)

	var c types.BudgetCategory
	err := r.db.QueryRowContext(ctx, query, append([]any{id}, args...)...).Scan(
		&c.ID, &c.ProjectID, &c.Name, &c.AllocatedAmount, &c.SpentAmount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.BudgetCategory{}, ErrNotFound
		}
		return types.BudgetCategory{}, err
	}
	return c, nil
}

func (r *CategoryRepository) Create(ctx context.Context, category types.BudgetCategory) (types.BudgetCategory, error) {
	now := time.Now()
	category.CreatedAt = now
	category.UpdatedAt = now

	const query = `
		INSERT INTO budget_categories (project_id, name, allocated_amount, spent_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		category.ProjectID,
		category.Name,
		category.AllocatedAmount,
		category.SpentAmount,
		category.CreatedAt,
		category.UpdatedAt,
	).Scan(&category.ID); err != nil {
		return types.BudgetCategory{}, err
	}
	return category, nil
}

func (r *CategoryRepository) Update(ctx context.Context, category types.BudgetCategory) (types.BudgetCategory, error) {
	category.UpdatedAt = time.Now()

	const query = `
		UPDATE budget_categories
		SET name = $1,
			allocated_amount = $2,
			updated_at = $3
		WHERE id = $4`
	result, err := r.db.ExecContext(ctx, query, category.Name, category.AllocatedAmount, category.UpdatedAt, category.ID)
	if err != nil {
		return types.BudgetCategory{}, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return types.BudgetCategory{}, err
	}
	if affected == 0 {
		return types.BudgetCategory{}, ErrNotFound
	}
	return category, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM budget_categories WHERE id = $1`
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
