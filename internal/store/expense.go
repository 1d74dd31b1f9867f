package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pbms/apiserver/types"
)

// ErrNotPending is returned when approving or rejecting an expense
// that has already left the pending state.
var ErrNotPending = errors.New("expense is not pending")

// ExpenseRepository handles persistence for expenses.
type ExpenseRepository struct {
	db *sql.DB
}

func NewExpenseRepository(db *sql.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

const expenseColumns = `e.id, e.project_id, e.category_id, e.description, e.amount, e.status,
	e.expense_date, e.receipt_key, e.submitted_by, e.approved_by, e.created_at, e.updated_at`

func scanExpense(scanner interface{ Scan(...any) error }) (types.Expense, error) {
	var e types.Expense
	err := scanner.Scan(
		&e.ID,
		&e.ProjectID,
		&e.CategoryID,
		&e.Description,
		&e.Amount,
		&e.Status,
		&e.ExpenseDate,
		&e.ReceiptKey,
		&e.SubmittedBy,
		&e.ApprovedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Expense{}, ErrNotFound
		}
		return types.Expense{}, err
	}
	return e, nil
}

// List returns expenses on visible projects, optionally restricted to
// one project (projectID > 0) or one status.
func (r *ExpenseRepository) List(ctx context.Context, vis Visibility, projectID int, status string) ([]types.Expense, error) {
	args := []any{}
	conds := ""
	if projectID > 0 {
		args = append(args, projectID)
		conds += fmt.Sprintf(" AND e.project_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		conds += fmt.Sprintf(" AND e.status = $%d", len(args))
	}
	clause, visArgs := vis.Predicate("p", len(args)+1)

	query := fmt.Sprintf(`
		SELECT %s
		FROM expenses e
		JOIN projects p ON p.id = e.project_id
		WHERE %s%s
		ORDER BY e.id DESC`, expenseColumns, clause, conds)

	rows, err := r.db.QueryContext(ctx, query, append(args, visArgs...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []types.Expense
	for rows.Next() {
		expense, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}

func (r *ExpenseRepository) Get(ctx context.Context, vis Visibility, id int) (types.Expense, error) {
	clause, args := vis.Predicate("p", 2)
	query := fmt.Sprintf(`
		SELECT %s
		FROM expenses e
		JOIN projects p ON p.id = e.project_id
		WHERE e.id = $1 AND %s`, expenseColumns, clause)
	return scanExpense(r.db.QueryRowContext(ctx, query, append([]any{id}, args...)...))
}

func (r *ExpenseRepository) Create(ctx context.Context, expense types.Expense) (types.Expense, error) {
	now := time.Now()
	expense.CreatedAt = now
	expense.UpdatedAt = now

	const query = `
		INSERT INTO expenses (project_id, category_id, description, amount, status,
			expense_date, receipt_key, submitted_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		expense.ProjectID,
		expense.CategoryID,
		expense.Description,
		expense.Amount,
		expense.Status,
		expense.ExpenseDate,
		expense.ReceiptKey,
		expense.SubmittedBy,
		expense.CreatedAt,
		expense.UpdatedAt,
	).Scan(&expense.ID); err != nil {
		return types.Expense{}, err
	}
	return expense, nil
}

// SetStatus performs the approve/reject transition. Approval adds the
// amount to the project's spent_budget, and to the category's
// spent_amount when a category is set, as in-database increments inside
// one transaction so that concurrent approvals cannot lose updates.
func (r *ExpenseRepository) SetStatus(ctx context.Context, id int, status string, approverID int) (types.Expense, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return types.Expense{}, err
	}
	defer tx.Rollback()

	const fetch = `
		SELECT project_id, category_id, amount, status
		FROM expenses
		WHERE id = $1
		FOR UPDATE`
	var (
		projectID  int
		categoryID *int
		amount     float64
		current    string
	)
	if err := tx.QueryRowContext(ctx, fetch, id).Scan(&projectID, &categoryID, &amount, &current); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Expense{}, ErrNotFound
		}
		return types.Expense{}, err
	}
	if current != types.ExpenseStatusPending {
		return types.Expense{}, ErrNotPending
	}

	now := time.Now()
	const update = `
		UPDATE expenses
		SET status = $1, approved_by = $2, updated_at = $3
		WHERE id = $4`
	if _, err := tx.ExecContext(ctx, update, status, approverID, now, id); err != nil {
		return types.Expense{}, err
	}

	if status == types.ExpenseStatusApproved {
		const bumpProject = `UPDATE projects SET spent_budget = spent_budget + $1, updated_at = $2 WHERE id = $3`
		if _, err := tx.ExecContext(ctx, bumpProject, amount, now, projectID); err != nil {
			return types.Expense{}, err
		}
		if categoryID != nil {
			const bumpCategory = `UPDATE budget_categories SET spent_amount = spent_amount + $1, updated_at = $2 WHERE id = $3`
			if _, err := tx.ExecContext(ctx, bumpCategory, amount, now, *categoryID); err != nil {
				return types.Expense{}, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Expense{}, err
	}

	return r.Get(ctx, Visibility{Admin: true}, id)
}

func (r *ExpenseRepository) Delete(ctx context.Context, id int) error {
	const query = `DELETE FROM expenses WHERE id = $1`
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
