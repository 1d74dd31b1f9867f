package services

import (
	"context"

	"github.com/pbms/apiserver/internal/store"
	"github.com/pbms/apiserver/types"
)

// CategoryRepository defines persistence operations for budget categories.
type CategoryRepository interface {
	ListByProject(ctx context.Context, vis store.Visibility, projectID int) ([]types.BudgetCategory, error)
	Get(ctx context.Context, vis store.Visibility, id int) (types.BudgetCategory, error)
	Create(ctx context.Context, category types.BudgetCategory) (types.BudgetCategory, error)
	Update(ctx context.Context, category types.BudgetCategory) (types.BudgetCategory, error)
	Delete(ctx context.Context, id int) error
}

// CategoryService encapsulates budget category use-cases.
type CategoryService struct {
	repo CategoryRepository
}

func NewCategoryService(repo CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) ListByProject(ctx context.Context, vis store.Visibility, projectID int) ([]types.BudgetCategory, error) {
	return s.repo.ListByProject(ctx, vis, projectID)
}

func (s *CategoryService) Get(ctx context.Context, vis store.Visibility, id int) (types.BudgetCategory, error) {
	return s.repo.Get(ctx, vis, id)
}

func (s *CategoryService) Create(ctx context.Context, category types.BudgetCategory) (types.BudgetCategory, error) {
	return s.repo.Create(ctx, category)
}

func (s *CategoryService) Update(ctx context.Context, category types.BudgetCategory) (types.BudgetCategory, error) {
	return s.repo.Update(ctx, category)
}

func (s *CategoryService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
