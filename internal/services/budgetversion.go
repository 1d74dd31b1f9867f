package services

import (
	"context"

	"github.com/pbms/apiserver/internal/store"
	"github.com/pbms/apiserver/types"
)

// BudgetVersionRepository defines persistence operations for budget
// version snapshots.
type BudgetVersionRepository interface {
	ListByProject(ctx context.Context, vis store.Visibility, projectID int) ([]types.BudgetVersion, error)
	Get(ctx context.Context, vis store.Visibility, id int) (types.BudgetVersion, error)
	Create(ctx context.Context, version types.BudgetVersion) (types.BudgetVersion, error)
	SetStatus(ctx context.Context, id int, status string) (types.BudgetVersion, error)
}

// BudgetVersionService encapsulates budget version use-cases.
type BudgetVersionService struct {
	repo BudgetVersionRepository
}

func NewBudgetVersionService(repo BudgetVersionRepository) *BudgetVersionService {
	return &BudgetVersionService{repo: repo}
}

func (s *BudgetVersionService) ListByProject(ctx context.Context, vis store.Visibility, projectID int) ([]types.BudgetVersion, error) {
	return s.repo.ListByProject(ctx, vis, projectID)
}

func (s *BudgetVersionService) Get(ctx context.Context, vis store.Visibility, id int) (types.BudgetVersion, error) {
	return s.repo.Get(ctx, vis, id)
}

// Create stores a new snapshot. The repository assigns the version
// number; anything the caller supplied is discarded.
func (s *BudgetVersionService) Create(ctx context.Context, version types.BudgetVersion) (types.BudgetVersion, error) {
	version.VersionNumber = 0
	if version.Status == "" {
		version.Status = types.BudgetVersionStatusDraft
	}
	return s.repo.Create(ctx, version)
}

func (s *BudgetVersionService) Approve(ctx context.Context, vis store.Visibility, id int) (types.BudgetVersion, error) {
	if _, err := s.repo.Get(ctx, vis, id); err != nil {
		return types.BudgetVersion{}, err
	}
	return s.repo.SetStatus(ctx, id, types.BudgetVersionStatusApproved)
}

func (s *BudgetVersionService) Reject(ctx context.Context, vis store.Visibility, id int) (types.BudgetVersion, error) {
	if _, err := s.repo.Get(ctx, vis, id); err != nil {
		return types.BudgetVersion{}, err
	}
	return s.repo.SetStatus(ctx, id, types.BudgetVersionStatusRejected)
}
