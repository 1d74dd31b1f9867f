package services

import (
	"context"
	"errors"

	"github.com/pbms/apiserver/internal/store"
	"github.com/pbms/apiserver/types"
)

// ErrInvalidProgress is returned when milestone progress is outside 0-100.
var ErrInvalidProgress = errors.New("progress must be between 0 and 100")

// MilestoneRepository defines persistence operations for milestones.
type MilestoneRepository interface {
	ListByProject(ctx context.Context, vis store.Visibility, projectID int) ([]types.Milestone, error)
	Get(ctx context.Context, vis store.Visibility, id int) (types.Milestone, error)
	Create(ctx context.Context, milestone types.Milestone) (types.Milestone, error)
	Update(ctx context.Context, milestone types.Milestone) (types.Milestone, error)
	Delete(ctx context.Context, id int) error
}

// MilestoneService encapsulates milestone use-cases.
type MilestoneService struct {
	repo MilestoneRepository
}

func NewMilestoneService(repo MilestoneRepository) *MilestoneService {
	return &MilestoneService{repo: repo}
}

func (s *MilestoneService) ListByProject(ctx context.Context, vis store.Visibility, projectID int) ([]types.Milestone, error) {
	return s.repo.ListByProject(ctx, vis, projectID)
}

func (s *MilestoneService) Get(ctx context.Context, vis store.Visibility, id int) (types.Milestone, error) {
	return s.repo.Get(ctx, vis, id)
}

func (s *MilestoneService) Create(ctx context.Context, milestone types.Milestone) (types.Milestone, error) {
	if milestone.Progress < 0 || milestone.Progress > 100 {
		return types.Milestone{}, ErrInvalidProgress
	}
	if milestone.Status == "" {
		milestone.Status = "pending"
	}
	return s.repo.Create(ctx, milestone)
}

func (s *MilestoneService) Update(ctx context.Context, milestone types.Milestone) (types.Milestone, error) {
	if milestone.Progress < 0 || milestone.Progress > 100 {
		return types.Milestone{}, ErrInvalidProgress
	}
	return s.repo.Update(ctx, milestone)
}

func (s *MilestoneService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
