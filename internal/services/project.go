package services

import (
	"context"

	"github.com/pbms/apiserver/internal/store"
	"github.com/pbms/apiserver/types"
)

// ProjectRepository defines persistence operations for projects.
type ProjectRepository interface {
	List(ctx context.Context, vis store.Visibility, offset, limit int) ([]types.Project, int, error)
	Get(ctx context.Context, vis store.Visibility, id int) (types.Project, error)
	Create(ctx context.Context, project types.Project) (types.Project, error)
	Update(ctx context.Context, project types.Project) (types.Project, error)
	Delete(ctx context.Context, id int) error
	Metrics(ctx context.Context, vis store.Visibility) (types.DashboardMetrics, error)
}

// ProjectService encapsulates project use-cases.
type ProjectService struct {
	repo ProjectRepository
}

func NewProjectService(repo ProjectRepository) *ProjectService {
	return &ProjectService{repo: repo}
}

func (s *ProjectService) List(ctx context.Context, vis store.Visibility, offset, limit int) ([]types.Project, int, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	projects, total, err := s.repo.List(ctx, vis, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	for i := range projects {
		projects[i].BudgetUtilization = BudgetUtilization(projects[i].SpentBudget, projects[i].TotalBudget)
	}
	return projects, total, nil
}

func (s *ProjectService) Get(ctx context.Context, vis store.Visibility, id int) (types.Project, error) {
	project, err := s.repo.Get(ctx, vis, id)
	if err != nil {
		return types.Project{}, err
	}
	project.BudgetUtilization = BudgetUtilization(project.SpentBudget, project.TotalBudget)
	return project, nil
}

func (s *ProjectService) Create(ctx context.Context, project types.Project) (types.Project, error) {
	if project.Status == "" {
		project.Status = types.ProjectStatusPlanning
	}
	return s.repo.Create(ctx, project)
}

func (s *ProjectService) Update(ctx context.Context, project types.Project) (types.Project, error) {
	return s.repo.Update(ctx, project)
}

func (s *ProjectService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}

// Metrics returns the dashboard aggregates over visible projects.
func (s *ProjectService) Metrics(ctx context.Context, vis store.Visibility) (types.DashboardMetrics, error) {
	metrics, err := s.repo.Metrics(ctx, vis)
	if err != nil {
		return types.DashboardMetrics{}, err
	}
	metrics.AvgUtilization = BudgetUtilization(metrics.SpentBudget, metrics.TotalBudget)
	return metrics, nil
}
