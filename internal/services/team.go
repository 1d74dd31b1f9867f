package services

import (
	"context"

	"github.com/pbms/apiserver/internal/store"
	"github.com/pbms/apiserver/types"
)

// TeamRepository defines persistence operations for project teams.
type TeamRepository interface {
	ListByProject(ctx context.Context, vis store.Visibility, projectID int) ([]types.ProjectTeam, error)
	Get(ctx context.Context, id int) (types.ProjectTeam, error)
	Add(ctx context.Context, member types.ProjectTeam) (types.ProjectTeam, error)
	Remove(ctx context.Context, id int) error
}

// TeamService encapsulates project team use-cases.
type TeamService struct {
	repo TeamRepository
}

func NewTeamService(repo TeamRepository) *TeamService {
	return &TeamService{repo: repo}
}

func (s *TeamService) ListByProject(ctx context.Context, vis store.Visibility, projectID int) ([]types.ProjectTeam, error) {
	return s.repo.ListByProject(ctx, vis, projectID)
}

func (s *TeamService) Get(ctx context.Context, id int) (types.ProjectTeam, error) {
	return s.repo.Get(ctx, id)
}

// Add grants the user read access to the project. The membership is
// effective immediately: the visibility predicate re-reads
// project_teams on every request.
func (s *TeamService) Add(ctx context.Context, member types.ProjectTeam) (types.ProjectTeam, error) {
	if member.Role == "" {
		member.Role = "member"
	}
	return s.repo.Add(ctx, member)
}

func (s *TeamService) Remove(ctx context.Context, id int) error {
	return s.repo.Remove(ctx, id)
}
