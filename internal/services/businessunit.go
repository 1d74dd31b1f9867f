package services

import (
	"context"

	"github.com/pbms/apiserver/types"
)

// BusinessUnitRepository defines persistence operations for business units.
type BusinessUnitRepository interface {
	List(ctx context.Context) ([]types.BusinessUnit, error)
	Get(ctx context.Context, id int) (types.BusinessUnit, error)
	Create(ctx context.Context, unit types.BusinessUnit) (types.BusinessUnit, error)
	Update(ctx context.Context, unit types.BusinessUnit) (types.BusinessUnit, error)
	Delete(ctx context.Context, id int) error
}

// BusinessUnitService encapsulates business unit use-cases.
type BusinessUnitService struct {
	repo BusinessUnitRepository
}

func NewBusinessUnitService(repo BusinessUnitRepository) *BusinessUnitService {
	return &BusinessUnitService{repo: repo}
}

func (s *BusinessUnitService) List(ctx context.Context) ([]types.BusinessUnit, error) {
	return s.repo.List(ctx)
}

func (s *BusinessUnitService) Get(ctx context.Context, id int) (types.BusinessUnit, error) {
	return s.repo.Get(ctx, id)
}

func (s *BusinessUnitService) Create(ctx context.Context, unit types.BusinessUnit) (types.BusinessUnit, error) {
	return s.repo.Create(ctx, unit)
}

func (s *BusinessUnitService) Update(ctx context.Context, unit types.BusinessUnit) (types.BusinessUnit, error) {
	return s.repo.Update(ctx, unit)
}

func (s *BusinessUnitService) Delete(ctx context.Context, id int) error {
	return s.repo.Delete(ctx, id)
}
