package services

import (
	"context"

	"github.com/pbms/apiserver/types"
	"go.uber.org/zap"
)

// ActivityLogRepository defines persistence operations for the admin
// activity log.
type ActivityLogRepository interface {
	Record(ctx context.Context, entry types.ActivityLogEntry) error
	List(ctx context.Context, limit int) ([]types.ActivityLogEntry, error)
}

// ActivityService records administrative mutations. Recording is
// best-effort: an audit write failure is logged, not propagated, so it
// cannot fail the mutation it describes.
type ActivityService struct {
	repo   ActivityLogRepository
	logger *zap.Logger
}

func NewActivityService(repo ActivityLogRepository, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{repo: repo, logger: logger}
}

func (s *ActivityService) Record(ctx context.Context, actorID int, action, entity string, entityID int, detail string) {
	err := s.repo.Record(ctx, types.ActivityLogEntry{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Detail:   detail,
	})
	if err != nil {
		s.logger.Warn("failed to record activity",
			zap.String("action", action),
			zap.String("entity", entity),
			zap.Error(err))
	}
}

func (s *ActivityService) List(ctx context.Context, limit int) ([]types.ActivityLogEntry, error) {
	return s.repo.List(ctx, limit)
}
