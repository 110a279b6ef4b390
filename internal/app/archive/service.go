package archive

import (
	"context"

	"go.uber.org/zap"
)

// CacheInvalidator is implemented by the aggregation engine; both archive
// and restore must drop every cache layer touching the group so stale
// rankings never outlive the move.
type CacheInvalidator interface {
	InvalidateGroup(groupID int64)
}

type Service interface {
	Archive(ctx context.Context, groupID int64) bool
	Restore(ctx context.Context, groupID int64) bool
	IsArchived(ctx context.Context, groupID int64) bool
}

type service struct {
	repo   Repository
	caches CacheInvalidator
	logger *zap.SugaredLogger
}

func NewService(repo Repository, caches CacheInvalidator, logger *zap.Logger) Service {
	return &service{
		repo:   repo,
		caches: caches,
		logger: logger.Sugar(),
	}
}

// Archive parks the group's rows. Archiving an already-archived group is
// refused so the existing snapshot is not overwritten with nothing.
func (s *service) Archive(_ context.Context, groupID int64) bool {
	archived, err := s.repo.IsArchived(groupID)
	if err != nil {
		s.logger.Errorw("Archive check failed", "group_id", groupID, "error", err)
		return false
	}
	if archived {
		s.logger.Warnw("Group already archived", "group_id", groupID)
		return false
	}

	if err := s.repo.ParkGroupData(groupID); err != nil {
		s.logger.Errorw("Failed to archive group data", "group_id", groupID, "error", err)
		return false
	}

	if s.caches != nil {
		s.caches.InvalidateGroup(groupID)
	}
	s.logger.Infow("Group archived", "group_id", groupID)
	return true
}

// Restore needs the parked snapshot to still exist; only one snapshot per
// group is kept.
func (s *service) Restore(_ context.Context, groupID int64) bool {
	hasSnapshot, err := s.repo.HasSnapshot(groupID)
	if err != nil {
		s.logger.Errorw("Snapshot check failed", "group_id", groupID, "error", err)
		return false
	}
	if !hasSnapshot {
		s.logger.Warnw("No parked snapshot to restore", "group_id", groupID)
		return false
	}

	if err := s.repo.RestoreGroupData(groupID); err != nil {
		s.logger.Errorw("Failed to restore group data", "group_id", groupID, "error", err)
		return false
	}

	if s.caches != nil {
		s.caches.InvalidateGroup(groupID)
	}
	s.logger.Infow("Group restored", "group_id", groupID)
	return true
}

func (s *service) IsArchived(_ context.Context, groupID int64) bool {
	archived, err := s.repo.IsArchived(groupID)
	if err != nil {
		s.logger.Warnw("Archive check failed", "group_id", groupID, "error", err)
		return false
	}
	return archived
}
