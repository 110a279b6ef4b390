package seeder

import (
	"backend/internal/app/stats"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Seeder struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewSeeder(db *gorm.DB, logger *zap.Logger) *Seeder {
	return &Seeder{
		db:     db,
		logger: logger,
	}
}

func (s *Seeder) Seed() error {
	s.logger.Info("Running database seeders...")

	if err := s.seedGroups(); err != nil {
		return err
	}

	s.logger.Info("Database seeders completed successfully")
	return nil
}

// seedGroups inserts demo group metadata so the dashboard has something to
// show on a fresh database.
func (s *Seeder) seedGroups() error {
	var count int64
	s.db.Model(&stats.Group{}).Count(&count)
	if count > 0 {
		s.logger.Info("Groups already exist, skipping seed")
		return nil
	}

	groups := []stats.Group{
		{ID: 100001, Title: "General"},
		{ID: 100002, Title: "Development"},
		{ID: 100003, Title: "Off-topic"},
	}

	if err := s.db.Create(&groups).Error; err != nil {
		return err
	}

	s.logger.Info("Seeded groups", zap.Int("count", len(groups)))
	return nil
}
