package report

import (
	"context"
	"time"

	"github.com/taskflow/backend/internal/models"
	"gorm.io/gorm"
)

// GormStore is the Store backed by the reports table.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Save(ctx context.Context, r *models.Report) error {
	return s.db.WithContext(ctx).Create(r).Error
}

func (s *GormStore) ListHistory(ctx context.Context, ownerID uint, reportType string, limit int) ([]models.Report, error) {
	query := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if reportType != "" {
		query = query.Where("type = ?", reportType)
	}
	var rows []models.Report
	err := query.Order("created_at DESC").Limit(limit).Find(&rows).Error
	return rows, err
}

func (s *GormStore) ListForUsers(ctx context.Context, ownerIDs []uint, reportType string, since time.Time) ([]models.Report, error) {
	var rows []models.Report
	if len(ownerIDs) == 0 {
		return rows, nil
	}
	err := s.db.WithContext(ctx).
		Where("owner_id IN ? AND type = ? AND created_at >= ?", ownerIDs, reportType, since).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (s *GormStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.Report{})
	return result.RowsAffected, result.Error
}
