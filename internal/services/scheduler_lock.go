package services

import (
	"fmt"
	"os"
	"time"

	"github.com/taskflow/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SchedulerLockService lets several server instances share one database
// without firing the same scheduled batch twice.
type SchedulerLockService struct {
	db     *gorm.DB
	holder string
}

func NewSchedulerLockService(db *gorm.DB) *SchedulerLockService {
	host, _ := os.Hostname()
	return &SchedulerLockService{db: db, holder: fmt.Sprintf("%s:%d", host, os.Getpid())}
}

// TryClaim returns true if this instance now owns (trigger, period). A claim
// whose ttl has passed may be taken over.
func (s *SchedulerLockService) TryClaim(trigger, period string, ttl time.Duration) (bool, error) {
	now := time.Now()
	if err := s.db.
		Where("job_name = ? AND period = ? AND expires_at < ?", trigger, period, now).
		Delete(&models.SchedulerLock{}).Error; err != nil {
		return false, err
	}

	lock := models.SchedulerLock{
		JobName:   trigger,
		Period:    period,
		Holder:    s.holder,
		ClaimedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	result := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&lock)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// Release drops a claim held by this instance.
func (s *SchedulerLockService) Release(trigger, period string) error {
	return s.db.
		Where("job_name = ? AND period = ? AND holder = ?", trigger, period, s.holder).
		Delete(&models.SchedulerLock{}).Error
}
