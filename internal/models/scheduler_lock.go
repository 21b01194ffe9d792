package models

import "time"

// SchedulerLock marks one firing of a scheduled trigger (e.g. "report_daily"
// for period "2026-10-16") as claimed by a single server instance.
type SchedulerLock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JobName   string    `gorm:"uniqueIndex:idx_lock_job_period;size:100;not null" json:"job_name"`
	Period    string    `gorm:"uniqueIndex:idx_lock_job_period;size:100;not null" json:"period"`
	Holder    string    `gorm:"size:100" json:"holder"`
	ClaimedAt time.Time `json:"claimed_at"`
	ExpiresAt time.Time `gorm:"index" json:"expires_at"`
}

func (SchedulerLock) TableName() string { return "scheduler_locks" }
