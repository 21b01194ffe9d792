package models

import "time"

const (
	ReportTypeDaily  = "DAILY"
	ReportTypeWeekly = "WEEKLY"
)

// Report is an immutable generated activity summary owned by one user.
type Report struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Type          string    `gorm:"size:10;index:idx_report_owner_type;not null" json:"type"`
	OwnerID       uint      `gorm:"index:idx_report_owner_type;not null" json:"owner_id"`
	Summary       string    `gorm:"type:text" json:"summary"`
	IsAIGenerated bool      `gorm:"default:false" json:"is_ai_generated"`
	AIModelUsed   string    `gorm:"size:100" json:"ai_model_used"`
	Statistics    string    `gorm:"type:text" json:"-"` // serialized report.Statistics
	WindowStart   time.Time `json:"window_start"`
	WindowEnd     time.Time `json:"window_end"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (Report) TableName() string { return "reports" }
