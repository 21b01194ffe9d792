package models

import "time"

type Label struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProjectID uint      `gorm:"uniqueIndex:idx_label_project_name;not null" json:"project_id"`
	Name      string    `gorm:"uniqueIndex:idx_label_project_name;size:50;not null" json:"name"`
	Color     string    `gorm:"size:20;default:#6b7280" json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

func (Label) TableName() string { return "labels" }
