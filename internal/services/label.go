package services

import (
	"errors"
	"regexp"

	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/pkg/response"
	"gorm.io/gorm"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type LabelService struct {
	db       *gorm.DB
	projects *ProjectService
}

func NewLabelService(db *gorm.DB, projects *ProjectService) *LabelService {
	return &LabelService{db: db, projects: projects}
}

type CreateLabelRequest struct {
	Name  string `json:"name" binding:"required,max=50"`
	Color string `json:"color"`
}

func (s *LabelService) List(actor Actor, projectID uint) ([]models.Label, error) {
	if _, err := s.projects.Authorize(actor, projectID); err != nil {
		return nil, err
	}
	var labels []models.Label
	err := s.db.Where("project_id = ?", projectID).Order("name").Find(&labels).Error
	return labels, err
}

func (s *LabelService) Create(actor Actor, projectID uint, req *CreateLabelRequest) (*models.Label, error) {
	if _, err := s.projects.Authorize(actor, projectID); err != nil {
		return nil, err
	}
	if req.Color != "" && !hexColor.MatchString(req.Color) {
		return nil, response.NewBadRequest("color must look like #rrggbb")
	}

	var count int64
	s.db.Model(&models.Label{}).Where("project_id = ? AND name = ?", projectID, req.Name).Count(&count)
	if count > 0 {
		return nil, response.NewConflict("label already exists")
	}

	label := models.Label{ProjectID: projectID, Name: req.Name, Color: req.Color}
	if label.Color == "" {
		label.Color = "#6b7280"
	}
	if err := s.db.Create(&label).Error; err != nil {
		return nil, err
	}
	return &label, nil
}

// Delete detaches the label from every task before removing it.
func (s *LabelService) Delete(actor Actor, id uint) error {
	var label models.Label
	if err := s.db.First(&label, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return response.NewNotFound("label not found")
		}
		return err
	}
	if _, err := s.projects.Authorize(actor, label.ProjectID); err != nil {
		return response.NewNotFound("label not found")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM task_labels WHERE label_id = ?", label.ID).Error; err != nil {
			return err
		}
		return tx.Delete(&label).Error
	})
}
