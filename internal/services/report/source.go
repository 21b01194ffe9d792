package report

import (
	"context"
	"errors"

	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/internal/services"
	"github.com/taskflow/backend/pkg/response"
	"gorm.io/gorm"
)

// DBSource reads users and tasks from the application database. Project
// visibility and team membership come from ProjectService so reports see
// exactly what the API sees.
type DBSource struct {
	db       *gorm.DB
	projects *services.ProjectService
}

func NewDBSource(db *gorm.DB, projects *services.ProjectService) *DBSource {
	return &DBSource{db: db, projects: projects}
}

func (s *DBSource) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user not found")
		}
		return nil, err
	}
	return &user, nil
}

func (s *DBSource) RecipientIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where(map[string]interface{}{"is_verified": true, "is_active": true}).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (s *DBSource) VisibleProjectIDs(userID uint) ([]uint, error) {
	return s.projects.VisibleProjectIDs(userID)
}

func (s *DBSource) TeamMemberIDs(ownerID uint) ([]uint, error) {
	return s.projects.TeamMemberIDs(ownerID)
}

func (s *DBSource) TasksForUser(ctx context.Context, projectIDs []uint, userID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := s.db.WithContext(ctx).
		Preload("Project").
		Where("project_id IN ?", projectIDs).
		Where("assignee_id = ? OR reporter_id = ?", userID, userID).
		Order("updated_at DESC").
		Find(&tasks).Error
	return tasks, err
}
