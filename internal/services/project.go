package services

import (
	"errors"
	"fmt"

	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/pkg/response"
	"gorm.io/gorm"
)

type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

type ProjectListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Name     string `form:"name"`
}

type ProjectListResponse struct {
	Total    int64            `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	Items    []models.Project `json:"items"`
}

type CreateProjectRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description"`
}

type UpdateProjectRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=200"`
	Description *string `json:"description"`
}

// VisibleProjectIDs returns the projects the user owns or is a member of.
func (s *ProjectService) VisibleProjectIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.Project{}).
		Where("owner_id = ?", userID).
		Or("id IN (?)", s.db.Model(&models.ProjectMember{}).Select("project_id").Where("user_id = ?", userID)).
		Pluck("id", &ids).Error
	return ids, err
}

// OwnedProjectIDs returns the projects the user owns.
func (s *ProjectService) OwnedProjectIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.Project{}).Where("owner_id = ?", userID).Pluck("id", &ids).Error
	return ids, err
}

// TeamMemberIDs is the distinct set of members across the projects a user owns,
// the owner excluded.
func (s *ProjectService) TeamMemberIDs(ownerID uint) ([]uint, error) {
	var ids []uint
	err := s.db.Model(&models.ProjectMember{}).
		Distinct("user_id").
		Where("project_id IN (?)", s.db.Model(&models.Project{}).Select("id").Where("owner_id = ?", ownerID)).
		Where("user_id <> ?", ownerID).
		Pluck("user_id", &ids).Error
	return ids, err
}

func (s *ProjectService) List(actor Actor, req *ProjectListRequest) (*ProjectListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 10
	}

	query := s.db.Model(&models.Project{})
	if !actor.IsAdmin() {
		ids, err := s.VisibleProjectIDs(actor.UserID)
		if err != nil {
			return nil, err
		}
		query = query.Where("id IN ?", nonEmptyIDs(ids))
	}
	if req.Name != "" {
		query = query.Where("name LIKE ?", "%"+req.Name+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var projects []models.Project
	offset := (req.Page - 1) * req.PageSize
	if err := query.Preload("Owner").Order("created_at DESC").Offset(offset).Limit(req.PageSize).Find(&projects).Error; err != nil {
		return nil, err
	}

	return &ProjectListResponse{Total: total, Page: req.Page, PageSize: req.PageSize, Items: projects}, nil
}

func (s *ProjectService) getByID(id uint) (*models.Project, error) {
	var project models.Project
	if err := s.db.First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("project not found")
		}
		return nil, err
	}
	return &project, nil
}

// Authorize loads a project the actor may read. Non-visible projects are
// reported as not found.
func (s *ProjectService) Authorize(actor Actor, id uint) (*models.Project, error) {
	project, err := s.getByID(id)
	if err != nil {
		return nil, err
	}
	if actor.IsAdmin() || project.OwnerID == actor.UserID {
		return project, nil
	}
	var count int64
	if err := s.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", id, actor.UserID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, response.NewNotFound("project not found")
	}
	return project, nil
}

// AuthorizeOwner loads a project the actor may modify.
func (s *ProjectService) AuthorizeOwner(actor Actor, id uint) (*models.Project, error) {
	project, err := s.Authorize(actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && project.OwnerID != actor.UserID {
		return nil, response.NewForbidden("only the project owner can do this")
	}
	return project, nil
}

func (s *ProjectService) Get(actor Actor, id uint) (*models.Project, error) {
	project, err := s.Authorize(actor, id)
	if err != nil {
		return nil, err
	}
	s.db.Preload("Owner").First(project, project.ID)
	return project, nil
}

// Create stores the project and records the owner as its first member.
func (s *ProjectService) Create(actor Actor, req *CreateProjectRequest) (*models.Project, error) {
	project := models.Project{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     actor.UserID,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&project).Error; err != nil {
			return err
		}
		return tx.Create(&models.ProjectMember{ProjectID: project.ID, UserID: actor.UserID}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return &project, nil
}

func (s *ProjectService) Update(actor Actor, id uint, req *UpdateProjectRequest) (*models.Project, error) {
	project, err := s.AuthorizeOwner(actor, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if len(updates) > 0 {
		if err := s.db.Model(project).Updates(updates).Error; err != nil {
			return nil, err
		}
	}
	return project, nil
}

// Delete soft-deletes the project together with its tasks and memberships.
func (s *ProjectService) Delete(actor Actor, id uint) error {
	project, err := s.AuthorizeOwner(actor, id)
	if err != nil {
		return err
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", project.ID).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", project.ID).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(project).Error
	})
}

func (s *ProjectService) ListMembers(actor Actor, projectID uint) ([]models.ProjectMember, error) {
	if _, err := s.Authorize(actor, projectID); err != nil {
		return nil, err
	}
	var members []models.ProjectMember
	err := s.db.Where("project_id = ?", projectID).Preload("User").Order("id").Find(&members).Error
	return members, err
}

type AddMemberRequest struct {
	UserID uint `json:"user_id" binding:"required"`
}

func (s *ProjectService) AddMember(actor Actor, projectID uint, req *AddMemberRequest) (*models.ProjectMember, error) {
	if _, err := s.AuthorizeOwner(actor, projectID); err != nil {
		return nil, err
	}

	var user models.User
	if err := s.db.First(&user, req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("user not found")
		}
		return nil, err
	}

	var count int64
	s.db.Model(&models.ProjectMember{}).Where("project_id = ? AND user_id = ?", projectID, req.UserID).Count(&count)
	if count > 0 {
		return nil, response.NewConflict("user is already a member of this project")
	}

	member := models.ProjectMember{ProjectID: projectID, UserID: req.UserID}
	if err := s.db.Unscoped().
		Where("project_id = ? AND user_id = ?", projectID, req.UserID).
		Delete(&models.ProjectMember{}).Error; err != nil {
		return nil, err
	}
	if err := s.db.Create(&member).Error; err != nil {
		return nil, err
	}
	member.User = &user
	return &member, nil
}

func (s *ProjectService) RemoveMember(actor Actor, projectID, userID uint) error {
	project, err := s.AuthorizeOwner(actor, projectID)
	if err != nil {
		return err
	}
	if project.OwnerID == userID {
		return response.NewBadRequest("the project owner cannot be removed")
	}
	result := s.db.Where("project_id = ? AND user_id = ?", projectID, userID).Delete(&models.ProjectMember{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return response.NewNotFound("member not found")
	}
	return nil
}

// nonEmptyIDs keeps "IN ?" valid for an empty id set.
func nonEmptyIDs(ids []uint) []uint {
	if len(ids) == 0 {
		return []uint{0}
	}
	return ids
}
