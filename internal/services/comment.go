package services

import (
	"errors"

	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/pkg/response"
	"gorm.io/gorm"
)

type CommentService struct {
	db    *gorm.DB
	tasks *TaskService
}

func NewCommentService(db *gorm.DB, tasks *TaskService) *CommentService {
	return &CommentService{db: db, tasks: tasks}
}

type CommentRequest struct {
	Content string `json:"content" binding:"required,max=10000"`
}

func (s *CommentService) List(actor Actor, taskID uint) ([]models.Comment, error) {
	if _, err := s.tasks.Authorize(actor, taskID); err != nil {
		return nil, err
	}
	var comments []models.Comment
	err := s.db.Where("task_id = ?", taskID).Preload("Author").Order("created_at ASC").Find(&comments).Error
	return comments, err
}

func (s *CommentService) Create(actor Actor, taskID uint, req *CommentRequest) (*models.Comment, error) {
	if _, err := s.tasks.Authorize(actor, taskID); err != nil {
		return nil, err
	}
	comment := models.Comment{TaskID: taskID, AuthorID: actor.UserID, Content: req.Content}
	if err := s.db.Create(&comment).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// authorizeAuthor loads a comment only its author or an admin may change.
func (s *CommentService) authorizeAuthor(actor Actor, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := s.db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("comment not found")
		}
		return nil, err
	}
	if _, err := s.tasks.Authorize(actor, comment.TaskID); err != nil {
		return nil, response.NewNotFound("comment not found")
	}
	if !actor.IsAdmin() && comment.AuthorID != actor.UserID {
		return nil, response.NewForbidden("only the author can modify this comment")
	}
	return &comment, nil
}

func (s *CommentService) Update(actor Actor, id uint, req *CommentRequest) (*models.Comment, error) {
	comment, err := s.authorizeAuthor(actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.db.Model(comment).Update("content", req.Content).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

func (s *CommentService) Delete(actor Actor, id uint) error {
	comment, err := s.authorizeAuthor(actor, id)
	if err != nil {
		return err
	}
	return s.db.Delete(comment).Error
}
