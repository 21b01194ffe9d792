package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/taskflow/backend/internal/models"
	"github.com/taskflow/backend/pkg/response"
	"gorm.io/gorm"
)

type TaskService struct {
	db       *gorm.DB
	projects *ProjectService
}

func NewTaskService(db *gorm.DB, projects *ProjectService) *TaskService {
	return &TaskService{db: db, projects: projects}
}

type TaskListRequest struct {
	Status     string `form:"status"`
	Priority   string `form:"priority"`
	AssigneeID uint   `form:"assignee_id"`
}

type CreateTaskRequest struct {
	Title       string     `json:"title" binding:"required,max=300"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssigneeID  *uint      `json:"assignee_id"`
	DueDate     *time.Time `json:"due_date"`
	LabelIDs    []uint     `json:"label_ids"`
}

type UpdateTaskRequest struct {
	Title         *string    `json:"title" binding:"omitempty,min=1,max=300"`
	Description   *string    `json:"description"`
	Status        *string    `json:"status"`
	Priority      *string    `json:"priority"`
	AssigneeID    *uint      `json:"assignee_id"`
	ClearAssignee bool       `json:"clear_assignee"`
	DueDate       *time.Time `json:"due_date"`
	ClearDueDate  bool       `json:"clear_due_date"`
	LabelIDs      *[]uint    `json:"label_ids"`
}

type MoveTaskRequest struct {
	Status   string `json:"status" binding:"required"`
	Position int    `json:"position" binding:"min=0"`
}

type BoardColumn struct {
	Status string        `json:"status"`
	Tasks  []models.Task `json:"tasks"`
}

func (s *TaskService) List(actor Actor, projectID uint, req *TaskListRequest) ([]models.Task, error) {
	if _, err := s.projects.Authorize(actor, projectID); err != nil {
		return nil, err
	}

	query := s.db.Where("project_id = ?", projectID)
	if req.Status != "" {
		if !models.ValidTaskStatus(req.Status) {
			return nil, response.NewBadRequest("invalid status: " + req.Status)
		}
		query = query.Where("status = ?", req.Status)
	}
	if req.Priority != "" {
		if !models.ValidTaskPriority(req.Priority) {
			return nil, response.NewBadRequest("invalid priority: " + req.Priority)
		}
		query = query.Where("priority = ?", req.Priority)
	}
	if req.AssigneeID != 0 {
		query = query.Where("assignee_id = ?", req.AssigneeID)
	}

	var tasks []models.Task
	err := query.Preload("Assignee").Preload("Labels").Order("updated_at DESC").Find(&tasks).Error
	return tasks, err
}

// Board groups a project's tasks into one column per status, ordered by position.
func (s *TaskService) Board(actor Actor, projectID uint) ([]BoardColumn, error) {
	if _, err := s.projects.Authorize(actor, projectID); err != nil {
		return nil, err
	}

	var tasks []models.Task
	if err := s.db.Where("project_id = ?", projectID).
		Preload("Assignee").Preload("Labels").
		Order("position ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}

	columns := make([]BoardColumn, len(models.TaskStatuses))
	index := make(map[string]int, len(models.TaskStatuses))
	for i, status := range models.TaskStatuses {
		columns[i] = BoardColumn{Status: status, Tasks: []models.Task{}}
		index[status] = i
	}
	for _, t := range tasks {
		if i, ok := index[t.Status]; ok {
			columns[i].Tasks = append(columns[i].Tasks, t)
		}
	}
	return columns, nil
}

func (s *TaskService) Create(actor Actor, projectID uint, req *CreateTaskRequest) (*models.Task, error) {
	if _, err := s.projects.Authorize(actor, projectID); err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = models.TaskStatusTodo
	}
	priority := req.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}
	if !models.ValidTaskStatus(status) {
		return nil, response.NewBadRequest("invalid status: " + status)
	}
	if !models.ValidTaskPriority(priority) {
		return nil, response.NewBadRequest("invalid priority: " + priority)
	}
	if req.AssigneeID != nil {
		if err := s.checkAssignable(projectID, *req.AssigneeID); err != nil {
			return nil, err
		}
	}
	labels, err := s.projectLabels(projectID, req.LabelIDs)
	if err != nil {
		return nil, err
	}

	task := models.Task{
		ProjectID:   projectID,
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		Priority:    priority,
		AssigneeID:  req.AssigneeID,
		ReporterID:  actor.UserID,
		DueDate:     req.DueDate,
		Labels:      labels,
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		pos, err := columnLength(tx, projectID, status)
		if err != nil {
			return err
		}
		task.Position = pos
		return tx.Create(&task).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &task, nil
}

// Authorize loads a task whose project the actor can see.
func (s *TaskService) Authorize(actor Actor, id uint) (*models.Task, error) {
	var task models.Task
	if err := s.db.First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewNotFound("task not found")
		}
		return nil, err
	}
	if _, err := s.projects.Authorize(actor, task.ProjectID); err != nil {
		if errors.Is(err, response.ErrNotFound) {
			return nil, response.NewNotFound("task not found")
		}
		return nil, err
	}
	return &task, nil
}

func (s *TaskService) Get(actor Actor, id uint) (*models.Task, error) {
	task, err := s.Authorize(actor, id)
	if err != nil {
		return nil, err
	}
	err = s.db.Preload("Project").Preload("Assignee").Preload("Reporter").Preload("Labels").First(task, task.ID).Error
	return task, err
}

func (s *TaskService) Update(actor Actor, id uint, req *UpdateTaskRequest) (*models.Task, error) {
	task, err := s.Authorize(actor, id)
	if err != nil {
		return nil, err
	}

	updates := make(map[string]interface{})
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.Priority != nil {
		if !models.ValidTaskPriority(*req.Priority) {
			return nil, response.NewBadRequest("invalid priority: " + *req.Priority)
		}
		updates["priority"] = *req.Priority
	}
	if req.ClearAssignee {
		updates["assignee_id"] = nil
	} else if req.AssigneeID != nil {
		if err := s.checkAssignable(task.ProjectID, *req.AssigneeID); err != nil {
			return nil, err
		}
		updates["assignee_id"] = *req.AssigneeID
	}
	if req.ClearDueDate {
		updates["due_date"] = nil
	} else if req.DueDate != nil {
		updates["due_date"] = *req.DueDate
	}

	var labels []models.Label
	if req.LabelIDs != nil {
		if labels, err = s.projectLabels(task.ProjectID, *req.LabelIDs); err != nil {
			return nil, err
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if req.Status != nil && *req.Status != task.Status {
			if !models.ValidTaskStatus(*req.Status) {
				return response.NewBadRequest("invalid status: " + *req.Status)
			}
			pos, err := columnLength(tx, task.ProjectID, *req.Status)
			if err != nil {
				return err
			}
			if err := moveTask(tx, task, *req.Status, pos); err != nil {
				return err
			}
		}
		if len(updates) > 0 {
			if err := tx.Model(task).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.LabelIDs != nil {
			return tx.Model(task).Association("Labels").Replace(labels)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(actor, id)
}

// Move places the task at position within the status column, shifting the
// remaining cards of both columns to keep positions dense.
func (s *TaskService) Move(actor Actor, id uint, req *MoveTaskRequest) (*models.Task, error) {
	if !models.ValidTaskStatus(req.Status) {
		return nil, response.NewBadRequest("invalid status: " + req.Status)
	}
	task, err := s.Authorize(actor, id)
	if err != nil {
		return nil, err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		return moveTask(tx, task, req.Status, req.Position)
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func moveTask(tx *gorm.DB, task *models.Task, status string, position int) error {
	// Close the gap in the source column.
	if err := tx.Model(&models.Task{}).
		Where("project_id = ? AND status = ? AND position > ? AND id <> ?", task.ProjectID, task.Status, task.Position, task.ID).
		UpdateColumn("position", gorm.Expr("position - 1")).Error; err != nil {
		return err
	}

	length, err := columnLengthExcluding(tx, task.ProjectID, status, task.ID)
	if err != nil {
		return err
	}
	if position > length {
		position = length
	}

	if err := tx.Model(&models.Task{}).
		Where("project_id = ? AND status = ? AND position >= ? AND id <> ?", task.ProjectID, status, position, task.ID).
		UpdateColumn("position", gorm.Expr("position + 1")).Error; err != nil {
		return err
	}

	task.Status = status
	task.Position = position
	return tx.Model(task).Updates(map[string]interface{}{"status": status, "position": position}).Error
}

// Delete is allowed for the reporter, the project owner, and admins.
func (s *TaskService) Delete(actor Actor, id uint) error {
	task, err := s.Authorize(actor, id)
	if err != nil {
		return err
	}
	if !actor.IsAdmin() && task.ReporterID != actor.UserID {
		project, err := s.projects.getByID(task.ProjectID)
		if err != nil {
			return err
		}
		if project.OwnerID != actor.UserID {
			return response.NewForbidden("only the reporter or project owner can delete this task")
		}
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).
			Where("project_id = ? AND status = ? AND position > ?", task.ProjectID, task.Status, task.Position).
			UpdateColumn("position", gorm.Expr("position - 1")).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", task.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(task).Error
	})
}

func (s *TaskService) checkAssignable(projectID, userID uint) error {
	var count int64
	if err := s.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return response.NewBadRequest("assignee must be a project member")
	}
	return nil
}

func (s *TaskService) projectLabels(projectID uint, ids []uint) ([]models.Label, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var labels []models.Label
	if err := s.db.Where("project_id = ? AND id IN ?", projectID, ids).Find(&labels).Error; err != nil {
		return nil, err
	}
	if len(labels) != len(ids) {
		return nil, response.NewBadRequest("labels must belong to the task's project")
	}
	return labels, nil
}

func columnLength(tx *gorm.DB, projectID uint, status string) (int, error) {
	var n int64
	err := tx.Model(&models.Task{}).Where("project_id = ? AND status = ?", projectID, status).Count(&n).Error
	return int(n), err
}

func columnLengthExcluding(tx *gorm.DB, projectID uint, status string, taskID uint) (int, error) {
	var n int64
	err := tx.Model(&models.Task{}).
		Where("project_id = ? AND status = ? AND id <> ?", projectID, status, taskID).
		Count(&n).Error
	return int(n), err
}
