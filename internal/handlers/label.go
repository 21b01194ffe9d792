package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/taskflow/backend/internal/middleware"
	"github.com/taskflow/backend/internal/services"
	"github.com/taskflow/backend/pkg/response"
)

type LabelHandler struct {
	labelService *services.LabelService
}

func NewLabelHandler(labelService *services.LabelService) *LabelHandler {
	return &LabelHandler{labelService: labelService}
}

// List
// GET /api/projects/:id/labels
func (h *LabelHandler) List(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}

	labels, err := h.labelService.List(middleware.GetActor(c), projectID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, labels)
}

// Create
// POST /api/projects/:id/labels
func (h *LabelHandler) Create(c *gin.Context) {
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.CreateLabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	label, err := h.labelService.Create(middleware.GetActor(c), projectID, &req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, label)
}

// Delete
// DELETE /api/labels/:id
func (h *LabelHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.labelService.Delete(middleware.GetActor(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"message": "label deleted"})
}
