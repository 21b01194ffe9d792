package services

import "github.com/taskflow/backend/internal/models"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

func (a Actor) IsElevated() bool {
	return a.Role == models.RoleAdmin || a.Role == models.RoleManager
}
