package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
)

// User represents a system user
type User struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Username   string         `gorm:"uniqueIndex;size:100;not null" json:"username"`
	Password   string         `gorm:"size:255" json:"-"` // Hashed password, empty for LDAP users
	Email      string         `gorm:"size:255" json:"email"`
	Name       string         `gorm:"size:100" json:"name"`
	Avatar     string         `gorm:"size:500" json:"avatar"`
	Role       string         `gorm:"size:50;default:member" json:"role"`     // admin, manager, member
	AuthType   string         `gorm:"size:20;default:local" json:"auth_type"` // local, ldap
	IsActive   bool           `gorm:"default:true" json:"is_active"`
	IsVerified bool           `gorm:"default:false;index" json:"is_verified"`
	Timezone   string         `gorm:"size:64" json:"timezone"` // IANA name, empty = server local
	LastLogin  *time.Time     `json:"last_login"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string { return "users" }

// DisplayName falls back to the username when no name is set.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Username
}

// IsElevated reports whether the user may read team-scoped data.
func (u *User) IsElevated() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}
