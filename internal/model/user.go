package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Roles recognised by the role middleware
const (
	RoleAdmin        = "admin"
	RoleCollaborator = "collaborator"
)

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleCollaborator
}

// User represents a support-team member account
type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Username    string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"username"`
	Password    string     `gorm:"type:varchar(255);not null" json:"-"` // bcrypt hash, never serialised
	DisplayName string     `gorm:"type:varchar(255)" json:"display_name"`
	Role        string     `gorm:"type:varchar(30);not null" json:"role"` // admin, collaborator
	Active      bool       `gorm:"not null" json:"active"`
	FirstAccess bool       `gorm:"not null" json:"first_access"` // must set a password before logging in
	LastSeenAt  *time.Time `json:"last_seen_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// BeforeCreate assigns the primary key so the schema does not depend on gen_random_uuid()
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// Name returns the display name, falling back to the username
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Username
}
