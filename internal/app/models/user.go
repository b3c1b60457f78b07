package models

import (
	"time"
)

// RoleType identifies the kind of account
type RoleType string

const (
	RoleStudent   RoleType = "STUDENT"
	RoleAdmin     RoleType = "ADMIN"
	RolePresenter RoleType = "PRESENTER"
	RoleMentor    RoleType = "MENTOR"
	RoleManager   RoleType = "MANAGER"
)

// ValidRole reports whether the given role type is one of the known roles
func ValidRole(r RoleType) bool {
	switch r {
	case RoleStudent, RoleAdmin, RolePresenter, RoleMentor, RoleManager:
		return true
	}
	return false
}

// User defines the user model based on the 'users' table
type User struct {
	ID          int64      `json:"id" db:"id" example:"1"`                                                  // Unique identifier for the user
	Email       string     `json:"email" db:"email" example:"user@learnstack.app"`                          // User's email address
	Password    string     `json:"-" db:"password"`                                                         // User's hashed password (excluded from JSON)
	FirstName   string     `json:"firstName" db:"first_name" example:"John"`                                // User's first name
	LastName    string     `json:"lastName" db:"last_name" example:"Doe"`                                   // User's last name
	RoleType    RoleType   `json:"roleType" db:"role_type" example:"STUDENT"`                               // User's role
	IsActive    bool       `json:"isActive" db:"is_active" example:"true"`                                  // Whether the user account is active
	CreatedAt   time.Time  `json:"createdAt" db:"created_at" example:"2024-01-01T10:00:00Z"`                // Timestamp when the user was created
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at" example:"2024-01-02T15:30:00Z"`                // Timestamp when the user was last updated
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty" db:"last_login_at" example:"2024-04-20T18:00:00Z"` // Timestamp of the last login (nullable)
}
