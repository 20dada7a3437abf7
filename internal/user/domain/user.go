package domain

import (
	"errors"
	"time"
)

// User is the core user entity. A user belongs to at most one organization
// and carries their role in it directly.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	OrgID        string // empty when the user has no organization
	Role         Role
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// Role is the user's role within their organization.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleManager Role = "manager"
	RoleCoach   Role = "coach"
	RolePlayer  Role = "player"
	RoleAnalyst Role = "analyst"
)

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	if u.Role == "" {
		u.Role = RolePlayer
	}
	return nil
}
