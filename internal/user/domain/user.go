package domain

import (
	"errors"
	"time"
)

// User is the core user entity. TeamID is empty only for users who have not
// yet created or joined a team; that is a valid terminal state (e.g. after
// their team was deleted).
type User struct {
	ID                    string
	Email                 string
	Username              string
	PasswordHash          string
	Role                  Role
	TeamID                string
	EmailVerified         bool
	VerificationToken     string
	VerificationExpiresAt *time.Time
	LastActiveAt          *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Role is the team-level role. The set is closed so the authorization rule
// table stays exhaustive.
type Role string

const (
	// RoleAdmin is the team creator; exactly one per team.
	RoleAdmin Role = "admin"
	// RoleEditor is every member who joined via an invite code.
	RoleEditor Role = "editor"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEditor
}

// Validate validates the user for persistence. Returns an error describing the first validation failure.
func (u *User) Validate() error {
	if u.Email == "" {
		return errors.New("email is required")
	}
	if u.Username == "" {
		return errors.New("username is required")
	}
	if !u.Role.Valid() {
		return errors.New("role must be admin or editor")
	}
	return nil
}
