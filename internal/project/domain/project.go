package domain

import (
	"errors"
	"time"
)

// Project belongs to exactly one team; TeamID is immutable after creation.
type Project struct {
	ID          string
	Name        string
	Description string
	TeamID      string
	CreatedBy   string
	Status      ProjectStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ProjectStatus string

const (
	ProjectStatusActive   ProjectStatus = "active"
	ProjectStatusArchived ProjectStatus = "archived"
)

// Validate validates the project for persistence.
func (p *Project) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.TeamID == "" {
		return errors.New("team_id is required")
	}
	if p.CreatedBy == "" {
		return errors.New("created_by is required")
	}
	if p.Status == "" {
		p.Status = ProjectStatusActive
	}
	return nil
}

// Member links a user to a project. The project creator is always present with
// RoleOwner and can never be removed while still creator.
type Member struct {
	ProjectID string
	UserID    string
	Role      MemberRole
	AddedAt   time.Time
}

type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleMember MemberRole = "member"
)
