package repository

import (
	"context"

	"crewdesk/backend/internal/project/domain"
)

// Repository defines persistence for projects, their members, and tasks.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	ListByTeam(ctx context.Context, teamID string) ([]*domain.Project, error)
	// CreateWithOwner inserts the project and its creator's owner membership
	// in one transaction; both succeed or neither does.
	CreateWithOwner(ctx context.Context, p *domain.Project) error
	Update(ctx context.Context, p *domain.Project) error
	// Delete removes the project; member and task rows cascade.
	Delete(ctx context.Context, id string) error

	GetMember(ctx context.Context, projectID, userID string) (*domain.Member, error)
	ListMembers(ctx context.Context, projectID string) ([]*domain.Member, error)
	AddMember(ctx context.Context, m *domain.Member) error
	RemoveMember(ctx context.Context, projectID, userID string) error

	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListTasksByProject(ctx context.Context, projectID string) ([]*domain.Task, error)
	CreateTask(ctx context.Context, t *domain.Task) error
	UpdateTask(ctx context.Context, t *domain.Task) error
	DeleteTask(ctx context.Context, id string) error
}
