package repository

import (
	"context"

	"crewdesk/backend/internal/team/domain"
)

// Repository defines persistence for teams and their invitations.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	GetByInviteCode(ctx context.Context, code string) (*domain.Team, error)
	Create(ctx context.Context, t *domain.Team) error
	SetInviteCode(ctx context.Context, teamID, code string) error

	GetInvitation(ctx context.Context, id string) (*domain.Invitation, error)
	ListInvitationsByTeam(ctx context.Context, teamID string) ([]*domain.Invitation, error)
	// LatestPendingInvitation returns the newest pending invitation for the
	// given team and email, or nil if none exists.
	LatestPendingInvitation(ctx context.Context, teamID, email string) (*domain.Invitation, error)
	CreateInvitation(ctx context.Context, inv *domain.Invitation) error
	UpdateInvitationStatus(ctx context.Context, inv *domain.Invitation) error
}
