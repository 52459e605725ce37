package service

import (
	"context"

	"crewdesk/backend/internal/authz"
	"crewdesk/backend/internal/errs"
	userrepo "crewdesk/backend/internal/user/repository"
)

// Resolver turns an authenticated subject into a fresh actor snapshot. Role
// and team are re-read from the store on every call, so a revoked membership
// takes effect on the next request even while old tokens are still valid.
type Resolver struct {
	users userrepo.Repository
}

// NewResolver returns a Resolver backed by the user store.
func NewResolver(users userrepo.Repository) *Resolver {
	return &Resolver{users: users}
}

// Resolve loads the current role and team for userID. NotFound if the subject
// no longer exists (e.g. deleted after the token was issued).
func (r *Resolver) Resolve(ctx context.Context, userID string) (authz.Actor, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		return authz.Actor{}, errs.Internal("load user", err)
	}
	if user == nil {
		return authz.Actor{}, errs.NotFound("user not found")
	}
	return authz.Actor{ID: user.ID, Role: user.Role, TeamID: user.TeamID}, nil
}
