// Package service implements team membership operations: team creation,
// invite code lifecycle, and invitations.
package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crewdesk/backend/internal/audit"
	"crewdesk/backend/internal/authz"
	"crewdesk/backend/internal/errs"
	"crewdesk/backend/internal/mail"
	"crewdesk/backend/internal/team/domain"
	teamrepo "crewdesk/backend/internal/team/repository"
	userdomain "crewdesk/backend/internal/user/domain"
	userrepo "crewdesk/backend/internal/user/repository"
)

// codeCharset excludes ambiguous characters (0/O, 1/I/L) so codes survive
// being read aloud or retyped.
const codeCharset = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// Service carries out team membership operations. Authorization goes through
// authz.CanPerform; a denied decision surfaces as errs.Denied with the rule's
// reason.
type Service struct {
	teams      teamrepo.Repository
	users      userrepo.Repository
	mailer     mail.Sender
	events     audit.EventLogger
	log        *zap.SugaredLogger
	codeLength int
}

// NewService wires a team service. events and mailer may be nil in tests.
func NewService(teams teamrepo.Repository, users userrepo.Repository, mailer mail.Sender, events audit.EventLogger, log *zap.SugaredLogger, codeLength int) *Service {
	return &Service{
		teams:      teams,
		users:      users,
		mailer:     mailer,
		events:     events,
		log:        log,
		codeLength: codeLength,
	}
}

// CreateTeam creates a team with actorID as its admin. The actor's role is
// promoted to admin and their team_id set to the new team. Conflict if the
// actor already belongs to a team.
func (s *Service) CreateTeam(ctx context.Context, actorID string) (*domain.Team, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, errs.Internal("load user", err)
	}
	if actor == nil {
		return nil, errs.NotFound("user not found")
	}
	if actor.TeamID != "" {
		return nil, errs.Conflict("already a member of a team")
	}

	team := &domain.Team{
		ID:        uuid.New().String(),
		AdminID:   actorID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, errs.Internal("create team", err)
	}

	actor.Role = userdomain.RoleAdmin
	actor.TeamID = team.ID
	if err := s.users.Update(ctx, actor); err != nil {
		return nil, errs.Internal("promote team creator", err)
	}

	s.logEvent(ctx, team.ID, actorID, "team.create", "team:"+team.ID, "")
	return team, nil
}

// Team returns the actor's team.
func (s *Service) Team(ctx context.Context, actor authz.Actor) (*domain.Team, error) {
	if d := authz.CanPerform(actor, authz.ActionTeamRead, authz.Resource{TeamID: actor.TeamID}); !d.Allowed {
		return nil, errs.Denied(d.Reason)
	}
	team, err := s.teams.GetByID(ctx, actor.TeamID)
	if err != nil {
		return nil, errs.Internal("load team", err)
	}
	if team == nil {
		return nil, errs.NotFound("team not found")
	}
	return team, nil
}

// Members lists the users on the actor's team.
func (s *Service) Members(ctx context.Context, actor authz.Actor) ([]*userdomain.User, error) {
	if d := authz.CanPerform(actor, authz.ActionTeamRead, authz.Resource{TeamID: actor.TeamID}); !d.Allowed {
		return nil, errs.Denied(d.Reason)
	}
	members, err := s.users.ListByTeam(ctx, actor.TeamID)
	if err != nil {
		return nil, errs.Internal("list team members", err)
	}
	return members, nil
}

// InviteCode returns the team's invite code, generating it on first request.
// The code is stable once set. When two requests race on first generation,
// the re-read before write keeps the loser from clobbering the winner in the
// common case; if both still write, last-writer-wins and the final re-read
// returns the surviving code.
func (s *Service) InviteCode(ctx context.Context, actor authz.Actor) (string, error) {
	if d := authz.CanPerform(actor, authz.ActionInviteCodeGenerate, authz.Resource{TeamID: actor.TeamID}); !d.Allowed {
		return "", errs.Denied(d.Reason)
	}
	return s.ensureInviteCode(ctx, actor.TeamID)
}

func (s *Service) ensureInviteCode(ctx context.Context, teamID string) (string, error) {
	team, err := s.teams.GetByID(ctx, teamID)
	if err != nil {
		return "", errs.Internal("load team", err)
	}
	if team == nil {
		return "", errs.NotFound("team not found")
	}
	if team.InviteCode != "" {
		return team.InviteCode, nil
	}

	code, err := generateCode(s.codeLength)
	if err != nil {
		return "", errs.Internal("generate invite code", err)
	}

	// Re-read before writing: a concurrent request may have set the code
	// between our load and now.
	team, err = s.teams.GetByID(ctx, teamID)
	if err != nil {
		return "", errs.Internal("load team", err)
	}
	if team == nil {
		return "", errs.NotFound("team not found")
	}
	if team.InviteCode != "" {
		return team.InviteCode, nil
	}
	if err := s.teams.SetInviteCode(ctx, teamID, code); err != nil {
		return "", errs.Internal("set invite code", err)
	}

	team, err = s.teams.GetByID(ctx, teamID)
	if err != nil {
		return "", errs.Internal("load team", err)
	}
	if team == nil || team.InviteCode == "" {
		return code, nil
	}
	return team.InviteCode, nil
}

// RegenerateInviteCode replaces the team's invite code. The old code stops
// resolving for new signups; users who already joined keep their membership.
func (s *Service) RegenerateInviteCode(ctx context.Context, actor authz.Actor) (string, error) {
	if d := authz.CanPerform(actor, authz.ActionInviteCodeGenerate, authz.Resource{TeamID: actor.TeamID}); !d.Allowed {
		return "", errs.Denied(d.Reason)
	}
	code, err := generateCode(s.codeLength)
	if err != nil {
		return "", errs.Internal("generate invite code", err)
	}
	if err := s.teams.SetInviteCode(ctx, actor.TeamID, code); err != nil {
		return "", errs.Internal("set invite code", err)
	}
	s.logEvent(ctx, actor.TeamID, actor.ID, "team.invite_code_regenerate", "team:"+actor.TeamID, "")
	return code, nil
}

// ResolveInvite maps an invite code to its team. Invalid on an unknown code.
func (s *Service) ResolveInvite(ctx context.Context, code string) (*domain.Team, error) {
	if code == "" {
		return nil, errs.Invalid("invite code is required")
	}
	team, err := s.teams.GetByInviteCode(ctx, code)
	if err != nil {
		return nil, errs.Internal("resolve invite code", err)
	}
	if team == nil {
		return nil, errs.Invalid("unknown invite code")
	}
	return team, nil
}

// SendInvitation records a pending invitation for email and fire-and-forgets
// the invite email. Duplicate pending invitations to the same address are
// allowed; each send is its own record.
func (s *Service) SendInvitation(ctx context.Context, actor authz.Actor, email string) (*domain.Invitation, error) {
	if d := authz.CanPerform(actor, authz.ActionInviteSend, authz.Resource{TeamID: actor.TeamID}); !d.Allowed {
		return nil, errs.Denied(d.Reason)
	}
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errs.Invalid("a valid email address is required")
	}

	code, err := s.ensureInviteCode(ctx, actor.TeamID)
	if err != nil {
		return nil, err
	}

	inv := &domain.Invitation{
		ID:         uuid.New().String(),
		TeamID:     actor.TeamID,
		Email:      email,
		InviteCode: code,
		InvitedBy:  actor.ID,
		Status:     domain.InvitationPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.teams.CreateInvitation(ctx, inv); err != nil {
		return nil, errs.Internal("create invitation", err)
	}

	if s.mailer != nil {
		subject, body, err := mail.InviteEmail(code)
		if err != nil {
			if s.log != nil {
				s.log.Warnw("render invite email", "error", err)
			}
		} else {
			mail.SendAsync(s.log, s.mailer, email, subject, body)
		}
	}

	s.logEvent(ctx, actor.TeamID, actor.ID, "team.invite_send", "invitation:"+inv.ID, email)
	return inv, nil
}

// Invitations lists the team's invitations, newest first. Admin surface, so
// it shares the invite-send rule.
func (s *Service) Invitations(ctx context.Context, actor authz.Actor) ([]*domain.Invitation, error) {
	if d := authz.CanPerform(actor, authz.ActionInviteSend, authz.Resource{TeamID: actor.TeamID}); !d.Allowed {
		return nil, errs.Denied(d.Reason)
	}
	invs, err := s.teams.ListInvitationsByTeam(ctx, actor.TeamID)
	if err != nil {
		return nil, errs.Internal("list invitations", err)
	}
	return invs, nil
}

// CancelInvitation moves a pending invitation to canceled. NotFound if the
// invitation does not exist, Denied if it belongs to another team, Conflict
// if it already reached a terminal status.
func (s *Service) CancelInvitation(ctx context.Context, actor authz.Actor, invitationID string) error {
	inv, err := s.teams.GetInvitation(ctx, invitationID)
	if err != nil {
		return errs.Internal("load invitation", err)
	}
	if inv == nil {
		return errs.NotFound("invitation not found")
	}
	if d := authz.CanPerform(actor, authz.ActionInviteCancel, authz.Resource{TeamID: inv.TeamID}); !d.Allowed {
		return errs.Denied(d.Reason)
	}
	if inv.Status.Terminal() {
		return errs.Conflict(fmt.Sprintf("invitation already %s", inv.Status))
	}

	inv.Status = domain.InvitationCanceled
	if err := s.teams.UpdateInvitationStatus(ctx, inv); err != nil {
		return errs.Internal("cancel invitation", err)
	}
	s.logEvent(ctx, actor.TeamID, actor.ID, "team.invite_cancel", "invitation:"+inv.ID, "")
	return nil
}

// AcceptInvitation marks the newest pending invitation for (teamID, email)
// as accepted by userID. Absence is not an error: invite codes travel out of
// band, so a signup may join without a recorded invitation.
func (s *Service) AcceptInvitation(ctx context.Context, teamID, email, userID string) error {
	inv, err := s.teams.LatestPendingInvitation(ctx, teamID, email)
	if err != nil {
		return errs.Internal("load pending invitation", err)
	}
	if inv == nil {
		return nil
	}
	now := time.Now().UTC()
	inv.Status = domain.InvitationAccepted
	inv.AcceptedAt = &now
	inv.AcceptedBy = userID
	if err := s.teams.UpdateInvitationStatus(ctx, inv); err != nil {
		return errs.Internal("accept invitation", err)
	}
	return nil
}

func (s *Service) logEvent(ctx context.Context, teamID, userID, action, resource, metadata string) {
	if s.events != nil {
		s.events.LogEvent(ctx, teamID, userID, action, resource, metadata)
	}
}

func generateCode(length int) (string, error) {
	if length <= 0 {
		length = 12
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = codeCharset[int(b)%len(codeCharset)]
	}
	return string(buf), nil
}
