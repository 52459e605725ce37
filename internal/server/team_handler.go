package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	auditdomain "crewdesk/backend/internal/audit/domain"
	"crewdesk/backend/internal/authn"
	"crewdesk/backend/internal/authz"
	"crewdesk/backend/internal/errs"
	teamdomain "crewdesk/backend/internal/team/domain"
)

type teamResponse struct {
	ID        string    `json:"id"`
	AdminID   string    `json:"admin_id"`
	CreatedAt time.Time `json:"created_at"`
}

func toTeamResponse(t *teamdomain.Team) teamResponse {
	return teamResponse{ID: t.ID, AdminID: t.AdminID, CreatedAt: t.CreatedAt}
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	// CreateTeam is the one authenticated operation open to team-less users,
	// so it works from the raw subject instead of a resolved actor.
	userID, ok := authn.GetUserID(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing identity", Kind: "unauthenticated"})
		return
	}
	team, err := s.teams.CreateTeam(r.Context(), userID)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTeamResponse(team))
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	team, err := s.teams.Team(r.Context(), actor)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTeamResponse(team))
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	members, err := s.teams.Members(r.Context(), actor)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	out := make([]userResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toUserResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

type inviteCodeResponse struct {
	InviteCode string `json:"invite_code"`
}

func (s *Server) handleInviteCode(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	code, err := s.teams.InviteCode(r.Context(), actor)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, inviteCodeResponse{InviteCode: code})
}

func (s *Server) handleRegenerateInviteCode(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	code, err := s.teams.RegenerateInviteCode(r.Context(), actor)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, inviteCodeResponse{InviteCode: code})
}

type invitationResponse struct {
	ID         string     `json:"id"`
	TeamID     string     `json:"team_id"`
	Email      string     `json:"email"`
	InvitedBy  string     `json:"invited_by"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	AcceptedBy string     `json:"accepted_by,omitempty"`
}

func toInvitationResponse(inv *teamdomain.Invitation) invitationResponse {
	return invitationResponse{
		ID:         inv.ID,
		TeamID:     inv.TeamID,
		Email:      inv.Email,
		InvitedBy:  inv.InvitedBy,
		Status:     string(inv.Status),
		CreatedAt:  inv.CreatedAt,
		AcceptedAt: inv.AcceptedAt,
		AcceptedBy: inv.AcceptedBy,
	}
}

func (s *Server) handleListInvitations(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	invs, err := s.teams.Invitations(r.Context(), actor)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	out := make([]invitationResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toInvitationResponse(inv))
	}
	writeJSON(w, http.StatusOK, out)
}

type sendInvitationRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleSendInvitation(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	var req sendInvitationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	inv, err := s.teams.SendInvitation(r.Context(), actor, req.Email)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvitationResponse(inv))
}

func (s *Server) handleCancelInvitation(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := s.teams.CancelInvitation(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type activityResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func toActivityResponse(a *auditdomain.AuditLog) activityResponse {
	return activityResponse{
		ID:        a.ID,
		UserID:    a.UserID,
		Action:    a.Action,
		Resource:  a.Resource,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt,
	}
}

func (s *Server) handleTeamActivity(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if d := authz.CanPerform(actor, authz.ActionTeamRead, authz.Resource{TeamID: actor.TeamID}); !d.Allowed {
		writeError(w, s.log, errs.Denied(d.Reason))
		return
	}
	limit := queryInt32(r, "limit", 50)
	offset := queryInt32(r, "offset", 0)
	logs, err := s.audits.ListByTeam(r.Context(), actor.TeamID, limit, offset)
	if err != nil {
		writeError(w, s.log, errs.Internal("list team activity", err))
		return
	}
	out := make([]activityResponse, 0, len(logs))
	for _, a := range logs {
		out = append(out, toActivityResponse(a))
	}
	writeJSON(w, http.StatusOK, out)
}

func queryInt32(r *http.Request, key string, def int32) int32 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 32)
	if err != nil || n < 0 {
		return def
	}
	return int32(n)
}
