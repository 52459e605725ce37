// Package server wires the HTTP API: routing, request decoding, and the
// mapping from service error kinds to status codes. All domain decisions live
// in the services; handlers stay thin.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	auditrepo "crewdesk/backend/internal/audit/repository"
	"crewdesk/backend/internal/authn"
	"crewdesk/backend/internal/authz"
	"crewdesk/backend/internal/errs"
	identityservice "crewdesk/backend/internal/identity/service"
	projectservice "crewdesk/backend/internal/project/service"
	"crewdesk/backend/internal/security"
	teamservice "crewdesk/backend/internal/team/service"
)

// Server holds the API's service dependencies.
type Server struct {
	auth     *identityservice.AuthService
	resolver *identityservice.Resolver
	teams    *teamservice.Service
	projects *projectservice.Service
	audits   auditrepo.Repository
	tokens   *security.TokenProvider
	log      *zap.SugaredLogger
}

// New returns a Server over the given services.
func New(
	auth *identityservice.AuthService,
	resolver *identityservice.Resolver,
	teams *teamservice.Service,
	projects *projectservice.Service,
	audits auditrepo.Repository,
	tokens *security.TokenProvider,
	log *zap.SugaredLogger,
) *Server {
	return &Server{
		auth:     auth,
		resolver: resolver,
		teams:    teams,
		projects: projects,
		audits:   audits,
		tokens:   tokens,
		log:      log,
	}
}

// Router builds the chi router with public auth routes and the authenticated
// API behind the bearer-token middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", s.handleSignup)
		r.Post("/auth/verify-email", s.handleVerifyEmail)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(authn.Middleware(s.tokens))

			r.Post("/teams", s.handleCreateTeam)
			r.Get("/team", s.handleGetTeam)
			r.Get("/team/members", s.handleListMembers)
			r.Get("/team/invite-code", s.handleInviteCode)
			r.Post("/team/invite-code/regenerate", s.handleRegenerateInviteCode)
			r.Get("/team/invitations", s.handleListInvitations)
			r.Post("/team/invitations", s.handleSendInvitation)
			r.Post("/team/invitations/{id}/cancel", s.handleCancelInvitation)
			r.Get("/team/activity", s.handleTeamActivity)

			r.Get("/projects", s.handleListProjects)
			r.Post("/projects", s.handleCreateProject)
			r.Get("/projects/{id}", s.handleGetProject)
			r.Patch("/projects/{id}", s.handleUpdateProject)
			r.Delete("/projects/{id}", s.handleDeleteProject)
			r.Get("/projects/{id}/members", s.handleListProjectMembers)
			r.Post("/projects/{id}/members", s.handleAddProjectMember)
			r.Delete("/projects/{id}/members/{userID}", s.handleRemoveProjectMember)
			r.Get("/projects/{id}/tasks", s.handleListTasks)
			r.Post("/projects/{id}/tasks", s.handleCreateTask)
			r.Patch("/tasks/{id}", s.handleUpdateTask)
			r.Delete("/tasks/{id}", s.handleDeleteTask)
		})
	})

	return r
}

// actor resolves the authenticated subject into a fresh actor snapshot. The
// token only proves identity; role and team come from the store.
func (s *Server) actor(r *http.Request) (authz.Actor, error) {
	userID, ok := authn.GetUserID(r.Context())
	if !ok {
		return authz.Actor{}, errs.Unauthenticated("missing identity")
	}
	actor, err := s.resolver.Resolve(r.Context(), userID)
	if err != nil {
		if errs.Is(err, errs.KindNotFound) {
			// Token subject no longer exists; the credential is worthless.
			return authz.Actor{}, errs.Unauthenticated("unknown subject")
		}
		return authz.Actor{}, err
	}
	return actor, nil
}
