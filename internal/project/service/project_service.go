// Package service orchestrates project, member, and task operations. Every
// mutation loads the actor and resource snapshots, asks authz.CanPerform, and
// only then touches the store; a denied decision surfaces its reason verbatim.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crewdesk/backend/internal/audit"
	"crewdesk/backend/internal/authz"
	"crewdesk/backend/internal/errs"
	"crewdesk/backend/internal/project/domain"
	projectrepo "crewdesk/backend/internal/project/repository"
	userrepo "crewdesk/backend/internal/user/repository"
)

// Service carries out project resource operations.
type Service struct {
	projects projectrepo.Repository
	users    userrepo.Repository
	events   audit.EventLogger
	log      *zap.SugaredLogger
}

// NewService wires a project service. events may be nil in tests.
func NewService(projects projectrepo.Repository, users userrepo.Repository, events audit.EventLogger, log *zap.SugaredLogger) *Service {
	return &Service{projects: projects, users: users, events: events, log: log}
}

// CreateProject inserts the project and its creator's owner membership in one
// transaction. Any team member may create projects.
func (s *Service) CreateProject(ctx context.Context, actor authz.Actor, name, description string) (*domain.Project, error) {
	if d := authz.CanPerform(actor, authz.ActionProjectCreate, authz.Resource{TeamID: actor.TeamID}); !d.Allowed {
		return nil, errs.Denied(d.Reason)
	}

	now := time.Now().UTC()
	p := &domain.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		TeamID:      actor.TeamID,
		CreatedBy:   actor.ID,
		Status:      domain.ProjectStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.Validate(); err != nil {
		return nil, errs.Invalid(err.Error())
	}
	if err := s.projects.CreateWithOwner(ctx, p); err != nil {
		return nil, errs.Internal("create project", err)
	}

	s.logEvent(ctx, actor.TeamID, actor.ID, "project.create", "project:"+p.ID, p.Name)
	return p, nil
}

// GetProject returns a single project on the actor's team.
func (s *Service) GetProject(ctx context.Context, actor authz.Actor, id string) (*domain.Project, error) {
	return s.loadProject(ctx, actor, id)
}

// ListProjects lists the actor's team's projects.
func (s *Service) ListProjects(ctx context.Context, actor authz.Actor) ([]*domain.Project, error) {
	if d := authz.CanPerform(actor, authz.ActionTeamRead, authz.Resource{TeamID: actor.TeamID}); !d.Allowed {
		return nil, errs.Denied(d.Reason)
	}
	list, err := s.projects.ListByTeam(ctx, actor.TeamID)
	if err != nil {
		return nil, errs.Internal("list projects", err)
	}
	return list, nil
}

// UpdateProjectInput carries the mutable project fields; nil means unchanged.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Status      *domain.ProjectStatus
}

// UpdateProject applies in to the project. Admin or project creator only.
// Concurrent updates are last-writer-wins at the field level.
func (s *Service) UpdateProject(ctx context.Context, actor authz.Actor, id string, in UpdateProjectInput) (*domain.Project, error) {
	p, err := s.getProject(ctx, id)
	if err != nil {
		return nil, err
	}
	res := authz.Resource{
		TeamID:  p.TeamID,
		Project: &authz.ProjectRef{ID: p.ID, CreatedBy: p.CreatedBy},
	}
	if d := authz.CanPerform(actor, authz.ActionProjectUpdate, res); !d.Allowed {
		return nil, errs.Denied(d.Reason)
	}

	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Status != nil {
		if *in.Status != domain.ProjectStatusActive && *in.Status != domain.ProjectStatusArchived {
			return nil, errs.Invalid("status must be active or archived")
		}
		p.Status = *in.Status
	}
	if err := p.Validate(); err != nil {
		return nil, errs.Invalid(err.Error())
	}
	p.UpdatedAt = time.Now().UTC()
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, errs.Internal("update project", err)
	}
	return p, nil
}

// DeleteProject removes the project; member and task rows cascade. Admin or
// project creator only.
func (s *Service) DeleteProject(ctx context.Context, actor authz.Actor, id string) error {
	p, err := s.getProject(ctx, id)
	if err != nil {
		return err
	}
	res := authz.Resource{
		TeamID:  p.TeamID,
		Project: &authz.ProjectRef{ID: p.ID, CreatedBy: p.CreatedBy},
	}
	if d := authz.CanPerform(actor, authz.ActionProjectDelete, res); !d.Allowed {
		return errs.Denied(d.Reason)
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return errs.Internal("delete project", err)
	}
	s.logEvent(ctx, actor.TeamID, actor.ID, "project.delete", "project:"+id, p.Name)
	return nil
}

// AddMember adds a same-team user to the project with role member. Admin or
// project creator only; Conflict if already a member.
func (s *Service) AddMember(ctx context.Context, actor authz.Actor, projectID, userID string) (*domain.Member, error) {
	p, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	target, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, errs.Internal("load user", err)
	}
	if target == nil {
		return nil, errs.NotFound("user not found")
	}

	res := authz.Resource{
		TeamID:  p.TeamID,
		Project: &authz.ProjectRef{ID: p.ID, CreatedBy: p.CreatedBy},
		Member:  &authz.MemberRef{UserID: userID, TeamID: target.TeamID},
	}
	if d := authz.CanPerform(actor, authz.ActionProjectMemberAdd, res); !d.Allowed {
		return nil, errs.Denied(d.Reason)
	}

	existing, err := s.projects.GetMember(ctx, projectID, userID)
	if err != nil {
		return nil, errs.Internal("load project member", err)
	}
	if existing != nil {
		return nil, errs.Conflict("already a project member")
	}

	m := &domain.Member{
		ProjectID: projectID,
		UserID:    userID,
		Role:      domain.RoleMember,
		AddedAt:   time.Now().UTC(),
	}
	if err := s.projects.AddMember(ctx, m); err != nil {
		return nil, errs.Internal("add project member", err)
	}
	return m, nil
}

// RemoveMember removes a user from the project. The creator's owner row is
// permanent.
func (s *Service) RemoveMember(ctx context.Context, actor authz.Actor, projectID, userID string) error {
	p, err := s.getProject(ctx, projectID)
	if err != nil {
		return err
	}
	existing, err := s.projects.GetMember(ctx, projectID, userID)
	if err != nil {
		return errs.Internal("load project member", err)
	}
	if existing == nil {
		return errs.NotFound("project member not found")
	}

	res := authz.Resource{
		TeamID:  p.TeamID,
		Project: &authz.ProjectRef{ID: p.ID, CreatedBy: p.CreatedBy},
		Member:  &authz.MemberRef{UserID: userID, TeamID: actor.TeamID, IsCreator: userID == p.CreatedBy},
	}
	if d := authz.CanPerform(actor, authz.ActionProjectMemberRemove, res); !d.Allowed {
		return errs.Denied(d.Reason)
	}
	if err := s.projects.RemoveMember(ctx, projectID, userID); err != nil {
		return errs.Internal("remove project member", err)
	}
	return nil
}

// ListMembers lists the project's members; team-scoped read.
func (s *Service) ListMembers(ctx context.Context, actor authz.Actor, projectID string) ([]*domain.Member, error) {
	if _, err := s.loadProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	members, err := s.projects.ListMembers(ctx, projectID)
	if err != nil {
		return nil, errs.Internal("list project members", err)
	}
	return members, nil
}

// CreateTaskInput carries new task fields.
type CreateTaskInput struct {
	Title       string
	Description string
	AssigneeID  string
}

// CreateTask adds a task to the project. Admins and project members only; the
// assignee, when set, must be a project member.
func (s *Service) CreateTask(ctx context.Context, actor authz.Actor, projectID string, in CreateTaskInput) (*domain.Task, error) {
	p, err := s.getProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	res := authz.Resource{
		TeamID:  p.TeamID,
		Project: s.projectRef(ctx, p, actor.ID),
	}
	if d := authz.CanPerform(actor, authz.ActionTaskCreate, res); !d.Allowed {
		return nil, errs.Denied(d.Reason)
	}
	if in.AssigneeID != "" {
		if err := s.requireProjectMember(ctx, projectID, in.AssigneeID); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	t := &domain.Task{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Title:       in.Title,
		Description: in.Description,
		Status:      domain.TaskStatusTodo,
		AssigneeID:  in.AssigneeID,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.Validate(); err != nil {
		return nil, errs.Invalid(err.Error())
	}
	if err := s.projects.CreateTask(ctx, t); err != nil {
		return nil, errs.Internal("create task", err)
	}
	return t, nil
}

// UpdateTaskInput carries the mutable task fields; nil means unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	AssigneeID  *string
}

// UpdateTask applies in to the task. Admins and project members only.
func (s *Service) UpdateTask(ctx context.Context, actor authz.Actor, taskID string, in UpdateTaskInput) (*domain.Task, error) {
	t, p, err := s.getTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	res := authz.Resource{
		TeamID:  p.TeamID,
		Project: s.projectRef(ctx, p, actor.ID),
		Task:    &authz.TaskRef{CreatedBy: t.CreatedBy},
	}
	if d := authz.CanPerform(actor, authz.ActionTaskUpdate, res); !d.Allowed {
		return nil, errs.Denied(d.Reason)
	}

	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = *in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.AssigneeID != nil {
		if *in.AssigneeID != "" {
			if err := s.requireProjectMember(ctx, t.ProjectID, *in.AssigneeID); err != nil {
				return nil, err
			}
		}
		t.AssigneeID = *in.AssigneeID
	}
	if err := t.Validate(); err != nil {
		return nil, errs.Invalid(err.Error())
	}
	t.UpdatedAt = time.Now().UTC()
	if err := s.projects.UpdateTask(ctx, t); err != nil {
		return nil, errs.Internal("update task", err)
	}
	return t, nil
}

// DeleteTask removes a task. Admin, task creator, or project creator.
func (s *Service) DeleteTask(ctx context.Context, actor authz.Actor, taskID string) error {
	t, p, err := s.getTask(ctx, taskID)
	if err != nil {
		return err
	}
	res := authz.Resource{
		TeamID:  p.TeamID,
		Project: &authz.ProjectRef{ID: p.ID, CreatedBy: p.CreatedBy},
		Task:    &authz.TaskRef{CreatedBy: t.CreatedBy},
	}
	if d := authz.CanPerform(actor, authz.ActionTaskDelete, res); !d.Allowed {
		return errs.Denied(d.Reason)
	}
	if err := s.projects.DeleteTask(ctx, taskID); err != nil {
		return errs.Internal("delete task", err)
	}
	return nil
}

// ListTasks lists the project's tasks; team-scoped read.
func (s *Service) ListTasks(ctx context.Context, actor authz.Actor, projectID string) ([]*domain.Task, error) {
	if _, err := s.loadProject(ctx, actor, projectID); err != nil {
		return nil, err
	}
	tasks, err := s.projects.ListTasksByProject(ctx, projectID)
	if err != nil {
		return nil, errs.Internal("list tasks", err)
	}
	return tasks, nil
}

// getProject loads a project or classifies its absence.
func (s *Service) getProject(ctx context.Context, id string) (*domain.Project, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, errs.Internal("load project", err)
	}
	if p == nil {
		return nil, errs.NotFound("project not found")
	}
	return p, nil
}

// loadProject loads a project and applies the team-scoped read rule.
func (s *Service) loadProject(ctx context.Context, actor authz.Actor, id string) (*domain.Project, error) {
	p, err := s.getProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if d := authz.CanPerform(actor, authz.ActionTeamRead, authz.Resource{TeamID: p.TeamID}); !d.Allowed {
		return nil, errs.Denied(d.Reason)
	}
	return p, nil
}

// getTask loads a task together with its parent project, which carries the
// team scope.
func (s *Service) getTask(ctx context.Context, id string) (*domain.Task, *domain.Project, error) {
	t, err := s.projects.GetTask(ctx, id)
	if err != nil {
		return nil, nil, errs.Internal("load task", err)
	}
	if t == nil {
		return nil, nil, errs.NotFound("task not found")
	}
	p, err := s.getProject(ctx, t.ProjectID)
	if err != nil {
		return nil, nil, err
	}
	return t, p, nil
}

// projectRef builds the authz project ref with the actor's membership
// resolved. A membership lookup failure degrades to not-a-member; the role
// rules still apply.
func (s *Service) projectRef(ctx context.Context, p *domain.Project, actorID string) *authz.ProjectRef {
	m, err := s.projects.GetMember(ctx, p.ID, actorID)
	if err != nil && s.log != nil {
		s.log.Warnw("resolve project membership", "project_id", p.ID, "user_id", actorID, "error", err)
	}
	return &authz.ProjectRef{ID: p.ID, CreatedBy: p.CreatedBy, ActorIsMember: m != nil}
}

// requireProjectMember rejects an assignee outside the project.
func (s *Service) requireProjectMember(ctx context.Context, projectID, userID string) error {
	m, err := s.projects.GetMember(ctx, projectID, userID)
	if err != nil {
		return errs.Internal("load project member", err)
	}
	if m == nil {
		return errs.Invalid("assignee must be a project member")
	}
	return nil
}

func (s *Service) logEvent(ctx context.Context, teamID, userID, action, resource, metadata string) {
	if s.events != nil {
		s.events.LogEvent(ctx, teamID, userID, action, resource, metadata)
	}
}
