package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	projectdomain "crewdesk/backend/internal/project/domain"
	projectservice "crewdesk/backend/internal/project/service"
)

type projectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	TeamID      string    `json:"team_id"`
	CreatedBy   string    `json:"created_by"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toProjectResponse(p *projectdomain.Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		TeamID:      p.TeamID,
		CreatedBy:   p.CreatedBy,
		Status:      string(p.Status),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	list, err := s.projects.ListProjects(r.Context(), actor)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	out := make([]projectResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toProjectResponse(p))
	}
	writeJSON(w, http.StatusOK, out)
}

type createProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	var req createProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	p, err := s.projects.CreateProject(r.Context(), actor, req.Name, req.Description)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectResponse(p))
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	p, err := s.projects.GetProject(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(p))
}

type updateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	var req updateProjectRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	in := projectservice.UpdateProjectInput{Name: req.Name, Description: req.Description}
	if req.Status != nil {
		st := projectdomain.ProjectStatus(*req.Status)
		in.Status = &st
	}
	p, err := s.projects.UpdateProject(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectResponse(p))
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := s.projects.DeleteProject(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type memberResponse struct {
	ProjectID string    `json:"project_id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	AddedAt   time.Time `json:"added_at"`
}

func toMemberResponse(m *projectdomain.Member) memberResponse {
	return memberResponse{ProjectID: m.ProjectID, UserID: m.UserID, Role: string(m.Role), AddedAt: m.AddedAt}
}

func (s *Server) handleListProjectMembers(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	members, err := s.projects.ListMembers(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, toMemberResponse(m))
	}
	writeJSON(w, http.StatusOK, out)
}

type addMemberRequest struct {
	UserID string `json:"user_id"`
}

func (s *Server) handleAddProjectMember(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	var req addMemberRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	m, err := s.projects.AddMember(r.Context(), actor, chi.URLParam(r, "id"), req.UserID)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMemberResponse(m))
}

func (s *Server) handleRemoveProjectMember(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := s.projects.RemoveMember(r.Context(), actor, chi.URLParam(r, "id"), chi.URLParam(r, "userID")); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

type taskResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	AssigneeID  string    `json:"assignee_id,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toTaskResponse(t *projectdomain.Task) taskResponse {
	return taskResponse{
		ID:          t.ID,
		ProjectID:   t.ProjectID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		AssigneeID:  t.AssigneeID,
		CreatedBy:   t.CreatedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	tasks, err := s.projects.ListTasks(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	out := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

type createTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	AssigneeID  string `json:"assignee_id,omitempty"`
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	var req createTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	t, err := s.projects.CreateTask(r.Context(), actor, chi.URLParam(r, "id"), projectservice.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssigneeID,
	})
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskResponse(t))
}

type updateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	AssigneeID  *string `json:"assignee_id,omitempty"`
}

func (s *Server) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	var req updateTaskRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	in := projectservice.UpdateTaskInput{Title: req.Title, Description: req.Description, AssigneeID: req.AssigneeID}
	if req.Status != nil {
		st := projectdomain.TaskStatus(*req.Status)
		in.Status = &st
	}
	t, err := s.projects.UpdateTask(r.Context(), actor, chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskResponse(t))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	actor, err := s.actor(r)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := s.projects.DeleteTask(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}
