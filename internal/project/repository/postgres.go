package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"crewdesk/backend/internal/project/domain"
)

const (
	projectColumns = `id, name, description, team_id, created_by, status, created_at, updated_at`
	taskColumns    = `id, project_id, title, description, status, assignee_id, created_by, created_at, updated_at`
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a project repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the project for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ListByTeam returns all projects belonging to the given team.
func (r *PostgresRepository) ListByTeam(ctx context.Context, teamID string) ([]*domain.Project, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE team_id = $1 ORDER BY created_at`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateWithOwner inserts the project and the creator's owner membership in a
// single transaction, preserving the "creator is always owner" invariant.
func (r *PostgresRepository) CreateWithOwner(ctx context.Context, p *domain.Project) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // no-op after Commit

	_, err = tx.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Description, p.TeamID, p.CreatedBy, string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, role, added_at)
		VALUES ($1, $2, $3, $4)`,
		p.ID, p.CreatedBy, string(domain.RoleOwner), p.CreatedAt)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// Update updates the project's mutable fields. team_id and created_by are immutable.
func (r *PostgresRepository) Update(ctx context.Context, p *domain.Project) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE projects
		SET name = $2, description = $3, status = $4, updated_at = $5
		WHERE id = $1`,
		p.ID, p.Name, p.Description, string(p.Status), time.Now().UTC())
	return err
}

// Delete removes the project. Member and task rows cascade at the store.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	return err
}

// GetMember returns the membership for (project, user), or nil if not found.
func (r *PostgresRepository) GetMember(ctx context.Context, projectID, userID string) (*domain.Member, error) {
	var (
		m    domain.Member
		role string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT project_id, user_id, role, added_at
		FROM project_members
		WHERE project_id = $1 AND user_id = $2`, projectID, userID).
		Scan(&m.ProjectID, &m.UserID, &role, &m.AddedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	m.Role = domain.MemberRole(role)
	return &m, nil
}

// ListMembers returns all members of the given project.
func (r *PostgresRepository) ListMembers(ctx context.Context, projectID string) ([]*domain.Member, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT project_id, user_id, role, added_at
		FROM project_members
		WHERE project_id = $1
		ORDER BY added_at`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Member
	for rows.Next() {
		var (
			m    domain.Member
			role string
		)
		if err := rows.Scan(&m.ProjectID, &m.UserID, &role, &m.AddedAt); err != nil {
			return nil, err
		}
		m.Role = domain.MemberRole(role)
		out = append(out, &m)
	}
	return out, rows.Err()
}

// AddMember persists the membership.
func (r *PostgresRepository) AddMember(ctx context.Context, m *domain.Member) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, role, added_at)
		VALUES ($1, $2, $3, $4)`,
		m.ProjectID, m.UserID, string(m.Role), m.AddedAt)
	return err
}

// RemoveMember deletes the membership row. Missing rows are not an error.
func (r *PostgresRepository) RemoveMember(ctx context.Context, projectID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	return err
}

// GetTask returns the task for id, or nil if not found.
func (r *PostgresRepository) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

// ListTasksByProject returns all tasks in the given project.
func (r *PostgresRepository) ListTasksByProject(ctx context.Context, projectID string) ([]*domain.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE project_id = $1 ORDER BY created_at`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// CreateTask persists the task.
func (r *PostgresRepository) CreateTask(ctx context.Context, t *domain.Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+taskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.ProjectID, t.Title, t.Description, string(t.Status),
		nullString(t.AssigneeID), t.CreatedBy, t.CreatedAt, t.UpdatedAt)
	return err
}

// UpdateTask updates the task's mutable fields.
func (r *PostgresRepository) UpdateTask(ctx context.Context, t *domain.Task) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = $2, description = $3, status = $4, assignee_id = $5, updated_at = $6
		WHERE id = $1`,
		t.ID, t.Title, t.Description, string(t.Status), nullString(t.AssigneeID), time.Now().UTC())
	return err
}

// DeleteTask removes the task.
func (r *PostgresRepository) DeleteTask(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*domain.Project, error) {
	var (
		p      domain.Project
		status string
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.TeamID, &p.CreatedBy,
		&status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.Status = domain.ProjectStatus(status)
	return &p, nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		t        domain.Task
		status   string
		assignee sql.NullString
	)
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &status,
		&assignee, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.Status = domain.TaskStatus(status)
	if assignee.Valid {
		t.AssigneeID = assignee.String
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
