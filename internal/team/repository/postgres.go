package repository

import (
	"context"
	"database/sql"
	"errors"

	"crewdesk/backend/internal/team/domain"
)

const invitationColumns = `id, team_id, email, invite_code, invited_by, status, created_at, accepted_at, accepted_by`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a team repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the team for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	return r.getTeam(ctx, `SELECT id, admin_id, invite_code, created_at FROM teams WHERE id = $1`, id)
}

// GetByInviteCode returns the team currently holding the given invite code,
// or nil if the code resolves to nothing (unknown or regenerated away).
func (r *PostgresRepository) GetByInviteCode(ctx context.Context, code string) (*domain.Team, error) {
	return r.getTeam(ctx, `SELECT id, admin_id, invite_code, created_at FROM teams WHERE invite_code = $1`, code)
}

// Create persists the team to the database. The team must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, t *domain.Team) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO teams (id, admin_id, invite_code, created_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.AdminID, nullString(t.InviteCode), t.CreatedAt)
	return err
}

// SetInviteCode writes the team's invite code. Single-row write; when two
// concurrent generations race, the later write wins and both codes were valid
// in between.
func (r *PostgresRepository) SetInviteCode(ctx context.Context, teamID, code string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE teams SET invite_code = $2 WHERE id = $1`, teamID, code)
	return err
}

// GetInvitation returns the invitation for id, or nil if not found.
func (r *PostgresRepository) GetInvitation(ctx context.Context, id string) (*domain.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM team_invitations WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

// ListInvitationsByTeam returns all invitations for the given team, newest first.
func (r *PostgresRepository) ListInvitationsByTeam(ctx context.Context, teamID string) ([]*domain.Invitation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM team_invitations WHERE team_id = $1 ORDER BY created_at DESC`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// LatestPendingInvitation returns the newest pending invitation for (team, email), or nil.
func (r *PostgresRepository) LatestPendingInvitation(ctx context.Context, teamID, email string) (*domain.Invitation, error) {
	inv, err := scanInvitation(r.db.QueryRowContext(ctx, `
		SELECT `+invitationColumns+` FROM team_invitations
		WHERE team_id = $1 AND email = $2 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1`, teamID, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return inv, nil
}

// CreateInvitation persists the invitation. Duplicate pending invitations for
// the same email are allowed.
func (r *PostgresRepository) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO team_invitations (`+invitationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		inv.ID, inv.TeamID, inv.Email, inv.InviteCode, inv.InvitedBy, string(inv.Status),
		inv.CreatedAt, inv.AcceptedAt, nullString(inv.AcceptedBy))
	return err
}

// UpdateInvitationStatus writes the invitation's status and acceptance fields.
func (r *PostgresRepository) UpdateInvitationStatus(ctx context.Context, inv *domain.Invitation) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE team_invitations
		SET status = $2, accepted_at = $3, accepted_by = $4
		WHERE id = $1`,
		inv.ID, string(inv.Status), inv.AcceptedAt, nullString(inv.AcceptedBy))
	return err
}

func (r *PostgresRepository) getTeam(ctx context.Context, query string, arg any) (*domain.Team, error) {
	var (
		t    domain.Team
		code sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&t.ID, &t.AdminID, &code, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if code.Valid {
		t.InviteCode = code.String
	}
	return &t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (*domain.Invitation, error) {
	var (
		inv        domain.Invitation
		status     string
		acceptedAt sql.NullTime
		acceptedBy sql.NullString
	)
	err := row.Scan(&inv.ID, &inv.TeamID, &inv.Email, &inv.InviteCode, &inv.InvitedBy,
		&status, &inv.CreatedAt, &acceptedAt, &acceptedBy)
	if err != nil {
		return nil, err
	}
	inv.Status = domain.InvitationStatus(status)
	if acceptedAt.Valid {
		t := acceptedAt.Time
		inv.AcceptedAt = &t
	}
	if acceptedBy.Valid {
		inv.AcceptedBy = acceptedBy.String
	}
	return &inv, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
