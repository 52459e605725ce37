package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"crewdesk/backend/internal/user/domain"
)

const userColumns = `id, email, username, password_hash, role, team_id, email_verified,
	verification_token, verification_expires_at, last_active_at, created_at, updated_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// GetByEmail returns the user with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// GetByUsername returns the user with the given username, or nil if not found.
func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// GetByVerificationToken returns the user holding the given verification token,
// or nil if no user holds it (unknown or already consumed).
func (r *PostgresRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token = $1`, token)
}

// ListByTeam returns all users belonging to the given team.
func (r *PostgresRepository) ListByTeam(ctx context.Context, teamID string) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE team_id = $1 ORDER BY created_at`, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Create persists the user to the database. The user must have ID set; it is not assigned by this method.
func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, u.Email, u.Username, u.PasswordHash, string(u.Role), nullString(u.TeamID),
		u.EmailVerified, nullString(u.VerificationToken), u.VerificationExpiresAt,
		u.LastActiveAt, u.CreatedAt, u.UpdatedAt,
	)
	return err
}

// Update updates the existing user record. Single-row write; last writer wins.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET email = $2, username = $3, password_hash = $4, role = $5, team_id = $6,
			email_verified = $7, verification_token = $8, verification_expires_at = $9,
			updated_at = $10
		WHERE id = $1`,
		u.ID, u.Email, u.Username, u.PasswordHash, string(u.Role), nullString(u.TeamID),
		u.EmailVerified, nullString(u.VerificationToken), u.VerificationExpiresAt,
		time.Now().UTC(),
	)
	return err
}

// UpdateLastActive stamps the user's last_active_at. Missing rows are ignored.
func (r *PostgresRepository) UpdateLastActive(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_active_at = $2 WHERE id = $1`, id, time.Now().UTC())
	return err
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*domain.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var (
		u        domain.User
		role     string
		teamID   sql.NullString
		verifTok sql.NullString
		verifExp sql.NullTime
		lastSeen sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &role, &teamID,
		&u.EmailVerified, &verifTok, &verifExp, &lastSeen, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	if teamID.Valid {
		u.TeamID = teamID.String
	}
	if verifTok.Valid {
		u.VerificationToken = verifTok.String
	}
	if verifExp.Valid {
		t := verifExp.Time
		u.VerificationExpiresAt = &t
	}
	if lastSeen.Valid {
		t := lastSeen.Time
		u.LastActiveAt = &t
	}
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
