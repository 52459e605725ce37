// Package service implements the credential operations (signup, email
// verification, login) and the identity resolver that turns a validated token
// into a fresh actor snapshot.
package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crewdesk/backend/internal/audit"
	"crewdesk/backend/internal/errs"
	"crewdesk/backend/internal/mail"
	"crewdesk/backend/internal/security"
	teamdomain "crewdesk/backend/internal/team/domain"
	userdomain "crewdesk/backend/internal/user/domain"
	userrepo "crewdesk/backend/internal/user/repository"
)

// InviteResolver is the slice of the team service the credential service
// needs: mapping an invite code to its team and recording the acceptance.
type InviteResolver interface {
	ResolveInvite(ctx context.Context, code string) (*teamdomain.Team, error)
	AcceptInvitation(ctx context.Context, teamID, email, userID string) error
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        *userdomain.User
}

// AuthService implements signup, email verification, and login.
type AuthService struct {
	users           userrepo.Repository
	invites         InviteResolver
	hasher          *security.Hasher
	tokens          *security.TokenProvider
	mailer          mail.Sender
	events          audit.EventLogger
	log             *zap.SugaredLogger
	verificationTTL time.Duration
}

// NewAuthService wires an AuthService. mailer and events may be nil in tests.
func NewAuthService(
	users userrepo.Repository,
	invites InviteResolver,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	mailer mail.Sender,
	events audit.EventLogger,
	log *zap.SugaredLogger,
	verificationTTL time.Duration,
) *AuthService {
	return &AuthService{
		users:           users,
		invites:         invites,
		hasher:          hasher,
		tokens:          tokens,
		mailer:          mailer,
		events:          events,
		log:             log,
		verificationTTL: verificationTTL,
	}
}

// Signup creates a user. With an invite code the user joins that team as
// editor and the newest matching pending invitation is marked accepted;
// without one the user becomes a team-less admin, expected to create a team
// next. A verification token is issued and the verification email
// fire-and-forgotten.
func (s *AuthService) Signup(ctx context.Context, email, username, password, inviteCode string) (*userdomain.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)
	if err := validateEmail(email); err != nil {
		return nil, errs.Invalid(err.Error())
	}
	if err := validateUsername(username); err != nil {
		return nil, errs.Invalid(err.Error())
	}
	if err := validatePassword(password); err != nil {
		return nil, errs.Invalid(err.Error())
	}

	// Resolve the invite before touching the store so a bad code rejects the
	// whole signup.
	role := userdomain.RoleAdmin
	teamID := ""
	if inviteCode != "" {
		team, err := s.invites.ResolveInvite(ctx, inviteCode)
		if err != nil {
			return nil, err
		}
		role = userdomain.RoleEditor
		teamID = team.ID
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, errs.Internal("check email", err)
	}
	if existing != nil {
		return nil, errs.Conflict("email already registered")
	}
	existing, err = s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, errs.Internal("check username", err)
	}
	if existing != nil {
		return nil, errs.Conflict("username already taken")
	}

	hash, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, errs.Internal("hash password", err)
	}
	verifToken, verifExpires, err := security.NewVerificationToken(s.verificationTTL)
	if err != nil {
		return nil, errs.Internal("issue verification token", err)
	}

	now := time.Now().UTC()
	user := &userdomain.User{
		ID:                    uuid.New().String(),
		Email:                 email,
		Username:              username,
		PasswordHash:          hash,
		Role:                  role,
		TeamID:                teamID,
		VerificationToken:     verifToken,
		VerificationExpiresAt: &verifExpires,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	if err := user.Validate(); err != nil {
		return nil, errs.Invalid(err.Error())
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, errs.Internal("create user", err)
	}

	if teamID != "" {
		if err := s.invites.AcceptInvitation(ctx, teamID, email, user.ID); err != nil && s.log != nil {
			// The membership itself is already persisted on the user row.
			s.log.Warnw("mark invitation accepted", "team_id", teamID, "email", email, "error", err)
		}
	}

	if s.mailer != nil {
		subject, body, err := mail.VerificationEmail(username, verifToken, s.verificationTTL.String())
		if err != nil {
			if s.log != nil {
				s.log.Warnw("render verification email", "error", err)
			}
		} else {
			mail.SendAsync(s.log, s.mailer, email, subject, body)
		}
	}

	s.logEvent(ctx, teamID, user.ID, "auth.signup", "user:"+user.ID, email)
	return user, nil
}

// VerifyEmail consumes a verification token. Single-use: the token is cleared
// on success, so re-submitting it fails with NotFound. An expired token fails
// with Invalid and stays consumable-looking until replaced.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*userdomain.User, error) {
	if token == "" {
		return nil, errs.NotFound("unknown verification token")
	}
	user, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		return nil, errs.Internal("look up verification token", err)
	}
	if user == nil {
		return nil, errs.NotFound("unknown verification token")
	}
	if user.VerificationExpiresAt != nil && time.Now().UTC().After(*user.VerificationExpiresAt) {
		return nil, errs.Invalid("verification token expired")
	}

	user.EmailVerified = true
	user.VerificationToken = ""
	user.VerificationExpiresAt = nil
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, errs.Internal("mark email verified", err)
	}

	s.logEvent(ctx, user.TeamID, user.ID, "auth.verify_email", "user:"+user.ID, "")
	return user, nil
}

// Login authenticates email/password and returns a signed access token
// carrying the user's current role and team. Bad credentials and unverified
// email both fail with Unauthenticated; the message does not distinguish a
// wrong password from an unknown email.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, errs.Unauthenticated("invalid credentials")
	}
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, errs.Internal("load user", err)
	}
	if user == nil {
		return nil, errs.Unauthenticated("invalid credentials")
	}
	if err := s.hasher.Compare(user.PasswordHash, []byte(password)); err != nil {
		return nil, errs.Unauthenticated("invalid credentials")
	}
	if !user.EmailVerified {
		return nil, errs.Unauthenticated("email not verified")
	}

	if err := s.users.UpdateLastActive(ctx, user.ID); err != nil && s.log != nil {
		s.log.Warnw("update last active", "user_id", user.ID, "error", err)
	}

	token, _, expiresAt, err := s.tokens.Issue(user.ID, user.Email, string(user.Role), user.TeamID)
	if err != nil {
		return nil, errs.Internal("issue access token", err)
	}

	s.logEvent(ctx, user.TeamID, user.ID, "auth.login", "user:"+user.ID, "")
	return &LoginResult{AccessToken: token, ExpiresAt: expiresAt, User: user}, nil
}

func (s *AuthService) logEvent(ctx context.Context, teamID, userID, action, resource, metadata string) {
	if s.events != nil {
		s.events.LogEvent(ctx, teamID, userID, action, resource, metadata)
	}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if !emailPattern.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 32 {
		return errors.New("username must be 3-32 characters")
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return fmt.Errorf("username contains invalid character %q", r)
		}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	var hasLetter, hasNumber bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasNumber = true
		}
	}
	if !hasLetter || !hasNumber {
		return errors.New("password must contain at least one letter and one number")
	}
	return nil
}
