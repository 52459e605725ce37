package service

import (
	"context"
	"testing"
	"time"

	"crewdesk/backend/internal/errs"
	"crewdesk/backend/internal/security"
	teamdomain "crewdesk/backend/internal/team/domain"
	userdomain "crewdesk/backend/internal/user/domain"
)

type mockUserRepo struct {
	users map[string]*userdomain.User
}

func newMockUserRepo(users ...*userdomain.User) *mockUserRepo {
	m := &mockUserRepo{users: map[string]*userdomain.User{}}
	for _, u := range users {
		cp := *u
		m.users[u.ID] = &cp
	}
	return m
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*userdomain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*userdomain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*userdomain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) GetByVerificationToken(ctx context.Context, token string) (*userdomain.User, error) {
	for _, u := range m.users {
		if u.VerificationToken == token {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockUserRepo) ListByTeam(ctx context.Context, teamID string) ([]*userdomain.User, error) {
	return nil, nil
}

func (m *mockUserRepo) Create(ctx context.Context, u *userdomain.User) error {
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) Update(ctx context.Context, u *userdomain.User) error {
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) UpdateLastActive(ctx context.Context, id string) error {
	if u, ok := m.users[id]; ok {
		now := time.Now().UTC()
		u.LastActiveAt = &now
	}
	return nil
}

type mockInvites struct {
	teamsByCode map[string]*teamdomain.Team
	accepted    []string // "teamID/email/userID"
}

func (m *mockInvites) ResolveInvite(ctx context.Context, code string) (*teamdomain.Team, error) {
	t, ok := m.teamsByCode[code]
	if !ok {
		return nil, errs.Invalid("unknown invite code")
	}
	return t, nil
}

func (m *mockInvites) AcceptInvitation(ctx context.Context, teamID, email, userID string) error {
	m.accepted = append(m.accepted, teamID+"/"+email+"/"+userID)
	return nil
}

func newAuthService(t *testing.T, users *mockUserRepo, invites *mockInvites) *AuthService {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("test token provider: %v", err)
	}
	if invites == nil {
		invites = &mockInvites{teamsByCode: map[string]*teamdomain.Team{}}
	}
	return NewAuthService(users, invites, security.NewHasher(4), tokens, nil, nil, nil, 24*time.Hour)
}

func TestSignup_WithoutInviteCode(t *testing.T) {
	users := newMockUserRepo()
	svc := newAuthService(t, users, nil)

	u, err := svc.Signup(context.Background(), "Alice@Example.com", "alice", "hunter2pass1", "")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Errorf("email = %q, want normalized lowercase", u.Email)
	}
	if u.Role != userdomain.RoleAdmin || u.TeamID != "" {
		t.Errorf("user = role %q team %q, want team-less admin", u.Role, u.TeamID)
	}
	if u.EmailVerified {
		t.Error("email should start unverified")
	}
	if u.VerificationToken == "" || u.VerificationExpiresAt == nil {
		t.Error("verification token should be issued")
	}
	if u.PasswordHash == "" || u.PasswordHash == "hunter2pass1" {
		t.Error("password must be stored hashed")
	}
}

func TestSignup_WithInviteCode(t *testing.T) {
	users := newMockUserRepo()
	invites := &mockInvites{teamsByCode: map[string]*teamdomain.Team{
		"GOODCODE2345": {ID: "t1", AdminID: "admin-1"},
	}}
	svc := newAuthService(t, users, invites)

	u, err := svc.Signup(context.Background(), "bob@example.com", "bob", "hunter2pass1", "GOODCODE2345")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if u.Role != userdomain.RoleEditor || u.TeamID != "t1" {
		t.Errorf("user = role %q team %q, want editor on t1", u.Role, u.TeamID)
	}
	if len(invites.accepted) != 1 || invites.accepted[0] != "t1/bob@example.com/"+u.ID {
		t.Errorf("accepted = %v", invites.accepted)
	}
}

func TestSignup_BadInviteCode(t *testing.T) {
	users := newMockUserRepo()
	invites := &mockInvites{teamsByCode: map[string]*teamdomain.Team{}}
	svc := newAuthService(t, users, invites)

	_, err := svc.Signup(context.Background(), "bob@example.com", "bob", "hunter2pass1", "NOSUCH")
	if !errs.Is(err, errs.KindInvalid) {
		t.Fatalf("err = %v, want invalid", err)
	}
	if len(users.users) != 0 {
		t.Error("no user should be created on a bad invite code")
	}
}

func TestSignup_DuplicateEmail(t *testing.T) {
	users := newMockUserRepo(&userdomain.User{ID: "u1", Email: "dup@example.com", Username: "taken", Role: userdomain.RoleAdmin})
	svc := newAuthService(t, users, nil)

	_, err := svc.Signup(context.Background(), "dup@example.com", "other", "hunter2pass1", "")
	if !errs.Is(err, errs.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestSignup_DuplicateUsername(t *testing.T) {
	users := newMockUserRepo(&userdomain.User{ID: "u1", Email: "a@example.com", Username: "taken", Role: userdomain.RoleAdmin})
	svc := newAuthService(t, users, nil)

	_, err := svc.Signup(context.Background(), "b@example.com", "taken", "hunter2pass1", "")
	if !errs.Is(err, errs.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestSignup_Validation(t *testing.T) {
	svc := newAuthService(t, newMockUserRepo(), nil)
	cases := []struct {
		name                      string
		email, username, password string
	}{
		{"empty email", "", "alice", "hunter2pass1"},
		{"malformed email", "not-an-email", "alice", "hunter2pass1"},
		{"short username", "a@example.com", "ab", "hunter2pass1"},
		{"bad username chars", "a@example.com", "al ice", "hunter2pass1"},
		{"short password", "a@example.com", "alice", "ab1"},
		{"letters-only password", "a@example.com", "alice", "passwordpass"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Signup(context.Background(), tc.email, tc.username, tc.password, ""); !errs.Is(err, errs.KindInvalid) {
				t.Fatalf("err = %v, want invalid", err)
			}
		})
	}
}

func TestVerifyEmail_SingleUse(t *testing.T) {
	users := newMockUserRepo()
	svc := newAuthService(t, users, nil)

	u, err := svc.Signup(context.Background(), "alice@example.com", "alice", "hunter2pass1", "")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	token := u.VerificationToken

	verified, err := svc.VerifyEmail(context.Background(), token)
	if err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	if !verified.EmailVerified {
		t.Error("email should be verified")
	}
	if verified.VerificationToken != "" || verified.VerificationExpiresAt != nil {
		t.Error("token should be cleared after use")
	}

	// Second use of the same token fails: consumed means gone.
	if _, err := svc.VerifyEmail(context.Background(), token); !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("second use err = %v, want not_found", err)
	}
}

func TestVerifyEmail_Unknown(t *testing.T) {
	svc := newAuthService(t, newMockUserRepo(), nil)
	if _, err := svc.VerifyEmail(context.Background(), "nope"); !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("err = %v, want not_found", err)
	}
	if _, err := svc.VerifyEmail(context.Background(), ""); !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("empty token err = %v, want not_found", err)
	}
}

func TestVerifyEmail_Expired(t *testing.T) {
	past := time.Now().UTC().Add(-time.Minute)
	users := newMockUserRepo(&userdomain.User{
		ID: "u1", Email: "a@example.com", Username: "alice", Role: userdomain.RoleAdmin,
		VerificationToken: "expired-token", VerificationExpiresAt: &past,
	})
	svc := newAuthService(t, users, nil)

	if _, err := svc.VerifyEmail(context.Background(), "expired-token"); !errs.Is(err, errs.KindInvalid) {
		t.Fatalf("err = %v, want invalid", err)
	}
}

func TestLogin(t *testing.T) {
	users := newMockUserRepo()
	svc := newAuthService(t, users, nil)

	u, err := svc.Signup(context.Background(), "alice@example.com", "alice", "hunter2pass1", "")
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := svc.VerifyEmail(context.Background(), u.VerificationToken); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}

	res, err := svc.Login(context.Background(), "alice@example.com", "hunter2pass1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken == "" {
		t.Fatal("access token should be issued")
	}
	if res.User.ID != u.ID {
		t.Errorf("user = %q, want %q", res.User.ID, u.ID)
	}

	stored, _ := users.GetByID(context.Background(), u.ID)
	if stored.LastActiveAt == nil {
		t.Error("last active should be updated on login")
	}
}

func TestLogin_TokenCarriesCurrentClaims(t *testing.T) {
	users := newMockUserRepo(&userdomain.User{
		ID: "u1", Email: "a@example.com", Username: "alice",
		Role: userdomain.RoleEditor, TeamID: "t1", EmailVerified: true,
	})
	hasher := security.NewHasher(4)
	hash, _ := hasher.Hash([]byte("hunter2pass1"))
	users.users["u1"].PasswordHash = hash
	svc := newAuthService(t, users, nil)

	res, err := svc.Login(context.Background(), "a@example.com", "hunter2pass1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	tokens, _ := security.NewTestTokenProvider()
	claims, err := tokens.Validate(res.AccessToken)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if claims.Subject != "u1" || claims.Email != "a@example.com" {
		t.Errorf("claims = %+v", claims)
	}
	if claims.Role != "editor" || claims.TeamID != "t1" {
		t.Errorf("role/team = %q/%q, want editor/t1", claims.Role, claims.TeamID)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	users := newMockUserRepo()
	svc := newAuthService(t, users, nil)

	u, _ := svc.Signup(context.Background(), "alice@example.com", "alice", "hunter2pass1", "")
	_, _ = svc.VerifyEmail(context.Background(), u.VerificationToken)

	cases := []struct {
		name            string
		email, password string
	}{
		{"unknown email", "nobody@example.com", "hunter2pass1"},
		{"wrong password", "alice@example.com", "wrongpass123"},
		{"empty password", "alice@example.com", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Login(context.Background(), tc.email, tc.password); !errs.Is(err, errs.KindUnauthenticated) {
				t.Fatalf("err = %v, want unauthenticated", err)
			}
		})
	}
}

func TestLogin_UnverifiedEmail(t *testing.T) {
	users := newMockUserRepo()
	svc := newAuthService(t, users, nil)

	if _, err := svc.Signup(context.Background(), "alice@example.com", "alice", "hunter2pass1", ""); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := svc.Login(context.Background(), "alice@example.com", "hunter2pass1"); !errs.Is(err, errs.KindUnauthenticated) {
		t.Fatalf("err = %v, want unauthenticated", err)
	}
}
