package service

import (
	"context"
	"sort"
	"testing"
	"time"

	"crewdesk/backend/internal/authz"
	"crewdesk/backend/internal/errs"
	"crewdesk/backend/internal/team/domain"
	userdomain "crewdesk/backend/internal/user/domain"
)

type mockTeamRepo struct {
	teams       map[string]*domain.Team
	invitations map[string]*domain.Invitation

	getByIDCalls int
	// raceCode simulates a concurrent writer: from call raceAt on, GetByID
	// reports this code for teams that have none persisted.
	raceCode string
	raceAt   int
}

func newMockTeamRepo() *mockTeamRepo {
	return &mockTeamRepo{
		teams:       map[string]*domain.Team{},
		invitations: map[string]*domain.Invitation{},
	}
}

func (m *mockTeamRepo) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	m.getByIDCalls++
	t, ok := m.teams[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	if cp.InviteCode == "" && m.raceCode != "" && m.getByIDCalls >= m.raceAt {
		cp.InviteCode = m.raceCode
		t.InviteCode = m.raceCode
	}
	return &cp, nil
}

func (m *mockTeamRepo) GetByInviteCode(ctx context.Context, code string) (*domain.Team, error) {
	for _, t := range m.teams {
		if t.InviteCode == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockTeamRepo) Create(ctx context.Context, t *domain.Team) error {
	cp := *t
	m.teams[t.ID] = &cp
	return nil
}

func (m *mockTeamRepo) SetInviteCode(ctx context.Context, teamID, code string) error {
	if t, ok := m.teams[teamID]; ok {
		t.InviteCode = code
	}
	return nil
}

func (m *mockTeamRepo) GetInvitation(ctx context.Context, id string) (*domain.Invitation, error) {
	inv, ok := m.invitations[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (m *mockTeamRepo) ListInvitationsByTeam(ctx context.Context, teamID string) ([]*domain.Invitation, error) {
	var out []*domain.Invitation
	for _, inv := range m.invitations {
		if inv.TeamID == teamID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockTeamRepo) LatestPendingInvitation(ctx context.Context, teamID, email string) (*domain.Invitation, error) {
	var latest *domain.Invitation
	for _, inv := range m.invitations {
		if inv.TeamID != teamID || inv.Email != email || inv.Status != domain.InvitationPending {
			continue
		}
		if latest == nil || inv.CreatedAt.After(latest.CreatedAt) {
			latest = inv
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *mockTeamRepo) CreateInvitation(ctx context.Context, inv *domain.Invitation) error {
	cp := *inv
	m.invitations[inv.ID] = &cp
	return nil
}

func (m *mockTeamRepo) UpdateInvitationStatus(ctx context.Context, inv *domain.Invitation) error {
	cp := *inv
	m.invitations[inv.ID] = &cp
	return nil
}

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
	var out []*userdomain.User
	for _, u := range m.users {
		if u.TeamID == teamID {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
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

type recordingSender struct {
	sent chan string
}

func (r *recordingSender) Send(ctx context.Context, to, subject, body string) error {
	r.sent <- to
	return nil
}

func newService(teams *mockTeamRepo, users *mockUserRepo) *Service {
	return NewService(teams, users, nil, nil, nil, 12)
}

func adminActor(teamID string) authz.Actor {
	return authz.Actor{ID: "admin-1", Role: userdomain.RoleAdmin, TeamID: teamID}
}

func editorActor(teamID string) authz.Actor {
	return authz.Actor{ID: "editor-1", Role: userdomain.RoleEditor, TeamID: teamID}
}

func TestCreateTeam_PromotesCreator(t *testing.T) {
	teams := newMockTeamRepo()
	users := newMockUserRepo(&userdomain.User{ID: "u1", Email: "a@b.c", Username: "a", Role: userdomain.RoleAdmin})
	svc := newService(teams, users)

	team, err := svc.CreateTeam(context.Background(), "u1")
	if err != nil {
		t.Fatalf("CreateTeam: %v", err)
	}
	if team.AdminID != "u1" {
		t.Errorf("AdminID = %q, want u1", team.AdminID)
	}
	if team.InviteCode != "" {
		t.Errorf("InviteCode should stay empty until requested, got %q", team.InviteCode)
	}

	u, _ := users.GetByID(context.Background(), "u1")
	if u.Role != userdomain.RoleAdmin || u.TeamID != team.ID {
		t.Errorf("creator = role %q team %q, want admin on %q", u.Role, u.TeamID, team.ID)
	}
}

func TestCreateTeam_AlreadyInTeam(t *testing.T) {
	teams := newMockTeamRepo()
	users := newMockUserRepo(&userdomain.User{ID: "u1", Email: "a@b.c", Username: "a", Role: userdomain.RoleAdmin, TeamID: "t-existing"})
	svc := newService(teams, users)

	_, err := svc.CreateTeam(context.Background(), "u1")
	if !errs.Is(err, errs.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestCreateTeam_UnknownUser(t *testing.T) {
	svc := newService(newMockTeamRepo(), newMockUserRepo())
	_, err := svc.CreateTeam(context.Background(), "ghost")
	if !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("err = %v, want not_found", err)
	}
}

func TestInviteCode_LazyAndStable(t *testing.T) {
	teams := newMockTeamRepo()
	teams.teams["t1"] = &domain.Team{ID: "t1", AdminID: "admin-1"}
	svc := newService(teams, newMockUserRepo())

	code, err := svc.InviteCode(context.Background(), adminActor("t1"))
	if err != nil {
		t.Fatalf("InviteCode: %v", err)
	}
	if len(code) != 12 {
		t.Errorf("code length = %d, want 12", len(code))
	}

	again, err := svc.InviteCode(context.Background(), adminActor("t1"))
	if err != nil {
		t.Fatalf("InviteCode (second): %v", err)
	}
	if again != code {
		t.Errorf("code changed across calls: %q then %q", code, again)
	}
}

func TestInviteCode_AdminOnly(t *testing.T) {
	teams := newMockTeamRepo()
	teams.teams["t1"] = &domain.Team{ID: "t1", AdminID: "admin-1"}
	svc := newService(teams, newMockUserRepo())

	_, err := svc.InviteCode(context.Background(), editorActor("t1"))
	if !errs.Is(err, errs.KindDenied) {
		t.Fatalf("err = %v, want denied", err)
	}
}

func TestInviteCode_ConcurrentWinnerKept(t *testing.T) {
	teams := newMockTeamRepo()
	teams.teams["t1"] = &domain.Team{ID: "t1", AdminID: "admin-1"}
	// Another request sets the code between our first load and the re-read.
	teams.raceCode = "RACEWINNER99"
	teams.raceAt = 2
	svc := newService(teams, newMockUserRepo())

	code, err := svc.InviteCode(context.Background(), adminActor("t1"))
	if err != nil {
		t.Fatalf("InviteCode: %v", err)
	}
	if code != "RACEWINNER99" {
		t.Errorf("code = %q, want the concurrent winner's code", code)
	}
}

func TestRegenerateInviteCode(t *testing.T) {
	teams := newMockTeamRepo()
	teams.teams["t1"] = &domain.Team{ID: "t1", AdminID: "admin-1", InviteCode: "OLDCODE23456"}
	svc := newService(teams, newMockUserRepo())

	code, err := svc.RegenerateInviteCode(context.Background(), adminActor("t1"))
	if err != nil {
		t.Fatalf("RegenerateInviteCode: %v", err)
	}
	if code == "OLDCODE23456" {
		t.Error("code was not replaced")
	}

	if _, err := svc.ResolveInvite(context.Background(), "OLDCODE23456"); !errs.Is(err, errs.KindInvalid) {
		t.Errorf("old code resolve err = %v, want invalid", err)
	}
	team, err := svc.ResolveInvite(context.Background(), code)
	if err != nil {
		t.Fatalf("ResolveInvite(new): %v", err)
	}
	if team.ID != "t1" {
		t.Errorf("resolved team = %q, want t1", team.ID)
	}
}

func TestResolveInvite_Unknown(t *testing.T) {
	svc := newService(newMockTeamRepo(), newMockUserRepo())
	if _, err := svc.ResolveInvite(context.Background(), "NOSUCHCODE22"); !errs.Is(err, errs.KindInvalid) {
		t.Fatalf("err = %v, want invalid", err)
	}
	if _, err := svc.ResolveInvite(context.Background(), ""); !errs.Is(err, errs.KindInvalid) {
		t.Fatalf("empty code err = %v, want invalid", err)
	}
}

func TestSendInvitation(t *testing.T) {
	teams := newMockTeamRepo()
	teams.teams["t1"] = &domain.Team{ID: "t1", AdminID: "admin-1"}
	sender := &recordingSender{sent: make(chan string, 1)}
	svc := NewService(teams, newMockUserRepo(), sender, nil, nil, 12)

	inv, err := svc.SendInvitation(context.Background(), adminActor("t1"), "new@example.com")
	if err != nil {
		t.Fatalf("SendInvitation: %v", err)
	}
	if inv.Status != domain.InvitationPending {
		t.Errorf("status = %q, want pending", inv.Status)
	}
	if inv.InviteCode == "" {
		t.Error("invitation should snapshot the team's invite code")
	}
	if inv.InvitedBy != "admin-1" {
		t.Errorf("invited_by = %q, want admin-1", inv.InvitedBy)
	}

	select {
	case to := <-sender.sent:
		if to != "new@example.com" {
			t.Errorf("email sent to %q", to)
		}
	case <-time.After(2 * time.Second):
		t.Error("invite email was never sent")
	}
}

func TestSendInvitation_DuplicatePendingAllowed(t *testing.T) {
	teams := newMockTeamRepo()
	teams.teams["t1"] = &domain.Team{ID: "t1", AdminID: "admin-1", InviteCode: "STABLECODE23"}
	svc := newService(teams, newMockUserRepo())

	if _, err := svc.SendInvitation(context.Background(), adminActor("t1"), "dup@example.com"); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if _, err := svc.SendInvitation(context.Background(), adminActor("t1"), "dup@example.com"); err != nil {
		t.Fatalf("second send: %v", err)
	}
	if len(teams.invitations) != 2 {
		t.Errorf("invitation count = %d, want 2", len(teams.invitations))
	}
}

func TestSendInvitation_EditorDenied(t *testing.T) {
	teams := newMockTeamRepo()
	teams.teams["t1"] = &domain.Team{ID: "t1", AdminID: "admin-1"}
	svc := newService(teams, newMockUserRepo())

	_, err := svc.SendInvitation(context.Background(), editorActor("t1"), "x@example.com")
	if !errs.Is(err, errs.KindDenied) {
		t.Fatalf("err = %v, want denied", err)
	}
}

func TestSendInvitation_BadEmail(t *testing.T) {
	teams := newMockTeamRepo()
	teams.teams["t1"] = &domain.Team{ID: "t1", AdminID: "admin-1"}
	svc := newService(teams, newMockUserRepo())

	for _, email := range []string{"", "   ", "not-an-email"} {
		if _, err := svc.SendInvitation(context.Background(), adminActor("t1"), email); !errs.Is(err, errs.KindInvalid) {
			t.Errorf("email %q: err = %v, want invalid", email, err)
		}
	}
}

func TestCancelInvitation(t *testing.T) {
	teams := newMockTeamRepo()
	teams.invitations["inv-1"] = &domain.Invitation{ID: "inv-1", TeamID: "t1", Email: "x@example.com", Status: domain.InvitationPending}
	svc := newService(teams, newMockUserRepo())

	if err := svc.CancelInvitation(context.Background(), adminActor("t1"), "inv-1"); err != nil {
		t.Fatalf("CancelInvitation: %v", err)
	}
	if got := teams.invitations["inv-1"].Status; got != domain.InvitationCanceled {
		t.Errorf("status = %q, want canceled", got)
	}
}

func TestCancelInvitation_NotFound(t *testing.T) {
	svc := newService(newMockTeamRepo(), newMockUserRepo())
	if err := svc.CancelInvitation(context.Background(), adminActor("t1"), "ghost"); !errs.Is(err, errs.KindNotFound) {
		t.Fatalf("err = %v, want not_found", err)
	}
}

func TestCancelInvitation_OtherTeam(t *testing.T) {
	teams := newMockTeamRepo()
	teams.invitations["inv-1"] = &domain.Invitation{ID: "inv-1", TeamID: "t-other", Status: domain.InvitationPending}
	svc := newService(teams, newMockUserRepo())

	if err := svc.CancelInvitation(context.Background(), adminActor("t1"), "inv-1"); !errs.Is(err, errs.KindDenied) {
		t.Fatalf("err = %v, want denied", err)
	}
}

func TestCancelInvitation_AlreadyTerminal(t *testing.T) {
	teams := newMockTeamRepo()
	teams.invitations["inv-1"] = &domain.Invitation{ID: "inv-1", TeamID: "t1", Status: domain.InvitationAccepted}
	svc := newService(teams, newMockUserRepo())

	if err := svc.CancelInvitation(context.Background(), adminActor("t1"), "inv-1"); !errs.Is(err, errs.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
}

func TestAcceptInvitation_NewestPending(t *testing.T) {
	teams := newMockTeamRepo()
	old := time.Now().Add(-time.Hour)
	teams.invitations["inv-old"] = &domain.Invitation{ID: "inv-old", TeamID: "t1", Email: "x@example.com", Status: domain.InvitationPending, CreatedAt: old}
	teams.invitations["inv-new"] = &domain.Invitation{ID: "inv-new", TeamID: "t1", Email: "x@example.com", Status: domain.InvitationPending, CreatedAt: time.Now()}
	svc := newService(teams, newMockUserRepo())

	if err := svc.AcceptInvitation(context.Background(), "t1", "x@example.com", "u9"); err != nil {
		t.Fatalf("AcceptInvitation: %v", err)
	}
	if got := teams.invitations["inv-new"].Status; got != domain.InvitationAccepted {
		t.Errorf("newest status = %q, want accepted", got)
	}
	if teams.invitations["inv-new"].AcceptedBy != "u9" {
		t.Errorf("accepted_by = %q, want u9", teams.invitations["inv-new"].AcceptedBy)
	}
	if got := teams.invitations["inv-old"].Status; got != domain.InvitationPending {
		t.Errorf("older invitation status = %q, should stay pending", got)
	}
}

func TestAcceptInvitation_AbsenceIsNotAnError(t *testing.T) {
	svc := newService(newMockTeamRepo(), newMockUserRepo())
	if err := svc.AcceptInvitation(context.Background(), "t1", "nobody@example.com", "u1"); err != nil {
		t.Fatalf("AcceptInvitation: %v", err)
	}
}

func TestMembers(t *testing.T) {
	teams := newMockTeamRepo()
	teams.teams["t1"] = &domain.Team{ID: "t1", AdminID: "admin-1"}
	users := newMockUserRepo(
		&userdomain.User{ID: "u1", Email: "a@b.c", Username: "a", Role: userdomain.RoleAdmin, TeamID: "t1"},
		&userdomain.User{ID: "u2", Email: "b@b.c", Username: "b", Role: userdomain.RoleEditor, TeamID: "t1"},
		&userdomain.User{ID: "u3", Email: "c@b.c", Username: "c", Role: userdomain.RoleEditor, TeamID: "t-other"},
	)
	svc := newService(teams, users)

	members, err := svc.Members(context.Background(), editorActor("t1"))
	if err != nil {
		t.Fatalf("Members: %v", err)
	}
	if len(members) != 2 {
		t.Errorf("member count = %d, want 2", len(members))
	}
}

func TestMembers_TeamlessDenied(t *testing.T) {
	svc := newService(newMockTeamRepo(), newMockUserRepo())
	if _, err := svc.Members(context.Background(), authz.Actor{ID: "u1", Role: userdomain.RoleAdmin}); !errs.Is(err, errs.KindDenied) {
		t.Fatalf("err = %v, want denied", err)
	}
}
