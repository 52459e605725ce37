// seed inserts development sample data for local testing.
// Idempotent: skips inserts if the dev admin (dev@example.com) already exists.
package main

import (
	"context"
	"log"
	"os"
	"time"

	"crewdesk/backend/internal/config"
	"crewdesk/backend/internal/db"
	projectdomain "crewdesk/backend/internal/project/domain"
	projectrepo "crewdesk/backend/internal/project/repository"
	"crewdesk/backend/internal/security"
	teamdomain "crewdesk/backend/internal/team/domain"
	teamrepo "crewdesk/backend/internal/team/repository"
	userdomain "crewdesk/backend/internal/user/domain"
	userrepo "crewdesk/backend/internal/user/repository"
)

const (
	devAdminEmail  = "dev@example.com"
	devEditorEmail = "editor@example.com"
	devPassword    = "password123"
	devAdminID     = "dev-user-001"
	devEditorID    = "dev-user-002"
	devTeamID      = "dev-team-001"
	devProjectID   = "dev-project-001"
	devTaskID      = "dev-task-001"
	devInviteCode  = "DEVTEAMCODE2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	ctx := context.Background()
	users := userrepo.NewPostgresRepository(conn)
	teams := teamrepo.NewPostgresRepository(conn)
	projects := projectrepo.NewPostgresRepository(conn)

	existing, err := users.GetByEmail(ctx, devAdminEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (dev@example.com exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewHasher(cfg.BcryptCost)
	passwordHash, err := hasher.Hash([]byte(devPassword))
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()

	admin := &userdomain.User{
		ID:            devAdminID,
		Email:         devAdminEmail,
		Username:      "dev",
		PasswordHash:  passwordHash,
		Role:          userdomain.RoleAdmin,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatalf("create dev admin: %v", err)
	}

	if err := teams.Create(ctx, &teamdomain.Team{ID: devTeamID, AdminID: devAdminID, CreatedAt: now}); err != nil {
		log.Fatalf("create team: %v", err)
	}
	if err := teams.SetInviteCode(ctx, devTeamID, devInviteCode); err != nil {
		log.Fatalf("set invite code: %v", err)
	}
	admin.TeamID = devTeamID
	if err := users.Update(ctx, admin); err != nil {
		log.Fatalf("attach admin to team: %v", err)
	}

	editor := &userdomain.User{
		ID:            devEditorID,
		Email:         devEditorEmail,
		Username:      "editor",
		PasswordHash:  passwordHash,
		Role:          userdomain.RoleEditor,
		TeamID:        devTeamID,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := users.Create(ctx, editor); err != nil {
		log.Fatalf("create dev editor: %v", err)
	}

	if err := projects.CreateWithOwner(ctx, &projectdomain.Project{
		ID:          devProjectID,
		Name:        "Sample Project",
		Description: "Seeded project for local development",
		TeamID:      devTeamID,
		CreatedBy:   devAdminID,
		Status:      projectdomain.ProjectStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		log.Fatalf("create project: %v", err)
	}
	if err := projects.AddMember(ctx, &projectdomain.Member{
		ProjectID: devProjectID, UserID: devEditorID, Role: projectdomain.RoleMember, AddedAt: now,
	}); err != nil {
		log.Fatalf("add project member: %v", err)
	}
	if err := projects.CreateTask(ctx, &projectdomain.Task{
		ID:          devTaskID,
		ProjectID:   devProjectID,
		Title:       "Try out the API",
		Description: "Log in as dev@example.com and poke around",
		Status:      projectdomain.TaskStatusTodo,
		AssigneeID:  devEditorID,
		CreatedBy:   devAdminID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}); err != nil {
		log.Fatalf("create task: %v", err)
	}

	log.Println("Seed completed successfully.")
	log.Printf("Admin login: %s / %s", devAdminEmail, devPassword)
	log.Printf("Editor login: %s / %s", devEditorEmail, devPassword)
	log.Printf("Invite code: %s", devInviteCode)
}
