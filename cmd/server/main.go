package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crewdesk/backend/internal/audit"
	auditrepo "crewdesk/backend/internal/audit/repository"
	"crewdesk/backend/internal/config"
	"crewdesk/backend/internal/db"
	identityservice "crewdesk/backend/internal/identity/service"
	"crewdesk/backend/internal/logger"
	"crewdesk/backend/internal/mail"
	projectrepo "crewdesk/backend/internal/project/repository"
	projectservice "crewdesk/backend/internal/project/service"
	"crewdesk/backend/internal/security"
	"crewdesk/backend/internal/server"
	teamrepo "crewdesk/backend/internal/team/repository"
	teamservice "crewdesk/backend/internal/team/service"
	userrepo "crewdesk/backend/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log := logger.New("server", cfg.Env)
	defer func() { _ = log.Sync() }()

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalw("open database", "error", err)
	}
	defer conn.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalw("parse JWT private key", "error", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalw("parse JWT public key", "error", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	var mailer mail.Sender
	if cfg.SMTPAddr != "" {
		mailer = mail.NewSMTPSender(cfg.SMTPAddr, cfg.SMTPFrom)
	} else {
		log.Info("SMTP_ADDR not set; email is logged, not delivered")
		mailer = &mail.LogSender{Log: log}
	}

	users := userrepo.NewPostgresRepository(conn)
	teams := teamrepo.NewPostgresRepository(conn)
	projects := projectrepo.NewPostgresRepository(conn)
	auditRepo := auditrepo.NewPostgresRepository(conn)
	events := audit.NewLogger(auditRepo, log)

	teamSvc := teamservice.NewService(teams, users, mailer, events, log, cfg.InviteCodeLength)
	authSvc := identityservice.NewAuthService(users, teamSvc, hasher, tokens, mailer, events, log, cfg.VerificationWindow())
	resolver := identityservice.NewResolver(users)
	projectSvc := projectservice.NewService(projects, users, events, log)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      server.New(authSvc, resolver, teamSvc, projectSvc, auditRepo, tokens, log).Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("HTTP server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("serve", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down HTTP server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnw("shutdown", "error", err)
	}
	log.Info("HTTP server stopped")
}
