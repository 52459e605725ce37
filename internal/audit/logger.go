// Package audit records best-effort activity events. Failures are logged and
// never affect the calling operation.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"crewdesk/backend/internal/audit/domain"
	auditrepo "crewdesk/backend/internal/audit/repository"
)

// SentinelTeamID is the team_id used for events that have no team yet
// (e.g. signup without an invite code, failed login).
const SentinelTeamID = "_system"

// EventLogger writes a single activity event with explicit action/resource.
// LogEvent is best-effort: failures are logged and do not affect the caller.
type EventLogger interface {
	LogEvent(ctx context.Context, teamID, userID, action, resource, metadata string)
}

// Logger implements EventLogger using the audit repository.
type Logger struct {
	repo auditrepo.Repository
	log  *zap.SugaredLogger
}

// NewLogger returns an EventLogger that persists to repo and reports write
// failures to log. log may be nil; then failures are silently dropped.
func NewLogger(repo auditrepo.Repository, log *zap.SugaredLogger) *Logger {
	return &Logger{repo: repo, log: log}
}

// LogEvent writes one audit log entry. Best-effort: errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, teamID, userID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	if teamID == "" {
		teamID = SentinelTeamID
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		TeamID:    teamID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil && l.log != nil {
		l.log.Warnw("audit: failed to log event", "action", action, "resource", resource, "error", err)
	}
}
