// Package authn carries the authenticated caller's identity through request
// context and provides the HTTP bearer-token middleware that sets it.
package authn

import "context"

type contextKey struct{ name string }

var (
	userIDKey = contextKey{"user_id"}
	emailKey  = contextKey{"email"}
	roleKey   = contextKey{"role"}
	teamIDKey = contextKey{"team_id"}
)

// WithIdentity returns a context with the caller's user_id, email, role, and
// team_id set. Handlers read these via the Get helpers; services must treat
// role and team_id as token snapshots and re-resolve before authorizing.
func WithIdentity(ctx context.Context, userID, email, role, teamID string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, emailKey, email)
	ctx = context.WithValue(ctx, roleKey, role)
	ctx = context.WithValue(ctx, teamIDKey, teamID)
	return ctx
}

// GetUserID returns the user_id from context and true if set; otherwise "", false.
func GetUserID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDKey).(string)
	return v, ok
}

// GetEmail returns the email from context and true if set; otherwise "", false.
func GetEmail(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(emailKey).(string)
	return v, ok
}

// GetRole returns the role from context and true if set; otherwise "", false.
func GetRole(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(roleKey).(string)
	return v, ok
}

// GetTeamID returns the team_id from context and true if set; otherwise "", false.
func GetTeamID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(teamIDKey).(string)
	return v, ok
}
