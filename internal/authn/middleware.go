package authn

import (
	"encoding/json"
	"net/http"
	"strings"

	"crewdesk/backend/internal/security"
)

const bearerPrefix = "bearer "

// Middleware returns HTTP middleware that validates the Bearer (access) token
// from the Authorization header and sets user_id, email, role, team_id in the
// request context. Requests without a valid token are rejected with 401.
func Middleware(tokens *security.TokenProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearer(r.Header.Get("Authorization"))
			if token == "" {
				unauthorized(w)
				return
			}
			claims, err := tokens.Validate(token)
			if err != nil {
				unauthorized(w)
				return
			}
			ctx := WithIdentity(r.Context(), claims.Subject, claims.Email, claims.Role, claims.TeamID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "missing or invalid authorization"})
}

// extractBearer returns the Bearer token from the header value, or "" if missing or malformed.
func extractBearer(header string) string {
	v := strings.TrimSpace(header)
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
