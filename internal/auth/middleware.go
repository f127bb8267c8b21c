package auth

import (
	"context"
	"net/http"

	"github.com/sakif/pulse-dashboard/internal/session"
)

// CookieName is the cookie that carries the session JWT.
const CookieName = "token"

// contextKey is a private type for context keys, so no other package can
// collide with (or read) our values by using the same string.
type contextKey string

const sessionIDKey contextKey = "sessionID"

// SessionValidator is the part of session.Guard the middleware needs.
type SessionValidator interface {
	Valid(id string) bool
}

var _ SessionValidator = (*session.Guard)(nil)

// RequireSession is Chi middleware that only lets requests through while
// the guard is LoggedIn AND the request's cookie names the active session.
//
// A cookie from before a logout (or from a session replaced by a newer
// login) carries a stale session ID and is rejected even though its
// signature and expiry are still fine.
func RequireSession(tokens *TokenService, guard SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID, err := extractSessionID(r, tokens)
			if err != nil || !guard.Valid(sessionID) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","message":"sign in to use the dashboard"}` + "\n"))
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext returns the session ID set by RequireSession.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionIDKey).(string)
	return id, ok && id != ""
}

// extractSessionID reads the JWT from the cookie and returns its subject.
func extractSessionID(r *http.Request, tokens *TokenService) (string, error) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", err
	}

	return tokens.Validate(cookie.Value)
}
