package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/sakif/pulse-dashboard/internal/auth"
	"github.com/sakif/pulse-dashboard/internal/model"
	"github.com/sakif/pulse-dashboard/internal/service"
	"github.com/sakif/pulse-dashboard/internal/session"
)

// AuthService is what the handler needs from service.AuthService.
type AuthService interface {
	Register(ctx context.Context, email, password, gender string) (model.Profile, error)
	Login(ctx context.Context, email, password string) (*service.AuthResult, error)
	Logout()
	Session() session.Snapshot
	ValidateToken(tokenStr string) (string, error)
}

// AuthHandler serves the sign-up / sign-in screen and the session check.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → create an account (does not sign in)
//   - HandleLogin    → authenticate, start the session, set the JWT cookie
//   - HandleLogout   → end the caller's session, clear the cookie
//   - HandleSession  → which view to mount ("auth" or "shell")
type AuthHandler struct {
	auth         AuthService
	cookieTTL    time.Duration
	cookieSecure bool
	logger       *slog.Logger
}

// NewAuthHandler creates an AuthHandler. cookieTTL should match the token
// service's TTL; cookieSecure is on behind HTTPS.
func NewAuthHandler(svc AuthService, cookieTTL time.Duration, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:         svc,
		cookieTTL:    cookieTTL,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Gender   string `json:"gender"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse is the session check's body.
type SessionResponse struct {
	session.Snapshot
	Mount session.Mount `json:"mount"`
}

// HandleRegister creates an account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"email":"jane99@x.com","password":"...","gender":"female"}
// RESPONSE: 201 {"displayName":"jane","gender":"female"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	profile, err := h.auth.Register(r.Context(), req.Email, req.Password, req.Gender)
	if err != nil {
		h.logger.Info("registration rejected", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, profile)
}

// HandleLogin authenticates and starts the session.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email":"...","password":"..."}
//
// The JWT's subject is the session ID, not the user: logging out (or a
// newer login) invalidates the cookie server-side even before it expires.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	// HttpOnly = JavaScript cannot read this cookie (XSS protection).
	// SameSite=Lax = not sent on cross-site POSTs.
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    res.Token,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, SessionResponse{Snapshot: res.Session, Mount: res.Session.Mount()})
}

// HandleLogout ends the session named by the request's cookie and clears
// the cookie. Without a cookie for the active session it only clears the
// cookie: one browser cannot sign another out.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		if _, err := h.auth.ValidateToken(cookie.Value); err == nil {
			h.auth.Logout()
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // tells the browser to delete the cookie immediately
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusOK, SessionResponse{Mount: session.MountAuth})
}

// HandleSession reports the session as seen by this request.
//
// HTTP: GET /api/session
//
// A request whose cookie does not name the active session sees LoggedOut,
// even if someone else's session is live.
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	resp := SessionResponse{Mount: session.MountAuth}

	if cookie, err := r.Cookie(auth.CookieName); err == nil {
		if _, err := h.auth.ValidateToken(cookie.Value); err == nil {
			snap := h.auth.Session()
			resp = SessionResponse{Snapshot: snap, Mount: snap.Mount()}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
