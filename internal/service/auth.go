// Package service holds the authentication workflow.
//
// AuthService sits between the HTTP handlers and the credential store,
// the session guard and the token service:
//
//	AuthHandler (HTTP) → AuthService → credentials.Store (users record)
//	                   ↘ session.Guard (LoggedOut / LoggedIn)
//	                   ↘ TokenService (JWT bound to the session ID)
//
// KEY RESPONSIBILITIES:
//   - Register local accounts
//   - Move the guard to LoggedIn only after a successful Authenticate
//   - On logout (and on a replacing login) tear down the signed-in shell
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sakif/pulse-dashboard/internal/auth"
	"github.com/sakif/pulse-dashboard/internal/model"
	"github.com/sakif/pulse-dashboard/internal/session"
)

// UserStore is the part of credentials.Store the service needs.
type UserStore interface {
	Register(ctx context.Context, email, password, gender string) (model.UserRecord, error)
	Authenticate(ctx context.Context, email, password string) (model.UserRecord, error)
}

// Shell is the signed-in view state, reset when its session ends.
type Shell interface {
	Reset()
}

// AuthService handles the authentication business logic.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users   UserStore             → register / authenticate
//   - guard   *session.Guard        → the single session
//   - tokens  *auth.TokenService    → JWT cookie value
//   - shell   Shell                 → panels + tabs to reset
//   - logger  *slog.Logger
type AuthService struct {
	users  UserStore
	guard  *session.Guard
	tokens *auth.TokenService
	shell  Shell
	logger *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users UserStore,
	guard *session.Guard,
	tokens *auth.TokenService,
	shell Shell,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		guard:  guard,
		tokens: tokens,
		shell:  shell,
		logger: logger,
	}
}

// AuthResult bundles the new session and the JWT for its cookie.
type AuthResult struct {
	Session session.Snapshot
	Token   string
}

// Register creates an account. It does NOT log the new user in; the
// sign-up form sends the user back to sign-in.
func (s *AuthService) Register(ctx context.Context, email, password, gender string) (model.Profile, error) {
	user, err := s.users.Register(ctx, email, password, gender)
	if err != nil {
		return model.Profile{}, fmt.Errorf("service/auth: registering: %w", err)
	}
	return user.Profile(), nil
}

// Login authenticates and starts a session.
//
// A failed attempt leaves the guard untouched. A successful one while
// another session is active replaces it, and the old shell state goes with
// it.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Info("login rejected", slog.String("error", err.Error()))
		return nil, fmt.Errorf("service/auth: authenticating: %w", err)
	}

	if s.guard.State() == session.LoggedIn {
		s.shell.Reset()
	}
	snap := s.guard.Login(user)

	token, err := s.tokens.Generate(snap.ID)
	if err != nil {
		s.guard.Logout()
		return nil, fmt.Errorf("service/auth: generating token: %w", err)
	}

	return &AuthResult{Session: snap, Token: token}, nil
}

// Logout ends the session (if any) and resets the shell.
func (s *AuthService) Logout() {
	s.guard.Logout()
	s.shell.Reset()
}

// Session returns the current session snapshot.
func (s *AuthService) Session() session.Snapshot {
	return s.guard.Snapshot()
}

// ValidateToken returns the session ID a cookie token encodes, provided
// that session is still the active one.
func (s *AuthService) ValidateToken(tokenStr string) (string, error) {
	id, err := s.tokens.Validate(tokenStr)
	if err != nil {
		return "", fmt.Errorf("service/auth: %w", err)
	}
	if !s.guard.Valid(id) {
		return "", fmt.Errorf("service/auth: session %s is not active", id)
	}
	return id, nil
}
