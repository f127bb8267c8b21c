package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/sakif/pulse-dashboard/internal/apperror"
	"github.com/sakif/pulse-dashboard/internal/auth"
	"github.com/sakif/pulse-dashboard/internal/model"
	"github.com/sakif/pulse-dashboard/internal/session"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserStore keeps records in a map keyed by email, with plaintext
// passwords. Enough for the service's rules; hashing is tested elsewhere.
type fakeUserStore struct {
	users     map[string]model.UserRecord
	passwords map[string]string
	// set to a non-nil error to simulate a storage failure
	registerErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:     make(map[string]model.UserRecord),
		passwords: make(map[string]string),
	}
}

func (f *fakeUserStore) Register(ctx context.Context, email, password, gender string) (model.UserRecord, error) {
	if f.registerErr != nil {
		return model.UserRecord{}, f.registerErr
	}
	if _, ok := f.users[email]; ok {
		return model.UserRecord{}, apperror.DuplicateEmail(email)
	}
	u := model.UserRecord{ID: "id-" + email, Email: email, DisplayName: "name-" + email, Gender: gender}
	f.users[email] = u
	f.passwords[email] = password
	return u, nil
}

func (f *fakeUserStore) Authenticate(ctx context.Context, email, password string) (model.UserRecord, error) {
	u, ok := f.users[email]
	if !ok || f.passwords[email] != password {
		return model.UserRecord{}, apperror.InvalidCredentials()
	}
	return u, nil
}

// fakeShell counts resets.
type fakeShell struct {
	resets int
}

func (f *fakeShell) Reset() { f.resets++ }

type testDeps struct {
	users *fakeUserStore
	guard *session.Guard
	shell *fakeShell
	svc   *AuthService
}

func newTestAuthService(t *testing.T) testDeps {
	t.Helper()

	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	d := testDeps{
		users: newFakeUserStore(),
		guard: session.NewGuard(logger),
		shell: &fakeShell{},
	}
	d.svc = NewAuthService(d.users, d.guard, ts, d.shell, logger)
	return d
}

// =========================================================================
// Register TESTS
// =========================================================================

func TestRegister_ReturnsProfileWithoutLoggingIn(t *testing.T) {
	d := newTestAuthService(t)

	p, err := d.svc.Register(context.Background(), "jane@x.com", "pw", "female")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if p.DisplayName != "name-jane@x.com" || p.Gender != "female" {
		t.Errorf("Register() profile = %+v", p)
	}
	if d.guard.State() != session.LoggedOut {
		t.Error("Register() must not start a session")
	}
}

func TestRegister_DuplicateKeepsSentinel(t *testing.T) {
	d := newTestAuthService(t)
	ctx := context.Background()

	if _, err := d.svc.Register(ctx, "jane@x.com", "pw", "female"); err != nil {
		t.Fatalf("setup: %v", err)
	}
	_, err := d.svc.Register(ctx, "jane@x.com", "other", "male")
	if !errors.Is(err, apperror.ErrDuplicateEmail) {
		t.Fatalf("Register() error = %v, want ErrDuplicateEmail", err)
	}
}

func TestRegister_StoreError(t *testing.T) {
	d := newTestAuthService(t)
	d.users.registerErr = errors.New("disk full")

	if _, err := d.svc.Register(context.Background(), "a@x.com", "pw", "male"); err == nil {
		t.Fatal("Register() should propagate store errors")
	}
}

// =========================================================================
// Login / Logout TESTS
// =========================================================================

func TestLogin_StartsSessionAndIssuesToken(t *testing.T) {
	d := newTestAuthService(t)
	ctx := context.Background()
	d.svc.Register(ctx, "jane@x.com", "pw", "female")

	res, err := d.svc.Login(ctx, "jane@x.com", "pw")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if !res.Session.LoggedIn || res.Session.DisplayName != "name-jane@x.com" {
		t.Errorf("Login() session = %+v", res.Session)
	}
	if res.Token == "" {
		t.Fatal("Login() returned empty token")
	}

	id, err := d.svc.ValidateToken(res.Token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if id != res.Session.ID {
		t.Errorf("token subject = %q, want session ID %q", id, res.Session.ID)
	}
	if d.shell.resets != 0 {
		t.Errorf("first login reset the shell %d times", d.shell.resets)
	}
}

func TestLogin_WrongPasswordStaysLoggedOut(t *testing.T) {
	d := newTestAuthService(t)
	ctx := context.Background()
	d.svc.Register(ctx, "jane@x.com", "pw", "female")

	_, err := d.svc.Login(ctx, "jane@x.com", "nope")
	if !errors.Is(err, apperror.ErrInvalidCredentials) {
		t.Fatalf("Login() error = %v, want ErrInvalidCredentials", err)
	}
	if d.guard.State() != session.LoggedOut {
		t.Error("failed login must leave the guard logged out")
	}
}

func TestLogin_ReplacesActiveSession(t *testing.T) {
	d := newTestAuthService(t)
	ctx := context.Background()
	d.svc.Register(ctx, "jane@x.com", "pw", "female")
	d.svc.Register(ctx, "john@x.com", "pw", "male")

	first, err := d.svc.Login(ctx, "jane@x.com", "pw")
	if err != nil {
		t.Fatalf("first login: %v", err)
	}
	second, err := d.svc.Login(ctx, "john@x.com", "pw")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if _, err := d.svc.ValidateToken(first.Token); err == nil {
		t.Error("the replaced session's token must stop validating")
	}
	if _, err := d.svc.ValidateToken(second.Token); err != nil {
		t.Errorf("current token rejected: %v", err)
	}
	if d.svc.Session().DisplayName != "name-john@x.com" {
		t.Errorf("Session() = %+v", d.svc.Session())
	}
	if d.shell.resets != 1 {
		t.Errorf("shell resets = %d, want 1", d.shell.resets)
	}
}

func TestLogout_ClearsSessionAndShell(t *testing.T) {
	d := newTestAuthService(t)
	ctx := context.Background()
	d.svc.Register(ctx, "jane@x.com", "pw", "female")
	res, _ := d.svc.Login(ctx, "jane@x.com", "pw")

	d.svc.Logout()

	if d.svc.Session() != (session.Snapshot{}) {
		t.Errorf("Session() after logout = %+v, want zero", d.svc.Session())
	}
	if d.shell.resets != 1 {
		t.Errorf("shell resets = %d, want 1", d.shell.resets)
	}
	if _, err := d.svc.ValidateToken(res.Token); err == nil {
		t.Error("token must stop validating after logout")
	}
}

func TestLogout_WhenLoggedOutIsHarmless(t *testing.T) {
	d := newTestAuthService(t)

	d.svc.Logout()

	if d.guard.State() != session.LoggedOut {
		t.Error("guard should stay logged out")
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	d := newTestAuthService(t)

	if _, err := d.svc.ValidateToken("this.is.garbage"); err == nil {
		t.Fatal("ValidateToken() should return error for garbage token")
	}
}
