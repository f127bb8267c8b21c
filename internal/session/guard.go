// Package session holds the single logged-in/logged-out state of the dashboard.
//
// STATE MACHINE:
//
//	LoggedOut ──Login(record)──▶ LoggedIn(displayName, gender)
//	    ▲                              │
//	    └───────────Logout()───────────┘
//
// There is no terminal state: the guard cycles for the lifetime of the
// process. The guard is an injected value (not a package global) so tests
// and the HTTP layer can each hold their own.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sakif/pulse-dashboard/internal/model"
)

// State is one of the two guard states.
type State int

const (
	LoggedOut State = iota
	LoggedIn
)

func (s State) String() string {
	if s == LoggedIn {
		return "logged_in"
	}
	return "logged_out"
}

// Mount names the top-level view to show for a state.
type Mount string

const (
	MountAuth  Mount = "auth"  // sign-in / sign-up screen
	MountShell Mount = "shell" // tabbed dashboard
)

// Snapshot is an immutable copy of the session.
// DisplayName, Gender, ID and Since are zero iff LoggedIn is false.
type Snapshot struct {
	LoggedIn    bool      `json:"loggedIn"`
	DisplayName string    `json:"displayName,omitempty"`
	Gender      string    `json:"gender,omitempty"`
	ID          string    `json:"-"`
	Since       time.Time `json:"since,omitzero"`
}

// Mount is a pure function of the snapshot.
func (s Snapshot) Mount() Mount {
	if s.LoggedIn {
		return MountShell
	}
	return MountAuth
}

// Guard owns the current session.
type Guard struct {
	mu          sync.RWMutex
	state       State
	displayName string
	gender      string
	id          string
	since       time.Time

	logger *slog.Logger
	now    func() time.Time
}

// NewGuard returns a guard in the LoggedOut state.
func NewGuard(logger *slog.Logger) *Guard {
	return &Guard{
		state:  LoggedOut,
		logger: logger,
		now:    time.Now,
	}
}

// Login moves the guard to LoggedIn with the record's display attributes.
//
// Callers must only pass a record returned by a successful
// credentials.Store.Authenticate. Logging in while a session is active
// replaces it: there is at most one session, and the old session ID stops
// validating immediately.
func (g *Guard) Login(user model.UserRecord) Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	replaced := g.state == LoggedIn
	g.state = LoggedIn
	g.displayName = user.DisplayName
	g.gender = user.Gender
	g.id = uuid.NewString()
	g.since = g.now()

	g.logger.Info("session started",
		slog.String("displayName", g.displayName),
		slog.Bool("replaced", replaced),
	)

	return g.snapshotLocked()
}

// Logout clears every session attribute, whatever the prior state.
func (g *Guard) Logout() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.state == LoggedIn {
		g.logger.Info("session ended", slog.String("displayName", g.displayName))
	}

	g.state = LoggedOut
	g.displayName = ""
	g.gender = ""
	g.id = ""
	g.since = time.Time{}
}

// State returns the current state.
func (g *Guard) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Snapshot returns a copy of the current session.
func (g *Guard) Snapshot() Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.snapshotLocked()
}

// Mount returns the view the current state selects.
func (g *Guard) Mount() Mount {
	return g.Snapshot().Mount()
}

// Valid reports whether id names the active session.
func (g *Guard) Valid(id string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state == LoggedIn && id != "" && id == g.id
}

func (g *Guard) snapshotLocked() Snapshot {
	if g.state != LoggedIn {
		return Snapshot{}
	}
	return Snapshot{
		LoggedIn:    true,
		DisplayName: g.displayName,
		Gender:      g.gender,
		ID:          g.id,
		Since:       g.since,
	}
}
