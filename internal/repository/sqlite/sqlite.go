// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY SQLITE FOR A KEY-VALUE RECORD?
// The dashboard only needs "a single named record in durable storage", the
// server-side twin of browser localStorage. SQLite gives us that with
// atomic writes and crash safety, as one file next to the binary, with no
// server to run. modernc.org/sqlite is a pure-Go port, so no cgo either.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps the *sql.DB connection pool.
// It implements repository.KVStore (see kv.go).
type DB struct {
	conn *sql.DB
}

// dsnParams are applied by the driver to every connection it opens:
// busy_timeout makes a writer wait for another process's lock instead of
// failing, and _txlock makes BeginTx issue BEGIN IMMEDIATE.
const dsnParams = "_pragma=busy_timeout(5000)&_txlock=immediate"

// New opens (or creates) the database at dbPath and runs migrations.
// Pass ":memory:" for a throwaway database in tests.
func New(dbPath string) (*DB, error) {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	conn, err := sql.Open("sqlite", dbPath+sep+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One writer at a time is all SQLite supports anyway, and with ":memory:"
	// every extra pooled connection would see its own empty database.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets the admin CLI read while the server holds the file open.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close releases the connection pool and flushes the WAL.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS makes it safe to
// run on every start.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS kv (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating kv table: %w", err)
	}

	return nil
}

// Ping checks the database is still reachable (used by /healthz).
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}
