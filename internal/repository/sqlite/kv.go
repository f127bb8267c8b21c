package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/pulse-dashboard/internal/apperror"
	"github.com/sakif/pulse-dashboard/internal/repository"
)

// Compile-time check that DB satisfies the interface.
var _ repository.KVStore = (*DB)(nil)

// Get returns the stored value for key, or apperror.NotFound.
func (db *DB) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM kv WHERE key = ?`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("record", key)
		}
		return nil, fmt.Errorf("sqlite: reading key %q: %w", key, err)
	}
	return []byte(value), nil
}

// upsertSQL writes the row in one statement, so a reader never observes a
// missing record between a DELETE and an INSERT.
const upsertSQL = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// Put replaces the whole value stored under key.
func (db *DB) Put(ctx context.Context, key string, value []byte) error {
	_, err := db.conn.ExecContext(ctx, upsertSQL, key, string(value), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sqlite: writing key %q: %w", key, err)
	}
	return nil
}

// Update reads, transforms and writes key in one transaction.
//
// WRITE LOCK FIRST:
// Transactions on this DB start with BEGIN IMMEDIATE (see New), so the
// write lock is taken before the SELECT. A second writer, in this process
// or another one on the same file, waits on busy_timeout instead of reading
// the same old value and overwriting our write.
func (db *DB) Update(ctx context.Context, key string, fn repository.UpdateFunc) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: starting update of key %q: %w", key, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current []byte
	var value string
	switch scanErr := tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value); {
	case scanErr == nil:
		current = []byte(value)
	case errors.Is(scanErr, sql.ErrNoRows):
	default:
		return fmt.Errorf("sqlite: reading key %q: %w", key, scanErr)
	}

	next, err := fn(current)
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, upsertSQL, key, string(next), time.Now().UTC()); err != nil {
		return fmt.Errorf("sqlite: writing key %q: %w", key, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing key %q: %w", key, err)
	}
	return nil
}
