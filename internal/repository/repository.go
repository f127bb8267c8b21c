// Package repository declares the storage contracts the services depend on.
// Concrete implementations live in sub-packages (repository/sqlite).
package repository

import (
	"context"
)

// KVStore is durable key-value storage for small structured blobs.
//
// The dashboard keeps all registered users in ONE record (key "users"),
// mirroring browser localStorage. Get returns an apperror.NotFound error
// when the key has never been written.
//
// Update is the only safe way to read-modify-write a record: the server and
// the admin CLI may hold the same database open, so a Get followed by a Put
// can lose the other process's write.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
	Update(ctx context.Context, key string, fn UpdateFunc) error
}

// UpdateFunc receives the current value (nil when the key has never been
// written) and returns the value to store. Returning an error aborts the
// update without writing, and Update returns that error unchanged.
type UpdateFunc func(current []byte) ([]byte, error)
