// Package stores provides the tenant-scoped KV views shared by the HTTP
// frontends and the worker supervisors: actors, executions, logs,
// permissions and workers. All mutual exclusion is delegated to the
// backing engine's per-key atomic field update; no in-process locks.
package stores

import (
	"context"
	"errors"
)

// Record is a string-keyed map, the unit of storage for every store.
type Record = map[string]interface{}

// ErrNotFound is returned when a key (or a strict field update target) is
// absent from a store.
var ErrNotFound = errors.New("record not found")

// Store is a mapping key -> record over the shared backing KV.
//
// Update and SetField are linearizable with respect to concurrent Update,
// SetField and Set calls on the same key. Items carries no ordering
// guarantee and is snapshot-consistent per key only.
type Store interface {
	// Get returns the record at key, or ErrNotFound.
	Get(ctx context.Context, key string) (Record, error)

	// Set replaces the whole record at key.
	Set(ctx context.Context, key string, rec Record) error

	// Update sets a single field atomically. ErrNotFound if the record
	// does not exist.
	Update(ctx context.Context, key, field string, value interface{}) error

	// SetField sets a single field atomically, creating the record when
	// it does not exist.
	SetField(ctx context.Context, key, field string, value interface{}) error

	// Delete removes the record at key. Removing a missing key is not an
	// error; every delete is idempotent.
	Delete(ctx context.Context, key string) error

	// Items enumerates all records in the store.
	Items(ctx context.Context) (map[string]Record, error)
}
