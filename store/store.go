// Package store defines the durable key/value backend used by synckv.
//
// A Store opens named partitions. Open must be idempotent: opening a name
// that does not exist yet creates it, opening an existing one reuses it.
// The returned Conn is owned by exactly one synckv cache and is closed by it.
//
// Implementations must be safe for concurrent use. Operations on different
// keys may complete in any order; synckv serializes operations on the same key
// before they reach the Conn.
package store

import "context"

// Pair is one persisted entry.
type Pair struct {
	Key   string
	Value string
}

type Store interface {
	// Open returns a connection to the partition called name, creating the
	// partition (schema, table, file) when it does not exist.
	Open(ctx context.Context, name string) (Conn, error)

	// Kind is a constant tag naming the backend, e.g. "redis" or "file".
	Kind() string
}

type Conn interface {
	// GetAll returns every entry as of a single consistent read.
	GetAll(ctx context.Context) ([]Pair, error)

	// Get returns (value, true, nil) on hit; ("", false, nil) when absent.
	Get(ctx context.Context, key string) (string, bool, error)

	// Put stores value under key, overwriting any previous value.
	Put(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases the connection. Safe to call more than once.
	Close(ctx context.Context) error
}
