package synckv

import (
	"context"
	"iter"
	"time"

	"github.com/unkn0wn-root/synckv/store"
)

type Cache = Storage // alias -> synckv.Cache or synckv.Storage

// Storage is a key/value cache whose reads and writes never wait on the
// backing store. Mutations are applied in memory first and persisted in the
// background; WaitForCommit reports when every issued write was acknowledged.
//
// Gated methods (SetItem, RemoveItem, ItemExists, Keys) return a
// *PendingError until the initial load has merged the store's contents.
type Storage interface {
	// GetItem reads the in-memory cache. Never gated, never blocks.
	GetItem(key string) (string, bool)

	SetItem(key, value string) error
	RemoveItem(key string) error
	ItemExists(key string) (bool, error)

	// Keys returns a snapshot of the current keys in insertion order.
	// The sequence can be ranged over any number of times.
	Keys() (iter.Seq[string], error)

	// SetItemFuture and RemoveItemFuture are SetItem and RemoveItem that also
	// hand back the background write, for callers that want its outcome.
	SetItemFuture(key, value string) (*Future, error)
	RemoveItemFuture(key string) (*Future, error)

	// Reload waits for the initial load, then replaces the cached entry with
	// the store's current value (or drops it when the store has none).
	Reload(ctx context.Context, key string) (value string, ok bool, err error)

	// WaitForCommit returns once no background writes are outstanding.
	WaitForCommit(ctx context.Context) error

	// Ready waits for the initial load, starting it if it has not started.
	Ready(ctx context.Context) error

	State() LoadState
	Pending() int
	Kind() string
	Name() string

	// Close drains queued writes and releases the store connection.
	Close(ctx context.Context) error
}

// LoadPolicy chooses when the initial load runs.
type LoadPolicy int

const (
	// Eager loads inside New; New returns once the load finished.
	Eager LoadPolicy = iota
	// EagerAsync starts the load in New and returns immediately.
	EagerAsync
	// Deferred starts the load on the first gated call (or Ready/Reload).
	Deferred
)

func (p LoadPolicy) String() string {
	switch p {
	case Eager:
		return "eager"
	case EagerAsync:
		return "eager_async"
	case Deferred:
		return "deferred"
	default:
		return "unknown"
	}
}

type LoadState int

const (
	NotStarted LoadState = iota
	Loading
	Loaded
)

func (s LoadState) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	default:
		return "unknown"
	}
}

// Options configure a cache. Only Store is required.
type Options struct {
	// Required
	Store store.Store

	Name      string            // partition opened in Store; "" => "SyncStorageDB"
	Seed      map[string]string // defaults merged below stored values on load
	Policy    LoadPolicy        // default Eager
	Logger    Logger            // if nil, NopLogger is used
	Hooks     Hooks             // if nil, NopHooks is used
	Workers   int               // background write lanes; 0 => 4
	OpTimeout time.Duration     // per store call; 0 => no timeout

	// StrictCommit makes WaitForCommit return a *CommitError listing the
	// background writes that failed since the previous WaitForCommit.
	// By default failures are only logged and reported to Hooks.
	StrictCommit bool
}

// New creates a cache. With the Eager policy it blocks until the initial
// load completes and returns its error, if any.
func New(ctx context.Context, opts Options) (Storage, error) {
	c, err := newCache(ctx, opts)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Retry runs op and, while it fails with a *PendingError, waits for the load
// and runs it again. Any other result is returned as is.
func Retry(ctx context.Context, op func() error) error {
	for {
		err := op()
		load, ok := IsPending(err)
		if !ok {
			return err
		}
		if werr := load.Wait(ctx); werr != nil {
			return werr
		}
	}
}
