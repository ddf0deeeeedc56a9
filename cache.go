package synckv

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/unkn0wn-root/synckv/internal/ordered"
	"github.com/unkn0wn-root/synckv/store"
)

type cache struct {
	name   string
	kind   string
	seed   []store.Pair // sorted by key
	log    Logger
	hooks  Hooks
	strict bool
	eng    *engine

	mu        sync.Mutex
	items     *ordered.Map
	state     LoadState
	load      *Future // nil while NotStarted
	closed    bool
	reloading map[string]int  // in-flight Reload calls per key
	dirty     map[string]bool // keys mutated while a Reload was in flight

	failMu   sync.Mutex
	failures []*BackendError
}

func newCache(ctx context.Context, opts Options) (*cache, error) {
	if opts.Store == nil {
		return nil, ErrNoStore
	}
	if opts.Workers < 0 {
		return nil, fmt.Errorf("synckv: workers must be >= 0, got %d", opts.Workers)
	}
	switch opts.Policy {
	case Eager, EagerAsync, Deferred:
	default:
		return nil, fmt.Errorf("synckv: unknown load policy %d", opts.Policy)
	}

	opts = opts.withDefaults()
	kind := opts.Store.Kind()
	c := &cache{
		name:      opts.Name,
		kind:      kind,
		log:       newScopedLogger(opts.Logger, opts.Name, kind),
		hooks:     opts.Hooks,
		strict:    opts.StrictCommit,
		items:     ordered.New(),
		reloading: make(map[string]int),
		dirty:     make(map[string]bool),
	}
	c.seed = sortedSeed(opts.Seed)
	c.eng = newEngine(c.name, opts.Store, opts.Workers, opts.OpTimeout, c.log, c.hooks)
	if c.strict {
		c.eng.onFail = c.recordFailure
	}

	switch opts.Policy {
	case Eager:
		c.mu.Lock()
		f := c.beginLoadLocked()
		c.mu.Unlock()
		c.runLoad(ctx, f)
		if err := f.Err(); err != nil {
			_ = c.eng.close(ctx)
			return nil, err
		}
	case EagerAsync:
		c.mu.Lock()
		c.startLoadLocked()
		c.mu.Unlock()
	}
	return c, nil
}

func sortedSeed(m map[string]string) []store.Pair {
	out := make([]store.Pair, 0, len(m))
	for k, v := range m {
		out = append(out, store.Pair{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// beginLoadLocked moves NotStarted -> Loading and returns the new load
// future, or returns the current one. Caller holds c.mu.
func (c *cache) beginLoadLocked() *Future {
	if c.load != nil {
		return c.load
	}
	if c.state != NotStarted {
		panic(fmt.Errorf("%w: state %v without a load future", ErrInvariant, c.state))
	}
	c.state = Loading
	c.load = newFuture()
	return c.load
}

// startLoadLocked is beginLoadLocked that also runs a fresh load in the
// background. Caller holds c.mu.
func (c *cache) startLoadLocked() *Future {
	if c.load != nil {
		return c.load
	}
	f := c.beginLoadLocked()
	go c.runLoad(context.Background(), f)
	return f
}

func (c *cache) runLoad(ctx context.Context, f *Future) {
	start := time.Now()
	c.log.Debug("initial load started", nil)

	var fromStore, seeded int
	err := c.eng.bootstrap(ctx, func(pairs []store.Pair) {
		fromStore, seeded = c.merge(pairs)
	})
	if err != nil {
		c.mu.Lock()
		c.state = NotStarted
		c.load = nil
		c.mu.Unlock()
		c.log.Error("initial load failed", Fields{"err": err})
		c.hooks.LoadFailed(c.name, err)
		f.resolve(err)
		return
	}

	took := time.Since(start)
	c.log.Info("initial load completed", Fields{
		"from_store": fromStore, "seeded": seeded, "took": took,
	})
	c.hooks.LoadCompleted(c.name, fromStore, seeded, took)
	f.resolve(nil)
}

// merge applies the initial load. Anything already cached beats the store,
// and the store beats seed defaults.
func (c *cache) merge(pairs []store.Pair) (fromStore, seeded int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Loading {
		panic(fmt.Errorf("%w: merge in state %v", ErrInvariant, c.state))
	}
	for _, p := range pairs {
		if c.items.SetIfAbsent(p.Key, p.Value) {
			fromStore++
		}
	}
	for _, p := range c.seed {
		if c.items.SetIfAbsent(p.Key, p.Value) {
			seeded++
		}
	}
	c.state = Loaded
	return fromStore, seeded
}

// gateLocked lets op through once loaded; otherwise it starts the load if
// needed and returns a *PendingError carrying it. Caller holds c.mu.
func (c *cache) gateLocked(op string) error {
	if c.closed {
		return ErrClosed
	}
	if c.state == Loaded {
		return nil
	}
	return &PendingError{Op: op, Load: c.startLoadLocked()}
}

func (c *cache) GetItem(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items.Get(key)
}

func (c *cache) SetItem(key, value string) error {
	_, err := c.SetItemFuture(key, value)
	return err
}

func (c *cache) SetItemFuture(key, value string) (*Future, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.gateLocked("set"); err != nil {
		return nil, err
	}
	c.items.Set(key, value)
	c.touchLocked(key)
	return c.eng.persist(opPut, key, value), nil
}

func (c *cache) RemoveItem(key string) error {
	_, err := c.RemoveItemFuture(key)
	return err
}

func (c *cache) RemoveItemFuture(key string) (*Future, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.gateLocked("remove"); err != nil {
		return nil, err
	}
	c.items.Delete(key)
	c.touchLocked(key)
	return c.eng.persist(opDelete, key, ""), nil
}

func (c *cache) ItemExists(key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.gateLocked("exists"); err != nil {
		return false, err
	}
	return c.items.Has(key), nil
}

func (c *cache) Keys() (iter.Seq[string], error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.gateLocked("keys"); err != nil {
		return nil, err
	}
	snapshot := c.items.Keys()
	return func(yield func(string) bool) {
		for _, k := range snapshot {
			if !yield(k) {
				return
			}
		}
	}, nil
}

// touchLocked records a local mutation of key for any Reload in flight.
func (c *cache) touchLocked(key string) {
	if c.reloading[key] > 0 {
		c.dirty[key] = true
	}
}

func (c *cache) Ready(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == Loaded {
		c.mu.Unlock()
		return nil
	}
	f := c.startLoadLocked()
	c.mu.Unlock()
	return f.Wait(ctx)
}

func (c *cache) Reload(ctx context.Context, key string) (string, bool, error) {
	if err := c.Ready(ctx); err != nil {
		return "", false, err
	}

	c.mu.Lock()
	c.reloading[key]++
	c.mu.Unlock()

	v, ok, err := c.eng.fetch(ctx, key)

	c.mu.Lock()
	defer c.mu.Unlock()
	dirty := c.dirty[key]
	if c.reloading[key]--; c.reloading[key] == 0 {
		delete(c.reloading, key)
		delete(c.dirty, key)
	}
	if err != nil {
		return "", false, err
	}

	outcome := c.reconcileLocked(key, v, ok, dirty)
	c.log.Debug("reload reconciled", Fields{"key": key, "outcome": outcome})
	c.hooks.Reconciled(key, outcome)
	return v, ok, nil
}

func (c *cache) reconcileLocked(key, v string, ok, dirty bool) string {
	if dirty {
		// a local write landed while the fetch was in flight and wins
		return "kept_local"
	}
	cur, had := c.items.Get(key)
	switch {
	case ok && had && cur == v:
		return "unchanged"
	case ok:
		c.items.Set(key, v)
		return "updated"
	case had:
		c.items.Delete(key)
		return "removed"
	default:
		return "absent"
	}
}

func (c *cache) WaitForCommit(ctx context.Context) error {
	if err := c.eng.pending.Wait(ctx); err != nil {
		return err
	}
	if !c.strict {
		return nil
	}
	c.failMu.Lock()
	failed := c.failures
	c.failures = nil
	c.failMu.Unlock()
	if len(failed) == 0 {
		return nil
	}
	return &CommitError{Failed: failed}
}

func (c *cache) recordFailure(err *BackendError) {
	c.failMu.Lock()
	c.failures = append(c.failures, err)
	c.failMu.Unlock()
}

func (c *cache) State() LoadState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *cache) Pending() int { return c.eng.pending.Count() }
func (c *cache) Kind() string { return c.kind }
func (c *cache) Name() string { return c.name }

func (c *cache) Close(ctx context.Context) error {
	c.mu.Lock()
	first := !c.closed
	c.closed = true
	c.mu.Unlock()
	if first {
		c.log.Debug("closing cache", Fields{"pending": c.Pending()})
	}
	return c.eng.close(ctx)
}
