// Package asynchook moves Hooks calls off the cache's hot path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{WriteOKEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	s, _ := synckv.New(ctx, synckv.Options{
//	    Name:  "prefs",
//	    Store: st,
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
//
// Events are dropped, not queued, when the buffer is full. Dropped reports
// how many.
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/synckv"
)

type Hooks struct {
	inner   synckv.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex // guards closed against sends
	closed  bool
	dropped atomic.Uint64
}

var _ synckv.Hooks = (*Hooks)(nil)

func New(inner synckv.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close delivers queued events and stops the workers. Events raised after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped returns how many events were discarded because the queue was full
// or the hooks were closed.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default: // drop
		h.dropped.Add(1)
	}
}

func (h *Hooks) LoadCompleted(name string, fromStore, seeded int, took time.Duration) {
	h.try(func() { h.inner.LoadCompleted(name, fromStore, seeded, took) })
}
func (h *Hooks) LoadFailed(name string, err error) {
	h.try(func() { h.inner.LoadFailed(name, err) })
}
func (h *Hooks) WriteDone(op, key string, err error, took time.Duration) {
	h.try(func() { h.inner.WriteDone(op, key, err, took) })
}
func (h *Hooks) Reconciled(key, outcome string) { h.try(func() { h.inner.Reconciled(key, outcome) }) }
func (h *Hooks) PendingChanged(name string, n int) {
	h.try(func() { h.inner.PendingChanged(name, n) })
}
