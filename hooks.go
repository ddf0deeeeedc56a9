package synckv

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths, some while holding internal locks.
type Hooks interface {
	// The initial load merged fromStore backend entries and seeded seed defaults.
	LoadCompleted(name string, fromStore, seeded int, took time.Duration)

	// The initial load failed; the next gated call retries it.
	LoadFailed(name string, err error)

	// A background write finished. op ∈ {"put", "delete"}; err is nil on success.
	WriteDone(op, key string, err error, took time.Duration)

	// Reload compared the backend with the cache.
	// outcome ∈ {"unchanged", "updated", "removed", "absent", "kept_local"}
	Reconciled(key, outcome string)

	// The pending-write counter changed.
	PendingChanged(name string, pending int)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) LoadCompleted(string, int, int, time.Duration)  {}
func (NopHooks) LoadFailed(string, error)                       {}
func (NopHooks) WriteDone(string, string, error, time.Duration) {}
func (NopHooks) Reconciled(string, string)                      {}
func (NopHooks) PendingChanged(string, int)                     {}
