// Package synckv is a key/value cache with a synchronous API whose every
// mutation is persisted to a slower store in the background.
//
// Components:
//   - Storage: the in-memory cache callers talk to. Reads and writes never
//     wait on the store.
//   - store.Store / store.Conn: the durable backend (file log, Redis,
//     Postgres, in-memory, bigcache).
//   - engine: owns the connection, runs the initial load and the background
//     writes, and counts writes not yet acknowledged.
//   - Typed[V] + codec.Codec[V]: typed values on top of string items.
//
// Initial load:
//
//	Eager       New blocks until the store's contents are merged.
//	EagerAsync  New starts the load and returns.
//	Deferred    the first gated call starts the load.
//
// Until the load completes, SetItem, RemoveItem, ItemExists and Keys return a
// *PendingError holding the load future; wait on it and call again, or wrap
// the call in Retry. On merge, entries already in the cache beat the store,
// and the store beats Options.Seed.
//
// Durability:
//
//	_ = s.SetItem("theme", "dark")  // cached now, persisted later
//	_ = s.WaitForCommit(ctx)        // every write so far acknowledged
//
// WaitForCommit reports completion, not success, unless
// Options.StrictCommit is set. It only covers writes issued before it was
// called.
package synckv
