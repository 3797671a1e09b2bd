// Package memo provides a concurrent memoization engine: it computes the
// value of a caller-supplied thunk at most once per key across a process,
// even under concurrent callers, and exposes policies to invalidate
// entries and bound memory usage by eviction.
//
// # Overview
//
// The engine is built around a Coordinator that implements a per-key
// state machine (absent -> running -> completed) on top of a pluggable
// backing store and a pluggable cache Strategy:
//
//	coord := memo.NewCoordinator(memo.DefaultSettings())
//
//	value, err := coord.GetOrRun("user:123", func() (interface{}, error) {
//	    return fetchUserFromDB(123)
//	}, memo.Options{})
//
// Concurrent callers racing on the same key cause exactly one of them to
// become the "runner" (it executes the thunk); the rest become "waiters"
// that park until the runner completes or fails, then re-dispatch.
//
// # Cache strategies
//
// Two strategies are provided:
//
//   - Default: per-entry TTL, swept on read and by GarbageCollect.
//   - Eviction: byte-bounded LRU (ranked by a read-history counter) with
//     an optional per-entry TTL enforced via an ordered expiration index.
//
// # Primary vs persistent
//
// Every call site selects which backing store variant to use via
// Options.Cache: Primary (an in-process concurrent map, process
// lifetime) or Persistent (a process-global named store, shared by name
// across Coordinator instances). Invalidation and garbage collection
// always act on both.
//
// # Typed API
//
// Typed[K, V] wraps a Coordinator with compile-time key/value types:
//
//	cache := memo.NewTyped[string, User](memo.DefaultSettings())
//	user, err := cache.GetOrRun("user:123", func() (User, error) {
//	    return fetchUser(123)
//	}, memo.Options{})
//
// # Concurrency model
//
// The Coordinator is lock-free: every state transition is a single CAS
// on an immutable row value. Losing callers never corrupt state — they
// simply observe the new world and re-enter the dispatch loop. There is
// exactly one suspension point (a waiter parked on a runner's completion
// signal, bounded at 5 seconds as a liveness patch, not a cancellation).
//
// # Error handling
//
// Errors are structured via github.com/agilira/go-errors. A thunk
// failure is re-raised to its original caller unwrapped, preserving its
// kind; a runner that vanishes mid-computation (observed via an abnormal
// goroutine unwind) is logged as an ErrCodeRunnerDeath error by whichever
// waiter wins the race to clear the entry, and is not returned to any
// caller. No error is ever silently swallowed
// for the original caller; waiters that observe a failure simply
// re-dispatch.
//
// # Non-goals
//
// No distributed caching (single-node, in-process only), no durability
// across process restarts, no strict LRU ordering under contention (the
// eviction strategy is best-effort by recency rank), and no fairness
// among waiters (wakeups are broadcast, not queued).
package memo
