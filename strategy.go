// strategy.go: pluggable cache strategy capability trait
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package memo

// ReadOutcome is the result of a Strategy.OnRead call (spec.md §2 item 3:
// "on_read(key, value, ctx) -> Ok | Retry").
type ReadOutcome int

const (
	// ReadOK means the cached value is still valid and may be returned.
	ReadOK ReadOutcome = iota
	// ReadRetry means the entry was invalidated as part of the read (TTL
	// hit) and the caller must re-dispatch (spec.md §7 StrategyRetry).
	ReadRetry
)

// StoreSelector picks which BackingStore variant a call site targets
// (spec.md §6 "cache: primary | persistent").
type StoreSelector int

const (
	Primary StoreSelector = iota
	Persistent
)

// Options are the call-site options accepted by Coordinator.GetOrRun
// (spec.md §6).
type Options struct {
	// Cache selects the backing store variant. Default: Primary.
	Cache StoreSelector

	// ExpiresIn is the TTL in milliseconds attached to the entry at
	// insert time. 0 means "use Settings.DefaultExpiresIn".
	ExpiresIn int64

	// Permanent suppresses read-history recording on the Eviction
	// strategy, exempting the entry from recency-based eviction.
	Permanent bool
}

// Strategy is the capability trait of spec.md §2 item 3: a cache
// strategy owns a BackingStore and the bookkeeping (TTL, read-history,
// size accounting) that governs what stays cached.
type Strategy interface {
	// Init binds the strategy to settings and its backing store. Called
	// once by the owning Coordinator before any other method.
	Init(settings Settings, store BackingStore)

	// OnCache is invoked at cache-insert time and returns the opaque
	// context stored alongside the value (spec.md §3 "Context").
	OnCache(key Normalized, value interface{}, opts Options) interface{}

	// OnRead is invoked on every successful lookup of a Completed row.
	// On ReadRetry the strategy has already removed the entry.
	OnRead(key Normalized, r *row) ReadOutcome

	// InvalidateAll removes every entry, returning the count removed.
	InvalidateAll() int

	// Invalidate removes a single key, returning 0 or 1.
	Invalidate(key Normalized) int

	// GarbageCollect sweeps expired and/or over-threshold entries,
	// returning the count removed.
	GarbageCollect() int

	// Store returns the BackingStore this strategy instance operates on.
	Store() BackingStore

	// Twin returns the sibling Strategy instance bound to the
	// persistent-store variant (or the primary variant, if this
	// instance is itself the persistent twin).
	Twin() Strategy
}

// newStrategyPair constructs a primary/persistent pair of strategy
// instances of the given kind, wires them as each other's Twin, and
// Init's both. persistentName selects the process-wide namedStore the
// persistent half shares with other Coordinators of the same name.
func newStrategyPair(kind CacheStrategyKind, settings Settings, persistentName string) (primary, persistent Strategy) {
	switch kind {
	case StrategyEviction:
		p := newEvictionStrategy()
		s := newEvictionStrategy()
		p.Init(settings, newMemStore())
		s.Init(settings, namedStoreByName(persistentName))
		p.twin, s.twin = s, p
		return p, s
	default:
		p := newDefaultStrategy()
		s := newDefaultStrategy()
		p.Init(settings, newMemStore())
		s.Init(settings, namedStoreByName(persistentName))
		p.twin, s.twin = s, p
		return p, s
	}
}
