// strategy_eviction.go: byte-bounded LRU cache strategy with optional TTL
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package memo

import (
	"math"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/btree"
)

// evictionContext is the Context an evictionStrategy attaches at insert
// time (spec.md §3: "Eviction strategy: { permanent: bool }"), extended
// with the bookkeeping the strategy needs to reverse an insert cheaply.
type evictionContext struct {
	permanent   bool
	expiresAtMs int64 // math.MaxInt64 means never
	sizeBytes   int64
	expSeq      int64 // disambiguates (expiresAtMs, seq) in the expiration index
}

// expItem orders the expiration index ascending by expiry, the
// sequence number disambiguating ties (spec.md §3 "Expiration index").
type expItem struct {
	expiresAtMs int64
	seq         int64
	key         Normalized
}

func lessExpItem(a, b expItem) bool {
	if a.expiresAtMs != b.expiresAtMs {
		return a.expiresAtMs < b.expiresAtMs
	}
	return a.seq < b.seq
}

// recencyItem orders the read-history index ascending by last-read
// counter, so the minimum is always the least-recently-read entry.
type recencyItem struct {
	counter int64
	key     Normalized
}

func lessRecencyItem(a, b recencyItem) bool {
	if a.counter != b.counter {
		return a.counter < b.counter
	}
	return a.key.canon < b.key.canon
}

// evictionStrategy is the Eviction cache strategy: a byte budget
// enforced by recency rank, plus an optional per-entry TTL (spec.md §2
// item 3 "Eviction strategy"). The read-history and expiration index
// live alongside the backing store rather than inside row.completed.ctx,
// matching spec.md §3: they are mutated only at insert, successful
// read, and invalidation/GC, never part of the CAS'd row itself.
type evictionStrategy struct {
	settings Settings
	store    BackingStore
	twin     Strategy

	mu          sync.Mutex
	readHistory map[Normalized]int64
	recency     *btree.BTreeG[recencyItem]
	expiration  *btree.BTreeG[expItem]
	readCounter int64
	expSeqGen   int64
	usedBytes   int64
}

func newEvictionStrategy() *evictionStrategy {
	return &evictionStrategy{
		readHistory: make(map[Normalized]int64),
		recency:     btree.NewG(32, lessRecencyItem),
		expiration:  btree.NewG(32, lessExpItem),
	}
}

func (e *evictionStrategy) Init(settings Settings, store BackingStore) {
	e.settings = settings
	e.store = store
}

// sizeOf estimates the byte footprint of a cached value. This is a
// heuristic, not an exact accounting (Go offers no cheap exact sizeof
// for arbitrary interface values) — strings and byte slices count their
// actual length, other slices, arrays and maps count 8 bytes per
// element, and everything else falls back to its static type size; all
// add a fixed per-entry overhead.
func sizeOf(v interface{}) int64 {
	const overhead = 48 // approximate map/interface/pointer bookkeeping
	switch x := v.(type) {
	case string:
		return int64(len(x)) + overhead
	case []byte:
		return int64(len(x)) + overhead
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return int64(rv.Len())*8 + overhead
	case reflect.Invalid:
		return overhead
	default:
		return int64(rv.Type().Size()) + overhead
	}
}

func (e *evictionStrategy) OnCache(key Normalized, value interface{}, opts Options) interface{} {
	expiresIn := opts.ExpiresIn
	if expiresIn == 0 {
		expiresIn = e.settings.effectiveDefaultExpiresIn()
	}
	expiresAtMs := int64(math.MaxInt64)
	if expiresIn > 0 {
		expiresAtMs = nowMs(e.settings.TimeProvider) + expiresIn
	}
	sz := sizeOf(value)

	if e.settings.MaxThreshold != Unbounded && atomic.LoadInt64(&e.usedBytes)+sz > e.settings.MaxThreshold {
		e.GarbageCollect()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.expSeqGen++
	seq := e.expSeqGen
	if expiresAtMs != math.MaxInt64 {
		e.expiration.ReplaceOrInsert(expItem{expiresAtMs: expiresAtMs, seq: seq, key: key})
	}
	if !opts.Permanent {
		e.readCounter++
		e.readHistory[key] = e.readCounter
		e.recency.ReplaceOrInsert(recencyItem{counter: e.readCounter, key: key})
	}
	atomic.AddInt64(&e.usedBytes, sz)

	return evictionContext{
		permanent:   opts.Permanent,
		expiresAtMs: expiresAtMs,
		sizeBytes:   sz,
		expSeq:      seq,
	}
}

func (e *evictionStrategy) OnRead(key Normalized, r *row) ReadOutcome {
	ctx, ok := r.completed.ctx.(evictionContext)
	if !ok {
		return ReadOK
	}

	if e.clearExpired(key) {
		return ReadRetry
	}

	if !ctx.permanent {
		e.mu.Lock()
		if old, ok := e.readHistory[key]; ok {
			e.recency.Delete(recencyItem{counter: old, key: key})
		}
		e.readCounter++
		e.readHistory[key] = e.readCounter
		e.recency.ReplaceOrInsert(recencyItem{counter: e.readCounter, key: key})
		e.mu.Unlock()
	}

	return ReadOK
}

// clearExpired walks the expiration index ascending from the head,
// invalidating every entry whose deadline has passed and stopping at the
// first head that hasn't (spec.md §4.5 "clear_expired"). It tolerates a
// head entry whose backing row already vanished (re-reads the head on an
// empty lookup) and reports whether readKey itself was among the evicted,
// so OnRead can turn that into a ReadRetry.
func (e *evictionStrategy) clearExpired(readKey Normalized) bool {
	now := nowMs(e.settings.TimeProvider)
	evictedReadKey := false

	for {
		e.mu.Lock()
		item, ok := e.expiration.Min()
		if !ok || item.expiresAtMs >= now {
			e.mu.Unlock()
			return evictedReadKey
		}
		e.mu.Unlock()

		r := e.store.Lookup(item.key)
		if r == nil || r.completed == nil {
			// Head entry's row is already gone (e.g. explicit
			// invalidate beat us to it); drop the stale index row
			// and re-read the new head.
			e.mu.Lock()
			e.expiration.Delete(item)
			e.mu.Unlock()
			continue
		}
		ctx, _ := r.completed.ctx.(evictionContext)
		if e.store.DeleteIfEqual(item.key, r) {
			e.removeBookkeeping(item.key, ctx)
			if item.key == readKey {
				evictedReadKey = true
			}
		} else {
			e.mu.Lock()
			e.expiration.Delete(item)
			e.mu.Unlock()
		}
	}
}

// removeBookkeeping clears the auxiliary indices for key, whose ctx was
// the Context most recently attached to it. Must be called only after
// the row itself has been removed from the backing store. Best-effort:
// a concurrent OnRead landing between the eviction decision and this
// call can leave a stale readHistory/recency entry for a few
// microseconds; it self-heals on the entry's next insert or eviction
// pass, consistent with spec.md's "no strict LRU accuracy under
// contention" Non-goal.
func (e *evictionStrategy) removeBookkeeping(key Normalized, ctx evictionContext) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ctx.expiresAtMs != math.MaxInt64 {
		e.expiration.Delete(expItem{expiresAtMs: ctx.expiresAtMs, seq: ctx.expSeq, key: key})
	}
	if old, ok := e.readHistory[key]; ok {
		e.recency.Delete(recencyItem{counter: old, key: key})
		delete(e.readHistory, key)
	}
	atomic.AddInt64(&e.usedBytes, -ctx.sizeBytes)
}

func (e *evictionStrategy) InvalidateAll() int {
	removed := e.store.SelectDelete(func(_ Normalized, r *row) bool {
		return r.completed == nil // keep Running rows
	})
	e.mu.Lock()
	e.readHistory = make(map[Normalized]int64)
	e.recency = btree.NewG(32, lessRecencyItem)
	e.expiration = btree.NewG(32, lessExpItem)
	atomic.StoreInt64(&e.usedBytes, 0)
	e.mu.Unlock()
	return removed
}

func (e *evictionStrategy) Invalidate(key Normalized) int {
	r := e.store.Lookup(key)
	if r == nil || r.completed == nil {
		return 0
	}
	ctx, _ := r.completed.ctx.(evictionContext)
	if !e.store.DeleteIfEqual(key, r) {
		return 0
	}
	e.removeBookkeeping(key, ctx)
	return 1
}

// GarbageCollect trims least-recently-read entries until usedBytes <=
// MinThreshold or only permanent entries remain (spec.md §8 "Eviction
// monotonicity"). It is a no-op whenever MaxThreshold is Unbounded or
// usage is already at or under MinThreshold (spec.md §4.5 "garbage_collect:
// if max_threshold = inf, no-op (0); if used_bytes <= min_threshold,
// no-op (0)"). TTL expiry is swept opportunistically by OnRead's
// clearExpired, not by GarbageCollect — the two are distinct operations
// in spec.md §4.5.
func (e *evictionStrategy) GarbageCollect() int {
	if e.settings.MaxThreshold == Unbounded {
		return 0
	}

	removed := 0
	for atomic.LoadInt64(&e.usedBytes) > e.settings.MinThreshold {
		e.mu.Lock()
		item, ok := e.recency.Min()
		if !ok {
			e.mu.Unlock()
			break // only permanent entries remain
		}
		e.mu.Unlock()

		r := e.store.Lookup(item.key)
		if r == nil || r.completed == nil {
			e.mu.Lock()
			e.recency.Delete(item)
			delete(e.readHistory, item.key)
			e.mu.Unlock()
			continue
		}
		ctx, _ := r.completed.ctx.(evictionContext)
		if e.store.DeleteIfEqual(item.key, r) {
			e.removeBookkeeping(item.key, ctx)
			removed++
		} else {
			e.mu.Lock()
			e.recency.Delete(item)
			delete(e.readHistory, item.key)
			e.mu.Unlock()
		}
	}

	return removed
}

func (e *evictionStrategy) Store() BackingStore { return e.store }
func (e *evictionStrategy) Twin() Strategy      { return e.twin }
