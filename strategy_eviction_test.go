// strategy_eviction_test.go: unit tests for the byte-bounded LRU strategy
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package memo

import (
	"testing"
	"time"
)

func newEvictionStrategyForTest(tp TimeProvider, maxThreshold, minThreshold int64) *evictionStrategy {
	settings := Settings{TimeProvider: tp, MaxThreshold: maxThreshold, MinThreshold: minThreshold}
	_ = settings.Validate()
	s := newEvictionStrategy()
	s.Init(settings, newMemStore())
	return s
}

// cacheAndRead puts key through OnCache then OnRead, the way the
// coordinator would on a completed insert followed by an immediate read,
// so the read-history reflects real usage order.
func cacheAndRead(t *testing.T, s *evictionStrategy, key Normalized, value interface{}, opts Options) *row {
	t.Helper()
	ctx := s.OnCache(key, value, opts)
	r := &row{completed: &completedState{value: value, ctx: ctx}}
	s.store.InsertIfAbsent(key, r)
	if out := s.OnRead(key, r); out != ReadOK {
		t.Fatalf("expected ReadOK immediately after caching %v, got %v", key, out)
	}
	return r
}

func TestEvictionStrategy_NoEvictionWhenUnbounded(t *testing.T) {
	tp := &fakeTimeProvider{currentTime: 1_000_000_000}
	s := newEvictionStrategyForTest(tp, Unbounded, 0)
	for i := 0; i < 50; i++ {
		cacheAndRead(t, s, Normalize(i), "value", Options{})
	}
	if n := s.GarbageCollect(); n != 0 {
		t.Fatalf("GarbageCollect must no-op when MaxThreshold is Unbounded, removed %d", n)
	}
}

func TestEvictionStrategy_GarbageCollect_EvictsLeastRecentlyRead(t *testing.T) {
	tp := &fakeTimeProvider{currentTime: 1_000_000_000}
	// Each entry is a small string; size accounting just needs to be
	// monotone with inserts, not exact (spec.md §9 "Byte accounting").
	// sizeOf("v") == len("v")+48 == 49 bytes; 300 comfortably fits all 5
	// entries during insertion (so OnCache's own admission check never
	// fires), 100 holds exactly 2 once GarbageCollect runs explicitly
	// (spec.md §8 scenario 5: "max_threshold so 5 entries fit, min_threshold
	// holds 2").
	s := newEvictionStrategyForTest(tp, 300, 100)
	keys := make([]Normalized, 5)
	for i := range keys {
		keys[i] = Normalize(i)
		cacheAndRead(t, s, keys[i], "v", Options{})
	}
	// Read key 0 and 1 again, making 2,3,4 the least-recently-read.
	r0 := s.store.Lookup(keys[0])
	r1 := s.store.Lookup(keys[1])
	s.OnRead(keys[0], r0)
	s.OnRead(keys[1], r1)

	s.GarbageCollect()

	if s.store.Lookup(keys[0]) == nil || s.store.Lookup(keys[1]) == nil {
		t.Fatal("the two most recently read entries must survive GC")
	}
	survivors := 0
	for _, k := range keys {
		if s.store.Lookup(k) != nil {
			survivors++
		}
	}
	if survivors != 2 {
		t.Fatalf("expected exactly 2 survivors once usedBytes is trimmed to min_threshold, got %d", survivors)
	}
}

func TestEvictionStrategy_PermanentEntriesSurviveGC(t *testing.T) {
	tp := &fakeTimeProvider{currentTime: 1_000_000_000}
	s := newEvictionStrategyForTest(tp, 400, 10)
	permKey := Normalize("perm")
	cacheAndRead(t, s, permKey, "v", Options{Permanent: true})
	for i := 0; i < 5; i++ {
		cacheAndRead(t, s, Normalize(i), "v", Options{})
	}

	s.GarbageCollect()

	if s.store.Lookup(permKey) == nil {
		t.Fatal("a Permanent entry must never be evicted by recency-based GarbageCollect")
	}
}

func TestEvictionStrategy_TTLExpiryOnRead(t *testing.T) {
	tp := &fakeTimeProvider{currentTime: 1_000_000_000}
	s := newEvictionStrategyForTest(tp, Unbounded, 0)
	key := Normalize("k")
	r := cacheAndRead(t, s, key, "v", Options{ExpiresIn: 10})

	tp.Advance(20 * time.Millisecond)
	if out := s.OnRead(key, r); out != ReadRetry {
		t.Fatal("expired entry must report ReadRetry")
	}
	if s.store.Lookup(key) != nil {
		t.Fatal("expired entry must be removed from the backing store by clearExpired")
	}
}

func TestEvictionStrategy_ClearExpiredSweepsOtherKeysOnAnyRead(t *testing.T) {
	tp := &fakeTimeProvider{currentTime: 1_000_000_000}
	s := newEvictionStrategyForTest(tp, Unbounded, 0)

	expiredKey := Normalize("expired")
	liveKey := Normalize("live")
	cacheAndRead(t, s, expiredKey, "v1", Options{ExpiresIn: 10})
	tp.Advance(20 * time.Millisecond)
	liveRow := cacheAndRead(t, s, liveKey, "v2", Options{ExpiresIn: 10_000})

	// Reading liveKey must opportunistically sweep the already-expired
	// expiredKey out of the index too (spec.md §4.5 clear_expired walks
	// the whole head run, not just the key being read).
	s.OnRead(liveKey, liveRow)

	if s.store.Lookup(expiredKey) != nil {
		t.Fatal("clear_expired must evict every expired head entry, not only the key being read")
	}
}

func TestEvictionStrategy_InvalidateRemovesBookkeeping(t *testing.T) {
	tp := &fakeTimeProvider{currentTime: 1_000_000_000}
	s := newEvictionStrategyForTest(tp, Unbounded, 0)
	key := Normalize("k")
	cacheAndRead(t, s, key, "v", Options{})

	if n := s.Invalidate(key); n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
	if _, ok := s.readHistory[key]; ok {
		t.Fatal("Invalidate must remove the key from read-history")
	}
	if n := s.Invalidate(key); n != 0 {
		t.Fatalf("invalidating an absent key must return 0, got %d", n)
	}
}

func TestEvictionStrategy_InvalidateAll_ClearsHistoryAndKeepsRunning(t *testing.T) {
	tp := &fakeTimeProvider{currentTime: 1_000_000_000}
	s := newEvictionStrategyForTest(tp, Unbounded, 0)
	for i := 0; i < 5; i++ {
		cacheAndRead(t, s, Normalize(i), "v", Options{})
	}
	runningKey := Normalize("inflight")
	runningRow := &row{running: &runningState{runnerID: 1}}
	s.store.InsertIfAbsent(runningKey, runningRow)

	removed := s.InvalidateAll()
	if removed != 5 {
		t.Fatalf("expected 5 completed rows removed, got %d", removed)
	}
	if len(s.readHistory) != 0 {
		t.Fatal("InvalidateAll must clear read-history")
	}
	if s.store.Lookup(runningKey) != runningRow {
		t.Fatal("InvalidateAll must never touch a Running row")
	}
}
