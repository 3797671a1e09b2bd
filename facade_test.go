// facade_test.go: unit tests for the invalidate/GC façade
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package memo

import (
	"fmt"
	"testing"
	"time"
)

func TestCoordinator_InvalidateAll_ActsOnBothStores(t *testing.T) {
	name := fmt.Sprintf("facade-test-%d", time.Now().UnixNano())
	coord := NewNamedCoordinator(name, DefaultSettings())

	coord.GetOrRun("a", func() (interface{}, error) { return 1, nil }, Options{Cache: Primary})
	coord.GetOrRun("b", func() (interface{}, error) { return 2, nil }, Options{Cache: Persistent})

	removed := coord.InvalidateAll()
	if removed != 2 {
		t.Fatalf("expected InvalidateAll to remove 2 entries total (1 primary + 1 persistent), got %d", removed)
	}

	var calls int
	coord.GetOrRun("a", func() (interface{}, error) { calls++; return 1, nil }, Options{Cache: Primary})
	coord.GetOrRun("b", func() (interface{}, error) { calls++; return 2, nil }, Options{Cache: Persistent})
	if calls != 2 {
		t.Fatalf("expected both entries to require recomputation after InvalidateAll, thunk ran %d times", calls)
	}
}

func TestCoordinator_Invalidate_NormalizesKeyAndHitsBothStores(t *testing.T) {
	coord := NewCoordinator(DefaultSettings())
	coord.GetOrRun(map[string]interface{}{"a": 1, "b": 2}, func() (interface{}, error) { return "v", nil }, Options{Cache: Primary})

	// Equal-by-value but differently-ordered key must still hit.
	removed := coord.Invalidate(map[string]interface{}{"b": 2, "a": 1})
	if removed != 1 {
		t.Fatalf("expected 1 removed (primary only, nothing on persistent), got %d", removed)
	}
}

func TestCoordinator_GarbageCollect_ActsOnBothStores(t *testing.T) {
	tp := &fakeTimeProvider{currentTime: 1_000_000_000}
	settings := DefaultSettings()
	settings.TimeProvider = tp
	name := fmt.Sprintf("facade-gc-test-%d", time.Now().UnixNano())
	coord := NewNamedCoordinator(name, settings)

	coord.GetOrRun("a", func() (interface{}, error) { return 1, nil }, Options{Cache: Primary, ExpiresIn: 10})
	coord.GetOrRun("b", func() (interface{}, error) { return 2, nil }, Options{Cache: Persistent, ExpiresIn: 10})

	tp.Advance(50 * time.Millisecond)

	removed := coord.GarbageCollect()
	if removed != 2 {
		t.Fatalf("expected GarbageCollect to sweep both expired entries, got %d removed", removed)
	}
}
