// generic_test.go: unit tests for the Typed[K, V] wrapper
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package memo

import (
	"context"
	"errors"
	"testing"
)

type testUser struct {
	ID   int
	Name string
}

func TestTyped_GetOrRun_MemoizesByTypedKey(t *testing.T) {
	cache := NewTyped[int, testUser](DefaultSettings())

	var calls int
	load := func() (testUser, error) {
		calls++
		return testUser{ID: 1, Name: "alice"}, nil
	}

	u1, err := cache.GetOrRun(1, load, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u2, err := cache.GetOrRun(1, load, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if u1 != u2 {
		t.Fatalf("expected the same memoized value, got %v and %v", u1, u2)
	}
	if calls != 1 {
		t.Fatalf("expected the loader to run once, ran %d times", calls)
	}
}

func TestTyped_GetOrRun_PropagatesError(t *testing.T) {
	cache := NewTyped[string, int](DefaultSettings())
	sentinel := errors.New("load failed")

	_, err := cache.GetOrRun("k", func() (int, error) { return 0, sentinel }, Options{})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected the sentinel error to propagate, got %v", err)
	}
}

func TestTyped_GetOrRunWithContext(t *testing.T) {
	cache := NewTyped[string, string](DefaultSettings())
	v, err := cache.GetOrRunWithContext(context.Background(), "k", func(ctx context.Context) (string, error) {
		return "v", nil
	}, Options{})
	if err != nil || v != "v" {
		t.Fatalf("expected (\"v\", nil), got (%v, %v)", v, err)
	}
}

func TestTyped_InvalidateAndGC(t *testing.T) {
	cache := NewTyped[string, int](DefaultSettings())
	cache.GetOrRun("k", func() (int, error) { return 1, nil }, Options{})

	if n := cache.Invalidate("k"); n != 1 {
		t.Fatalf("expected 1 invalidated, got %d", n)
	}

	var calls int
	cache.GetOrRun("k", func() (int, error) { calls++; return 2, nil }, Options{})
	if calls != 1 {
		t.Fatal("expected the entry to be recomputed after Invalidate")
	}

	// GarbageCollect must not panic even with nothing to collect.
	cache.GarbageCollect()
}

func TestTyped_CoordinatorEscapeHatch(t *testing.T) {
	cache := NewTyped[string, int](DefaultSettings())
	if cache.Coordinator() == nil {
		t.Fatal("expected Coordinator() to expose the underlying untyped Coordinator")
	}
}
