// generic.go: type-safe Typed[K, V] wrapper over the normalized-key core
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package memo

import "context"

// Typed wraps a Coordinator with compile-time key and value types,
// avoiding interface{} type assertions at call sites (spec.md's
// supplemented Typed[K, V] feature).
type Typed[K comparable, V any] struct {
	inner *Coordinator
}

// NewTyped builds a Typed[K, V] over a fresh Coordinator.
func NewTyped[K comparable, V any](settings Settings) *Typed[K, V] {
	return &Typed[K, V]{inner: NewCoordinator(settings)}
}

// NewNamedTyped builds a Typed[K, V] whose persistent store is shared by
// name with other Coordinators (typed or not) using the same name.
func NewNamedTyped[K comparable, V any](name string, settings Settings) *Typed[K, V] {
	return &Typed[K, V]{inner: NewNamedCoordinator(name, settings)}
}

// GetOrRun is the generic counterpart of Coordinator.GetOrRun.
func (t *Typed[K, V]) GetOrRun(key K, thunk func() (V, error), opts Options) (V, error) {
	var zero V
	value, err := t.inner.GetOrRun(key, func() (interface{}, error) {
		return thunk()
	}, opts)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(V)
	if !ok {
		return zero, NewErrInternal("Typed.GetOrRun", nil)
	}
	return typed, nil
}

// GetOrRunWithContext is the generic counterpart of
// Coordinator.GetOrRunWithContext.
func (t *Typed[K, V]) GetOrRunWithContext(ctx context.Context, key K, thunk func(context.Context) (V, error), opts Options) (V, error) {
	var zero V
	value, err := t.inner.GetOrRunWithContext(ctx, key, func(ctx context.Context) (interface{}, error) {
		return thunk(ctx)
	}, opts)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(V)
	if !ok {
		return zero, NewErrInternal("Typed.GetOrRunWithContext", nil)
	}
	return typed, nil
}

// Invalidate removes key from both backing stores.
func (t *Typed[K, V]) Invalidate(key K) int { return t.inner.Invalidate(key) }

// InvalidateAll removes every entry from both backing stores.
func (t *Typed[K, V]) InvalidateAll() int { return t.inner.InvalidateAll() }

// GarbageCollect sweeps both backing stores.
func (t *Typed[K, V]) GarbageCollect() int { return t.inner.GarbageCollect() }

// Coordinator returns the untyped Coordinator backing this Typed cache,
// for callers that need the interface{}-keyed API alongside the typed one.
func (t *Typed[K, V]) Coordinator() *Coordinator { return t.inner }
