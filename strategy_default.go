// strategy_default.go: per-entry TTL cache strategy
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package memo

import "math"

// defaultContext is the Context a defaultStrategy attaches at insert
// time (spec.md §3: "Default strategy: expired_at: monotonic-ms | inf").
type defaultContext struct {
	expiresAtMs int64 // math.MaxInt64 means never
}

// defaultStrategy is the Default cache strategy: TTL per entry, GC
// sweeps expired entries. It keeps no size accounting and never evicts
// for space, only for expiry (spec.md §2 item 3 "Default strategy").
type defaultStrategy struct {
	settings Settings
	store    BackingStore
	twin     Strategy
}

func newDefaultStrategy() *defaultStrategy { return &defaultStrategy{} }

func (d *defaultStrategy) Init(settings Settings, store BackingStore) {
	d.settings = settings
	d.store = store
}

func (d *defaultStrategy) OnCache(key Normalized, value interface{}, opts Options) interface{} {
	expiresIn := opts.ExpiresIn
	if expiresIn == 0 {
		expiresIn = d.settings.effectiveDefaultExpiresIn()
	}
	if expiresIn <= 0 {
		return defaultContext{expiresAtMs: math.MaxInt64}
	}
	return defaultContext{expiresAtMs: nowMs(d.settings.TimeProvider) + expiresIn}
}

func (d *defaultStrategy) OnRead(key Normalized, r *row) ReadOutcome {
	ctx, ok := r.completed.ctx.(defaultContext)
	if !ok {
		return ReadOK
	}
	if nowMs(d.settings.TimeProvider) < ctx.expiresAtMs {
		return ReadOK
	}
	// TTL hit: clear the entry ourselves, per spec.md §7 StrategyRetry
	// ("an invalidation has already removed the entry").
	d.store.DeleteIfEqual(key, r)
	return ReadRetry
}

func (d *defaultStrategy) InvalidateAll() int {
	return d.store.SelectDelete(func(_ Normalized, r *row) bool { return r.completed == nil })
}

func (d *defaultStrategy) Invalidate(key Normalized) int {
	r := d.store.Lookup(key)
	if r == nil || r.completed == nil {
		return 0
	}
	if d.store.DeleteIfEqual(key, r) {
		return 1
	}
	return 0
}

func (d *defaultStrategy) GarbageCollect() int {
	now := nowMs(d.settings.TimeProvider)
	return d.store.SelectDelete(func(_ Normalized, r *row) bool {
		if r.completed == nil {
			return true // keep Running rows untouched
		}
		ctx, ok := r.completed.ctx.(defaultContext)
		if !ok {
			return true
		}
		return now < ctx.expiresAtMs
	})
}

func (d *defaultStrategy) Store() BackingStore { return d.store }
func (d *defaultStrategy) Twin() Strategy      { return d.twin }
