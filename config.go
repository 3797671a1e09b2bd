// config.go: configuration for the memo coordinator
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package memo

import (
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
)

// CacheStrategyKind selects which cache Strategy a Coordinator uses.
type CacheStrategyKind int

const (
	// StrategyDefault is per-entry TTL with no size bound (strategy_default.go).
	StrategyDefault CacheStrategyKind = iota
	// StrategyEviction is byte-bounded LRU with optional per-entry TTL
	// (strategy_eviction.go).
	StrategyEviction
)

// Unbounded is the sentinel for an infinite MaxThreshold (spec.md §6:
// "bytes or the sentinel for infinity").
const Unbounded int64 = -1

// Default tunables, named the way the teacher names its DefaultMaxSize /
// DefaultWindowRatio constants.
const (
	DefaultMaxWaiters    = 1024
	DefaultWaiterSleepMs = 5
	DefaultExpiresInMs   = int64(0) // 0 == never expires
)

// Settings holds configuration parameters for a Coordinator, mirroring
// spec.md §6's configuration record.
type Settings struct {
	// CacheStrategy selects Default or Eviction. Default: StrategyDefault.
	CacheStrategy CacheStrategyKind

	// MaxThreshold is the byte budget for the Eviction strategy, or
	// Unbounded. Ignored by the Default strategy. Default: Unbounded.
	MaxThreshold int64

	// MinThreshold is the byte floor GarbageCollect trims down to;
	// required (and validated) whenever MaxThreshold is finite.
	MinThreshold int64

	// MaxWaiters bounds the number of parked waiters per Running entry.
	// Values <= 0 are treated as 1. Default: DefaultMaxWaiters.
	MaxWaiters int

	// WaiterSleepMs is the backoff sleep a waiter that hit the cap uses
	// before re-dispatching. Must be >= 0. Default: DefaultWaiterSleepMs.
	WaiterSleepMs int

	// DefaultExpiresIn is the expires_in applied when a call site omits
	// Options.ExpiresIn, in milliseconds. 0 means never expires.
	DefaultExpiresIn int64

	// Logger is used for debugging and monitoring. Default: NoOpLogger.
	Logger Logger

	// TimeProvider supplies current time for TTL math and metrics
	// timestamps. Default: system time via go-timecache.
	TimeProvider TimeProvider

	// MetricsCollector collects operation metrics. Default: NoOpMetricsCollector.
	MetricsCollector MetricsCollector

	// liveDefaultExpiresIn, when set by a Coordinator at construction
	// time, is consulted by the cache strategies instead of
	// DefaultExpiresIn directly, letting HotSettings change the default
	// TTL on a running Coordinator (hot-reload.go).
	liveDefaultExpiresIn *atomic.Int64
}

// Validate normalizes Settings in place, applying sensible defaults
// rather than rejecting the input — the same posture as the teacher's
// Config.Validate. It returns an error only for settings that cannot be
// defaulted safely (a finite MaxThreshold with no MinThreshold, or a
// negative DefaultExpiresIn).
//
// Defaults applied:
//   - MaxThreshold: Unbounded if negative and not already Unbounded.
//   - MaxWaiters: 1 if <= 0.
//   - WaiterSleepMs: DefaultWaiterSleepMs if < 0.
//   - Logger: NoOpLogger{} if nil.
//   - TimeProvider: systemTimeProvider{} if nil.
//   - MetricsCollector: NoOpMetricsCollector{} if nil.
func (s *Settings) Validate() error {
	if s.MaxThreshold < 0 && s.MaxThreshold != Unbounded {
		s.MaxThreshold = Unbounded
	}

	if s.MaxThreshold != Unbounded && s.MinThreshold <= 0 {
		return NewErrInvalidThreshold(s.MaxThreshold, s.MinThreshold)
	}

	if s.MaxWaiters <= 0 {
		s.MaxWaiters = 1
	}

	if s.WaiterSleepMs < 0 {
		s.WaiterSleepMs = DefaultWaiterSleepMs
	}

	if s.DefaultExpiresIn < 0 {
		return NewErrInvalidExpiresIn(s.DefaultExpiresIn)
	}

	if s.Logger == nil {
		s.Logger = NoOpLogger{}
	}

	if s.TimeProvider == nil {
		s.TimeProvider = &systemTimeProvider{}
	}

	if s.MetricsCollector == nil {
		s.MetricsCollector = NoOpMetricsCollector{}
	}

	return nil
}

// DefaultSettings returns Settings with sensible defaults: Default
// strategy, unbounded threshold, DefaultMaxWaiters, no expiry.
func DefaultSettings() Settings {
	return Settings{
		CacheStrategy:    StrategyDefault,
		MaxThreshold:     Unbounded,
		MaxWaiters:       DefaultMaxWaiters,
		WaiterSleepMs:    DefaultWaiterSleepMs,
		DefaultExpiresIn: DefaultExpiresInMs,
		Logger:           NoOpLogger{},
		TimeProvider:     &systemTimeProvider{},
		MetricsCollector: NoOpMetricsCollector{},
	}
}

// systemTimeProvider is the default time provider, using go-timecache's
// cached clock instead of time.Now() on every call.
type systemTimeProvider struct{}

func (t *systemTimeProvider) Now() int64 {
	return timecache.CachedTimeNano()
}

// nowMs returns the current time in milliseconds, the unit TTL math in
// the strategies is expressed in.
func nowMs(tp TimeProvider) int64 {
	return tp.Now() / int64(time.Millisecond)
}

// effectiveDefaultExpiresIn returns the DefaultExpiresIn currently in
// effect, preferring the live atomic a Coordinator may have wired in
// over the static struct field.
func (s *Settings) effectiveDefaultExpiresIn() int64 {
	if s.liveDefaultExpiresIn != nil {
		return s.liveDefaultExpiresIn.Load()
	}
	return s.DefaultExpiresIn
}
