// metrics.go: observability hook for memo operations
//
// The teacher's doc.go, config.go and cache.go all reference a
// MetricsCollector (RecordSet/RecordGet/RecordDelete/RecordEviction), and
// ship an otel-backed implementation as a separate module, but no file in
// the retrieved pack defines the interface itself. It is reconstructed
// here from its call sites so the same "pluggable, zero overhead by
// default" observability seam survives the port.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package memo

// MetricsCollector is used for collecting operation metrics (latencies,
// hit/miss rates, eviction and invalidation counts). If nil, a
// NoOpMetricsCollector is used (zero overhead).
type MetricsCollector interface {
	// RecordGetOrRun records the latency of a completed GetOrRun call and
	// whether it was served from cache (hit) or required running the
	// thunk (miss).
	RecordGetOrRun(latencyNs int64, hit bool)

	// RecordInvalidate records an invalidation (single-key or bulk),
	// with the number of rows removed.
	RecordInvalidate(removed int)

	// RecordEviction records a single eviction performed by a cache
	// strategy's GarbageCollect.
	RecordEviction()

	// RecordRunnerDeath records a runner observed to have vanished
	// mid-computation (see DESIGN.md's RunnerDeath decision).
	RecordRunnerDeath()
}

// NoOpMetricsCollector is a MetricsCollector that does nothing. Used as
// the default so the hot path never pays for observability it doesn't use.
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) RecordGetOrRun(latencyNs int64, hit bool) {}
func (NoOpMetricsCollector) RecordInvalidate(removed int)             {}
func (NoOpMetricsCollector) RecordEviction()                          {}
func (NoOpMetricsCollector) RecordRunnerDeath()                       {}
