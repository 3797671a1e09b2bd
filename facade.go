// facade.go: invalidation and garbage-collection façade
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package memo

// InvalidateAll removes every entry from both the primary and
// persistent stores, returning the total count removed (spec.md §2
// item 5, §6 "invalidate_all -> count of entries removed from the
// primary + persistent stores").
func (c *Coordinator) InvalidateAll() int {
	removed := c.primary.InvalidateAll() + c.persist.InvalidateAll()
	c.settings.MetricsCollector.RecordInvalidate(removed)
	return removed
}

// Invalidate removes key from both stores, returning 0, 1, or 2
// (spec.md §6 "invalidate(key) -> 0 or 1 (or sum thereof)").
func (c *Coordinator) Invalidate(key interface{}) int {
	nk := Normalize(key)
	removed := c.primary.Invalidate(nk) + c.persist.Invalidate(nk)
	c.settings.MetricsCollector.RecordInvalidate(removed)
	return removed
}

// GarbageCollect sweeps both stores, returning the total count removed.
func (c *Coordinator) GarbageCollect() int {
	removed := c.primary.GarbageCollect() + c.persist.GarbageCollect()
	for i := 0; i < removed; i++ {
		c.settings.MetricsCollector.RecordEviction()
	}
	return removed
}
