// coordinator.go: the per-key state machine owner
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package memo

import (
	"context"
	"sync/atomic"
	"time"
)

// Hot-reloadable tunables live as atomics on Coordinator itself rather
// than inside Settings, so HotSettings (hot-reload.go) can update a
// running Coordinator without a data race and without requiring every
// read site to take a lock.

// waiterTimeout is the liveness-watch patch of spec.md §4.3 point 4: a
// parked waiter that hasn't heard from its runner in this long assumes
// the runner vanished and attempts to clear the entry itself. It is not
// a cancellation — a merely slow thunk is unaffected, since the row it
// would complete into is untouched by the timeout.
const waiterTimeout = 5000 * time.Millisecond

// Thunk is the value-producing function passed to GetOrRun.
type Thunk func() (interface{}, error)

// ContextThunk is the value-producing function passed to
// GetOrRunWithContext. The context is observed only by the runner that
// executes it; waiters that give up early never cancel it (spec.md's
// Non-goals exclude thunk cancellation).
type ContextThunk func(context.Context) (interface{}, error)

// Coordinator implements spec.md §2 item 4: get_or_run with the
// running/waiters protocol, CAS retries, runner-crash detection, waiter
// cap with backoff, and completion/failure fan-out.
type Coordinator struct {
	settings         Settings
	maxWaiters       atomic.Int64
	waiterSleepMs    atomic.Int64
	defaultExpiresIn atomic.Int64
	primary          Strategy
	persist          Strategy
	runnerSeq        int64
}

// NewCoordinator builds a Coordinator whose persistent store is private
// to it (no other Coordinator shares it). Use NewNamedCoordinator to
// share a persistent store by name across Coordinator instances.
func NewCoordinator(settings Settings) *Coordinator {
	return newCoordinatorNamed("", settings)
}

// NewNamedCoordinator builds a Coordinator whose persistent-store half
// is the process-wide named store registered under name, shared by any
// other Coordinator constructed with the same name (spec.md §2 item 2:
// "a global named-value store").
func NewNamedCoordinator(name string, settings Settings) *Coordinator {
	return newCoordinatorNamed(name, settings)
}

func newCoordinatorNamed(name string, settings Settings) *Coordinator {
	if err := settings.Validate(); err != nil {
		settings = DefaultSettings()
	}
	c := &Coordinator{settings: settings}
	c.maxWaiters.Store(int64(settings.MaxWaiters))
	c.waiterSleepMs.Store(int64(settings.WaiterSleepMs))
	c.defaultExpiresIn.Store(settings.DefaultExpiresIn)
	settings.liveDefaultExpiresIn = &c.defaultExpiresIn
	c.settings = settings
	c.primary, c.persist = newStrategyPair(settings.CacheStrategy, settings, name)
	return c
}

// SetMaxWaiters updates the live waiter cap. Safe to call concurrently
// with GetOrRun. Values <= 0 are treated as 1.
func (c *Coordinator) SetMaxWaiters(n int) {
	if n <= 0 {
		n = 1
	}
	c.maxWaiters.Store(int64(n))
}

// SetWaiterSleepMs updates the live waiter-cap backoff. Safe to call
// concurrently with GetOrRun.
func (c *Coordinator) SetWaiterSleepMs(ms int) {
	if ms < 0 {
		ms = 0
	}
	c.waiterSleepMs.Store(int64(ms))
}

// SetDefaultExpiresIn updates the live default TTL (milliseconds)
// applied when a call site omits Options.ExpiresIn. Safe to call
// concurrently with GetOrRun.
func (c *Coordinator) SetDefaultExpiresIn(ms int64) {
	if ms < 0 {
		ms = 0
	}
	c.defaultExpiresIn.Store(ms)
}

func (c *Coordinator) selectStrategy(opts Options) (Strategy, BackingStore) {
	if opts.Cache == Persistent {
		return c.persist, c.persist.Store()
	}
	return c.primary, c.primary.Store()
}

// GetOrRun returns the memoized value for key, running thunk at most
// once per completed cache lifetime (spec.md §8 "Single-flight").
func (c *Coordinator) GetOrRun(key interface{}, thunk Thunk, opts Options) (interface{}, error) {
	if thunk == nil {
		return nil, NewErrNilThunk(key)
	}
	return c.dispatch(key, opts, func(ctx context.Context) (interface{}, error) {
		return thunk()
	}, nil)
}

// GetOrRunWithContext is GetOrRun's context-aware sibling (spec.md's
// supplemented GetOrRunWithContext): a waiting caller additionally gives
// up when ctx is done, without affecting the runner or other waiters.
func (c *Coordinator) GetOrRunWithContext(ctx context.Context, key interface{}, thunk ContextThunk, opts Options) (interface{}, error) {
	if thunk == nil {
		return nil, NewErrNilThunk(key)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, err := c.dispatch(key, opts, thunk, ctx.Done())
	if err == context.Canceled && ctx.Err() != nil {
		// dispatch reports a waiter giving up as context.Canceled; return
		// the context's own error (context.DeadlineExceeded on a timeout).
		return nil, ctx.Err()
	}
	return value, err
}

// dispatch is the shared state-machine loop. callerDone is non-nil only for
// GetOrRunWithContext's caller-cancellation case.
func (c *Coordinator) dispatch(key interface{}, opts Options, thunk ContextThunk, callerDone <-chan struct{}) (interface{}, error) {
	strategy, store := c.selectStrategy(opts)
	nk := Normalize(key)
	start := c.settings.TimeProvider.Now()

	for {
		existing := store.Lookup(nk)

		if existing == nil {
			runnerID := atomic.AddInt64(&c.runnerSeq, 1)
			newRow := &row{running: &runningState{runnerID: runnerID}}
			actual, inserted := store.InsertIfAbsent(nk, newRow)
			if !inserted {
				existing = actual
			} else {
				value, err := c.run(nk, store, strategy, runnerID, key, thunk, opts)
				c.settings.MetricsCollector.RecordGetOrRun(c.settings.TimeProvider.Now()-start, false)
				return value, err
			}
		}

		if existing.completed != nil {
			switch strategy.OnRead(nk, existing) {
			case ReadOK:
				c.settings.MetricsCollector.RecordGetOrRun(c.settings.TimeProvider.Now()-start, true)
				return existing.completed.value, nil
			case ReadRetry:
				continue // spec.md §7 StrategyRetry: already invalidated, re-dispatch
			}
		}

		if existing.running != nil {
			joined, ok := c.joinWaiters(nk, store, existing)
			if !ok {
				continue // waiter cap hit and backoff elapsed, or lost the join CAS: re-dispatch
			}

			select {
			case <-joined.w.done:
				// runner notified completion or failure; re-dispatch to read the outcome
			case <-callerDone:
				return nil, context.Canceled
			case <-time.After(waiterTimeout):
				c.checkLiveness(nk, store, joined.row)
			}
		}
	}
}

type joinedWaiter struct {
	w   *waiter
	row *row
}

// joinWaiters CAS-appends a new waiter to a Running row. ok is false
// when the cap was hit (caller should back off and re-dispatch) or the
// join CAS lost a race (caller should simply re-dispatch immediately).
func (c *Coordinator) joinWaiters(nk Normalized, store BackingStore, existing *row) (joinedWaiter, bool) {
	rs := existing.running
	if int64(len(rs.waiters)) >= c.maxWaiters.Load() {
		if sleepMs := c.waiterSleepMs.Load(); sleepMs > 0 {
			time.Sleep(time.Duration(sleepMs) * time.Millisecond)
		}
		return joinedWaiter{}, false
	}

	w := &waiter{done: make(chan struct{})}
	newWaiters := make([]*waiter, len(rs.waiters), len(rs.waiters)+1)
	copy(newWaiters, rs.waiters)
	newWaiters = append(newWaiters, w)
	newRow := &row{running: &runningState{runnerID: rs.runnerID, waiters: newWaiters}}

	if !store.ReplaceIfEqual(nk, existing, newRow) {
		return joinedWaiter{}, false
	}
	return joinedWaiter{w: w, row: newRow}, true
}

// run executes thunk as the runner for nk, installing the result (or
// clearing the entry on failure) and waking every waiter that joined by
// the time it finishes.
func (c *Coordinator) run(nk Normalized, store BackingStore, strategy Strategy, runnerID int64, key interface{}, thunk ContextThunk, opts Options) (interface{}, error) {
	var finished bool
	var panicVal interface{}
	var thunkVal interface{}
	var thunkErr error

	func() {
		defer func() {
			if r := recover(); r != nil {
				panicVal = r
			}
			switch {
			case finished && thunkErr == nil:
				c.completeRunner(nk, store, strategy, runnerID, thunkVal, opts)
			case finished && thunkErr != nil:
				c.failRunner(nk, store, runnerID, thunkErr, key)
			case panicVal != nil:
				c.failRunner(nk, store, runnerID, NewErrPanicRecovered(key, panicVal), key)
			default:
				// runtime.Goexit() inside thunk: the runner vanished
				// without notifying (spec.md §7 RunnerDeath). Leave the
				// row exactly as it is — no CAS, no wakeup. A parked
				// waiter's liveness watch (dispatch's waiterTimeout
				// case) is what eventually clears it.
			}
		}()
		thunkVal, thunkErr = thunk(context.Background())
		finished = true
	}()

	// Unreachable if the default (Goexit) branch above ran: Goexit
	// terminates this goroutine during the deferred call, before
	// control would return here.
	if panicVal != nil {
		return nil, NewErrPanicRecovered(key, panicVal)
	}
	return thunkVal, thunkErr
}

// completeRunner CASes nk from Running to Completed, re-reading the row
// immediately beforehand so any waiter that joined after run() started
// is still woken (the runner's own row snapshot from insertion time may
// be stale by the time the thunk returns).
func (c *Coordinator) completeRunner(nk Normalized, store BackingStore, strategy Strategy, runnerID int64, value interface{}, opts Options) {
	ctx := strategy.OnCache(nk, value, opts)
	completed := &row{completed: &completedState{value: value, ctx: ctx}}
	for {
		current := store.Lookup(nk)
		if current == nil || current.running == nil || current.running.runnerID != runnerID {
			return // already resolved by someone else (shouldn't happen, but don't clobber)
		}
		if store.ReplaceIfEqual(nk, current, completed) {
			for _, w := range current.running.waiters {
				close(w.done)
			}
			return
		}
	}
}

// failRunner CASes nk from Running to absent (spec.md §7 ThunkFailure
// policy: "clear the entry, notify waiters with Failed").
func (c *Coordinator) failRunner(nk Normalized, store BackingStore, runnerID int64, cause error, key interface{}) {
	for {
		current := store.Lookup(nk)
		if current == nil || current.running == nil || current.running.runnerID != runnerID {
			return
		}
		if store.DeleteIfEqual(nk, current) {
			c.settings.Logger.Debug("memo: thunk failed, clearing entry", "key", key, "error", cause)
			for _, w := range current.running.waiters {
				close(w.done)
			}
			return
		}
	}
}

// checkLiveness is a parked waiter's liveness-watch action: if the row
// is still exactly the one it joined, it assumes the runner vanished
// and clears it itself (spec.md §7 RunnerDeath: "the first waiter to
// observe liveness loss CASes the row to absent"). If the row has
// already moved on, it does nothing — the next dispatch loop iteration
// will read whatever the new state is.
func (c *Coordinator) checkLiveness(nk Normalized, store BackingStore, joined *row) {
	current := store.Lookup(nk)
	if current != joined {
		return
	}
	if store.DeleteIfEqual(nk, joined) {
		c.settings.MetricsCollector.RecordRunnerDeath()
		c.settings.Logger.Warn("memo: runner death detected", "key", nk.String(), "error", NewErrRunnerDeath(nk.String()))
		for _, w := range joined.running.waiters {
			close(w.done)
		}
	}
}
