// hot-reload.go: dynamic configuration with Argus integration
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package memo

import (
	"fmt"
	"sync"
	"time"

	"github.com/agilira/argus"
)

// HotSettings watches a configuration file and applies dynamically-safe
// tuning changes to a running Coordinator without a restart.
//
// Only MaxWaiters, WaiterSleepMs and DefaultExpiresIn are applied live.
// CacheStrategy, MaxThreshold and MinThreshold are copied into the cache
// strategies at construction time and are not read from the watched
// file; changing them needs a new Coordinator — the same
// restart-required disclaimer the teacher carries for MaxSize.
type HotSettings struct {
	coord    *Coordinator
	watcher  *argus.Watcher
	mu       sync.RWMutex
	settings Settings

	// OnReload is called after settings are successfully reloaded. Must
	// be fast and non-blocking.
	OnReload func(old, new Settings)
}

// HotSettingsOptions configures hot reload behavior.
type HotSettingsOptions struct {
	// SettingsPath is the path to the configuration file to watch.
	// Supports JSON, YAML, TOML, HCL, INI, Properties (any format Argus
	// understands).
	SettingsPath string

	// PollInterval is how often to check for changes. Default: 1
	// second. Minimum: 100ms.
	PollInterval time.Duration

	// OnReload is called after settings are successfully reloaded.
	OnReload func(old, new Settings)

	// Logger for hot reload operations. If nil, NoOpLogger is used.
	Logger Logger
}

// NewHotSettings starts watching SettingsPath and applying changes to
// coord as they're detected.
//
// Example configuration file (YAML):
//
//	memo:
//	  max_waiters: 2048
//	  waiter_sleep_ms: 10
//	  default_expires_in_ms: 60000
func NewHotSettings(coord *Coordinator, opts HotSettingsOptions) (*HotSettings, error) {
	if opts.SettingsPath == "" {
		return nil, fmt.Errorf("settings_path is required")
	}

	if opts.PollInterval == 0 {
		opts.PollInterval = 1 * time.Second
	} else if opts.PollInterval < 100*time.Millisecond {
		opts.PollInterval = 100 * time.Millisecond
	}

	if opts.Logger == nil {
		opts.Logger = NoOpLogger{}
	}

	hs := &HotSettings{
		coord:    coord,
		OnReload: opts.OnReload,
		settings: coord.settings,
	}

	argusConfig := argus.Config{PollInterval: opts.PollInterval}
	watcher, err := argus.UniversalConfigWatcherWithConfig(opts.SettingsPath, hs.handleSettingsChange, argusConfig)
	if err != nil {
		return nil, err
	}
	hs.watcher = watcher

	return hs, nil
}

// Start begins watching the settings file for changes.
func (hs *HotSettings) Start() error {
	if hs.watcher.IsRunning() {
		return nil
	}
	return hs.watcher.Start()
}

// Stop stops watching the settings file.
func (hs *HotSettings) Stop() error {
	return hs.watcher.Stop()
}

// GetSettings returns the most recently applied Settings snapshot.
func (hs *HotSettings) GetSettings() Settings {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return hs.settings
}

func (hs *HotSettings) handleSettingsChange(data map[string]interface{}) {
	hs.mu.Lock()
	old := hs.settings
	next := hs.parseSettings(data, old)
	hs.settings = next
	hs.mu.Unlock()

	hs.applyChanges(old, next)

	if hs.OnReload != nil {
		hs.OnReload(old, next)
	}
}

// parsePositiveInt extracts a positive integer from an interface{}
// value. Supports both int and float64 (YAML/JSON decode differently).
func parsePositiveInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		if v > 0 {
			return v, true
		}
	case float64:
		if v > 0 {
			return int(v), true
		}
	}
	return 0, false
}

// parseNonNegativeInt extracts an integer >= 0.
func parseNonNegativeInt(value interface{}) (int, bool) {
	switch v := value.(type) {
	case int:
		if v >= 0 {
			return v, true
		}
	case float64:
		if v >= 0 {
			return int(v), true
		}
	}
	return 0, false
}

// parseNonNegativeInt64 extracts an int64 >= 0.
func parseNonNegativeInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		if v >= 0 {
			return int64(v), true
		}
	case int64:
		if v >= 0 {
			return v, true
		}
	case float64:
		if v >= 0 {
			return int64(v), true
		}
	}
	return 0, false
}

func (hs *HotSettings) parseSettings(data map[string]interface{}, base Settings) Settings {
	next := base

	section, ok := data["memo"].(map[string]interface{})
	if !ok {
		if _, hasMaxWaiters := data["max_waiters"]; hasMaxWaiters {
			section = data
		} else {
			return next
		}
	}

	if v, ok := parsePositiveInt(section["max_waiters"]); ok {
		next.MaxWaiters = v
	}
	if v, ok := parseNonNegativeInt(section["waiter_sleep_ms"]); ok {
		next.WaiterSleepMs = v
	}
	if v, ok := parseNonNegativeInt64(section["default_expires_in_ms"]); ok {
		next.DefaultExpiresIn = v
	}

	return next
}

// applyChanges pushes the dynamically-safe fields to the live
// Coordinator. MaxThreshold/MinThreshold/CacheStrategy changes are
// intentionally not applied: the Eviction strategy's expiration btree
// and read-history map are populated under the settings
// the Coordinator was built with, and swapping them out from under
// in-flight GetOrRun calls would violate the CAS discipline the rest of
// the package relies on.
func (hs *HotSettings) applyChanges(old, next Settings) {
	if next.MaxWaiters != old.MaxWaiters {
		hs.coord.SetMaxWaiters(next.MaxWaiters)
	}
	if next.WaiterSleepMs != old.WaiterSleepMs {
		hs.coord.SetWaiterSleepMs(next.WaiterSleepMs)
	}
	if next.DefaultExpiresIn != old.DefaultExpiresIn {
		hs.coord.SetDefaultExpiresIn(next.DefaultExpiresIn)
	}
	if next.MaxThreshold != old.MaxThreshold || next.MinThreshold != old.MinThreshold {
		hs.coord.settings.Logger.Warn("memo: threshold change requires a new Coordinator, not applied live")
	}
}
