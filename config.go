// Copyright 2023-2026 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package modsettings

import (
	"fmt"
	"log/slog"
	"time"
)

const defaultPollingPeriod = 5 * time.Minute

// SettingsWatcherConfig contains the configurable attributes of the
// [SettingsWatcher].
type SettingsWatcherConfig struct {
	// The source of settings payloads. See [NewFileSettingsPoller].
	SettingsPoller SettingsPoller
	// InputFormat decodes each payload returned by the poller. If nil,
	// payloads are decoded as binary property trees.
	InputFormat InputFormat
	// The period of the polling for new versions is specified by the
	// PollingPeriod argument. The duration must not be negative; if it is,
	// [NewSettingsWatcher] will return an error. If unset and left zero, a
	// default period of 5 minutes is used.
	PollingPeriod time.Duration
	// A number between 0 and 1 that represents the amount of jitter to add
	// to the polling period. A value of zero means no jitter. A value of one
	// means up to 100% jitter, so the actual period would be between 0 and
	// 2*PollingPeriod. To prevent self-synchronization (and thus thundering
	// herds) when there are multiple pollers, a value of 0.1 to 0.3 is
	// typical.
	Jitter float64
	// If Cache is non-nil, it is used for increased robustness, even in the
	// face of the settings source being unavailable. If non-nil and the
	// initial poll fails, the settings will instead be loaded from this
	// cache. Whenever a new version is polled, it will be saved to the
	// cache. So if the process is restarted and the source is unavailable,
	// the latest cached settings can still be used.
	Cache Cache
	// CacheKey is the key used when loading or storing settings in Cache.
	// If empty, the poller's settings ID is used. It is up to the Cache to
	// sanitize the key if necessary.
	CacheKey string
	// Leaser is optional. If set, it elects a single leader among the
	// watchers that share a cache key. Only the leader polls the settings
	// source; the others load whatever the leader saved to Cache. A
	// non-nil Leaser requires a non-nil Cache. The lease is named after
	// the cache key.
	Leaser Leaser
	// CurrentProcess identifies this watcher to the Leaser. If nil, the
	// host name, IP and MAC address, process ID and start time are used.
	// It must differ between all watchers that share a lease.
	CurrentProcess []byte
	// OnUpdate is an optional callback that will be invoked when new
	// settings are installed. Calls are never concurrent, so the callback
	// does not need to be thread-safe.
	OnUpdate func()
	// Logger receives diagnostics about polls. If nil, nothing is logged.
	Logger *slog.Logger
}

func (c *SettingsWatcherConfig) validate() error {
	if c.SettingsPoller == nil {
		return fmt.Errorf("settings poller not provided")
	}
	if c.PollingPeriod < 0 {
		return fmt.Errorf("polling period duration cannot be negative")
	}
	if c.Jitter < 0 {
		return fmt.Errorf("jitter cannot be negative")
	}
	if c.Jitter > 1.0 {
		return fmt.Errorf("jitter cannot be greater than 1.0 (100%%)")
	}
	if c.Cache != nil && c.CacheKey == "" && c.SettingsPoller.GetSettingsID() == "" {
		return fmt.Errorf("cache key cannot be blank if cache is non-nil")
	}
	if c.Leaser != nil && c.Cache == nil {
		return fmt.Errorf("leaser config should include a cache")
	}
	return nil
}
