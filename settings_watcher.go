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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bufbuild/modsettings/propertytree"
)

// errCacheCollision is reported when a cache entry was saved for different
// settings than the ones being watched.
var errCacheCollision = errors.New("cached entry belongs to other settings")

var (
	// ErrSettingsWatcherStopped is an error returned from the AwaitReady
	// method that indicates the watcher was stopped before it ever became
	// ready.
	ErrSettingsWatcherStopped = errors.New("SettingsWatcher was stopped")
	// ErrSettingsWatcherNotReady is an error returned from Settings when no
	// settings have yet been polled (or loaded from cache).
	ErrSettingsWatcherNotReady = errors.New("SettingsWatcher not ready")
)

// SettingsWatcher watches a settings source by periodically polling it.
// Every new version is decoded and projected into a [SimpleSettings] of its
// own, so readers never observe a partially updated value.
type SettingsWatcher struct {
	poller     SettingsPoller
	format     InputFormat
	settingsID string
	cacheKey   string
	logger     *slog.Logger

	// used to prevent concurrent calls to cache.Save, which could
	// otherwise potentially result in a known-stale value in the cache.
	cacheMu sync.Mutex
	cache   Cache

	callbackMu sync.Mutex
	callback   func()

	// nil unless a Leaser is configured
	lease Lease
	// signaled when the lease is acquired, to poll right away
	pollNow chan struct{}

	settingsMu sync.RWMutex
	settings   *SimpleSettings
	updateTime time.Time
	version    string
	// if nil, watcher has been stopped; if not nil, will be called
	// when watcher is stopped
	stop context.CancelFunc
	// If nil, settings are ready; if not nil, will be closed
	// once settings are ready.
	settingsReady chan struct{}
	// set to most recent poll error until settings are ready
	settingsErr error
}

// NewSettingsWatcher creates a new [SettingsWatcher] for the given
// [SettingsWatcherConfig].
//
// The config is first validated to ensure all required attributes are
// provided. A non-nil error is returned if the configuration is not valid.
//
// This function returns immediately, even before settings have been polled
// for the first time. Use [SettingsWatcher.AwaitReady] to wait for them.
// Either the Stop method must be called or the given ctx must be cancelled
// to release resources and stop the periodic polling. After that the
// watcher keeps serving the most recently polled settings.
func NewSettingsWatcher(ctx context.Context, config *SettingsWatcherConfig) (*SettingsWatcher, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	pollingPeriod := config.PollingPeriod
	if pollingPeriod == 0 {
		pollingPeriod = defaultPollingPeriod
	}
	format := config.InputFormat
	if format == nil {
		format = BinaryInputFormat(propertytree.DecodeOptions{})
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	settingsID := config.SettingsPoller.GetSettingsID()
	var cacheKey string
	if config.Cache != nil {
		cacheKey = config.CacheKey
		if cacheKey == "" {
			cacheKey = settingsID
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	var lease Lease
	if config.Leaser != nil {
		holder, err := leaseHolderBytes(config.CurrentProcess)
		if err != nil {
			cancel()
			return nil, err
		}
		lease = config.Leaser.NewLease(ctx, leaseName(cacheKey), holder)
	}
	watcher := &SettingsWatcher{
		poller:        config.SettingsPoller,
		format:        format,
		settingsID:    settingsID,
		cacheKey:      cacheKey,
		logger:        logger.With(slog.String("settings_id", settingsID)),
		callback:      config.OnUpdate,
		cache:         config.Cache,
		lease:         lease,
		pollNow:       make(chan struct{}, 1),
		stop:          cancel,
		settingsReady: make(chan struct{}),
	}
	if lease != nil {
		lease.SetCallbacks(watcher.leaseAcquired, watcher.leaseReleased)
	}
	watcher.start(ctx, pollingPeriod, config.Jitter)
	return watcher, nil
}

// Settings returns a copy of the most recently polled settings. Callers may
// modify the result freely.
func (s *SettingsWatcher) Settings() (*SimpleSettings, error) {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	if s.settings == nil {
		return nil, ErrSettingsWatcherNotReady
	}
	return s.settings.Clone(), nil
}

// Version returns the version of the current settings as reported by the
// poller, or the empty string if the watcher is not ready.
func (s *SettingsWatcher) Version() string {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.version
}

func (s *SettingsWatcher) updateSettings(ctx context.Context, fallbackToCache bool) error {
	entry, fromCache, err := s.poll(ctx, fallbackToCache)
	if err != nil {
		return err
	}
	settings, err := s.format.Unmarshal(entry.data)
	if err != nil {
		return fmt.Errorf("unable to decode settings version %q: %w", entry.version, err)
	}
	s.settingsMu.Lock()
	if entry.pollTime.Before(s.updateTime) {
		// Only possible if the entry is loaded from a cache entry that is
		// older than the last successful poll. If that happens, just leave
		// the existing settings in place.
		s.settingsMu.Unlock()
		return nil
	}
	s.settings = settings
	s.updateTime = entry.pollTime
	s.settingsErr = nil
	s.version = entry.version
	s.settingsMu.Unlock()

	s.logger.Debug("settings updated",
		slog.String("version", entry.version),
		slog.Bool("from_cache", fromCache),
		slog.Time("poll_time", entry.pollTime),
	)
	if s.callback != nil {
		go func() {
			// Lock forces sequential calls to callback and also
			// means callback does not need to be thread-safe.
			s.callbackMu.Lock()
			defer s.callbackMu.Unlock()
			s.callback()
		}()
	}
	if s.cache != nil && !fromCache {
		go s.saveToCache(ctx, entry)
	}
	return nil
}

func (s *SettingsWatcher) initialUpdateSettings(ctx context.Context, pollingPeriod time.Duration) (success bool) {
	defer func() {
		s.settingsMu.Lock()
		defer s.settingsMu.Unlock()
		close(s.settingsReady)
		s.settingsReady = nil
		if !success {
			s.stop = nil
		}
	}()

	var delay time.Duration
	for {
		err := s.updateSettings(ctx, true)
		if err == nil {
			return true
		}
		s.logger.Warn("initial settings poll failed", slog.Any("error", err))
		s.settingsMu.Lock()
		s.settingsErr = err
		s.settingsMu.Unlock()
		if delay == 0 {
			// immediately retry, but delay 1s if it fails again
			delay = time.Second
		} else {
			select {
			case <-ctx.Done():
				return false
			case <-time.After(delay):
			}
			delay *= 2
		}
		// backoff never exceeds the polling period
		if delay > pollingPeriod {
			delay = pollingPeriod
		}
	}
}

// AwaitReady returns a nil error when s has polled settings and is ready
// for use. If the given context is cancelled (or has a deadline that
// elapses) before s is ready, a non-nil error is returned. If an error
// occurred while trying to poll settings, that error will be returned at
// that time. If no error has yet occurred (e.g. the context was cancelled
// before a poll finished), this will return the context error.
//
// Even if an error is returned, the SettingsWatcher will still be trying to
// poll settings. It will keep trying until s.Stop is called or until the
// context passed to [NewSettingsWatcher] is cancelled.
func (s *SettingsWatcher) AwaitReady(ctx context.Context) error {
	s.settingsMu.RLock()
	ready, stop := s.settingsReady, s.stop
	s.settingsMu.RUnlock()
	if ready == nil {
		if stop == nil && s.settingsUnset() {
			return ErrSettingsWatcherStopped
		}
		return nil
	}
	select {
	case <-ready:
		if s.settingsUnset() {
			return ErrSettingsWatcherStopped
		}
		return nil
	case <-ctx.Done():
		s.settingsMu.RLock()
		err := s.settingsErr
		s.settingsMu.RUnlock()
		if err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *SettingsWatcher) settingsUnset() bool {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings == nil
}

// LastUpdated returns the time that settings were last successfully polled.
// If the boolean value is false, the watcher is not yet ready. If the
// settings were loaded from a cache, the timestamp indicates when that
// cached payload was originally polled.
//
// This can be used for staleness heuristics if the settings source becomes
// unavailable.
func (s *SettingsWatcher) LastUpdated() (bool, time.Time) {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	if s.settings == nil {
		return false, time.Time{}
	}
	return true, s.updateTime
}

func (s *SettingsWatcher) start(ctx context.Context, pollingPeriod time.Duration, jitter float64) {
	go func() {
		if s.lease != nil {
			defer s.lease.Cancel()
		}
		if !s.initialUpdateSettings(ctx, pollingPeriod) {
			return
		}
		defer s.Stop()
		ticker := time.NewTicker(addJitter(pollingPeriod, jitter))
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
			case <-s.pollNow:
			case <-ctx.Done():
				return
			}
			if ctx.Err() != nil {
				// don't bother polling if context is done
				return
			}
			if err := s.updateSettings(ctx, false); err != nil {
				if errors.Is(err, ErrSettingsNotModified) {
					s.logger.Debug("settings not modified")
				} else {
					s.logger.Warn("settings poll failed", slog.Any("error", err))
				}
			}
			ticker.Reset(addJitter(pollingPeriod, jitter))
		}
	}()
}

func (s *SettingsWatcher) leaseAcquired() {
	s.logger.Info("acquired settings lease; polling source")
	select {
	case s.pollNow <- struct{}{}:
	default:
	}
}

func (s *SettingsWatcher) leaseReleased() {
	s.logger.Info("released settings lease; loading settings from cache")
}

// isLeader reports whether this watcher should poll the source. Without a
// Leaser every watcher is its own leader.
func (s *SettingsWatcher) isLeader() bool {
	if s.lease == nil {
		return true
	}
	held, err := s.lease.IsHeld()
	return err == nil && held
}

// leaseName derives the lease name from the cache key. The key is hashed so
// any lease store accepts it, and so the lease never shares a key with the
// cache entry.
func leaseName(cacheKey string) string {
	sum := sha256.Sum256([]byte(cacheKey))
	return "settings-lease-" + hex.EncodeToString(sum[:16])
}

// Stop the [SettingsWatcher] from polling for new settings. Can be called
// multiple times safely.
func (s *SettingsWatcher) Stop() {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	if s.stop != nil {
		s.stop()
		s.stop = nil
	}
}

// IsStopped reports whether polling has stopped.
func (s *SettingsWatcher) IsStopped() bool {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.stop == nil
}

func (s *SettingsWatcher) poll(ctx context.Context, fallbackToCache bool) (*cacheEntry, bool, error) {
	s.settingsMu.RLock()
	currentVersion := s.version
	s.settingsMu.RUnlock()
	if !s.isLeader() {
		entry, err := s.loadFromCache(ctx)
		switch {
		case err == nil && entry.version == currentVersion:
			return nil, false, ErrSettingsNotModified
		case err == nil:
			return entry, true, nil
		case !fallbackToCache:
			return nil, false, fmt.Errorf("failed to read settings saved by leader: %w", err)
		}
		// Nothing usable in the cache yet. Poll the source so a new fleet
		// can start before any leader has saved settings.
		s.logger.Debug("no settings saved by leader; polling source", slog.Any("error", err))
	}
	data, version, err := s.poller.GetSettings(ctx, currentVersion)
	pollTime := time.Now()
	if err == nil {
		return &cacheEntry{
			settingsID: s.settingsID,
			version:    version,
			data:       data,
			pollTime:   pollTime,
		}, false, nil
	}

	err = fmt.Errorf("failed to poll settings: %w", err)
	if errors.Is(err, ErrSettingsNotModified) || s.cache == nil || !fallbackToCache {
		return nil, false, err
	}
	// try to fallback to cache
	entry, cacheErr := s.loadFromCache(ctx)
	if errors.Is(cacheErr, errCacheCollision) {
		return nil, false, err
	}
	if cacheErr != nil {
		return nil, false, fmt.Errorf("%w (%v)", err, cacheErr)
	}
	s.logger.Info("loaded settings from cache", slog.String("version", entry.version))
	return entry, true, nil
}

func (s *SettingsWatcher) loadFromCache(ctx context.Context) (*cacheEntry, error) {
	cached, err := s.cache.Load(ctx, s.cacheKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load from cache: %w", err)
	}
	entry, err := decodeForCache(cached)
	if err != nil {
		return nil, fmt.Errorf("failed to decode cached value: %w", err)
	}
	if entry.settingsID != s.settingsID {
		// Cache key collision! Do not use this result!
		return nil, fmt.Errorf("%w: %q", errCacheCollision, entry.settingsID)
	}
	return entry, nil
}

func (s *SettingsWatcher) saveToCache(ctx context.Context, entry *cacheEntry) {
	data, err := encodeForCache(entry)
	if err != nil {
		s.logger.Error("failed to encode cache entry", slog.Any("error", err))
		return
	}
	// though s.cache must be thread-safe, we use a mutex to
	// prevent racing, concurrent calls to Save, which could
	// potentially leave the cache in a bad/stale state if an
	// earlier call to Save actually succeeds last.
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if err := s.cache.Save(ctx, s.cacheKey, data); err != nil {
		s.logger.Warn("failed to save settings to cache", slog.Any("error", err))
	}
}
