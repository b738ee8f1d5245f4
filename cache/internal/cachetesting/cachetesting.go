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

// Package cachetesting contains checks shared by the tests of every
// modsettings.Cache implementation.
package cachetesting

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bufbuild/modsettings"
	"github.com/bufbuild/modsettings/propertytree"
	"github.com/stretchr/testify/require"
)

// Keys exercised by RunSimpleCacheTests. A file poller uses the absolute
// path of the settings file as its settings ID, and so as its cache key.
const (
	keyName  = "foo"
	keyPath  = "/srv/factorio/mods/mod-settings.dat"
	keyEmpty = ""
)

// KeyPrefix returns a random key prefix, so that concurrent runs against
// one server do not see each other's entries.
func KeyPrefix(t *testing.T) string {
	t.Helper()
	return hex.EncodeToString(randomBytes(t, 12)) + ":"
}

// RunSimpleCacheTests saves, loads and overwrites entries. The values are
// random, so a value left behind by another run is never mistaken for one
// saved here. The returned map holds the final value of every key.
//
//nolint:revive // okay that ctx is second; prefer t to be first
func RunSimpleCacheTests(t *testing.T, ctx context.Context, cache modsettings.Cache) map[string][]byte {
	t.Helper()
	keys := []string{keyName, keyPath, keyEmpty}
	entries := make(map[string][]byte, len(keys))
	for _, key := range keys {
		entries[key] = randomBytes(t, 100)

		_, err := cache.Load(ctx, key)
		require.ErrorIsf(t, err, modsettings.ErrCacheMiss, "load %q before save", key)
		require.NoError(t, cache.Save(ctx, key, entries[key]))
		requireLoad(t, ctx, cache, key, entries[key])
	}
	// saving one key left the others alone
	for _, key := range keys {
		requireLoad(t, ctx, cache, key, entries[key])
	}

	// overwrite, as the watcher does for every new version
	replacement := randomBytes(t, 200)
	require.NoError(t, cache.Save(ctx, keyPath, replacement))
	requireLoad(t, ctx, cache, keyPath, replacement)
	requireLoad(t, ctx, cache, keyName, entries[keyName])
	entries[keyPath] = replacement
	return entries
}

//nolint:revive // okay that ctx is second; prefer t to be first
func requireLoad(t *testing.T, ctx context.Context, cache modsettings.Cache, key string, want []byte) {
	t.Helper()
	got, err := cache.Load(ctx, key)
	require.NoErrorf(t, err, "load %q", key)
	require.Equalf(t, want, got, "load %q", key)
}

func randomBytes(t *testing.T, n int) []byte {
	t.Helper()
	data := make([]byte, n)
	_, err := rand.Read(data)
	require.NoError(t, err)
	return data
}

// RunSettingsWatcherTests polls a settings file with one watcher, then checks
// that a second watcher for the same file serves the settings from cache
// once the file is gone.
//
//nolint:revive // okay that ctx is second; prefer t to be first
func RunSettingsWatcherTests(t *testing.T, ctx context.Context, cache modsettings.Cache) {
	t.Helper()

	nonce := randomBytes(t, 16)
	settings := modsettings.NewSimpleSettings(propertytree.FormatVersion{Major: 1, Minor: 1, Patch: 82, Build: 4})
	settings.Startup.Set("cache-test-nonce", modsettings.StringValue(hex.EncodeToString(nonce)))
	data, err := modsettings.BinaryOutputFormat().Marshal(settings)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "mod-settings.dat")
	require.NoError(t, os.WriteFile(path, data, 0600))

	var once sync.Once
	saved := make(chan struct{})
	watcher, err := modsettings.NewSettingsWatcher(ctx, &modsettings.SettingsWatcherConfig{
		SettingsPoller: modsettings.NewFileSettingsPoller(path),
		Cache: &notifyingCache{Cache: cache, onSave: func() {
			once.Do(func() { close(saved) })
		}},
	})
	require.NoError(t, err)
	select {
	case <-saved:
	case <-time.After(5 * time.Second):
		t.Fatal("settings were never saved to the cache")
	}
	watcher.Stop()

	require.NoError(t, os.Remove(path))
	watcher, err = modsettings.NewSettingsWatcher(ctx, &modsettings.SettingsWatcherConfig{
		SettingsPoller: modsettings.NewFileSettingsPoller(path),
		Cache:          cache,
	})
	require.NoError(t, err)
	defer watcher.Stop()
	readyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, watcher.AwaitReady(readyCtx))
	got, err := watcher.Settings()
	require.NoError(t, err)
	value, ok := got.Startup.Get("cache-test-nonce")
	require.True(t, ok)
	require.Equal(t, modsettings.StringValue(hex.EncodeToString(nonce)), value)
}

type notifyingCache struct {
	modsettings.Cache
	onSave func()
}

func (c *notifyingCache) Save(ctx context.Context, key string, data []byte) error {
	err := c.Cache.Save(ctx, key, data)
	if err == nil {
		c.onSave()
	}
	return err
}
