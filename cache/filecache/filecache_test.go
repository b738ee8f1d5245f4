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

package filecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io/fs"
	"os"
	"strings"
	"testing"

	"github.com/bufbuild/modsettings/cache/internal/cachetesting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCache(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name       string
		config     Config
		wantPrefix string
		wantExt    string
		wantMode   fs.FileMode
	}{
		{"defaults", Config{}, "settings", "bin", 0600},
		{"prefix with underscore", Config{FilenamePrefix: "abc_"}, "abc", "bin", 0600},
		{"prefix without underscore", Config{FilenamePrefix: "abc"}, "abc", "bin", 0600},
		{"extension without dot", Config{FilenameExtension: "cdb"}, "settings", "cdb", 0600},
		{"extension with dot", Config{FilenameExtension: ".dat"}, "settings", "dat", 0600},
		{"group readable", Config{FileMode: 0640}, "settings", "bin", 0640},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			config := testCase.config
			config.Path = dir
			cache, err := New(config)
			require.NoError(t, err)

			entries := cachetesting.RunSimpleCacheTests(t, context.Background(), cache)
			want := make(map[string]struct{}, len(entries))
			for key := range entries {
				name := testCase.wantPrefix
				if key != "" {
					name += "_" + sanitize(key)
				}
				want[name+"."+testCase.wantExt] = struct{}{}
			}
			checkFiles(t, dir, testCase.wantMode, want)
		})
	}
}

func TestFileCache_SettingsWatcher(t *testing.T) {
	t.Parallel()
	cache, err := New(Config{Path: t.TempDir()})
	require.NoError(t, err)
	cachetesting.RunSettingsWatcherTests(t, context.Background(), cache)
}

func TestSanitize(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		key, expect string
	}{
		{key: "mod-settings.dat", expect: "mod-settings.dat"},
		{key: "/srv/factorio/mod settings.dat", expect: "%2fsrv%2ffactorio%2fmod%20settings.dat"},
		{key: "wärme", expect: "w%c3%a4rme"},
		{
			key:    strings.Repeat("/", 50),
			expect: "sha256-" + hex.EncodeToString(sha256Sum(strings.Repeat("/", 50))),
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.expect, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, testCase.expect, sanitize(testCase.key))
		})
	}
}

func sha256Sum(s string) []byte {
	sum := sha256.Sum256([]byte(s))
	return sum[:]
}

func TestFileCache_ConfigValidation(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name      string
		config    Config
		expectErr string
	}{
		{
			name:      "no path",
			expectErr: "path cannot be empty",
		},
		{
			name:      "bad path",
			config:    Config{Path: "/some/path/that/certainly/does/not/exist/anywhere"},
			expectErr: "no such file or directory",
		},
		{
			name:      "bad mode",
			config:    Config{Path: "./", FileMode: 0111},
			expectErr: "mode 0111 must include bits 0600",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			_, err := New(testCase.config)
			require.ErrorContains(t, err, testCase.expectErr)
		})
	}
}

// checkFiles requires dir to hold exactly the named files, with the given
// mode and no leftover temporary files.
func checkFiles(t *testing.T, dir string, mode fs.FileMode, names map[string]struct{}) {
	t.Helper()
	dirEntries, err := os.ReadDir(dir)
	require.NoError(t, err)
	found := make(map[string]struct{}, len(dirEntries))
	for _, entry := range dirEntries {
		require.Falsef(t, entry.IsDir(), "unexpected directory %s", entry.Name())
		info, err := entry.Info()
		require.NoError(t, err)
		assert.Equalf(t, mode, info.Mode(), "mode of %s", entry.Name())
		found[entry.Name()] = struct{}{}
	}
	assert.Equal(t, names, found)
}
