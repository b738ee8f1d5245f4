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
	"os"
	"path/filepath"
)

var (
	// ErrSettingsNotModified is an error that may be returned by a
	// SettingsPoller to indicate that the poller did not return any data
	// because the caller's current version is still up to date.
	ErrSettingsNotModified = errors.New("no response because settings not modified")
)

// SettingsPoller polls for a settings payload from some source.
// See [NewFileSettingsPoller].
type SettingsPoller interface {
	// GetSettings polls for settings. The given currentVersion, if not
	// empty, indicates the version that the caller already has. So if that
	// is still the current version of the settings (nothing newer to read),
	// the implementation may return an ErrSettingsNotModified error. When
	// currentVersion is empty the implementation must not return that error.
	GetSettings(ctx context.Context, currentVersion string) (data []byte, version string, err error)
	// GetSettingsID returns a string that identifies the settings that it
	// fetches, such as the path of a settings file. It is also used as the
	// cache key.
	GetSettingsID() string
}

// NewFileSettingsPoller returns a SettingsPoller that reads the file at path
// each time it is polled. The version of the data is the hex-encoded SHA-256
// of the file contents.
func NewFileSettingsPoller(path string) SettingsPoller {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &filePoller{path: path}
}

type filePoller struct {
	path string
}

func (f *filePoller) GetSettings(ctx context.Context, currentVersion string) ([]byte, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(data)
	version := hex.EncodeToString(sum[:])
	if currentVersion != "" && version == currentVersion {
		return nil, "", ErrSettingsNotModified
	}
	return data, version, nil
}

func (f *filePoller) GetSettingsID() string {
	return f.path
}
