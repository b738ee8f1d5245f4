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

// Package filecache provides an implementation of modsettings.Cache
// that is based on the file system. Cached entries are stored in and
// loaded from files, with cache keys being used to form the file names.
//
// This is the simplest form of caching when sharing cache results is
// not needed and the workload has a persistent volume, such as a game
// server that restarts while its settings source is unreachable.
package filecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bufbuild/modsettings"
)

// Sanitized keys longer than this are replaced by their SHA-256, so that
// file names stay within the limits of common file systems.
const maxKeyLength = 128

// Config represents the configuration parameters used to
// create a new file-system-backed cache.
type Config struct {
	// Required: the folder in which cached files live.
	Path string
	// Defaults to "settings" if left empty. This is added to the
	// cache key and the extension below to form a file name.
	// A trailing underscore is not necessary and will be added
	// if not present (to separate prefix from the rest of the
	// cache key).
	FilenamePrefix string
	// Defaults to ".bin" if left empty. This is added to the
	// cache key and prefix above to form a file name.
	FilenameExtension string
	// The mode to use when creating new files in the cache
	// directory. Defaults to 0600 if left zero. If not left
	// as default, the mode must have at least bits 0400 and
	// 0200 (read and write permissions for owner) set.
	FileMode fs.FileMode
}

// New creates a new file-system-backed cache with the given
// configuration. The directory must exist and be writable.
func New(config Config) (modsettings.Cache, error) {
	if err := config.applyDefaults(); err != nil {
		return nil, err
	}
	if err := checkWritableDir(config.Path); err != nil {
		return nil, err
	}
	return (*cache)(&config), nil
}

func (c *Config) applyDefaults() error {
	if c.Path == "" {
		return errors.New("path cannot be empty")
	}
	path, err := filepath.Abs(c.Path)
	if err != nil {
		return err
	}
	c.Path = path
	c.FilenamePrefix = strings.TrimSuffix(c.FilenamePrefix, "_")
	if c.FilenamePrefix == "" {
		c.FilenamePrefix = "settings"
	}
	switch {
	case c.FilenameExtension == "":
		c.FilenameExtension = ".bin"
	case !strings.HasPrefix(c.FilenameExtension, "."):
		c.FilenameExtension = "." + c.FilenameExtension
	}
	switch {
	case c.FileMode == 0:
		c.FileMode = 0600
	case c.FileMode&0600 != 0600:
		return fmt.Errorf("mode %#o must include bits 0600", c.FileMode)
	}
	return nil
}

// checkWritableDir creates and removes a probe file in path.
func checkWritableDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", path)
	}
	file, err := os.CreateTemp(path, ".probe-*")
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("insufficient permission to create file in %s", path)
	}
	if err != nil {
		return fmt.Errorf("failed to create file in %s: %w", path, err)
	}
	closeErr := file.Close()
	if err := os.Remove(file.Name()); err != nil {
		return err
	}
	return closeErr
}

type cache Config

func (c *cache) Load(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(c.Path, c.fileNameForKey(key)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %v", modsettings.ErrCacheMiss, err)
	}
	return data, err
}

// Save writes data to a temporary file and renames it into place, so
// that a concurrent Load never sees a partially written entry.
func (c *cache) Save(_ context.Context, key string, data []byte) (retErr error) {
	file, err := os.CreateTemp(c.Path, ".save-*")
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			_ = file.Close()
			_ = os.Remove(file.Name())
		}
	}()
	if _, err := file.Write(data); err != nil {
		return err
	}
	if err := file.Chmod(c.FileMode); err != nil {
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}
	return os.Rename(file.Name(), filepath.Join(c.Path, c.fileNameForKey(key)))
}

func (c *cache) fileNameForKey(key string) string {
	if key != "" {
		key = "_" + sanitize(key)
	}
	return c.FilenamePrefix + key + c.FilenameExtension
}

// sanitize maps a cache key to a file name. Bytes other than ASCII letters,
// digits, '.', '-' and '_' are escaped as %xx, so distinct keys get distinct
// names.
func sanitize(key string) string {
	var builder strings.Builder
	for i := 0; i < len(key); i++ {
		char := key[i]
		if isFileNameByte(char) {
			builder.WriteByte(char)
			continue
		}
		fmt.Fprintf(&builder, "%%%02x", char)
	}
	if builder.Len() <= maxKeyLength {
		return builder.String()
	}
	sum := sha256.Sum256([]byte(key))
	return "sha256-" + hex.EncodeToString(sum[:])
}

func isFileNameByte(char byte) bool {
	switch {
	case 'a' <= char && char <= 'z', 'A' <= char && char <= 'Z', '0' <= char && char <= '9':
		return true
	default:
		return char == '.' || char == '-' || char == '_'
	}
}
