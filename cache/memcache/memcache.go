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

// Package memcache provides an implementation of modsettings.Cache
// that is backed by a memcached instance: https://memcached.org/.
package memcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/bufbuild/modsettings"
)

// memcached rejects keys longer than this.
const maxKeyLength = 250

// Config represents the configuration parameters used to create a new
// memcached-backed cache.
type Config struct {
	// Required: the client used to talk to memcached.
	Client *memcache.Client
	// Prepended to every cache key. Useful when several watchers share
	// one memcached instance.
	KeyPrefix string
	// How long entries live. Zero means they do not expire.
	ExpirationSeconds int32
}

// New creates a new memcached-backed cache with the given configuration.
func New(config Config) (modsettings.Cache, error) {
	if config.Client == nil {
		return nil, errors.New("client cannot be nil")
	}
	if config.ExpirationSeconds < 0 {
		return nil, fmt.Errorf("expiration seconds (%d) cannot be negative", config.ExpirationSeconds)
	}
	if !legalKey(config.KeyPrefix) || len(config.KeyPrefix) > maxKeyLength-len("sha256-")-sha256.Size*2 {
		return nil, fmt.Errorf("key prefix %q is not usable as a memcached key", config.KeyPrefix)
	}
	return (*cache)(&config), nil
}

type cache Config

func (c *cache) Load(_ context.Context, key string) ([]byte, error) {
	item, err := c.Client.Get(c.itemKey(key))
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil, fmt.Errorf("%w: %v", modsettings.ErrCacheMiss, err)
	}
	if err != nil {
		return nil, err
	}
	return item.Value, nil
}

func (c *cache) Save(_ context.Context, key string, data []byte) error {
	item := &memcache.Item{
		Key:        c.itemKey(key),
		Value:      data,
		Expiration: c.ExpirationSeconds,
	}
	return c.Client.Set(item)
}

// itemKey prefixes key. Settings IDs are often file paths, which may hold
// spaces or be too long, so such keys are replaced by their SHA-256.
func (c *cache) itemKey(key string) string {
	full := c.KeyPrefix + key
	if len(full) <= maxKeyLength && legalKey(key) {
		return full
	}
	sum := sha256.Sum256([]byte(key))
	return c.KeyPrefix + "sha256-" + hex.EncodeToString(sum[:])
}

func legalKey(key string) bool {
	for i := 0; i < len(key); i++ {
		if key[i] <= ' ' || key[i] == 0x7f {
			return false
		}
	}
	return true
}
