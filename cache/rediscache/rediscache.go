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

// Package rediscache provides an implementation of modsettings.Cache
// that is backed by a Redis instance: https://redis.io/.
package rediscache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bufbuild/modsettings"
	"github.com/gomodule/redigo/redis"
)

// Config represents the configuration parameters used to create a new
// Redis-backed cache.
type Config struct {
	// Required: the pool of connections to Redis.
	Client *redis.Pool
	// Prepended to every cache key.
	KeyPrefix string
	// How long entries live. Zero means they do not expire. Durations
	// below one millisecond are treated as zero.
	Expiration time.Duration
}

// New creates a new Redis-backed cache with the given configuration.
func New(config Config) (modsettings.Cache, error) {
	if config.Client == nil {
		return nil, errors.New("client cannot be nil")
	}
	if config.Expiration < 0 {
		return nil, fmt.Errorf("expiration (%v) cannot be negative", config.Expiration)
	}
	return (*cache)(&config), nil
}

type cache Config

func (c *cache) Load(ctx context.Context, key string) ([]byte, error) {
	conn, err := c.Client.GetContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = conn.Close()
	}()
	data, err := redis.Bytes(redis.DoContext(conn, ctx, "GET", c.KeyPrefix+key))
	if errors.Is(err, redis.ErrNil) {
		return nil, fmt.Errorf("%w: %q", modsettings.ErrCacheMiss, key)
	}
	return data, err
}

func (c *cache) Save(ctx context.Context, key string, data []byte) error {
	conn, err := c.Client.GetContext(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Close()
	}()
	_, err = redis.DoContext(conn, ctx, "SET", c.setArgs(key, data)...)
	return err
}

func (c *cache) setArgs(key string, data []byte) []any {
	args := []any{c.KeyPrefix + key, data}
	if millis := c.Expiration.Milliseconds(); millis > 0 {
		args = append(args, "PX", millis)
	}
	return args
}
