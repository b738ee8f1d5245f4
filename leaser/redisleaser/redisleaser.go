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

// Package redisleaser provides an implementation of modsettings.Leaser
// that is backed by a Redis instance: https://redis.io/.
package redisleaser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bufbuild/modsettings"
	"github.com/bufbuild/modsettings/leaser"
	"github.com/gomodule/redigo/redis"
)

const (
	defaultLeaseTTL      = 30 * time.Second
	defaultPollingPeriod = 10 * time.Second
)

//nolint:gochecknoglobals
var (
	// tryAcquireScript atomically tries to acquire a lease by creating a
	// new key. If the key exists and names the current process, the
	// lease's TTL is bumped instead. Requires Redis 7.
	//
	//	KEYS[1]: the lease key
	//	ARGV[1]: the desired leaseholder value (current process)
	//	ARGV[2]: desired lease TTL in milliseconds
	//
	// Returns {created, holder}.
	tryAcquireScript = redis.NewScript(1, `
		redis.setresp(3)
		local resp = redis.call('set', KEYS[1], ARGV[1], 'get', 'nx', 'px', ARGV[2])
		if resp == nil then
		  return {true, ARGV[1]}
		elseif resp == ARGV[1] then
		  redis.call('pexpire', KEYS[1], ARGV[2], 'lt')
		end
		return {false, resp}
		`)

	// releaseScript deletes the lease key if, and only if, the current
	// process holds it.
	//
	//	KEYS[1]: the lease key
	//	ARGV[1]: the leaseholder value of the current process
	releaseScript = redis.NewScript(1, `
		if redis.call('get', KEYS[1]) == ARGV[1] then redis.call('del', KEYS[1]) end
		`)
)

// Config represents the configuration parameters used to create a new
// Redis-backed leaser.
type Config struct {
	// Required: the pool of connections to Redis.
	Client *redis.Pool
	// Prepended to every lease name.
	KeyPrefix string
	// How long a lease survives without being renewed. Defaults to 30s.
	LeaseTTL time.Duration
	// How often leases are renewed or, if not held, checked. Defaults to
	// ten seconds and must not exceed LeaseTTL.
	PollingPeriod time.Duration
}

// New creates a new Redis-backed leaser with the given configuration.
func New(config Config) (modsettings.Leaser, error) {
	if config.Client == nil {
		return nil, errors.New("client cannot be nil")
	}
	if config.LeaseTTL < 0 {
		return nil, fmt.Errorf("lease TTL (%v) cannot be negative", config.LeaseTTL)
	}
	if config.LeaseTTL == 0 {
		config.LeaseTTL = defaultLeaseTTL
	}
	if config.PollingPeriod < 0 {
		return nil, fmt.Errorf("polling period (%v) cannot be negative", config.PollingPeriod)
	}
	if config.PollingPeriod == 0 {
		config.PollingPeriod = defaultPollingPeriod
	}
	if config.PollingPeriod > config.LeaseTTL {
		return nil, fmt.Errorf("polling period (%v) should be <= lease TTL (%v)", config.PollingPeriod, config.LeaseTTL)
	}
	return &leaser.PollingLeaser{
		LeaseStore: &leaseStore{
			pool:      config.Client,
			keyPrefix: config.KeyPrefix,
		},
		LeaseTTL:      config.LeaseTTL,
		PollingPeriod: config.PollingPeriod,
	}, nil
}

type leaseStore struct {
	pool      *redis.Pool
	keyPrefix string
}

func (l *leaseStore) TryAcquire(ctx context.Context, leaseName string, leaseHolder []byte, ttl time.Duration) (bool, []byte, error) {
	conn, err := l.pool.GetContext(ctx)
	if err != nil {
		return false, nil, err
	}
	defer func() {
		_ = conn.Close()
	}()
	// the TTL must not be zero
	ttlMillis := max(ttl.Milliseconds(), 1)
	resp, err := redis.Values(tryAcquireScript.DoContext(ctx, conn, l.keyPrefix+leaseName, leaseHolder, ttlMillis))
	if err != nil {
		return false, nil, err
	}
	return parseTryAcquire(resp)
}

func parseTryAcquire(resp []any) (bool, []byte, error) {
	if len(resp) != 2 {
		return false, nil, fmt.Errorf("tryacquire script returned %d values, want 2", len(resp))
	}
	created, err := redis.Bool(resp[0], nil)
	if err != nil {
		return false, nil, fmt.Errorf("tryacquire script returned non-bool for first value: %w", err)
	}
	holder, err := redis.Bytes(resp[1], nil)
	if err != nil {
		return false, nil, fmt.Errorf("tryacquire script returned non-bytes for second value: %w", err)
	}
	return created, holder, nil
}

func (l *leaseStore) Release(ctx context.Context, leaseName string, leaseHolder []byte) error {
	conn, err := l.pool.GetContext(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = conn.Close()
	}()
	_, err = releaseScript.DoContext(ctx, conn, l.keyPrefix+leaseName, leaseHolder)
	return err
}
