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

// Package memcacheleaser provides an implementation of modsettings.Leaser
// that is backed by a memcached instance: https://memcached.org/.
package memcacheleaser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/bufbuild/modsettings"
	"github.com/bufbuild/modsettings/leaser"
)

const (
	defaultLeaseTTLSeconds = 30
	defaultPollingPeriod   = 10 * time.Second
)

// Config represents the configuration parameters used to create a new
// memcached-backed leaser.
type Config struct {
	// Required: the client used to talk to memcached.
	Client *memcache.Client
	// Prepended to every lease name. Must not contain spaces or control
	// characters.
	KeyPrefix string
	// How long a lease survives without being renewed. Defaults to 30.
	LeaseTTLSeconds int32
	// How often leases are renewed or, if not held, checked. Defaults to
	// ten seconds and must not exceed the lease TTL.
	PollingPeriod time.Duration
}

// New creates a new memcached-backed leaser with the given configuration.
func New(config Config) (modsettings.Leaser, error) {
	if config.Client == nil {
		return nil, errors.New("client cannot be nil")
	}
	if strings.IndexFunc(config.KeyPrefix, func(r rune) bool { return r <= ' ' || r == 0x7f }) >= 0 {
		return nil, fmt.Errorf("key prefix %q is not usable as a memcached key", config.KeyPrefix)
	}
	if config.LeaseTTLSeconds < 0 {
		return nil, fmt.Errorf("lease TTL seconds (%d) cannot be negative", config.LeaseTTLSeconds)
	}
	if config.LeaseTTLSeconds == 0 {
		config.LeaseTTLSeconds = defaultLeaseTTLSeconds
	}
	if config.PollingPeriod < 0 {
		return nil, fmt.Errorf("polling period (%v) cannot be negative", config.PollingPeriod)
	}
	if config.PollingPeriod == 0 {
		config.PollingPeriod = defaultPollingPeriod
	}
	leaseTTL := time.Duration(config.LeaseTTLSeconds) * time.Second
	if config.PollingPeriod > leaseTTL {
		return nil, fmt.Errorf("polling period (%v) should be <= lease TTL (%v)", config.PollingPeriod, leaseTTL)
	}
	return &leaser.PollingLeaser{
		LeaseStore: &leaseStore{
			client:    config.Client,
			keyPrefix: config.KeyPrefix,
		},
		LeaseTTL:      leaseTTL,
		PollingPeriod: config.PollingPeriod,
	}, nil
}

// leaseStore keeps each lease in an item holding the holder's bytes.
// memcached has no conditional delete, so an item with an empty value
// stands for a released lease.
type leaseStore struct {
	client    *memcache.Client
	keyPrefix string
}

func (l *leaseStore) TryAcquire(_ context.Context, leaseName string, leaseHolder []byte, ttl time.Duration) (bool, []byte, error) {
	key := l.keyPrefix + leaseName
	expiration := expirationSeconds(ttl)
	for {
		// The lease usually exists, so GET first and only ADD on a miss.
		item, err := l.client.Get(key)
		if errors.Is(err, memcache.ErrCacheMiss) {
			err := l.client.Add(&memcache.Item{Key: key, Value: leaseHolder, Expiration: expiration})
			if errors.Is(err, memcache.ErrNotStored) {
				// lost the race to create it
				continue
			}
			if err != nil {
				return false, nil, err
			}
			return true, leaseHolder, nil
		}
		if err != nil {
			return false, nil, err
		}
		switch {
		case len(item.Value) == 0:
			// released; take it over
			item.Value, item.Expiration = leaseHolder, expiration
			if err := l.client.CompareAndSwap(item); err != nil {
				if casConflict(err) {
					continue
				}
				return false, nil, err
			}
			return true, leaseHolder, nil
		case bytes.Equal(item.Value, leaseHolder):
			// renewing is best effort; the next poll tries again
			item.Expiration = expiration
			_ = l.client.CompareAndSwap(item)
		}
		return false, item.Value, nil
	}
}

func (l *leaseStore) Release(_ context.Context, leaseName string, leaseHolder []byte) error {
	key := l.keyPrefix + leaseName
	for {
		item, err := l.client.Get(key)
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil
		}
		if err != nil {
			return err
		}
		if !bytes.Equal(item.Value, leaseHolder) {
			return nil
		}
		// Empty the value instead of deleting, since a delete could race
		// with another process taking the lease.
		item.Value, item.Expiration = nil, 1
		err = l.client.CompareAndSwap(item)
		if casConflict(err) {
			continue
		}
		return err
	}
}

// expirationSeconds converts ttl to memcached's expiration, which has a
// resolution of one second. Zero would mean "never expires".
func expirationSeconds(ttl time.Duration) int32 {
	return max(int32(ttl/time.Second), 1)
}

func casConflict(err error) bool {
	return errors.Is(err, memcache.ErrCASConflict) || errors.Is(err, memcache.ErrNotStored)
}
