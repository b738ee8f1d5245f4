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

// Package leaser provides a modsettings.Leaser that is built on top of a
// simple lease store, so that only one of several SettingsWatchers polls
// the settings source. Store implementations for memcached and Redis live
// in the sub-packages.
package leaser

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/bufbuild/modsettings"
)

// PollingLeaser implements modsettings.Leaser by polling a lease store,
// periodically trying to create a lease or query for the current owner.
// This is suitable for many types of stores, including Redis, memcached, or
// an RDBMS. It is not necessarily suitable for stores that have better
// primitives for leader election, such as ZooKeeper.
type PollingLeaser struct {
	LeaseStore    LeaseStore
	LeaseTTL      time.Duration
	PollingPeriod time.Duration
}

var _ modsettings.Leaser = (*PollingLeaser)(nil)

// LeaseStore is the interface used to try to acquire and release leases.
type LeaseStore interface {
	// TryAcquire tries to create a lease with the given leaseName and
	// leaseHolder. If that succeeds, the first value is true. Otherwise the
	// store returns the holder recorded in the existing lease. If that
	// holder is leaseHolder, the store must extend the lease's TTL so the
	// current process keeps it.
	//
	// This is invoked on every poll, whether or not the current process
	// holds the lease, so it must do all of this atomically to be correct
	// when several processes manage the same leaseName.
	TryAcquire(ctx context.Context, leaseName string, leaseHolder []byte, ttl time.Duration) (created bool, holder []byte, err error)
	// Release deletes the lease if, and only if, it is held by
	// leaseHolder. It is only called when the current process believes it
	// holds the lease.
	Release(ctx context.Context, leaseName string, leaseHolder []byte) error
}

// NewLease implements the modsettings.Leaser interface.
func (l *PollingLeaser) NewLease(ctx context.Context, leaseName string, leaseHolder []byte) modsettings.Lease {
	ctx, cancel := context.WithCancel(ctx)
	newLease := &lease{
		leaser: l,
		name:   leaseName,
		holder: leaseHolder,
		cancel: cancel,
		done:   make(chan struct{}),
		err:    modsettings.ErrLeaseStateNotYetKnown,
	}
	go newLease.run(ctx)
	return newLease
}

type lease struct {
	leaser *PollingLeaser
	name   string
	holder []byte
	cancel context.CancelFunc
	done   chan struct{}

	mu                   sync.Mutex
	isHeld               bool
	err                  error
	onAcquire, onRelease func()

	// serializes callbacks
	notifyMu sync.Mutex
}

func (l *lease) IsHeld() (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isHeld, l.err
}

func (l *lease) SetCallbacks(onAcquire, onRelease func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onAcquire, l.onRelease = onAcquire, onRelease
	if l.isHeld {
		l.notify(onAcquire)
	}
}

func (l *lease) Cancel() {
	l.cancel()
	<-l.done
}

func (l *lease) run(ctx context.Context) {
	defer close(l.done)
	ticker := time.NewTicker(l.leaser.PollingPeriod)
	defer ticker.Stop()
	for {
		l.poll(ctx)
		select {
		case <-ctx.Done():
			l.releaseNow()
			return
		case <-ticker.C:
			if ctx.Err() != nil {
				l.releaseNow()
				return
			}
		}
	}
}

func (l *lease) poll(ctx context.Context) {
	created, holder, err := l.leaser.LeaseStore.TryAcquire(ctx, l.name, l.holder, l.leaser.LeaseTTL)
	switch {
	case err != nil:
		l.setHeld(false, err)
	case created, bytes.Equal(holder, l.holder):
		l.setHeld(true, nil)
	default:
		l.setHeld(false, nil)
	}
}

func (l *lease) releaseNow() {
	if held, _ := l.IsHeld(); held {
		// Best effort. The lease context is already done, so give the
		// store a short deadline of its own.
		ctx, cancel := context.WithTimeout(context.Background(), l.leaser.PollingPeriod)
		_ = l.leaser.LeaseStore.Release(ctx, l.name, l.holder)
		cancel()
	}
	l.setHeld(false, nil)
}

func (l *lease) setHeld(held bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case held && !l.isHeld:
		l.notify(l.onAcquire)
	case !held && l.isHeld:
		l.notify(l.onRelease)
	}
	l.isHeld = held
	l.err = err
}

// notify runs fn in the background, one callback at a time. Must be called
// with l.mu held.
func (l *lease) notify(fn func()) {
	if fn == nil {
		return
	}
	go func() {
		l.notifyMu.Lock()
		defer l.notifyMu.Unlock()
		fn()
	}()
}
