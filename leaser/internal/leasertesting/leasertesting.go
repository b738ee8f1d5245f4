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

// Package leasertesting holds tests shared by the lease store
// implementations.
package leasertesting

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bufbuild/modsettings"
	"github.com/stretchr/testify/require"
)

// trackedLease records the callbacks of one lease.
type trackedLease struct {
	t     *testing.T
	name  string
	lease modsettings.Lease

	mu                   sync.Mutex
	acquired, released   int
	acquiredC, releasedC chan struct{}
}

func track(t *testing.T, name string, lease modsettings.Lease) *trackedLease {
	t.Helper()
	return &trackedLease{
		t:         t,
		name:      name,
		lease:     lease,
		acquiredC: make(chan struct{}, 1),
		releasedC: make(chan struct{}, 1),
	}
}

func (l *trackedLease) setCallbacks() {
	l.lease.SetCallbacks(l.callback(true), l.callback(false))
}

func (l *trackedLease) callback(acquired bool) func() {
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		channel, event := l.releasedC, "released"
		if acquired {
			channel, event = l.acquiredC, "acquired"
			l.acquired++
		} else {
			l.released++
		}
		select {
		case channel <- struct{}{}:
		default:
			event += " (could not notify; channel full)"
		}
		l.t.Log(l.name, event)
	}
}

// checkInitial waits for the first lease check to complete.
func (l *trackedLease) checkInitial(expectHeld bool) {
	l.t.Helper()
	for i := range 4 {
		held, err := l.lease.IsHeld()
		if err == nil {
			require.Equal(l.t, expectHeld, held, l.name)
			return
		}
		require.ErrorIs(l.t, err, modsettings.ErrLeaseStateNotYetKnown)
		if i < 3 {
			time.Sleep(50 * time.Millisecond)
		}
	}
	require.Fail(l.t, "lease never checked successfully", l.name)
}

func (l *trackedLease) await(channel chan struct{}, expectAcquired, expectReleased int) {
	l.t.Helper()
	select {
	case <-time.After(500 * time.Millisecond):
		require.Fail(l.t, "callback never invoked", l.name)
	case <-channel:
	}
	l.requireCounts(expectAcquired, expectReleased)
}

func (l *trackedLease) expectNone(expectAcquired, expectReleased int) {
	l.t.Helper()
	select {
	case <-l.acquiredC:
		require.Fail(l.t, "acquired callback invoked but should not have been", l.name)
	case <-l.releasedC:
		require.Fail(l.t, "released callback invoked but should not have been", l.name)
	default:
	}
	l.requireCounts(expectAcquired, expectReleased)
}

func (l *trackedLease) requireCounts(expectAcquired, expectReleased int) {
	l.t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()
	require.Equal(l.t, expectAcquired, l.acquired, l.name+" acquired")
	require.Equal(l.t, expectReleased, l.released, l.name+" released")
}

// RunSimpleLeaserTests checks acquiring, handing over and releasing leases.
// If forceOwner is not nil, it is used to overwrite the holder of a lease
// behind the leaser's back. The returned map has the expected final holder
// of each remaining lease.
//
//nolint:revive // okay that ctx is second; prefer t to be first
func RunSimpleLeaserTests(t *testing.T, ctx context.Context, leaser modsettings.Leaser, forceOwner func(key string, val []byte) error) map[string][]byte {
	t.Helper()

	aForX := track(t, "a:x", leaser.NewLease(ctx, "a", []byte{'x'}))
	aForX.checkInitial(true)
	aForX.setCallbacks()
	aForX.await(aForX.acquiredC, 1, 0)

	aForY := track(t, "a:y", leaser.NewLease(ctx, "a", []byte{'y'}))
	aForY.checkInitial(false)
	aForY.setCallbacks()
	time.Sleep(200 * time.Millisecond)
	aForY.expectNone(0, 0)

	bForX := track(t, "b", leaser.NewLease(ctx, "b", []byte{'x'}))
	bForX.checkInitial(true)
	bForX.setCallbacks()
	bForX.await(bForX.acquiredC, 1, 0)

	cForX := track(t, "c", leaser.NewLease(ctx, "c", []byte{'x'}))
	cForX.checkInitial(true)
	cForX.setCallbacks()
	cForX.await(cForX.acquiredC, 1, 0)

	dCtx, dCancel := context.WithCancel(ctx)
	dForZ := track(t, "d", leaser.NewLease(dCtx, "d", []byte{'z'}))
	dForZ.checkInitial(true)
	dForZ.setCallbacks()
	dForZ.await(dForZ.acquiredC, 1, 0)

	// cancelling hands the lease over to the other process
	aForX.lease.Cancel()
	aForX.await(aForX.releasedC, 1, 1)
	aForY.await(aForY.acquiredC, 1, 0)
	held, err := aForX.lease.IsHeld()
	require.NoError(t, err)
	require.False(t, held)

	dCancel()
	dForZ.await(dForZ.releasedC, 1, 1)

	finalOwners := map[string][]byte{
		"a": {'y'},
		"b": {'x'},
		"c": {'x'},
	}
	cExpectReleased := 0
	if forceOwner != nil {
		require.NoError(t, forceOwner("c", []byte{'x', 'y', 'z'}))
		cForX.await(cForX.releasedC, 1, 1)
		finalOwners["c"] = []byte{'x', 'y', 'z'}
		cExpectReleased = 1
	}

	// final check of stats and signals
	time.Sleep(200 * time.Millisecond)
	aForX.expectNone(1, 1)
	aForY.expectNone(1, 0)
	bForX.expectNone(1, 0)
	cForX.expectNone(1, cExpectReleased)
	dForZ.expectNone(1, 1)
	return finalOwners
}
