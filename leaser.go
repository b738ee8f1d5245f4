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
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

// ErrLeaseStateNotYetKnown is an error that may be returned by Lease.IsHeld
// to indicate that the leaser has not yet completed querying for the
// lease's initial state.
var ErrLeaseStateNotYetKnown = errors.New("haven't completed initial lease check yet")

//nolint:gochecknoglobals
var (
	startNanos = uint64(time.Now().UnixNano())

	currentProcessOnce sync.Once
	currentProcessVal  protoreflect.Message
	currentProcessErr  error //nolint:errname
)

// Leaser provides access to long-lived distributed leases, for leader
// election. A SettingsWatcher configured with a Leaser only polls the
// settings source while it holds the lease. The other watchers sharing the
// lease ("followers") read the settings the leader saved to the shared
// Cache instead. This keeps a fleet of servers from all hitting the same
// settings source.
type Leaser interface {
	// NewLease tries to acquire the given lease name. This returns a lease
	// object, which represents the state of the new lease, and whether the
	// current process holds it or not.
	//
	// Implementations should monitor the lease store so that if the lease
	// is not held but suddenly becomes available (e.g. the current
	// leaseholder releases it or crashes), another process can immediately
	// pick it up. The leaseHolder bytes identify the current process and
	// may be persisted in the lease store; comparing the stored value to
	// them tells whether the current process holds the lease.
	//
	// This may start background goroutines. To release them, callers must
	// call Lease.Cancel or cancel the given context.
	NewLease(ctx context.Context, leaseName string, leaseHolder []byte) Lease
}

// Lease represents a long-lived distributed lease.
type Lease interface {
	// IsHeld returns whether the current process holds the lease. If it
	// returns an error, then it is not known who holds the lease, and the
	// error indicates why not. A SettingsWatcher only polls its source
	// while this returns (true, nil).
	IsHeld() (bool, error)
	// SetCallbacks configures the given functions to be called when the
	// lease is acquired or released. The initial state of a lease is "not
	// held", so if the lease is not held at the time this method is
	// invoked, neither callback is invoked. But if it IS held, onAcquire is
	// invoked immediately. Callbacks are never invoked concurrently.
	SetCallbacks(onAcquire, onRelease func())
	// Cancel cancels this lease and frees any associated resources. If the
	// lease is currently held, it is released right away and any onRelease
	// callback is invoked. To acquire the same lease again later, create a
	// new one with the Leaser.
	Cancel()
}

// leaseHolderBytes returns the value that identifies the current process in
// a lease store: a serialized modsettings.v1.LeaseEntry. If userProvided is
// nil, the entry describes this host and process.
func leaseHolderBytes(userProvided []byte) ([]byte, error) {
	fields := leaseEntryDescriptor.Fields()
	entry := dynamicpb.NewMessage(leaseEntryDescriptor)
	if userProvided != nil {
		entry.Set(fields.ByName("user_provided"), protoreflect.ValueOfBytes(userProvided))
	} else {
		holder, err := currentProcess()
		if err != nil {
			return nil, fmt.Errorf("failed to compute current process bytes for lease: %w", err)
		}
		entry.Set(fields.ByName("computed"), protoreflect.ValueOfMessage(holder))
	}
	data, err := proto.MarshalOptions{Deterministic: true}.Marshal(entry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal current process info to bytes for lease: %w", err)
	}
	return data, nil
}

func currentProcess() (protoreflect.Message, error) {
	currentProcessOnce.Do(func() {
		var errs []error
		hostname, err := os.Hostname()
		if err != nil {
			errs = append(errs, err)
		}
		ipAddress, macAddress, err := preferredAddress()
		if err != nil {
			errs = append(errs, err)
		}
		// At least the host name or the IP address is needed.
		if hostname == "" && len(ipAddress) == 0 {
			if len(errs) == 0 {
				errs = append(errs, errors.New("internal: could not compute non-empty hostname or IP address for lease holder"))
			}
			currentProcessErr = errors.Join(errs...)
			return
		}
		fields := leaseHolderDescriptor.Fields()
		holder := dynamicpb.NewMessage(leaseHolderDescriptor)
		holder.Set(fields.ByName("hostname"), protoreflect.ValueOfString(hostname))
		holder.Set(fields.ByName("ip_address"), protoreflect.ValueOfBytes(ipAddress))
		holder.Set(fields.ByName("mac_address"), protoreflect.ValueOfBytes(macAddress))
		holder.Set(fields.ByName("pid"), protoreflect.ValueOfUint64(uint64(os.Getpid())))
		holder.Set(fields.ByName("start_nanos"), protoreflect.ValueOfUint64(startNanos))
		currentProcessVal = holder
	})
	return currentProcessVal, currentProcessErr
}

// preferredAddress returns the IP address of the host's preferred network
// interface and, if it can be found, that interface's MAC address.
func preferredAddress() (net.IP, net.HardwareAddr, error) {
	// UDP isn't stateful, so this does not actually send anything. The
	// local address of the socket is the host's preferred outbound IP.
	conn, err := net.Dial("udp", "8.8.8.8:53")
	if err != nil {
		return nil, nil, err
	}
	defer conn.Close()
	udpAddr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok || len(udpAddr.IP) == 0 || udpAddr.IP.IsLoopback() {
		return nil, nil, nil
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return udpAddr.IP, nil, err
	}
	var addrErr error
	for _, iface := range ifaces {
		if len(iface.HardwareAddr) == 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			// only reported if no interface matches
			addrErr = err
			continue
		}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok && ipNet.IP.Equal(udpAddr.IP) {
				return udpAddr.IP, iface.HardwareAddr, nil
			}
		}
	}
	return udpAddr.IP, nil, addrErr
}
