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
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// ErrCacheMiss is returned by Cache implementations when there is no entry
// for the requested key.
var ErrCacheMiss = errors.New("cache miss")

// Cache can be implemented and supplied to a [SettingsWatcher] for added
// guarantees in environments where uptime is critical. If present and the
// initial poll for settings fails, the settings will instead be loaded from
// this cache. Whenever a new version of the settings is polled, it will be
// saved to the cache. Cache can be used from multiple goroutines and thus
// must be thread-safe.
//
// Load should return an error that wraps ErrCacheMiss when key is not present.
type Cache interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// cacheEntry is a polled settings payload, stored in a Cache as a
// modsettings.v1.CacheEntry message.
type cacheEntry struct {
	settingsID string
	version    string
	data       []byte
	pollTime   time.Time
}

func encodeForCache(entry *cacheEntry) ([]byte, error) {
	fields := cacheEntryDescriptor.Fields()
	msg := dynamicpb.NewMessage(cacheEntryDescriptor)
	msg.Set(fields.ByName("settings_id"), protoreflect.ValueOfString(entry.settingsID))
	msg.Set(fields.ByName("version"), protoreflect.ValueOfString(entry.version))
	msg.Set(fields.ByName("data"), protoreflect.ValueOfBytes(entry.data))
	msg.Set(fields.ByName("poll_time"), protoreflect.ValueOfMessage(timestamppb.New(entry.pollTime).ProtoReflect()))
	return proto.Marshal(msg)
}

func decodeForCache(data []byte) (*cacheEntry, error) {
	msg := dynamicpb.NewMessage(cacheEntryDescriptor)
	if err := proto.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	fields := cacheEntryDescriptor.Fields()
	entry := &cacheEntry{
		settingsID: msg.Get(fields.ByName("settings_id")).String(),
		version:    msg.Get(fields.ByName("version")).String(),
		data:       msg.Get(fields.ByName("data")).Bytes(),
	}
	pollTimeField := fields.ByName("poll_time")
	if !msg.Has(pollTimeField) {
		return nil, errors.New("cache entry has no poll time")
	}
	// the nested message is dynamic too, so copy it into a concrete timestamp
	pollTime := &timestamppb.Timestamp{}
	nested, err := proto.Marshal(msg.Get(pollTimeField).Message().Interface())
	if err != nil {
		return nil, err
	}
	if err := proto.Unmarshal(nested, pollTime); err != nil {
		return nil, err
	}
	if err := pollTime.CheckValid(); err != nil {
		return nil, err
	}
	entry.pollTime = pollTime.AsTime()
	return entry, nil
}
