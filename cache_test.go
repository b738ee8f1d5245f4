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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheEntryRoundTrip(t *testing.T) {
	t.Parallel()
	entry := &cacheEntry{
		settingsID: "/srv/factorio/mods/mod-settings.dat",
		version:    "abcdefg",
		data:       []byte{1, 0, 1, 0, 82, 0, 4, 0, 0, 0, 0},
		pollTime:   time.Date(2023, time.January, 1, 12, 0, 0, 500, time.UTC),
	}
	data, err := encodeForCache(entry)
	require.NoError(t, err)
	roundTrip, err := decodeForCache(data)
	require.NoError(t, err)
	assert.Equal(t, entry.settingsID, roundTrip.settingsID)
	assert.Equal(t, entry.version, roundTrip.version)
	assert.Equal(t, entry.data, roundTrip.data)
	assert.True(t, roundTrip.pollTime.Equal(entry.pollTime))
}

func TestDecodeForCache_Invalid(t *testing.T) {
	t.Parallel()
	_, err := decodeForCache([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)

	// dropping the trailing poll_time field (tag, length, seconds) leaves a
	// message without a poll time
	data, err := encodeForCache(&cacheEntry{settingsID: "foo", pollTime: time.Unix(1, 0)})
	require.NoError(t, err)
	_, err = decodeForCache(data[:len(data)-4])
	require.Error(t, err)
}
