// Copyright 2026 Buf Technologies, Inc.
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

package memcacheleaser

import (
	"testing"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ConfigValidation(t *testing.T) {
	t.Parallel()
	client := memcache.New("localhost:11211")
	testCases := []struct {
		name      string
		config    Config
		expectErr string
	}{
		{
			name:      "no client",
			config:    Config{},
			expectErr: "client cannot be nil",
		},
		{
			name:      "prefix with space",
			config:    Config{Client: client, KeyPrefix: "my lease:"},
			expectErr: `key prefix "my lease:" is not usable as a memcached key`,
		},
		{
			name:      "negative TTL",
			config:    Config{Client: client, LeaseTTLSeconds: -1},
			expectErr: "lease TTL seconds (-1) cannot be negative",
		},
		{
			name:      "negative polling period",
			config:    Config{Client: client, PollingPeriod: -time.Second},
			expectErr: "polling period (-1s) cannot be negative",
		},
		{
			name:      "polling slower than TTL",
			config:    Config{Client: client, LeaseTTLSeconds: 5, PollingPeriod: 6 * time.Second},
			expectErr: "polling period (6s) should be <= lease TTL (5s)",
		},
	}
	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(testCase.config)
			require.EqualError(t, err, testCase.expectErr)
		})
	}
}

func TestExpirationSeconds(t *testing.T) {
	t.Parallel()
	assert.Equal(t, int32(1), expirationSeconds(0))
	assert.Equal(t, int32(1), expirationSeconds(500*time.Millisecond))
	assert.Equal(t, int32(1), expirationSeconds(1900*time.Millisecond))
	assert.Equal(t, int32(30), expirationSeconds(30*time.Second))
}
