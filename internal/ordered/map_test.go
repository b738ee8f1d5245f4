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

package ordered

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap(t *testing.T) {
	t.Parallel()
	t.Run("insertion order", func(t *testing.T) {
		t.Parallel()
		m := New[int](0)
		for i, k := range []string{"zeta", "alpha", "mid"} {
			assert.True(t, m.Set(k, i))
		}
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, m.Keys())
		assert.Equal(t, 3, m.Len())
	})
	t.Run("replace keeps position", func(t *testing.T) {
		t.Parallel()
		m := New[string](2)
		m.Set("a", "1")
		m.Set("b", "2")
		assert.False(t, m.Set("a", "3"))
		assert.Equal(t, []string{"a", "b"}, m.Keys())
		val, ok := m.Get("a")
		require.True(t, ok)
		assert.Equal(t, "3", val)
	})
	t.Run("delete reindexes", func(t *testing.T) {
		t.Parallel()
		m := New[int](0)
		m.Set("a", 1)
		m.Set("b", 2)
		m.Set("c", 3)
		assert.True(t, m.Delete("a"))
		assert.False(t, m.Delete("a"))
		val, ok := m.Get("c")
		require.True(t, ok)
		assert.Equal(t, 3, val)
		assert.Equal(t, []string{"b", "c"}, m.Keys())
		m.Set("a", 4)
		assert.Equal(t, []string{"b", "c", "a"}, m.Keys())
	})
	t.Run("zero value", func(t *testing.T) {
		t.Parallel()
		var m Map[int]
		_, ok := m.Get("missing")
		assert.False(t, ok)
		m.Set("x", 1)
		assert.True(t, m.Has("x"))
		var nilMap *Map[int]
		assert.Equal(t, 0, nilMap.Len())
		assert.Nil(t, nilMap.Keys())
	})
	t.Run("range stops early", func(t *testing.T) {
		t.Parallel()
		m := New[int](0)
		m.Set("a", 1)
		m.Set("b", 2)
		var seen []string
		m.Range(func(key string, _ int) bool {
			seen = append(seen, key)
			return false
		})
		assert.Equal(t, []string{"a"}, seen)
	})
}
