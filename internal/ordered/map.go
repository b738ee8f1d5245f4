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

// Package ordered provides a string-keyed map that remembers insertion order.
package ordered

// Map is a string-keyed map that iterates in insertion order. Replacing the
// value of an existing key keeps the key in its original position. The zero
// value is an empty map ready for use.
type Map[V any] struct {
	keys  []string
	index map[string]int
	vals  []V
}

// New returns an empty map with room for capacity entries. The capacity is
// only a hint.
func New[V any](capacity int) *Map[V] {
	return &Map[V]{
		keys:  make([]string, 0, capacity),
		index: make(map[string]int, capacity),
		vals:  make([]V, 0, capacity),
	}
}

// Len returns the number of entries.
func (m *Map[V]) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Get returns the value stored under key.
func (m *Map[V]) Get(key string) (V, bool) {
	if m == nil || m.index == nil {
		var zero V
		return zero, false
	}
	i, ok := m.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	return m.vals[i], true
}

// Has reports whether key is present.
func (m *Map[V]) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores val under key. New keys are appended; existing keys keep their
// position. It reports whether the key was newly added.
func (m *Map[V]) Set(key string, val V) bool {
	if m.index == nil {
		m.index = map[string]int{}
	}
	if i, ok := m.index[key]; ok {
		m.vals[i] = val
		return false
	}
	m.index[key] = len(m.keys)
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, val)
	return true
}

// Delete removes key, preserving the relative order of the remaining
// entries. It reports whether the key was present.
func (m *Map[V]) Delete(key string) bool {
	if m == nil || m.index == nil {
		return false
	}
	i, ok := m.index[key]
	if !ok {
		return false
	}
	delete(m.index, key)
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.vals = append(m.vals[:i], m.vals[i+1:]...)
	for j := i; j < len(m.keys); j++ {
		m.index[m.keys[j]] = j
	}
	return true
}

// Keys returns a copy of the keys in order.
func (m *Map[V]) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Range calls fn for each entry in order until fn returns false. The map
// must not be modified during iteration.
func (m *Map[V]) Range(fn func(key string, val V) bool) {
	if m == nil {
		return
	}
	for i, key := range m.keys {
		if !fn(key, m.vals[i]) {
			return
		}
	}
}
