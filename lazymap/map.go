// Copyright 2026 The LUCI Authors.
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

package lazymap

import (
	"maps"
	"slices"
	"sync"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/errors/errtag"
)

// ContractViolation tags errors caused by misuse of the package, such as
// building a Map from a nil source.
var ContractViolation = errtag.Make("lazymap contract violation", true)

// Map is a key/value container safe for concurrent use.
//
// The zero value is an empty Map without a factory.
type Map[K comparable, V any] struct {
	mu      sync.RWMutex
	m       map[K]V
	factory func(K) V
}

// Option configures a Map.
type Option[K comparable, V any] func(*Map[K, V])

// WithFactory makes Get build values for missing keys with f.
//
// f runs with the map locked: it must not call back into the same Map.
func WithFactory[K comparable, V any](f func(K) V) Option[K, V] {
	return func(m *Map[K, V]) {
		m.factory = f
	}
}

// New returns an empty Map.
func New[K comparable, V any](opts ...Option[K, V]) *Map[K, V] {
	m := &Map[K, V]{m: map[K]V{}}
	for _, o := range opts {
		o(m)
	}
	return m
}

// FromMap returns a Map holding a copy of src.
//
// A nil src is a ContractViolation: an empty, non-nil map means "no data".
func FromMap[K comparable, V any](src map[K]V, opts ...Option[K, V]) (*Map[K, V], error) {
	if src == nil {
		return nil, ContractViolation.Apply(errors.New("lazymap: nil source map"))
	}
	m := New(opts...)
	maps.Copy(m.m, src)
	return m, nil
}

// FromValues returns a Map of values keyed by key(value).
//
// A nil values slice is a ContractViolation.
func FromValues[K comparable, V any](values []V, key func(V) K, opts ...Option[K, V]) (*Map[K, V], error) {
	if values == nil {
		return nil, ContractViolation.Apply(errors.New("lazymap: nil source values"))
	}
	m := New(opts...)
	for _, v := range values {
		m.m[key(v)] = v
	}
	return m, nil
}

func (m *Map[K, V]) init() {
	if m.m == nil {
		m.m = map[K]V{}
	}
}

// HasFactory is true if Get builds missing values.
func (m *Map[K, V]) HasFactory() bool {
	return m.factory != nil
}

// Get returns the value for k.
//
// On a missing key a Map with a factory stores and returns a new value, a
// Map without one returns the zero value and false.
func (m *Map[K, V]) Get(k K) (V, bool) {
	if v, ok := m.Lookup(k); ok || m.factory == nil {
		return v, ok
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.m[k]; ok {
		return v, true
	}
	m.init()
	v := m.factory(k)
	m.m[k] = v
	return v, true
}

// Lookup returns the value for k without calling the factory.
func (m *Map[K, V]) Lookup(k K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.m[k]
	return v, ok
}

// Contains is true if k has a value.
func (m *Map[K, V]) Contains(k K) bool {
	_, ok := m.Lookup(k)
	return ok
}

// Put stores v under k, replacing any previous value.
func (m *Map[K, V]) Put(k K, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	m.m[k] = v
}

// PutIfAbsent stores v under k unless k already has a value, and returns
// the value k ends up with.
func (m *Map[K, V]) PutIfAbsent(k K, v V) (actual V, stored bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.m[k]; ok {
		return cur, false
	}
	m.init()
	m.m[k] = v
	return v, true
}

// PutAll copies every entry of src into m.
func (m *Map[K, V]) PutAll(src map[K]V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init()
	maps.Copy(m.m, src)
}

// Delete removes k and returns its value, if any.
func (m *Map[K, V]) Delete(k K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[k]
	delete(m.m, k)
	return v, ok
}

// DeleteFunc removes the entries for which del returns true, and returns
// how many were removed.
//
// del runs with the map locked.
func (m *Map[K, V]) DeleteFunc(del func(K, V) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.m)
	maps.DeleteFunc(m.m, del)
	return before - len(m.m)
}

// Clear removes all entries.
func (m *Map[K, V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.m)
}

// Len is the number of entries.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.m)
}

// Snapshot returns a copy of the entries.
func (m *Map[K, V]) Snapshot() map[K]V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[K]V, len(m.m))
	maps.Copy(out, m.m)
	return out
}

// Keys returns the keys, in no particular order.
func (m *Map[K, V]) Keys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Collect(maps.Keys(m.m))
}

// Values returns the values, in no particular order.
func (m *Map[K, V]) Values() []V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Collect(maps.Values(m.m))
}

// Range calls fn for every entry of a snapshot of m until fn returns false.
//
// fn may modify m.
func (m *Map[K, V]) Range(fn func(K, V) bool) {
	for k, v := range m.Snapshot() {
		if !fn(k, v) {
			return
		}
	}
}

// EqualFunc compares the entries of m and other with eq. Factories are not
// compared.
func (m *Map[K, V]) EqualFunc(other *Map[K, V], eq func(V, V) bool) bool {
	if m == other {
		return true
	}
	if m == nil || other == nil {
		return false
	}
	return maps.EqualFunc(m.Snapshot(), other.Snapshot(), eq)
}

// Equal compares the entries of a and b. Factories are not compared.
func Equal[K, V comparable](a, b *Map[K, V]) bool {
	return a.EqualFunc(b, func(x, y V) bool { return x == y })
}
