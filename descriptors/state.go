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

package descriptors

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// Descriptor is an entity mirrored from the API.
type Descriptor interface {
	// Update fetches the entity and overwrites its local fields.
	//
	// It is called by Refresh, never concurrently for the same instance.
	Update(ctx context.Context) error
	// CacheManager is the policy shared by the entity kind.
	CacheManager() *CacheManager
	// DescriptorState is the bookkeeping of this instance.
	DescriptorState() *State
}

// State is the lifecycle bookkeeping of one Descriptor.
//
// Embed it into entity structs. The zero value is a NEW descriptor.
type State struct {
	mu        sync.Mutex
	fetchedAt time.Time
	removed   bool
	onGone    []func(context.Context)

	// refreshing is set while an asynchronous refresh is queued or running.
	refreshing atomic.Bool
	// flight collapses concurrent fetches of this instance.
	flight singleflight.Group
}

// DescriptorState implements a part of Descriptor.
func (s *State) DescriptorState() *State { return s }

// LastFetched is when the last successful fetch finished, zero if none.
func (s *State) LastFetched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetchedAt
}

// IsNew is true until the first successful fetch.
func (s *State) IsNew() bool {
	return s.LastFetched().IsZero()
}

// Removed is true once the server reported the entity gone.
func (s *State) Removed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removed
}

// MarkFetched records that the local fields reflect the server at t.
//
// Owners call it when an entity was populated from a list reply rather than
// by its own Update.
func (s *State) MarkFetched(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.After(s.fetchedAt) {
		s.fetchedAt = t
	}
}

// OnGone registers fn to run once when the entity is reported gone.
//
// Owners use it to evict the instance from their caches.
func (s *State) OnGone(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onGone = append(s.onGone, fn)
}

// MarkRemoved moves the descriptor to REMOVED and runs the OnGone hooks.
//
// Only the first call has an effect.
func (s *State) MarkRemoved(ctx context.Context) {
	s.mu.Lock()
	if s.removed {
		s.mu.Unlock()
		return
	}
	s.removed = true
	hooks := s.onGone
	s.onGone = nil
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(ctx)
	}
}

// TryBeginRefresh claims the right to queue an asynchronous refresh.
//
// It returns false if a refresh is already queued or running.
func (s *State) TryBeginRefresh() bool {
	return s.refreshing.CompareAndSwap(false, true)
}

// EndRefresh releases the claim taken by TryBeginRefresh.
func (s *State) EndRefresh() {
	s.refreshing.Store(false)
}

// Refreshing is true while an asynchronous refresh is queued or running.
func (s *State) Refreshing() bool {
	return s.refreshing.Load()
}
