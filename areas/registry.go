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

package areas

import (
	"context"
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/wildfyre-app/lib-go/descriptors"
	"github.com/wildfyre-app/lib-go/internal/transport"
	"github.com/wildfyre-app/lib-go/internal/wire"
	"github.com/wildfyre-app/lib-go/posts"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

// Registry is the directory of areas.
type Registry struct {
	deps *posts.Deps
	cm   *descriptors.CacheManager

	mu     sync.RWMutex
	areas  map[string]*Area
	loaded bool
}

// NewRegistry returns an empty Registry.
func NewRegistry(deps *posts.Deps, cm *descriptors.CacheManager) *Registry {
	return &Registry{deps: deps, cm: cm, areas: map[string]*Area{}}
}

// Load fetches the list of areas.
//
// Areas already known keep their instance, with their caches. Areas which
// are no longer listed are removed.
func (r *Registry) Load(ctx context.Context) error {
	var raw json.RawMessage
	if err := r.deps.Env.JSON(ctx, transport.GET, "/areas/", nil, &raw); err != nil {
		return errors.Fmt("listing areas: %w", err)
	}
	var list []struct {
		Name        *string `json:"name"`
		DisplayName *string `json:"displayname"`
	}
	if err := wire.Decode(raw, &list); err != nil {
		logging.Errorf(ctx, "wildfyre: /areas/: %s", err)
		return err
	}

	type entry struct{ id, name string }
	entries := make([]entry, len(list))
	for i, item := range list {
		id, err := wire.Required(item.Name, "name", raw)
		if err == nil && id == "" {
			err = transport.Protocolf(raw, "area with an empty name")
		}
		if err != nil {
			logging.Errorf(ctx, "wildfyre: /areas/: %s", err)
			return err
		}
		name := id
		if item.DisplayName != nil {
			name = *item.DisplayName
		}
		entries[i] = entry{id, name}
	}

	now := clock.Now(ctx)
	r.mu.Lock()
	prev := r.areas
	next := make(map[string]*Area, len(entries))
	for _, e := range entries {
		a, ok := prev[e.id]
		if !ok || a.Removed() {
			a = newArea(r, e.id)
		}
		a.setName(e.name)
		a.MarkFetched(now)
		next[e.id] = a
	}
	r.areas = next
	r.loaded = true
	r.mu.Unlock()

	for id, a := range prev {
		if _, ok := next[id]; !ok {
			a.MarkRemoved(ctx)
		}
	}
	logging.Infof(ctx, "wildfyre: %d areas loaded", len(next))
	return nil
}

// Init loads the areas, then the drafts and own posts of each.
func (r *Registry) Init(ctx context.Context) error {
	if err := r.Load(ctx); err != nil {
		return err
	}
	for _, a := range r.Collection() {
		if err := a.LoadDrafts(ctx); err != nil {
			return err
		}
		if err := a.LoadOwnPosts(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Loaded is true once Load succeeded, until Clear.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Get returns an area, calling Load first if it never ran.
func (r *Registry) Get(ctx context.Context, id string) (*Area, error) {
	if !r.Loaded() {
		if err := r.Load(ctx); err != nil {
			return nil, err
		}
	}
	a, ok := r.Cached(id)
	if !ok {
		return nil, descriptors.NoSuchEntity.Apply(errors.Fmt("no area %q", id))
	}
	return a, nil
}

// Cached returns a known area without network traffic.
func (r *Registry) Cached(id string) (*Area, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.areas[id]
	return a, ok
}

// Collection returns the known areas sorted by ID.
func (r *Registry) Collection() []*Area {
	r.mu.RLock()
	out := slices.Collect(maps.Values(r.areas))
	r.mu.RUnlock()
	slices.SortFunc(out, func(x, y *Area) int { return strings.Compare(x.id, y.id) })
	return out
}

// Len is the number of known areas.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.areas)
}

// Clear forgets every area and everything cached in them.
func (r *Registry) Clear() {
	r.mu.Lock()
	prev := r.areas
	r.areas = map[string]*Area{}
	r.loaded = false
	r.mu.Unlock()

	for _, a := range prev {
		a.clearNested()
	}
}

// Clean forgets the areas which are stale, and returns how many.
func (r *Registry) Clean(ctx context.Context) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, a := range r.areas {
		if descriptors.Expired(ctx, a) {
			delete(r.areas, id)
			n++
		}
	}
	return n
}

// remove drops a, reported gone by the server.
func (r *Registry) remove(ctx context.Context, a *Area) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.areas[a.id] == a {
		delete(r.areas, a.id)
		logging.Infof(ctx, "wildfyre: area %q evicted", a.id)
	}
}
