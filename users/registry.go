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

package users

import (
	"context"
	"encoding/json"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/wildfyre-app/lib-go/descriptors"
	"github.com/wildfyre-app/lib-go/internal/transport"
	"github.com/wildfyre-app/lib-go/internal/wire"
	"github.com/wildfyre-app/lib-go/lazymap"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

// Registry caches user profiles by ID.
type Registry struct {
	env   *descriptors.Env
	cm    *descriptors.CacheManager
	users *lazymap.Map[wire.ID, *User]

	mu sync.Mutex
	me *User

	// initFlight collapses concurrent Init calls.
	initFlight singleflight.Group
}

// NewRegistry returns an empty Registry.
func NewRegistry(env *descriptors.Env, cm *descriptors.CacheManager) *Registry {
	r := &Registry{env: env, cm: cm}
	r.users = lazymap.New(lazymap.WithFactory(r.newUser))
	return r
}

func (r *Registry) newUser(id wire.ID) *User {
	u := &User{reg: r, id: id}
	u.OnGone(func(ctx context.Context) { r.evict(ctx, u) })
	return u
}

func (r *Registry) evict(ctx context.Context, u *User) {
	n := r.users.DeleteFunc(func(id wire.ID, cur *User) bool { return cur == u })
	if n > 0 {
		logging.Infof(ctx, "wildfyre: user %d evicted", u.id)
	}
}

// Get returns the user, fetching it if it is not cached yet.
//
// A cached but stale user is returned as is, and refreshed in the
// background.
func (r *Registry) Get(ctx context.Context, id wire.ID) (*User, error) {
	u, _ := r.users.Get(id)
	if err := r.env.Resolve(ctx, u); err != nil {
		return nil, errors.Fmt("user %d: %w", id, err)
	}
	return u, nil
}

// Cached returns the user if it is cached, without any network traffic.
func (r *Registry) Cached(id wire.ID) (*User, bool) {
	u, ok := r.users.Lookup(id)
	if !ok || u.Removed() {
		return nil, false
	}
	return u, true
}

// Len is the number of cached users.
func (r *Registry) Len() int {
	return r.users.Len()
}

// Init fetches the profile of the authenticated user.
//
// The user keeps the instance already cached for its ID, if any. Concurrent
// calls share one fetch.
func (r *Registry) Init(ctx context.Context) error {
	detached := context.WithoutCancel(ctx)
	ch := r.initFlight.DoChan("", func() (any, error) {
		return nil, r.init(detached)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return errors.Fmt("waiting for own profile: %w", ctx.Err())
	}
}

func (r *Registry) init(ctx context.Context) error {
	var raw json.RawMessage
	if err := r.env.JSON(ctx, transport.GET, "/users/", nil, &raw); err != nil {
		return errors.Fmt("fetching own profile: %w", err)
	}
	var p profile
	if err := wire.Decode(raw, &p); err != nil {
		return err
	}
	id, err := wire.Required(p.User, "user", raw)
	if err != nil {
		logging.Errorf(ctx, "wildfyre: %s", err)
		return err
	}

	u, _ := r.users.Get(id)
	if u.Removed() {
		r.users.DeleteFunc(func(_ wire.ID, cur *User) bool { return cur == u })
		u, _ = r.users.Get(id)
	}
	if err := u.apply(p, raw); err != nil {
		logging.Errorf(ctx, "wildfyre: %s", err)
		return err
	}
	u.self.Store(true)
	u.MarkFetched(clock.Now(ctx))

	r.mu.Lock()
	r.me = u
	r.mu.Unlock()
	logging.Infof(ctx, "wildfyre: authenticated as user %d (%q)", id, u.Name())
	return nil
}

// MyID is the ID of the authenticated user, known after Init.
func (r *Registry) MyID() (wire.ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.me == nil {
		return 0, false
	}
	return r.me.id, true
}

// Me returns the authenticated user, calling Init if needed.
func (r *Registry) Me(ctx context.Context) (*LoggedUser, error) {
	r.mu.Lock()
	me := r.me
	r.mu.Unlock()

	if me == nil {
		if err := r.Init(ctx); err != nil {
			return nil, err
		}
		r.mu.Lock()
		me = r.me
		r.mu.Unlock()
	} else if err := r.env.Resolve(ctx, me); err != nil {
		return nil, err
	}
	return &LoggedUser{User: me}, nil
}

// Clear empties the cache. The authenticated user is kept.
func (r *Registry) Clear() {
	r.users.Clear()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.me != nil {
		r.users.Put(r.me.id, r.me)
	}
}

// Clean removes the users which are stale, and returns how many.
func (r *Registry) Clean(ctx context.Context) int {
	return r.users.DeleteFunc(func(_ wire.ID, u *User) bool {
		return descriptors.Expired(ctx, u)
	})
}

// Reset empties the cache and forgets the authenticated user.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.me = nil
	r.mu.Unlock()
	r.users.Clear()
}
