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

// Package areas mirrors the WildFyre areas and what they hold.
//
// The Registry is the directory of areas. Each Area owns the only cache of
// its posts and drafts, and the list of IDs of the posts the authenticated
// user wrote there, as of the last LoadOwnPosts.
package areas

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wildfyre-app/lib-go/descriptors"
	"github.com/wildfyre-app/lib-go/internal/transport"
	"github.com/wildfyre-app/lib-go/internal/wire"
	"github.com/wildfyre-app/lib-go/lazymap"
	"github.com/wildfyre-app/lib-go/posts"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

// DefaultExpiration is how long an area stays fresh.
const DefaultExpiration = time.Hour

// Area is a topic holding posts.
type Area struct {
	descriptors.State

	reg *Registry
	id  string

	mu       sync.RWMutex
	name     string
	rep      int
	spread   int
	repKnown bool
	own      []wire.ID

	repFlight singleflight.Group
	posts     *lazymap.Map[wire.ID, *posts.Post]
	drafts    *lazymap.Map[wire.ID, *posts.Draft]
}

func newArea(reg *Registry, id string) *Area {
	a := &Area{reg: reg, id: id, drafts: lazymap.New[wire.ID, *posts.Draft]()}
	a.posts = lazymap.New(lazymap.WithFactory(a.newPost))
	a.OnGone(func(ctx context.Context) { reg.remove(ctx, a) })
	return a
}

func (a *Area) newPost(id wire.ID) *posts.Post {
	p := posts.NewPost(a.reg.deps, a, id)
	p.OnGone(func(ctx context.Context) {
		if a.posts.DeleteFunc(func(_ wire.ID, cur *posts.Post) bool { return cur == p }) > 0 {
			logging.Infof(ctx, "wildfyre: post %s/%d evicted", a.id, id)
		}
	})
	return p
}

// ID is the area ID used in API paths, e.g. "fun".
func (a *Area) ID() string { return a.id }

// Name is the display name.
func (a *Area) Name() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.name
}

func (a *Area) setName(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.name = name
}

// CacheManager implements descriptors.Descriptor.
func (a *Area) CacheManager() *descriptors.CacheManager { return a.reg.cm }

// Update implements descriptors.Descriptor. It fetches the reputation and
// spread of the authenticated user in the area.
func (a *Area) Update(ctx context.Context) error {
	var raw json.RawMessage
	if err := a.reg.deps.Env.JSON(ctx, transport.GET, a.path("rep/"), nil, &raw); err != nil {
		return err
	}
	var reply struct {
		Reputation *int `json:"reputation"`
		Spread     *int `json:"spread"`
	}
	if err := wire.Decode(raw, &reply); err != nil {
		return err
	}
	rep, err := wire.Required(reply.Reputation, "reputation", raw)
	if err != nil {
		return err
	}
	spread, err := wire.Required(reply.Spread, "spread", raw)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.rep, a.spread, a.repKnown = rep, spread, true
	return nil
}

func (a *Area) path(rest string) string {
	return fmt.Sprintf("/areas/%s/%s", a.id, rest)
}

// resolveRep makes the reputation and spread readable.
//
// The first call fetches them, at most once for all concurrent callers.
// Later calls go through the usual freshness check.
func (a *Area) resolveRep(ctx context.Context) error {
	if a.Removed() {
		return descriptors.NoSuchEntity.Apply(errors.Fmt("area %q was removed", a.id))
	}
	if _, _, known := a.CachedReputation(); known {
		return a.reg.deps.Env.Resolve(ctx, a)
	}
	_, err, _ := a.repFlight.Do("", func() (any, error) {
		if _, _, known := a.CachedReputation(); known {
			return nil, nil
		}
		return nil, descriptors.Refresh(ctx, a)
	})
	if err != nil {
		return errors.Fmt("area %q: %w", a.id, err)
	}
	return nil
}

// Reputation is the reputation of the authenticated user in the area. It
// may fetch it.
func (a *Area) Reputation(ctx context.Context) (int, error) {
	if err := a.resolveRep(ctx); err != nil {
		return 0, err
	}
	rep, _, _ := a.CachedReputation()
	return rep, nil
}

// Spread is how many users a new post of the authenticated user reaches. It
// may fetch it.
func (a *Area) Spread(ctx context.Context) (int, error) {
	if err := a.resolveRep(ctx); err != nil {
		return 0, err
	}
	_, spread, _ := a.CachedReputation()
	return spread, nil
}

// CachedReputation returns the last known reputation and spread without any
// network traffic. known is false until they are fetched.
func (a *Area) CachedReputation() (rep, spread int, known bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.rep, a.spread, a.repKnown
}

// Post looks a post up, fetching it if it is not cached yet.
//
// A cached but stale post is returned as is, and refreshed in the
// background.
func (a *Area) Post(ctx context.Context, id wire.ID) (*posts.Post, error) {
	if a.Removed() {
		return nil, descriptors.NoSuchEntity.Apply(errors.Fmt("area %q was removed", a.id))
	}
	p, _ := a.posts.Get(id)
	if err := a.reg.deps.Env.Resolve(ctx, p); err != nil {
		return nil, errors.Fmt("post %s/%d: %w", a.id, id, err)
	}
	return p, nil
}

// CachedPost returns a post only if it is cached, without network traffic.
func (a *Area) CachedPost(id wire.ID) (*posts.Post, bool) {
	p, ok := a.posts.Lookup(id)
	if !ok || p.Removed() || p.IsNew() {
		return nil, false
	}
	return p, true
}

// PostEntry implements posts.Owner.
func (a *Area) PostEntry(id wire.ID) *posts.Post {
	p, _ := a.posts.Get(id)
	return p
}

// CachedPosts is the number of cached posts which were fetched and are not
// gone. Entries left unfetched by a failed lookup are not counted.
func (a *Area) CachedPosts() int {
	n := 0
	a.posts.Range(func(_ wire.ID, p *posts.Post) bool {
		if !p.IsNew() && !p.Removed() {
			n++
		}
		return true
	})
	return n
}

// LoadDrafts replaces the draft cache with the drafts on the server.
//
// Each draft is then fetched in the background.
func (a *Area) LoadDrafts(ctx context.Context) error {
	ids, err := a.listIDs(ctx, "drafts/")
	if err != nil {
		return errors.Fmt("listing drafts of %q: %w", a.id, err)
	}
	fresh := make([]*posts.Draft, len(ids))
	a.drafts.Clear()
	for i, id := range ids {
		d := posts.NewSavedDraft(a.reg.deps, a, id)
		a.CacheDraft(d)
		fresh[i] = d
	}
	if async := a.reg.deps.Env.Async; async != nil {
		for _, d := range fresh {
			async.Submit(ctx, d)
		}
	}
	return nil
}

// CachedDraft returns a cached draft.
func (a *Area) CachedDraft(id wire.ID) (*posts.Draft, bool) {
	d, ok := a.drafts.Lookup(id)
	if !ok || d.Removed() {
		return nil, false
	}
	return d, true
}

// Draft returns a cached draft, fetching it if it was never fetched.
func (a *Area) Draft(ctx context.Context, id wire.ID) (*posts.Draft, error) {
	d, ok := a.CachedDraft(id)
	if !ok {
		return nil, descriptors.NoSuchEntity.Apply(errors.Fmt("no draft %s/%d, load drafts first", a.id, id))
	}
	if err := a.reg.deps.Env.Resolve(ctx, d); err != nil {
		return nil, errors.Fmt("draft %s/%d: %w", a.id, id, err)
	}
	return d, nil
}

// Drafts returns the cached drafts, sorted by ID.
func (a *Area) Drafts() []*posts.Draft {
	out := a.drafts.Values()
	slices.SortFunc(out, func(x, y *posts.Draft) int {
		xid, _ := x.ID()
		yid, _ := y.ID()
		return cmp.Compare(xid, yid)
	})
	return out
}

// CacheDraft implements posts.Owner.
func (a *Area) CacheDraft(d *posts.Draft) {
	id, saved := d.ID()
	if !saved {
		return
	}
	d.OnGone(func(context.Context) {
		a.drafts.DeleteFunc(func(_ wire.ID, cur *posts.Draft) bool { return cur == d })
	})
	a.drafts.Put(id, d)
}

// RemoveCached implements posts.Owner.
func (a *Area) RemoveCached(id wire.ID) {
	a.drafts.Delete(id)
}

// NewDraft returns a local draft in this area. It is cached once saved.
func (a *Area) NewDraft() *posts.Draft {
	return posts.NewDraft(a.reg.deps, a)
}

// LoadOwnPosts fetches the IDs of the posts of the authenticated user.
func (a *Area) LoadOwnPosts(ctx context.Context) error {
	ids, err := a.listIDs(ctx, "own/")
	if err != nil {
		return errors.Fmt("listing own posts in %q: %w", a.id, err)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.own = ids
	return nil
}

// OwnPostIDs is the result of the last LoadOwnPosts.
func (a *Area) OwnPostIDs() []wire.ID {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.own)
}

// OwnPosts looks up the posts listed by the last LoadOwnPosts, like Post
// does. Posts gone from the server are skipped.
func (a *Area) OwnPosts(ctx context.Context) ([]*posts.Post, error) {
	ids := a.OwnPostIDs()
	out := make([]*posts.Post, 0, len(ids))
	for _, id := range ids {
		p, err := a.Post(ctx, id)
		switch {
		case descriptors.IsGone(err):
			continue
		case err != nil:
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// clearNested empties the post and draft caches and the own post list.
func (a *Area) clearNested() {
	a.posts.Clear()
	a.drafts.Clear()
	a.mu.Lock()
	defer a.mu.Unlock()
	a.own = nil
}

func (a *Area) listIDs(ctx context.Context, rest string) ([]wire.ID, error) {
	var raw json.RawMessage
	if err := a.reg.deps.Env.JSON(ctx, transport.GET, a.path(rest), nil, &raw); err != nil {
		if transport.IsNotFound(err) {
			a.MarkRemoved(ctx)
			return nil, descriptors.Gone(err, "area %q", a.id)
		}
		return nil, err
	}
	var list wire.Results[wire.Ref]
	err := wire.Decode(raw, &list)
	if err == nil && list.Results == nil {
		err = transport.Protocolf(raw, "reply has no %q", "results")
	}
	var ids []wire.ID
	if err == nil {
		ids, err = wire.IDs(list.Results, raw)
	}
	if err != nil {
		logging.Errorf(ctx, "wildfyre: %s%s: %s", a.id, rest, err)
		return nil, err
	}
	return ids, nil
}
