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

package posts

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wildfyre-app/lib-go/descriptors"
	"github.com/wildfyre-app/lib-go/internal/transport"
	"github.com/wildfyre-app/lib-go/internal/wire"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
)

// Draft is an unpublished post of the authenticated user.
//
// A draft made with NewDraft exists only locally until Save or Publish.
type Draft struct {
	descriptors.State

	deps *Deps
	area Owner

	mu    sync.RWMutex
	id    wire.ID
	saved bool
	f     fields
}

// NewDraft returns an empty local draft.
func NewDraft(deps *Deps, area Owner) *Draft {
	return &Draft{deps: deps, area: area}
}

// NewSavedDraft returns an unfetched draft known to the server.
func NewSavedDraft(deps *Deps, area Owner, id wire.ID) *Draft {
	return &Draft{deps: deps, area: area, id: id, saved: true}
}

// ID is the draft ID, false while the draft was never saved.
func (d *Draft) ID() (wire.ID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.id, d.saved
}

// AreaID is the ID of the area holding the draft.
func (d *Draft) AreaID() string { return d.area.ID() }

// Text is the draft body.
func (d *Draft) Text() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.f.text
}

// Anonymous is true if the post will hide its author.
func (d *Draft) Anonymous() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.f.anonym
}

// Image is the URL of the picture, empty if none.
func (d *Draft) Image() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.f.image
}

// Created is when the server first saw the draft.
func (d *Draft) Created() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.f.created
}

// SetText changes the body locally. Call Save to send it.
func (d *Draft) SetText(text string) *Draft {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.f.text = text
	return d
}

// SetAnonymous changes the anonymity locally. Call Save to send it.
func (d *Draft) SetAnonymous(anonym bool) *Draft {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.f.anonym = anonym
	return d
}

// CacheManager implements descriptors.Descriptor.
func (d *Draft) CacheManager() *descriptors.CacheManager { return d.deps.Drafts }

// Update implements descriptors.Descriptor. Local drafts have nothing to
// fetch.
func (d *Draft) Update(ctx context.Context) error {
	id, saved := d.ID()
	if !saved {
		return nil
	}
	var raw json.RawMessage
	if err := d.deps.Env.JSON(ctx, transport.GET, d.path(id), nil, &raw); err != nil {
		return err
	}
	f, got, err := decodeContent(raw)
	if err != nil {
		return err
	}
	if got != id {
		return transport.Protocolf(raw, "asked for draft %d, got %d", id, got)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.f = f
	return nil
}

func (d *Draft) path(id wire.ID) string {
	return fmt.Sprintf("/areas/%s/drafts/%d/", d.area.ID(), id)
}

func (d *Draft) body() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return map[string]any{"text": d.f.text, "anonym": d.f.anonym}
}

// Save sends the draft to the server, creating it there the first time.
func (d *Draft) Save(ctx context.Context) error {
	if d.Removed() {
		return descriptors.NoSuchEntity.Apply(errors.New("draft was deleted or published"))
	}
	id, saved := d.ID()
	if saved {
		if err := d.deps.Env.Exec(ctx, transport.PATCH, d.path(id), d.body()); err != nil {
			return errors.Fmt("saving draft %d: %w", id, err)
		}
		return nil
	}

	var raw json.RawMessage
	path := fmt.Sprintf("/areas/%s/drafts/", d.area.ID())
	if err := d.deps.Env.JSON(ctx, transport.POST, path, d.body(), &raw); err != nil {
		return errors.Fmt("creating draft: %w", err)
	}
	f, id, err := decodeContent(raw)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.id, d.saved, d.f = id, true, f
	d.mu.Unlock()
	d.MarkFetched(clock.Now(ctx))
	d.area.CacheDraft(d)
	return nil
}

// Publish turns the draft into a post.
//
// A saved draft is saved once more and published, a local one is posted
// directly. Either way the draft is gone afterwards.
func (d *Draft) Publish(ctx context.Context) (*Post, error) {
	if d.Removed() {
		return nil, descriptors.NoSuchEntity.Apply(errors.New("draft was deleted or published"))
	}
	var raw json.RawMessage
	id, saved := d.ID()
	if saved {
		if err := d.Save(ctx); err != nil {
			return nil, err
		}
		if err := d.deps.Env.JSON(ctx, transport.POST, d.path(id)+"publish/", nil, &raw); err != nil {
			return nil, errors.Fmt("publishing draft %d: %w", id, err)
		}
		d.area.RemoveCached(id)
	} else {
		path := fmt.Sprintf("/areas/%s/", d.area.ID())
		if err := d.deps.Env.JSON(ctx, transport.POST, path, d.body(), &raw); err != nil {
			return nil, errors.Fmt("publishing: %w", err)
		}
	}
	d.MarkRemoved(ctx)

	var c content
	if err := wire.Decode(raw, &c); err != nil {
		return nil, err
	}
	postID, err := wire.Required(c.ID, "id", raw)
	if err != nil {
		return nil, err
	}
	p := d.area.PostEntry(postID)
	if err := p.apply(raw); err != nil {
		return nil, err
	}
	p.MarkFetched(clock.Now(ctx))
	return p, nil
}

// Delete drops the draft from the area cache and, if it was saved, from the
// server.
func (d *Draft) Delete(ctx context.Context) error {
	id, saved := d.ID()
	d.MarkRemoved(ctx)
	if !saved {
		return nil
	}
	d.area.RemoveCached(id)
	path := fmt.Sprintf("/areas/%s/drafts/%d", d.area.ID(), id)
	if err := d.deps.Env.Exec(ctx, transport.DELETE, path, nil); err != nil {
		return errors.Fmt("deleting draft %d: %w", id, err)
	}
	return nil
}

func decodeContent(raw []byte) (fields, wire.ID, error) {
	var c content
	if err := wire.Decode(raw, &c); err != nil {
		return fields{}, 0, err
	}
	id, err := wire.Required(c.ID, "id", raw)
	if err != nil {
		return fields{}, 0, err
	}
	f, err := c.check(raw)
	return f, id, err
}
