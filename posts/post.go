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
	"slices"
	"sync"
	"time"

	"github.com/wildfyre-app/lib-go/descriptors"
	"github.com/wildfyre-app/lib-go/internal/transport"
	"github.com/wildfyre-app/lib-go/internal/wire"
	"github.com/wildfyre-app/lib-go/users"
)

// Post is a published post.
type Post struct {
	descriptors.State

	deps *Deps
	area Owner
	id   wire.ID

	mu sync.RWMutex
	f  fields
}

// NewPost returns an unfetched post. Only the owning area should call it.
func NewPost(deps *Deps, area Owner, id wire.ID) *Post {
	return &Post{deps: deps, area: area, id: id}
}

// ID is the post ID, unique within its area.
func (p *Post) ID() wire.ID { return p.id }

// AreaID is the ID of the area holding the post.
func (p *Post) AreaID() string { return p.area.ID() }

// AuthorID is the ID of the author, false for anonymous posts.
func (p *Post) AuthorID() (wire.ID, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.f.author, p.f.hasAuthor
}

// Author looks up the author profile. It is nil for anonymous posts.
func (p *Post) Author(ctx context.Context) (*users.User, error) {
	id, ok := p.AuthorID()
	if !ok {
		return nil, nil
	}
	return p.deps.Users.Get(ctx, id)
}

// Anonymous is true if the author chose to hide.
func (p *Post) Anonymous() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.f.anonym
}

// Subscribed is true if the authenticated user follows the post comments.
func (p *Post) Subscribed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.f.subscribed
}

// Created is the publication time.
func (p *Post) Created() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.f.created
}

// Active is true while the post still spreads.
func (p *Post) Active() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.f.active
}

// Text is the post body.
func (p *Post) Text() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.f.text
}

// Image is the URL of the main picture, empty if none.
func (p *Post) Image() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.f.image
}

// AdditionalImages are the other pictures.
func (p *Post) AdditionalImages() []Image {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.f.additional)
}

// Comments are the comments, oldest first.
func (p *Post) Comments() []Comment {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.f.comments)
}

// CacheManager implements descriptors.Descriptor.
func (p *Post) CacheManager() *descriptors.CacheManager { return p.deps.Posts }

// Update implements descriptors.Descriptor.
func (p *Post) Update(ctx context.Context) error {
	var raw json.RawMessage
	path := fmt.Sprintf("/areas/%s/%d/", p.area.ID(), p.id)
	if err := p.deps.Env.JSON(ctx, transport.GET, path, nil, &raw); err != nil {
		return err
	}
	return p.apply(raw)
}

func (p *Post) apply(raw []byte) error {
	f, id, err := decodeContent(raw)
	if err != nil {
		return err
	}
	if id != p.id {
		return transport.Protocolf(raw, "asked for post %d, got %d", p.id, id)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.f = f
	return nil
}
