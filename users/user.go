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

// Package users mirrors WildFyre user profiles.
package users

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wildfyre-app/lib-go/descriptors"
	"github.com/wildfyre-app/lib-go/internal/transport"
	"github.com/wildfyre-app/lib-go/internal/wire"
)

// DefaultExpiration is how long a user profile stays fresh.
const DefaultExpiration = 30 * time.Minute

// User is the public profile of an account.
type User struct {
	descriptors.State

	reg  *Registry
	id   wire.ID
	// self is set on the authenticated user, fetched from /users/.
	self atomic.Bool

	mu     sync.RWMutex
	name   string
	avatar string
	bio    string
	banned bool
}

type profile struct {
	User   *wire.ID `json:"user"`
	Name   *string  `json:"name"`
	Avatar *string  `json:"avatar"`
	Bio    *string  `json:"bio"`
	Banned bool     `json:"banned"`
}

// ID is the account ID.
func (u *User) ID() wire.ID { return u.id }

// Name is the display name.
func (u *User) Name() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.name
}

// Avatar is the URL of the avatar picture, empty if none.
func (u *User) Avatar() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.avatar
}

// Bio is the self description.
func (u *User) Bio() string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.bio
}

// Banned is true for banned accounts.
func (u *User) Banned() bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	return u.banned
}

// CacheManager implements descriptors.Descriptor.
func (u *User) CacheManager() *descriptors.CacheManager { return u.reg.cm }

// Update implements descriptors.Descriptor.
func (u *User) Update(ctx context.Context) error {
	path := fmt.Sprintf("/users/%d/", u.id)
	if u.self.Load() {
		path = "/users/"
	}
	var raw json.RawMessage
	if err := u.reg.env.JSON(ctx, transport.GET, path, nil, &raw); err != nil {
		return err
	}
	var p profile
	if err := wire.Decode(raw, &p); err != nil {
		return err
	}
	id, err := wire.Required(p.User, "user", raw)
	if err != nil {
		return err
	}
	if id != u.id {
		return transport.Protocolf(raw, "asked for user %d, got %d", u.id, id)
	}
	return u.apply(p, raw)
}

func (u *User) apply(p profile, raw []byte) error {
	name, err := wire.Required(p.Name, "name", raw)
	if err != nil {
		return err
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	u.name = name
	u.avatar = deref(p.Avatar)
	u.bio = deref(p.Bio)
	u.banned = p.Banned
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
