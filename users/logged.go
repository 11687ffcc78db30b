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

	"github.com/wildfyre-app/lib-go/internal/transport"

	"go.chromium.org/luci/common/errors"
)

// LoggedUser is the authenticated user, whose profile can be edited.
type LoggedUser struct {
	*User
}

// UserEdit lists the profile fields to change. Nil fields are kept.
type UserEdit struct {
	Name *string `json:"name,omitempty"`
	Bio  *string `json:"bio,omitempty"`
}

// Edit changes the profile.
//
// Local fields change right away. The server reply is not merged back: the
// next refresh brings whatever the server kept.
func (u *LoggedUser) Edit(ctx context.Context, e UserEdit) error {
	if e.Name == nil && e.Bio == nil {
		return nil
	}
	u.mu.Lock()
	if e.Name != nil {
		u.name = *e.Name
	}
	if e.Bio != nil {
		u.bio = *e.Bio
	}
	u.mu.Unlock()

	if err := u.reg.env.Exec(ctx, transport.PATCH, "/users/", e); err != nil {
		return errors.Fmt("editing profile: %w", err)
	}
	return nil
}

// UploadAvatar replaces the avatar with the picture at path.
func (u *LoggedUser) UploadAvatar(ctx context.Context, path string) error {
	req, err := u.reg.env.Request(transport.PATCH, "/users/")
	if err != nil {
		return err
	}
	var reply profile
	if err := u.reg.env.Send(ctx, req.AddFile("avatar", path), &reply); err != nil {
		return errors.Fmt("uploading avatar: %w", err)
	}
	if reply.Avatar != nil {
		u.mu.Lock()
		u.avatar = *reply.Avatar
		u.mu.Unlock()
	}
	return nil
}
