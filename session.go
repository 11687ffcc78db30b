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

package wildfyre

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/wildfyre-app/lib-go/areas"
	"github.com/wildfyre-app/lib-go/auth"
	"github.com/wildfyre-app/lib-go/descriptors"
	"github.com/wildfyre-app/lib-go/dispatch"
	"github.com/wildfyre-app/lib-go/internal/transport"
	"github.com/wildfyre-app/lib-go/posts"
	"github.com/wildfyre-app/lib-go/users"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

// Session is a connection to the API with its caches.
//
// It is safe for concurrent use. Close it to stop the background refreshes.
type Session struct {
	client *transport.Client
	tokens *auth.Store
	async  *dispatch.Dispatcher
	users  *users.Registry
	areas  *areas.Registry
}

// New returns a Session without a token.
//
// Background refreshes run until ctx is canceled or Close is called.
func New(ctx context.Context, opts Options) (*Session, error) {
	kinds := []struct {
		kind string
		d    time.Duration
	}{
		{"area", opts.areaExpiration()},
		{"post", opts.postExpiration()},
		{"draft", opts.draftExpiration()},
		{"user", opts.userExpiration()},
	}
	cms := make(map[string]*descriptors.CacheManager, len(kinds))
	for _, k := range kinds {
		cm, err := descriptors.NewCacheManager(ctx, k.kind, k.d)
		if err != nil {
			return nil, err
		}
		cms[k.kind] = cm
	}

	dopts := dispatch.Options{Workers: opts.Workers, QueueSize: opts.QueueSize}
	if opts.RefreshQPS > 0 {
		dopts.QPSLimit = rate.NewLimiter(rate.Limit(opts.RefreshQPS), 1)
	}
	async, err := dispatch.New(ctx, dopts)
	if err != nil {
		return nil, err
	}

	if opts.BaseURL == "" {
		transport.LogTarget(ctx)
	}
	client := transport.NewClient(opts.BaseURL, opts.HTTPClient)
	tokens := auth.NewStore(client)
	env := &descriptors.Env{
		Client:            client,
		Tokens:            tokens,
		Async:             async,
		ReportCantConnect: opts.OnCantConnect,
	}
	s := &Session{
		client: client,
		tokens: tokens,
		async:  async,
		users:  users.NewRegistry(env, cms["user"]),
	}
	s.areas = areas.NewRegistry(&posts.Deps{
		Env:    env,
		Users:  s.users,
		Posts:  cms["post"],
		Drafts: cms["draft"],
	}, cms["area"])

	tokens.OnChange(func() {
		s.users.Reset()
		s.areas.Clear()
	})
	return s, nil
}

// Connect logs in and fetches the profile of the user.
func Connect(ctx context.Context, opts Options, username, password string) (*Session, error) {
	s, err := New(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.RequestToken(ctx, username, password); err != nil {
		s.Close(ctx)
		return nil, err
	}
	if err := s.users.Init(ctx); err != nil {
		s.Close(ctx)
		return nil, err
	}
	return s, nil
}

// ConnectToken is Connect with a token from an earlier login.
func ConnectToken(ctx context.Context, opts Options, token string) (*Session, error) {
	s, err := New(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.SetToken(token); err != nil {
		s.Close(ctx)
		return nil, err
	}
	if err := s.users.Init(ctx); err != nil {
		s.Close(ctx)
		return nil, errors.Fmt("checking token: %w", err)
	}
	return s, nil
}

// Auth is the token store.
func (s *Session) Auth() *auth.Store { return s.tokens }

// BaseURL is the API the session talks to.
func (s *Session) BaseURL() string { return s.client.BaseURL() }

// Users is the user cache.
func (s *Session) Users() *users.Registry { return s.users }

// Areas is the area cache.
func (s *Session) Areas() *areas.Registry { return s.areas }

// Me returns the authenticated user.
func (s *Session) Me(ctx context.Context) (*users.LoggedUser, error) {
	return s.users.Me(ctx)
}

// OwnPosts returns the posts of the authenticated user in every area, as
// listed by the last LoadOwnPosts of each area. Areas are loaded first if
// they never were.
func (s *Session) OwnPosts(ctx context.Context) ([]*posts.Post, error) {
	if !s.areas.Loaded() {
		if err := s.areas.Load(ctx); err != nil {
			return nil, err
		}
	}
	var out []*posts.Post
	for _, a := range s.areas.Collection() {
		own, err := a.OwnPosts(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, own...)
	}
	return out, nil
}

// Disconnect forgets the token and everything cached.
func (s *Session) Disconnect(ctx context.Context) {
	s.tokens.Reset()
	s.users.Reset()
	s.areas.Clear()
	logging.Infof(ctx, "wildfyre: disconnected")
}

// Clear empties every cache. The token and the authenticated user are kept.
func (s *Session) Clear() {
	s.users.Clear()
	s.areas.Clear()
}

// Clean drops every stale entity and returns how many there were.
func (s *Session) Clean(ctx context.Context) int {
	n := s.users.Clean(ctx) + s.areas.Clean(ctx)
	logging.Debugf(ctx, "wildfyre: cleaned %d stale entities", n)
	return n
}

// Close stops the background refreshes, waiting for the running ones.
func (s *Session) Close(ctx context.Context) {
	s.async.Close(ctx)
}
