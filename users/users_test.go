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
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/wildfyre-app/lib-go/auth"
	"github.com/wildfyre-app/lib-go/descriptors"
	"github.com/wildfyre-app/lib-go/internal/fakeserver"
	"github.com/wildfyre-app/lib-go/internal/transport"
	"github.com/wildfyre-app/lib-go/internal/wire"

	"go.chromium.org/luci/common/clock/testclock"
	"go.chromium.org/luci/common/testing/ftt"
	"go.chromium.org/luci/common/testing/truth/assert"
	"go.chromium.org/luci/common/testing/truth/should"
)

type recordingSubmitter struct {
	mu   sync.Mutex
	seen []descriptors.Descriptor
}

func (s *recordingSubmitter) Submit(_ context.Context, d descriptors.Descriptor) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen = append(s.seen, d)
	return true
}

func (s *recordingSubmitter) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	ftt.Run("With a server", t, func(t *ftt.Test) {
		ctx, tc := testclock.UseTime(context.Background(), testclock.TestRecentTimeUTC)

		srv := fakeserver.New()
		defer srv.Close()
		srv.AddUser(&fakeserver.User{ID: 2, Name: "alice", Bio: "hi", Avatar: "http://a/b.png"})

		client := transport.NewClient(srv.URL, srv.Client())
		tokens := auth.NewStore(client)
		assert.NoErr(t, tokens.SetToken(fakeserver.Token))

		async := &recordingSubmitter{}
		env := &descriptors.Env{Client: client, Tokens: tokens, Async: async}
		cm, err := descriptors.NewCacheManager(ctx, "user", DefaultExpiration)
		assert.NoErr(t, err)
		reg := NewRegistry(env, cm)

		t.Run("Init finds the authenticated user", func(t *ftt.Test) {
			_, ok := reg.MyID()
			assert.Loosely(t, ok, should.BeFalse)

			assert.NoErr(t, reg.Init(ctx))
			id, ok := reg.MyID()
			assert.Loosely(t, ok, should.BeTrue)
			assert.Loosely(t, id, should.Equal(wire.ID(1)))

			me, err := reg.Me(ctx)
			assert.NoErr(t, err)
			assert.Loosely(t, me.Name(), should.Equal("me"))
			assert.Loosely(t, me.Bio(), should.Equal("hello"))
			assert.Loosely(t, srv.Hits("GET", "/users/"), should.Equal(1))

			t.Run("and Get returns the same instance", func(t *ftt.Test) {
				u, err := reg.Get(ctx, 1)
				assert.NoErr(t, err)
				assert.Loosely(t, u == me.User, should.BeTrue)
				assert.Loosely(t, srv.TotalHits(), should.Equal(1))
			})

			t.Run("Clear keeps it", func(t *ftt.Test) {
				reg.Clear()
				u, ok := reg.Cached(1)
				assert.Loosely(t, ok, should.BeTrue)
				assert.Loosely(t, u == me.User, should.BeTrue)
			})

			t.Run("Reset forgets it", func(t *ftt.Test) {
				reg.Reset()
				_, ok := reg.MyID()
				assert.Loosely(t, ok, should.BeFalse)
				assert.Loosely(t, reg.Len(), should.BeZero)
			})

			t.Run("Edit", func(t *ftt.Test) {
				name := "newme"
				assert.NoErr(t, me.Edit(ctx, UserEdit{Name: &name}))
				assert.Loosely(t, me.Name(), should.Equal("newme"))
				assert.Loosely(t, me.Bio(), should.Equal("hello"))

				u, _ := srv.User(1)
				assert.Loosely(t, u.Name, should.Equal("newme"))
				assert.Loosely(t, u.Bio, should.Equal("hello"))
				assert.Loosely(t, srv.Hits("PATCH", "/users/"), should.Equal(1))

				t.Run("empty edits are skipped", func(t *ftt.Test) {
					assert.NoErr(t, me.Edit(ctx, UserEdit{}))
					assert.Loosely(t, srv.Hits("PATCH", "/users/"), should.Equal(1))
				})
			})

			t.Run("UploadAvatar", func(t *ftt.Test) {
				path := filepath.Join(t.TempDir(), "face.png")
				assert.NoErr(t, os.WriteFile(path, []byte("PNG"), 0600))

				assert.NoErr(t, me.UploadAvatar(ctx, path))
				assert.Loosely(t, string(srv.Avatar()), should.Equal("PNG"))
				assert.Loosely(t, me.Avatar(), should.Equal(srv.URL+"/media/avatar/face.png"))
			})
		})

		t.Run("Init keeps a user cached before it", func(t *ftt.Test) {
			before, err := reg.Get(ctx, 1)
			assert.NoErr(t, err)
			assert.Loosely(t, srv.Hits("GET", "/users/1/"), should.Equal(1))

			assert.NoErr(t, reg.Init(ctx))
			after, err := reg.Get(ctx, 1)
			assert.NoErr(t, err)
			me, err := reg.Me(ctx)
			assert.NoErr(t, err)

			assert.Loosely(t, after == before, should.BeTrue)
			assert.Loosely(t, me.User == before, should.BeTrue)
			assert.Loosely(t, reg.Len(), should.Equal(1))

			t.Run("and refreshes it from /users/", func(t *ftt.Test) {
				assert.NoErr(t, descriptors.Refresh(ctx, before))
				assert.Loosely(t, srv.Hits("GET", "/users/"), should.Equal(2))
				assert.Loosely(t, srv.Hits("GET", "/users/1/"), should.Equal(1))
			})
		})

		t.Run("Concurrent Me calls share one user", func(t *ftt.Test) {
			const n = 10
			got := make([]*LoggedUser, n)
			errs := make([]error, n)
			var wg sync.WaitGroup
			for i := range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					got[i], errs[i] = reg.Me(ctx)
				}()
			}
			wg.Wait()

			for i := range n {
				assert.NoErr(t, errs[i])
				assert.Loosely(t, got[i].User == got[0].User, should.BeTrue)
			}
			cached, ok := reg.Cached(1)
			assert.Loosely(t, ok, should.BeTrue)
			assert.Loosely(t, cached == got[0].User, should.BeTrue)
		})

		t.Run("Me calls Init", func(t *ftt.Test) {
			me, err := reg.Me(ctx)
			assert.NoErr(t, err)
			assert.Loosely(t, me.ID(), should.Equal(wire.ID(1)))
		})

		t.Run("Get fetches once and serves from cache", func(t *ftt.Test) {
			u, err := reg.Get(ctx, 2)
			assert.NoErr(t, err)
			assert.Loosely(t, u.Name(), should.Equal("alice"))
			assert.Loosely(t, u.Avatar(), should.Equal("http://a/b.png"))
			assert.Loosely(t, srv.Hits("GET", "/users/2/"), should.Equal(1))

			tc.Add(DefaultExpiration - time.Second)
			again, err := reg.Get(ctx, 2)
			assert.NoErr(t, err)
			assert.Loosely(t, again == u, should.BeTrue)
			assert.Loosely(t, srv.Hits("GET", "/users/2/"), should.Equal(1))
			assert.Loosely(t, async.count(), should.BeZero)

			t.Run("stale users are refreshed in the background", func(t *ftt.Test) {
				tc.Add(time.Second)
				again, err := reg.Get(ctx, 2)
				assert.NoErr(t, err)
				assert.Loosely(t, again == u, should.BeTrue)
				assert.Loosely(t, async.count(), should.Equal(1))
				assert.Loosely(t, srv.Hits("GET", "/users/2/"), should.Equal(1))
			})

			t.Run("Clean drops stale users", func(t *ftt.Test) {
				tc.Add(time.Second)
				assert.Loosely(t, reg.Clean(ctx), should.Equal(1))
				_, ok := reg.Cached(2)
				assert.Loosely(t, ok, should.BeFalse)
			})

			t.Run("users gone from the server are evicted", func(t *ftt.Test) {
				srv.RemoveUser(2)
				err := descriptors.Refresh(ctx, u)
				assert.Loosely(t, descriptors.IsGone(err), should.BeTrue)
				_, ok := reg.Cached(2)
				assert.Loosely(t, ok, should.BeFalse)

				_, err = reg.Get(ctx, 2)
				assert.Loosely(t, descriptors.IsGone(err), should.BeTrue)
			})
		})

		t.Run("Unknown users are not found", func(t *ftt.Test) {
			_, err := reg.Get(ctx, 99)
			assert.Loosely(t, descriptors.IsGone(err), should.BeTrue)
			_, ok := reg.Cached(99)
			assert.Loosely(t, ok, should.BeFalse)
		})

		t.Run("Needs a token", func(t *ftt.Test) {
			tokens.Reset()
			_, err := reg.Get(ctx, 2)
			assert.Loosely(t, auth.NotAuthenticated.In(err), should.BeTrue)
		})
	})
}
