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
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/wildfyre-app/lib-go/auth"
	"github.com/wildfyre-app/lib-go/descriptors"
	"github.com/wildfyre-app/lib-go/dispatch"
	"github.com/wildfyre-app/lib-go/internal/fakeserver"
	"github.com/wildfyre-app/lib-go/internal/transport"
	"github.com/wildfyre-app/lib-go/internal/wire"
	"github.com/wildfyre-app/lib-go/posts"
	"github.com/wildfyre-app/lib-go/users"

	"go.chromium.org/luci/common/clock/testclock"
	"go.chromium.org/luci/common/errors"
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

func (s *recordingSubmitter) submitted() []descriptors.Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]descriptors.Descriptor(nil), s.seen...)
}

type fixture struct {
	srv   *fakeserver.Server
	async *recordingSubmitter
	reg   *Registry
}

func newFixture(ctx context.Context, t testing.TB, baseURL string, hc *http.Client) *fixture {
	client := transport.NewClient(baseURL, hc)
	tokens := auth.NewStore(client)
	if err := tokens.SetToken(fakeserver.Token); err != nil {
		t.Fatal(err)
	}
	async := &recordingSubmitter{}
	env := &descriptors.Env{Client: client, Tokens: tokens, Async: async}

	mk := func(kind string, d time.Duration) *descriptors.CacheManager {
		cm, err := descriptors.NewCacheManager(ctx, kind, d)
		if err != nil {
			t.Fatal(err)
		}
		return cm
	}
	deps := &posts.Deps{
		Env:    env,
		Users:  users.NewRegistry(env, mk("user", users.DefaultExpiration)),
		Posts:  mk("post", time.Hour),
		Drafts: mk("draft", posts.DraftExpiration),
	}
	return &fixture{async: async, reg: NewRegistry(deps, mk("area", DefaultExpiration))}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	ftt.Run("With a server", t, func(t *ftt.Test) {
		ctx, tc := testclock.UseTime(context.Background(), testclock.TestRecentTimeUTC)

		srv := fakeserver.New()
		defer srv.Close()
		srv.AddArea("lounge", "The Lounge", 5, 3)
		srv.AddArea("fun", "Fun", 0, 1)

		f := newFixture(ctx, t, srv.URL, srv.Client())
		reg := f.reg

		assert.NoErr(t, reg.Load(ctx))
		lounge, err := reg.Get(ctx, "lounge")
		assert.NoErr(t, err)
		assert.Loosely(t, lounge.Name(), should.Equal("The Lounge"))
		assert.Loosely(t, srv.Hits("GET", "/areas/"), should.Equal(1))

		t.Run("Collection is sorted", func(t *ftt.Test) {
			var ids []string
			for _, a := range reg.Collection() {
				ids = append(ids, a.ID())
			}
			assert.Loosely(t, ids, should.Match([]string{"fun", "lounge"}))
		})

		t.Run("Load keeps instances", func(t *ftt.Test) {
			srv.AddArea("lounge", "Renamed", 5, 3)
			assert.NoErr(t, reg.Load(ctx))
			again, err := reg.Get(ctx, "lounge")
			assert.NoErr(t, err)
			assert.Loosely(t, again == lounge, should.BeTrue)
			assert.Loosely(t, again.Name(), should.Equal("Renamed"))
			assert.Loosely(t, reg.Len(), should.Equal(2))
		})

		t.Run("Load drops areas gone from the list", func(t *ftt.Test) {
			fun, _ := reg.Cached("fun")
			srv.RemoveArea("fun")
			assert.NoErr(t, reg.Load(ctx))

			_, err := reg.Get(ctx, "fun")
			assert.Loosely(t, descriptors.IsGone(err), should.BeTrue)
			assert.Loosely(t, fun.Removed(), should.BeTrue)

			_, err = fun.Post(ctx, 1)
			assert.Loosely(t, descriptors.IsGone(err), should.BeTrue)
		})

		t.Run("Unknown areas are not found", func(t *ftt.Test) {
			_, err := reg.Get(ctx, "nope")
			assert.Loosely(t, descriptors.IsGone(err), should.BeTrue)
			assert.Loosely(t, srv.Hits("GET", "/areas/"), should.Equal(1))
		})

		t.Run("Post lookups honor freshness", func(t *ftt.Test) {
			srv.AddPost("lounge", &fakeserver.Post{ID: 42, Author: 2, Text: "hi", Active: true})
			tc.Add(10 * time.Minute)

			p, err := lounge.Post(ctx, 42)
			assert.NoErr(t, err)
			assert.Loosely(t, p.Text(), should.Equal("hi"))
			assert.Loosely(t, srv.Hits("GET", "/areas/lounge/42/"), should.Equal(1))

			tc.Add(50 * time.Minute)
			again, err := lounge.Post(ctx, 42)
			assert.NoErr(t, err)
			assert.Loosely(t, again == p, should.BeTrue)
			assert.Loosely(t, srv.Hits("GET", "/areas/lounge/42/"), should.Equal(1))
			assert.Loosely(t, f.async.submitted(), should.BeEmpty)

			t.Run("and a stale post is refreshed in the background", func(t *ftt.Test) {
				srv.EditPost("lounge", 42, "edited")
				tc.Add(time.Hour)

				again, err := lounge.Post(ctx, 42)
				assert.NoErr(t, err)
				assert.Loosely(t, again == p, should.BeTrue)
				assert.Loosely(t, again.Text(), should.Equal("hi"))
				assert.Loosely(t, srv.Hits("GET", "/areas/lounge/42/"), should.Equal(1))

				sub := f.async.submitted()
				assert.Loosely(t, sub, should.HaveLength(1))
				assert.Loosely(t, sub[0] == descriptors.Descriptor(p), should.BeTrue)

				assert.NoErr(t, descriptors.Refresh(ctx, sub[0]))
				assert.Loosely(t, p.Text(), should.Equal("edited"))
			})

			t.Run("and a post gone from the server is evicted", func(t *ftt.Test) {
				srv.RemovePost("lounge", 42)
				err := descriptors.Refresh(ctx, p)
				assert.Loosely(t, descriptors.IsGone(err), should.BeTrue)
				_, ok := lounge.CachedPost(42)
				assert.Loosely(t, ok, should.BeFalse)

				_, err = lounge.Post(ctx, 42)
				assert.Loosely(t, descriptors.IsGone(err), should.BeTrue)
				assert.Loosely(t, srv.Hits("GET", "/areas/lounge/42/"), should.Equal(3))
			})
		})

		t.Run("Failed cold lookups are not counted as cached", func(t *ftt.Test) {
			srv.AddPost("lounge", &fakeserver.Post{ID: 42, Text: "hi"})
			_, err := lounge.Post(ctx, 42)
			assert.NoErr(t, err)
			assert.Loosely(t, lounge.CachedPosts(), should.Equal(1))

			srv.Close()
			_, err = lounge.Post(ctx, 43)
			assert.Loosely(t, transport.CantConnect.In(err), should.BeTrue)
			assert.Loosely(t, lounge.CachedPosts(), should.Equal(1))
			_, ok := lounge.CachedPost(43)
			assert.Loosely(t, ok, should.BeFalse)
		})

		t.Run("Concurrent cold lookups fetch once", func(t *ftt.Test) {
			srv.AddPost("lounge", &fakeserver.Post{ID: 7, Text: "x"})

			const n = 20
			got := make([]*posts.Post, n)
			errs := make([]error, n)
			var wg sync.WaitGroup
			for i := range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					got[i], errs[i] = lounge.Post(ctx, 7)
				}()
			}
			wg.Wait()

			assert.Loosely(t, srv.Hits("GET", "/areas/lounge/7/"), should.Equal(1))
			for i := range n {
				assert.NoErr(t, errs[i])
				assert.Loosely(t, got[i] == got[0], should.BeTrue)
			}
		})

		t.Run("Post fields", func(t *ftt.Test) {
			created := time.Date(2018, 5, 1, 0, 0, 0, 0, time.UTC)
			srv.AddPost("lounge", &fakeserver.Post{
				ID: 8, Author: 1, Text: "mine", Created: created, Subscribed: true,
				Comments: []fakeserver.Comment{{ID: 1, Author: 2, Text: "nice", Created: created}},
			})
			srv.AddPost("lounge", &fakeserver.Post{ID: 9, Author: 1, Anonym: true, Text: "shh"})

			p, err := lounge.Post(ctx, 8)
			assert.NoErr(t, err)
			assert.Loosely(t, p.AreaID(), should.Equal("lounge"))
			assert.Loosely(t, p.Created().Equal(created), should.BeTrue)
			assert.Loosely(t, p.Subscribed(), should.BeTrue)
			assert.Loosely(t, p.Comments(), should.HaveLength(1))
			assert.Loosely(t, p.Comments()[0].Text, should.Equal("nice"))
			assert.Loosely(t, p.Comments()[0].Author, should.Equal(wire.ID(2)))

			author, err := p.Author(ctx)
			assert.NoErr(t, err)
			assert.Loosely(t, author.Name(), should.Equal("me"))

			anon, err := lounge.Post(ctx, 9)
			assert.NoErr(t, err)
			_, ok := anon.AuthorID()
			assert.Loosely(t, ok, should.BeFalse)
			author, err = anon.Author(ctx)
			assert.NoErr(t, err)
			assert.Loosely(t, author, should.BeNil)
		})

		t.Run("LoadDrafts", func(t *ftt.Test) {
			ids := []int64{
				srv.AddDraft("lounge", &fakeserver.Post{Text: "a"}),
				srv.AddDraft("lounge", &fakeserver.Post{Text: "b"}),
				srv.AddDraft("lounge", &fakeserver.Post{Text: "c"}),
			}
			assert.NoErr(t, lounge.LoadDrafts(ctx))

			drafts := lounge.Drafts()
			assert.Loosely(t, drafts, should.HaveLength(3))
			for i, d := range drafts {
				id, saved := d.ID()
				assert.Loosely(t, saved, should.BeTrue)
				assert.Loosely(t, id, should.Equal(wire.ID(ids[i])))
				cached, ok := lounge.CachedDraft(id)
				assert.Loosely(t, ok, should.BeTrue)
				assert.Loosely(t, cached == d, should.BeTrue)
			}
			assert.Loosely(t, f.async.submitted(), should.HaveLength(3))

			t.Run("replaces the cache", func(t *ftt.Test) {
				srv.RemoveDraft("lounge", ids[0])
				assert.NoErr(t, lounge.LoadDrafts(ctx))
				assert.Loosely(t, lounge.Drafts(), should.HaveLength(2))
				_, ok := lounge.CachedDraft(wire.ID(ids[0]))
				assert.Loosely(t, ok, should.BeFalse)
			})

			t.Run("drafts are fetched on first read", func(t *ftt.Test) {
				d, err := lounge.Draft(ctx, wire.ID(ids[1]))
				assert.NoErr(t, err)
				assert.Loosely(t, d.Text(), should.Equal("b"))
			})

			t.Run("RemoveCached", func(t *ftt.Test) {
				lounge.RemoveCached(wire.ID(ids[2]))
				_, ok := lounge.CachedDraft(wire.ID(ids[2]))
				assert.Loosely(t, ok, should.BeFalse)
				assert.Loosely(t, lounge.Drafts(), should.HaveLength(2))
			})
		})

		t.Run("Own posts", func(t *ftt.Test) {
			id := srv.AddPost("lounge", &fakeserver.Post{Author: 1, Text: "mine"})
			gone := srv.AddPost("lounge", &fakeserver.Post{Author: 1, Text: "soon gone"})

			t.Run("are empty before loading", func(t *ftt.Test) {
				own, err := lounge.OwnPosts(ctx)
				assert.NoErr(t, err)
				assert.Loosely(t, own, should.BeEmpty)
			})

			assert.NoErr(t, lounge.LoadOwnPosts(ctx))
			assert.Loosely(t, lounge.OwnPostIDs(), should.Match([]wire.ID{wire.ID(id), wire.ID(gone)}))

			t.Run("skip posts gone since", func(t *ftt.Test) {
				srv.RemovePost("lounge", gone)
				own, err := lounge.OwnPosts(ctx)
				assert.NoErr(t, err)
				assert.Loosely(t, own, should.HaveLength(1))
				assert.Loosely(t, own[0].ID(), should.Equal(wire.ID(id)))
				assert.Loosely(t, lounge.OwnPostIDs(), should.HaveLength(2))
			})
		})

		t.Run("Reputation is fetched once, on demand", func(t *ftt.Test) {
			_, _, known := lounge.CachedReputation()
			assert.Loosely(t, known, should.BeFalse)

			const n = 10
			reps := make([]int, n)
			errs := make([]error, n)
			var wg sync.WaitGroup
			for i := range n {
				wg.Add(1)
				go func() {
					defer wg.Done()
					reps[i], errs[i] = lounge.Reputation(ctx)
				}()
			}
			wg.Wait()
			for i := range n {
				assert.NoErr(t, errs[i])
				assert.Loosely(t, reps[i], should.Equal(5))
			}
			spread, err := lounge.Spread(ctx)
			assert.NoErr(t, err)
			assert.Loosely(t, spread, should.Equal(3))
			assert.Loosely(t, srv.Hits("GET", "/areas/lounge/rep/"), should.Equal(1))

			t.Run("and refreshed in the background once stale", func(t *ftt.Test) {
				tc.Add(DefaultExpiration)
				_, err := lounge.Reputation(ctx)
				assert.NoErr(t, err)
				assert.Loosely(t, f.async.submitted(), should.HaveLength(1))
				assert.Loosely(t, srv.Hits("GET", "/areas/lounge/rep/"), should.Equal(1))
			})
		})

		t.Run("Areas gone from the server are evicted", func(t *ftt.Test) {
			srv.RemoveArea("lounge")
			_, err := lounge.Reputation(ctx)
			assert.Loosely(t, descriptors.IsGone(err), should.BeTrue)
			assert.Loosely(t, lounge.Removed(), should.BeTrue)
			_, ok := reg.Cached("lounge")
			assert.Loosely(t, ok, should.BeFalse)
		})

		t.Run("Clean drops stale areas", func(t *ftt.Test) {
			assert.Loosely(t, reg.Clean(ctx), should.BeZero)
			tc.Add(DefaultExpiration)
			assert.Loosely(t, reg.Clean(ctx), should.Equal(2))
			assert.Loosely(t, reg.Len(), should.BeZero)
		})

		t.Run("Clear forgets everything", func(t *ftt.Test) {
			srv.AddPost("lounge", &fakeserver.Post{ID: 42, Text: "hi"})
			_, err := lounge.Post(ctx, 42)
			assert.NoErr(t, err)

			reg.Clear()
			assert.Loosely(t, reg.Len(), should.BeZero)
			assert.Loosely(t, reg.Loaded(), should.BeFalse)
			assert.Loosely(t, lounge.CachedPosts(), should.BeZero)

			t.Run("and Get reloads", func(t *ftt.Test) {
				again, err := reg.Get(ctx, "lounge")
				assert.NoErr(t, err)
				assert.Loosely(t, again == lounge, should.BeFalse)
				assert.Loosely(t, srv.Hits("GET", "/areas/"), should.Equal(2))
			})
		})

		t.Run("Init warms up every area", func(t *ftt.Test) {
			srv.AddDraft("fun", &fakeserver.Post{Text: "d"})
			srv.AddPost("lounge", &fakeserver.Post{Author: 1, Text: "own"})

			assert.NoErr(t, reg.Init(ctx))
			fun, _ := reg.Cached("fun")
			assert.Loosely(t, fun.Drafts(), should.HaveLength(1))
			assert.Loosely(t, lounge.OwnPostIDs(), should.HaveLength(1))
			assert.Loosely(t, srv.Hits("GET", "/areas/fun/drafts/"), should.Equal(1))
			assert.Loosely(t, srv.Hits("GET", "/areas/lounge/own/"), should.Equal(1))
		})
	})
}

func TestDrafts(t *testing.T) {
	t.Parallel()

	ftt.Run("With an area", t, func(t *ftt.Test) {
		ctx, _ := testclock.UseTime(context.Background(), testclock.TestRecentTimeUTC)

		srv := fakeserver.New()
		defer srv.Close()
		srv.AddArea("fun", "Fun", 0, 0)

		f := newFixture(ctx, t, srv.URL, srv.Client())
		fun, err := f.reg.Get(ctx, "fun")
		assert.NoErr(t, err)

		d := fun.NewDraft().SetText("hello").SetAnonymous(true)
		_, saved := d.ID()
		assert.Loosely(t, saved, should.BeFalse)
		assert.Loosely(t, fun.Drafts(), should.BeEmpty)

		t.Run("Save creates then edits", func(t *ftt.Test) {
			assert.NoErr(t, d.Save(ctx))
			id, saved := d.ID()
			assert.Loosely(t, saved, should.BeTrue)
			assert.Loosely(t, srv.Hits("POST", "/areas/fun/drafts/"), should.Equal(1))

			cached, ok := fun.CachedDraft(id)
			assert.Loosely(t, ok, should.BeTrue)
			assert.Loosely(t, cached == d, should.BeTrue)

			remote, _ := srv.Draft("fun", int64(id))
			assert.Loosely(t, remote.Text, should.Equal("hello"))
			assert.Loosely(t, remote.Anonym, should.BeTrue)

			d.SetText("hello again")
			assert.NoErr(t, d.Save(ctx))
			remote, _ = srv.Draft("fun", int64(id))
			assert.Loosely(t, remote.Text, should.Equal("hello again"))
			assert.Loosely(t, srv.Hits("PATCH", "/areas/fun/drafts/"+id.String()+"/"), should.Equal(1))

			t.Run("Publish", func(t *ftt.Test) {
				p, err := d.Publish(ctx)
				assert.NoErr(t, err)
				assert.Loosely(t, p.ID(), should.Equal(id))
				assert.Loosely(t, p.Text(), should.Equal("hello again"))
				assert.Loosely(t, d.Removed(), should.BeTrue)
				_, ok := fun.CachedDraft(id)
				assert.Loosely(t, ok, should.BeFalse)

				cached, ok := fun.CachedPost(id)
				assert.Loosely(t, ok, should.BeTrue)
				assert.Loosely(t, cached == p, should.BeTrue)

				_, err = d.Publish(ctx)
				assert.Loosely(t, descriptors.IsGone(err), should.BeTrue)
			})

			t.Run("Delete", func(t *ftt.Test) {
				assert.NoErr(t, d.Delete(ctx))
				_, ok := fun.CachedDraft(id)
				assert.Loosely(t, ok, should.BeFalse)
				_, ok = srv.Draft("fun", int64(id))
				assert.Loosely(t, ok, should.BeFalse)
				assert.Loosely(t, descriptors.IsGone(d.Save(ctx)), should.BeTrue)
			})

			t.Run("Refresh notices drafts deleted elsewhere", func(t *ftt.Test) {
				srv.RemoveDraft("fun", int64(id))
				err := descriptors.Refresh(ctx, d)
				assert.Loosely(t, descriptors.IsGone(err), should.BeTrue)
				_, ok := fun.CachedDraft(id)
				assert.Loosely(t, ok, should.BeFalse)
			})
		})

		t.Run("Publishing a local draft posts it directly", func(t *ftt.Test) {
			p, err := d.Publish(ctx)
			assert.NoErr(t, err)
			assert.Loosely(t, p.Text(), should.Equal("hello"))
			assert.Loosely(t, srv.Hits("POST", "/areas/fun/"), should.Equal(1))
			assert.Loosely(t, srv.Hits("POST", "/areas/fun/drafts/"), should.BeZero)
		})

		t.Run("Publishing an empty local draft fails", func(t *ftt.Test) {
			_, err := fun.NewDraft().Publish(ctx)
			issue, ok := transport.AsTransferIssue(err)
			assert.Loosely(t, ok, should.BeTrue)
			assert.Loosely(t, issue.Status, should.Equal(http.StatusBadRequest))
			_, ok = issue.Field("text")
			assert.Loosely(t, ok, should.BeTrue)
		})

		t.Run("Deleting a local draft is local", func(t *ftt.Test) {
			assert.NoErr(t, d.Delete(ctx))
			assert.Loosely(t, srv.TotalHits(), should.Equal(1))
		})
	})
}

func TestConcurrentUse(t *testing.T) {
	t.Parallel()

	ftt.Run("Loads, cleans and lookups run together", t, func(t *ftt.Test) {
		ctx := context.Background()

		srv := fakeserver.New()
		defer srv.Close()
		ids := []string{"fun", "lounge", "misc"}
		for _, id := range ids {
			srv.AddArea(id, "Area "+id, 0, 0)
			for p := range 5 {
				srv.AddPost(id, &fakeserver.Post{ID: int64(p + 1), Text: "post in " + id})
			}
		}

		client := transport.NewClient(srv.URL, srv.Client())
		tokens := auth.NewStore(client)
		assert.NoErr(t, tokens.SetToken(fakeserver.Token))
		async, err := dispatch.New(ctx, dispatch.Options{Workers: 2, QueueSize: 20})
		assert.NoErr(t, err)
		defer async.Close(ctx)

		env := &descriptors.Env{Client: client, Tokens: tokens, Async: async}
		mk := func(kind string, d time.Duration) *descriptors.CacheManager {
			cm, err := descriptors.NewCacheManager(ctx, kind, d)
			assert.NoErr(t, err)
			return cm
		}
		deps := &posts.Deps{
			Env:    env,
			Users:  users.NewRegistry(env, mk("user", users.DefaultExpiration)),
			Posts:  mk("post", time.Nanosecond),
			Drafts: mk("draft", posts.DraftExpiration),
		}
		reg := NewRegistry(deps, mk("area", time.Nanosecond))
		assert.NoErr(t, reg.Load(ctx))

		const rounds = 30
		var wg sync.WaitGroup
		fail := make(chan error, 100)
		report := func(err error) {
			select {
			case fail <- err:
			default:
			}
		}

		wg.Add(2)
		go func() {
			defer wg.Done()
			for range rounds {
				if err := reg.Load(ctx); err != nil {
					report(err)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for range rounds {
				reg.Clean(ctx)
				for _, a := range reg.Collection() {
					if a.ID() == "" || a.Name() != "Area "+a.ID() {
						report(errors.Fmt("half-written area %q named %q", a.ID(), a.Name()))
					}
				}
			}
		}()
		for _, id := range ids {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range rounds {
					a, err := reg.Get(ctx, id)
					if descriptors.IsGone(err) {
						continue
					}
					if err != nil {
						report(err)
						continue
					}
					p, err := a.Post(ctx, wire.ID(i%5+1))
					if err != nil {
						report(err)
						continue
					}
					if p.Text() != "post in "+id {
						report(errors.Fmt("post %s/%d has text %q", id, p.ID(), p.Text()))
					}
					a.CachedPosts()
				}
			}()
		}
		wg.Wait()
		async.Close(ctx)
		close(fail)

		for err := range fail {
			assert.NoErr(t, err)
		}
	})
}

func TestProtocolErrors(t *testing.T) {
	t.Parallel()

	ftt.Run("Malformed area lists are protocol errors", t, func(t *ftt.Test) {
		ctx := context.Background()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[{"displayname": "No Name"}]`))
		}))
		defer srv.Close()

		f := newFixture(ctx, t, srv.URL, srv.Client())
		err := f.reg.Load(ctx)
		assert.Loosely(t, transport.IsProtocolError(err), should.BeTrue)
		assert.Loosely(t, f.reg.Loaded(), should.BeFalse)
	})
}
