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

// Package fakeserver implements an in-memory WildFyre API for tests.
//
// It serves the endpoints the library uses, counts every request it gets
// and lets tests add or remove entities between calls.
package fakeserver

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
)

// Token is the token issued for the default account.
const Token = "fake-token"

// Password is the password of the default account.
const Password = "hunter2"

// Server is a WildFyre API backed by memory.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	hits     map[string]int
	nextID   int64
	now      time.Time
	accounts map[string]*account
	users    map[int64]*User
	areas    []*Area
	avatar   []byte
	signups  []map[string]string
}

type account struct {
	password string
	token    string
	user     int64
}

// User is an account profile.
type User struct {
	ID     int64
	Name   string
	Avatar string
	Bio    string
	Banned bool
}

// Area holds posts and drafts.
type Area struct {
	ID          string
	DisplayName string
	Reputation  int
	Spread      int

	posts  map[int64]*Post
	drafts map[int64]*Post
	own    []int64
}

// Post is a post or a draft.
type Post struct {
	ID         int64
	Author     int64 // 0 is anonymous
	Anonym     bool
	Subscribed bool
	Created    time.Time
	Active     bool
	Text       string
	Image      string
	Comments   []Comment
}

// Comment is a comment under a post.
type Comment struct {
	ID      int64
	Author  int64
	Created time.Time
	Text    string
}

// New starts a server with one account, "me" (user 1), holding the token
// Token.
func New() *Server {
	s := &Server{
		hits:     map[string]int{},
		nextID:   100,
		now:      time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC),
		accounts: map[string]*account{},
		users:    map[int64]*User{},
	}
	s.AddUser(&User{ID: 1, Name: "me", Bio: "hello"})
	s.accounts["me"] = &account{password: Password, token: Token, user: 1}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.count)

	r.Post("/account/auth/", s.login)
	r.Post("/account/register/", s.register)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticated)

		r.Get("/users/", s.getMe)
		r.Put("/users/", s.editMe)
		r.Get("/users/{user}/", s.getUser)

		r.Get("/areas/", s.listAreas)
		r.Route("/areas/{area}", func(r chi.Router) {
			r.Post("/", s.createPost)
			r.Get("/rep/", s.getRep)
			r.Get("/own/", s.listOwn)
			r.Get("/drafts/", s.listDrafts)
			r.Post("/drafts/", s.createDraft)
			r.Get("/drafts/{post}/", s.getDraft)
			r.Put("/drafts/{post}/", s.editDraft)
			r.Delete("/drafts/{post}", s.deleteDraft)
			r.Delete("/drafts/{post}/", s.deleteDraft)
			r.Post("/drafts/{post}/publish/", s.publishDraft)
			r.Get("/{post}/", s.getPost)
		})
	})
	return r
}

// count records the request, with the method override applied.
func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method := r.Method
		if o := r.Header.Get("X-HTTP-Method-Override"); o != "" {
			method = o
		}
		s.mu.Lock()
		s.hits[method+" "+r.URL.Path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// Hits is how many times "METHOD path" was requested.
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" "+path]
}

// TotalHits is the number of requests served.
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

// ResetHits zeroes the counters.
func (s *Server) ResetHits() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.hits)
}

// AddUser adds or replaces a profile.
func (s *Server) AddUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

// RemoveUser deletes a profile.
func (s *Server) RemoveUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, id)
}

// User returns a copy of a profile.
func (s *Server) User(id int64) (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// Avatar is the last uploaded avatar.
func (s *Server) Avatar() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.avatar)
}

// Signups are the bodies of the registration requests.
func (s *Server) Signups() []map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.signups)
}

// AddArea adds an area, or renames it if it exists.
func (s *Server) AddArea(id, displayName string, reputation, spread int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a := s.area(id); a != nil {
		a.DisplayName = displayName
		a.Reputation = reputation
		a.Spread = spread
		return
	}
	s.areas = append(s.areas, &Area{
		ID:          id,
		DisplayName: displayName,
		Reputation:  reputation,
		Spread:      spread,
		posts:       map[int64]*Post{},
		drafts:      map[int64]*Post{},
	})
}

// RemoveArea deletes an area with its content.
func (s *Server) RemoveArea(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.areas = slices.DeleteFunc(s.areas, func(a *Area) bool { return a.ID == id })
}

// AddPost adds a post to an area. A zero ID is assigned. Posts by user 1
// are listed as own posts.
func (s *Server) AddPost(area string, p *Post) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.mustArea(area)
	s.stamp(p)
	a.posts[p.ID] = p
	if p.Author == 1 {
		a.own = append(a.own, p.ID)
	}
	return p.ID
}

// EditPost changes the text of a post.
func (s *Server) EditPost(area string, id int64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mustArea(area).posts[id].Text = text
}

// RemovePost deletes a post.
func (s *Server) RemovePost(area string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mustArea(area).posts, id)
}

// AddDraft adds a draft of user 1. A zero ID is assigned.
func (s *Server) AddDraft(area string, p *Post) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.mustArea(area)
	p.Author = 1
	s.stamp(p)
	a.drafts[p.ID] = p
	return p.ID
}

// RemoveDraft deletes a draft.
func (s *Server) RemoveDraft(area string, id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.mustArea(area).drafts, id)
}

// Draft returns a copy of a draft.
func (s *Server) Draft(area string, id int64) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.mustArea(area).drafts[id]
	if !ok {
		return Post{}, false
	}
	return *p, true
}

// Post returns a copy of a post.
func (s *Server) Post(area string, id int64) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.mustArea(area).posts[id]
	if !ok {
		return Post{}, false
	}
	return *p, true
}

func (s *Server) stamp(p *Post) {
	if p.ID == 0 {
		s.nextID++
		p.ID = s.nextID
	}
	if p.Created.IsZero() {
		s.now = s.now.Add(time.Minute)
		p.Created = s.now
	}
}

func (s *Server) area(id string) *Area {
	for _, a := range s.areas {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (s *Server) mustArea(id string) *Area {
	a := s.area(id)
	if a == nil {
		panic(fmt.Sprintf("fakeserver: no area %q", id))
	}
	return a
}
