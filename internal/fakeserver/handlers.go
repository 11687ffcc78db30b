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

package fakeserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type userKey struct{}

func reply(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func detail(w http.ResponseWriter, r *http.Request, status int, msg string) {
	reply(w, r, status, map[string]string{"detail": msg})
}

func notFound(w http.ResponseWriter, r *http.Request) {
	detail(w, r, http.StatusNotFound, "Not found.")
}

func (s *Server) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, ok := strings.CutPrefix(r.Header.Get("Authorization"), "token ")
		if !ok {
			detail(w, r, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}
		s.mu.Lock()
		var user int64
		for _, acc := range s.accounts {
			if acc.token == tok {
				user = acc.user
			}
		}
		s.mu.Unlock()
		if user == 0 {
			detail(w, r, http.StatusUnauthorized, "Invalid token.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, user)))
	})
}

func currentUser(r *http.Request) int64 {
	return r.Context().Value(userKey{}).(int64)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		detail(w, r, http.StatusBadRequest, "JSON parse error.")
		return
	}
	s.mu.Lock()
	acc, ok := s.accounts[body.Username]
	s.mu.Unlock()
	if !ok || acc.password != body.Password {
		reply(w, r, http.StatusBadRequest, map[string][]string{
			"non_field_errors": {"Unable to log in with provided credentials."},
		})
		return
	}
	reply(w, r, http.StatusOK, map[string]string{"token": acc.token})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		detail(w, r, http.StatusBadRequest, "JSON parse error.")
		return
	}
	missing := map[string][]string{}
	for _, f := range []string{"username", "email", "password", "captcha"} {
		if body[f] == "" {
			missing[f] = []string{"This field is required."}
		}
	}
	if len(missing) > 0 {
		reply(w, r, http.StatusBadRequest, missing)
		return
	}
	s.mu.Lock()
	s.signups = append(s.signups, body)
	s.mu.Unlock()
	reply(w, r, http.StatusCreated, map[string]string{"username": body["username"], "email": body["email"]})
}

func profileJSON(u *User) map[string]any {
	var avatar any
	if u.Avatar != "" {
		avatar = u.Avatar
	}
	return map[string]any{
		"user":   u.ID,
		"name":   u.Name,
		"avatar": avatar,
		"bio":    u.Bio,
		"banned": u.Banned,
	}
}

func (s *Server) getMe(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[currentUser(r)]
	if !ok {
		notFound(w, r)
		return
	}
	reply(w, r, http.StatusOK, profileJSON(u))
}

func (s *Server) editMe(w http.ResponseWriter, r *http.Request) {
	fields := map[string]string{}
	var avatar []byte
	var avatarName string
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			detail(w, r, http.StatusBadRequest, "Multipart form parse error.")
			return
		}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		f, hdr, err := r.FormFile("avatar")
		if err == nil {
			avatar, _ = io.ReadAll(f)
			avatarName = hdr.Filename
			_ = f.Close()
		}
	} else if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		detail(w, r, http.StatusBadRequest, "JSON parse error.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[currentUser(r)]
	if v, ok := fields["name"]; ok {
		u.Name = v
	}
	if v, ok := fields["bio"]; ok {
		u.Bio = v
	}
	if avatarName != "" {
		s.avatar = avatar
		u.Avatar = s.URL + "/media/avatar/" + avatarName
	}
	reply(w, r, http.StatusOK, profileJSON(u))
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "user")
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[id]
	if !ok || u == nil {
		notFound(w, r)
		return
	}
	reply(w, r, http.StatusOK, profileJSON(u))
}

func (s *Server) listAreas(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]string, len(s.areas))
	for i, a := range s.areas {
		out[i] = map[string]string{"name": a.ID, "displayname": a.DisplayName}
	}
	reply(w, r, http.StatusOK, out)
}

// withArea runs fn with the area of the request, with the server locked.
func (s *Server) withArea(w http.ResponseWriter, r *http.Request, fn func(a *Area)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.area(chi.URLParam(r, "area"))
	if a == nil {
		notFound(w, r)
		return
	}
	fn(a)
}

func (s *Server) getRep(w http.ResponseWriter, r *http.Request) {
	s.withArea(w, r, func(a *Area) {
		reply(w, r, http.StatusOK, map[string]int{"reputation": a.Reputation, "spread": a.Spread})
	})
}

func (s *Server) postJSON(p *Post, comments bool) map[string]any {
	var author any
	if p.Author != 0 && !p.Anonym {
		if u, ok := s.users[p.Author]; ok {
			author = map[string]any{"user": u.ID, "name": u.Name}
		} else {
			author = map[string]any{"user": p.Author}
		}
	}
	var image any
	if p.Image != "" {
		image = p.Image
	}
	out := map[string]any{
		"id":                p.ID,
		"author":            author,
		"anonym":            p.Anonym,
		"subscribed":        p.Subscribed,
		"created":           p.Created,
		"active":            p.Active,
		"text":              p.Text,
		"image":             image,
		"additional_images": []any{},
	}
	if comments {
		list := make([]map[string]any, len(p.Comments))
		for i, c := range p.Comments {
			list[i] = map[string]any{
				"id":      c.ID,
				"author":  map[string]any{"user": c.Author},
				"created": c.Created,
				"text":    c.Text,
				"image":   nil,
			}
		}
		out["comments"] = list
	}
	return out
}

// results wraps a list reply. List entries carry string IDs, as the real
// API does.
func results(items []map[string]any) map[string]any {
	for _, item := range items {
		if id, ok := item["id"].(int64); ok {
			item["id"] = strconv.FormatInt(id, 10)
		}
	}
	return map[string]any{"count": len(items), "next": nil, "previous": nil, "results": items}
}

func (s *Server) listOwn(w http.ResponseWriter, r *http.Request) {
	s.withArea(w, r, func(a *Area) {
		items := []map[string]any{}
		for _, id := range a.own {
			if p, ok := a.posts[id]; ok {
				items = append(items, s.postJSON(p, true))
			}
		}
		reply(w, r, http.StatusOK, results(items))
	})
}

func (s *Server) listDrafts(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	s.withArea(w, r, func(a *Area) {
		ids := make([]int64, 0, len(a.drafts))
		for id, d := range a.drafts {
			if d.Author == user {
				ids = append(ids, id)
			}
		}
		slices.Sort(ids)
		items := make([]map[string]any, len(ids))
		for i, id := range ids {
			items[i] = s.postJSON(a.drafts[id], false)
		}
		reply(w, r, http.StatusOK, results(items))
	})
}

type postEdit struct {
	Text   *string `json:"text"`
	Anonym *bool   `json:"anonym"`
}

func (e postEdit) apply(p *Post) {
	if e.Text != nil {
		p.Text = *e.Text
	}
	if e.Anonym != nil {
		p.Anonym = *e.Anonym
	}
}

func decodeEdit(w http.ResponseWriter, r *http.Request) (postEdit, bool) {
	var e postEdit
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil && err != io.EOF {
		detail(w, r, http.StatusBadRequest, "JSON parse error.")
		return e, false
	}
	return e, true
}

func (s *Server) createDraft(w http.ResponseWriter, r *http.Request) {
	e, ok := decodeEdit(w, r)
	if !ok {
		return
	}
	s.withArea(w, r, func(a *Area) {
		p := &Post{Author: currentUser(r)}
		e.apply(p)
		s.stamp(p)
		a.drafts[p.ID] = p
		reply(w, r, http.StatusCreated, s.postJSON(p, false))
	})
}

// withDraft runs fn with the draft of the request owned by the caller.
func (s *Server) withDraft(w http.ResponseWriter, r *http.Request, fn func(a *Area, d *Post)) {
	id, ok := idParam(r, "post")
	s.withArea(w, r, func(a *Area) {
		d := a.drafts[id]
		if !ok || d == nil || d.Author != currentUser(r) {
			notFound(w, r)
			return
		}
		fn(a, d)
	})
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	s.withDraft(w, r, func(_ *Area, d *Post) {
		reply(w, r, http.StatusOK, s.postJSON(d, false))
	})
}

func (s *Server) editDraft(w http.ResponseWriter, r *http.Request) {
	e, ok := decodeEdit(w, r)
	if !ok {
		return
	}
	s.withDraft(w, r, func(_ *Area, d *Post) {
		e.apply(d)
		reply(w, r, http.StatusOK, s.postJSON(d, false))
	})
}

func (s *Server) deleteDraft(w http.ResponseWriter, r *http.Request) {
	s.withDraft(w, r, func(a *Area, d *Post) {
		delete(a.drafts, d.ID)
		w.WriteHeader(http.StatusNoContent)
	})
}

func (s *Server) publishDraft(w http.ResponseWriter, r *http.Request) {
	s.withDraft(w, r, func(a *Area, d *Post) {
		delete(a.drafts, d.ID)
		d.Active = true
		a.posts[d.ID] = d
		a.own = append(a.own, d.ID)
		reply(w, r, http.StatusOK, s.postJSON(d, true))
	})
}

func (s *Server) createPost(w http.ResponseWriter, r *http.Request) {
	e, ok := decodeEdit(w, r)
	if !ok {
		return
	}
	if e.Text == nil || *e.Text == "" {
		reply(w, r, http.StatusBadRequest, map[string][]string{"text": {"This field is required."}})
		return
	}
	s.withArea(w, r, func(a *Area) {
		p := &Post{Author: currentUser(r), Active: true}
		e.apply(p)
		s.stamp(p)
		a.posts[p.ID] = p
		a.own = append(a.own, p.ID)
		reply(w, r, http.StatusCreated, s.postJSON(p, true))
	})
}

func (s *Server) getPost(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "post")
	s.withArea(w, r, func(a *Area) {
		p := a.posts[id]
		if !ok || p == nil {
			notFound(w, r)
			return
		}
		reply(w, r, http.StatusOK, s.postJSON(p, true))
	})
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}
