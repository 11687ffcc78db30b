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

// Package posts mirrors the posts and drafts of an area.
//
// Posts and drafts always belong to one area, fixed at construction. The
// area keeps the only cache of them and is reached through the Owner
// interface.
package posts

import (
	"time"

	"github.com/wildfyre-app/lib-go/descriptors"
	"github.com/wildfyre-app/lib-go/internal/wire"
	"github.com/wildfyre-app/lib-go/users"
)

const (
	// PostExpiration is how long a post stays fresh.
	PostExpiration = 10 * time.Minute
	// DraftExpiration is how long a draft stays fresh.
	DraftExpiration = time.Hour
)

// Owner is the area caching posts and drafts.
type Owner interface {
	// ID is the area ID, as used in API paths.
	ID() string
	// PostEntry returns the cached post, creating an unfetched one if needed.
	PostEntry(id wire.ID) *Post
	// CacheDraft stores a draft which was just saved on the server.
	CacheDraft(d *Draft)
	// RemoveCached drops a draft from the cache.
	RemoveCached(id wire.ID)
}

// Deps is what posts and drafts share within a session.
type Deps struct {
	Env    *descriptors.Env
	Users  *users.Registry
	Posts  *descriptors.CacheManager
	Drafts *descriptors.CacheManager
}

// Image is an additional picture of a post.
type Image struct {
	Num     int    `json:"num"`
	Image   string `json:"image"`
	Comment string `json:"comment"`
}

// Comment is a comment under a post.
type Comment struct {
	ID      wire.ID
	Author  wire.ID
	Created time.Time
	Text    string
	Image   string
}

// content is the JSON shape of posts and drafts.
type content struct {
	ID         *wire.ID    `json:"id"`
	Author     *wire.Owner `json:"author"`
	Anonym     bool        `json:"anonym"`
	Subscribed bool        `json:"subscribed"`
	Created    *time.Time  `json:"created"`
	Active     bool        `json:"active"`
	Text       *string     `json:"text"`
	Image      *string     `json:"image"`
	Additional []Image     `json:"additional_images"`
	Comments   []struct {
		ID      *wire.ID    `json:"id"`
		Author  *wire.Owner `json:"author"`
		Created time.Time   `json:"created"`
		Text    string      `json:"text"`
		Image   *string     `json:"image"`
	} `json:"comments"`
}

// fields is the decoded, checked form of content.
type fields struct {
	author     wire.ID
	hasAuthor  bool
	anonym     bool
	subscribed bool
	created    time.Time
	active     bool
	text       string
	image      string
	additional []Image
	comments   []Comment
}

func (c *content) check(raw []byte) (fields, error) {
	var f fields
	text, err := wire.Required(c.Text, "text", raw)
	if err != nil {
		return f, err
	}
	created, err := wire.Required(c.Created, "created", raw)
	if err != nil {
		return f, err
	}
	if c.Author != nil {
		if f.author, err = wire.Required(c.Author.User, "author.user", raw); err != nil {
			return f, err
		}
		f.hasAuthor = true
	}
	f.anonym = c.Anonym
	f.subscribed = c.Subscribed
	f.created = created
	f.active = c.Active
	f.text = text
	if c.Image != nil {
		f.image = *c.Image
	}
	f.additional = c.Additional
	for _, cm := range c.Comments {
		id, err := wire.Required(cm.ID, "comments.id", raw)
		if err != nil {
			return f, err
		}
		out := Comment{ID: id, Created: cm.Created, Text: cm.Text}
		if cm.Author != nil && cm.Author.User != nil {
			out.Author = *cm.Author.User
		}
		if cm.Image != nil {
			out.Image = *cm.Image
		}
		f.comments = append(f.comments, out)
	}
	return f, nil
}
