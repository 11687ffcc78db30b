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
	"net/http"
	"time"

	"github.com/wildfyre-app/lib-go/areas"
	"github.com/wildfyre-app/lib-go/posts"
	"github.com/wildfyre-app/lib-go/users"
)

// Options configures a Session.
//
// The zero value talks to the default API with the default expirations.
type Options struct {
	// BaseURL of the API. Default https://api.wildfyre.net, or
	// http://localhost:8000 if WILDFYRE_TESTING is set.
	BaseURL string
	// HTTPClient sends the requests. Default a client traced with otelhttp.
	HTTPClient *http.Client

	// Workers is the number of concurrent background refreshes.
	Workers int
	// QueueSize is the number of background refreshes waiting for a worker
	// before the oldest are dropped.
	QueueSize int
	// RefreshQPS caps how many background refreshes start per second. Zero
	// is unlimited.
	RefreshQPS float64

	// Expirations per entity kind. Zero picks the default of the kind.
	AreaExpiration  time.Duration
	PostExpiration  time.Duration
	DraftExpiration time.Duration
	UserExpiration  time.Duration

	// OnCantConnect is called with every connectivity failure seen while
	// looking entities up, stale copies being served or not.
	OnCantConnect func(ctx context.Context, err error)
}

func orDefault(d, def time.Duration) time.Duration {
	if d == 0 {
		return def
	}
	return d
}

func (o *Options) areaExpiration() time.Duration {
	return orDefault(o.AreaExpiration, areas.DefaultExpiration)
}

func (o *Options) postExpiration() time.Duration {
	return orDefault(o.PostExpiration, posts.PostExpiration)
}

func (o *Options) draftExpiration() time.Duration {
	return orDefault(o.DraftExpiration, posts.DraftExpiration)
}

func (o *Options) userExpiration() time.Duration {
	return orDefault(o.UserExpiration, users.DefaultExpiration)
}
