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

package descriptors

import (
	"context"
	"time"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
)

// DefaultExpiration applies to kinds without a more specific setting.
const DefaultExpiration = 30 * time.Minute

// CacheManager decides whether instances of one kind of entity are fresh.
//
// One CacheManager is shared by all instances of the kind. It is immutable.
type CacheManager struct {
	kind       string
	expiration time.Duration
}

// NewCacheManager returns a CacheManager for the kind.
//
// A negative expiration is an error. A zero one is accepted with a warning:
// every instance is then stale as soon as it is fetched.
func NewCacheManager(ctx context.Context, kind string, expiration time.Duration) (*CacheManager, error) {
	if expiration < 0 {
		return nil, errors.Fmt("%s: negative cache expiration %s", kind, expiration)
	}
	if expiration == 0 {
		logging.Warningf(ctx, "%s: cache expiration is 0, every read will trigger a refresh", kind)
	}
	return &CacheManager{kind: kind, expiration: expiration}, nil
}

// Kind is the entity kind, used in logs and metrics.
func (c *CacheManager) Kind() string { return c.kind }

// Expiration is how long a fetched instance stays fresh.
func (c *CacheManager) Expiration() time.Duration { return c.expiration }

// IsValid is true if something fetched at lastFetched is still fresh at now.
//
// The zero time means "never fetched" and is never valid.
func (c *CacheManager) IsValid(lastFetched, now time.Time) bool {
	if lastFetched.IsZero() {
		return false
	}
	return now.Sub(lastFetched) < c.expiration
}
