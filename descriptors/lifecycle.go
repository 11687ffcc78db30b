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

	"go.opentelemetry.io/otel/attribute"

	"github.com/wildfyre-app/lib-go/internal/tracing"
	"github.com/wildfyre-app/lib-go/internal/transport"

	"go.chromium.org/luci/common/clock"
	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/tsmon/field"
	"go.chromium.org/luci/common/tsmon/metric"
)

var (
	fetchCounter = metric.NewCounter(
		"wildfyre/descriptors/fetches",
		"Number of entity fetches from the API.",
		nil,
		field.String("kind"),
		field.String("result"), // ok | gone | error
	)

	lookupCounter = metric.NewCounter(
		"wildfyre/descriptors/lookups",
		"Number of entity lookups by cache state.",
		nil,
		field.String("kind"),
		field.String("state"), // fresh | stale | cold | removed
	)
)

// Submitter queues asynchronous refreshes.
type Submitter interface {
	// Submit queues a refresh of d and returns immediately.
	//
	// It returns false if nothing was queued, e.g. because a refresh of d is
	// already pending.
	Submit(ctx context.Context, d Descriptor) bool
}

// Refresh fetches d now.
//
// Concurrent calls for the same instance share one fetch. On success the
// fetch time is recorded. If the server reports the entity gone, d is marked
// removed (running its OnGone hooks) and a NoSuchEntity error is returned.
// Other errors leave d untouched.
func Refresh(ctx context.Context, d Descriptor) error {
	return shared(ctx, d, func(ctx context.Context) error {
		return fetch(ctx, d)
	})
}

// shared runs fn as the one fetch in flight for d, or waits for the one
// already running.
//
// fn runs with the values of ctx but not its cancellation, since other
// callers may be waiting for it. A caller whose ctx is done stops waiting
// and gets the ctx error; the fetch goes on for the others.
func shared(ctx context.Context, d Descriptor, fn func(context.Context) error) error {
	detached := context.WithoutCancel(ctx)
	ch := d.DescriptorState().flight.DoChan("", func() (any, error) {
		return nil, fn(detached)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return errors.Fmt("%s: waiting for fetch: %w", d.CacheManager().Kind(), ctx.Err())
	}
}

// FetchIfNew fetches d if it was never fetched.
//
// However many goroutines call it at once, at most one fetch happens.
func FetchIfNew(ctx context.Context, d Descriptor) error {
	s := d.DescriptorState()
	if !s.IsNew() {
		return nil
	}
	return shared(ctx, d, func(ctx context.Context) error {
		switch {
		case s.Removed():
			return removedErr(d)
		case !s.IsNew():
			return nil
		}
		return fetch(ctx, d)
	})
}

func fetch(ctx context.Context, d Descriptor) (err error) {
	s := d.DescriptorState()
	kind := d.CacheManager().Kind()

	ctx, span := tracing.Start(ctx, "wildfyre.descriptors/Refresh", attribute.String("wildfyre.kind", kind))
	defer func() { tracing.End(span, err) }()

	started := clock.Now(ctx)
	err = translate(kind, d.Update(ctx))
	switch {
	case err == nil:
		s.MarkFetched(clock.Now(ctx))
		fetchCounter.Add(ctx, 1, kind, "ok")
		logging.Debugf(ctx, "%s: fetched in %s", kind, clock.Since(ctx, started).Round(time.Millisecond))
	case IsGone(err):
		fetchCounter.Add(ctx, 1, kind, "gone")
		logging.Infof(ctx, "%s: gone from the server, evicting", kind)
		s.MarkRemoved(ctx)
	default:
		fetchCounter.Add(ctx, 1, kind, "error")
		if transport.IsProtocolError(err) {
			logging.Errorf(ctx, "%s: %s", kind, err)
		}
	}
	return err
}

func removedErr(d Descriptor) error {
	return NoSuchEntity.Apply(errors.Fmt("%s: removed from the server", d.CacheManager().Kind()))
}

// Resolve makes d ready to be read.
//
// A NEW d is fetched synchronously, a stale one is submitted to async (if
// not nil) and returned as is, a removed one is a NoSuchEntity error.
func Resolve(ctx context.Context, async Submitter, d Descriptor) error {
	s := d.DescriptorState()
	cm := d.CacheManager()
	switch {
	case s.Removed():
		lookupCounter.Add(ctx, 1, cm.Kind(), "removed")
		return removedErr(d)
	case s.IsNew():
		lookupCounter.Add(ctx, 1, cm.Kind(), "cold")
		return FetchIfNew(ctx, d)
	case cm.IsValid(s.LastFetched(), clock.Now(ctx)):
		lookupCounter.Add(ctx, 1, cm.Kind(), "fresh")
		return nil
	default:
		lookupCounter.Add(ctx, 1, cm.Kind(), "stale")
		if async != nil {
			async.Submit(ctx, d)
		}
		return nil
	}
}

// Expired is true if d is NEW or stale at the current time.
func Expired(ctx context.Context, d Descriptor) bool {
	return !d.CacheManager().IsValid(d.DescriptorState().LastFetched(), clock.Now(ctx))
}
