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

// Package dispatch refreshes stale descriptors in the background.
//
// A Dispatcher owns a small pool of workers fed by a bounded queue. Submit
// never blocks: a descriptor already queued or being refreshed is skipped,
// and when the queue is full the oldest pending refresh is dropped.
package dispatch

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/wildfyre-app/lib-go/descriptors"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/sync/dispatcher"
	"go.chromium.org/luci/common/sync/dispatcher/buffer"
	"go.chromium.org/luci/common/tsmon/field"
	"go.chromium.org/luci/common/tsmon/metric"
)

var refreshCounter = metric.NewCounter(
	"wildfyre/dispatch/refreshes",
	"Number of background refreshes by outcome.",
	nil,
	field.String("kind"),
	field.String("result"), // ok | gone | error | dropped | duplicate
)

const (
	// DefaultWorkers is the default number of concurrent refreshes.
	DefaultWorkers = 4
	// DefaultQueueSize is the default number of pending refreshes.
	DefaultQueueSize = 1000
)

// Options configures a Dispatcher.
type Options struct {
	// Workers is the number of concurrent refreshes. Default DefaultWorkers.
	Workers int
	// QueueSize is the number of refreshes waiting for a worker before the
	// oldest ones are dropped. Default DefaultQueueSize.
	QueueSize int
	// QPSLimit caps how often refreshes start. Default no limit.
	QPSLimit *rate.Limiter
}

// Dispatcher runs refreshes of descriptors.
type Dispatcher struct {
	ch dispatcher.Channel[descriptors.Descriptor]

	mu     sync.RWMutex
	closed bool
}

// New starts a Dispatcher.
//
// Its workers stop when ctx is canceled or Close is called.
func New(ctx context.Context, opts Options) (*Dispatcher, error) {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	if opts.QueueSize < opts.Workers {
		return nil, errors.Fmt("queue size %d is smaller than the worker count %d", opts.QueueSize, opts.Workers)
	}

	ch, err := dispatcher.NewChannel[descriptors.Descriptor](ctx, &dispatcher.Options[descriptors.Descriptor]{
		QPSLimit: opts.QPSLimit,
		// Failed refreshes are logged by send and never retried.
		ErrorFn: dispatcher.ErrorFnQuiet[descriptors.Descriptor],
		DropFn: func(b *buffer.Batch[descriptors.Descriptor], flush bool) {
			if b == nil {
				return
			}
			for _, item := range b.Data {
				d := item.Item
				d.DescriptorState().EndRefresh()
				refreshCounter.Add(ctx, 1, d.CacheManager().Kind(), "dropped")
				logging.Warningf(ctx, "%s: background refresh dropped, queue is full", d.CacheManager().Kind())
			}
		},
		Buffer: buffer.Options{
			MaxLeases:     opts.Workers,
			BatchItemsMax: 1,
			FullBehavior:  &buffer.DropOldestBatch{MaxLiveItems: opts.QueueSize},
		},
	}, func(b *buffer.Batch[descriptors.Descriptor]) error {
		for _, item := range b.Data {
			refresh(ctx, item.Item)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Fmt("starting refresh dispatcher: %w", err)
	}
	return &Dispatcher{ch: ch}, nil
}

// Submit queues a refresh of d.
//
// It returns false without queuing anything if a refresh of d is already
// pending, if ctx is done or if the dispatcher is closed.
func (d *Dispatcher) Submit(ctx context.Context, desc descriptors.Descriptor) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	s := desc.DescriptorState()
	if !s.TryBeginRefresh() {
		refreshCounter.Add(ctx, 1, desc.CacheManager().Kind(), "duplicate")
		return false
	}
	select {
	case d.ch.C <- desc:
		return true
	case <-d.ch.DrainC:
	case <-ctx.Done():
	}
	s.EndRefresh()
	return false
}

// Close stops accepting refreshes and waits for pending ones to finish.
//
// Calling it more than once is fine.
func (d *Dispatcher) Close(ctx context.Context) {
	d.mu.Lock()
	alreadyClosed := d.closed
	d.closed = true
	d.mu.Unlock()

	if !alreadyClosed {
		d.ch.CloseAndDrain(ctx)
	}
}

func refresh(ctx context.Context, desc descriptors.Descriptor) {
	defer desc.DescriptorState().EndRefresh()

	kind := desc.CacheManager().Kind()
	err := descriptors.Refresh(ctx, desc)
	switch {
	case err == nil:
		refreshCounter.Add(ctx, 1, kind, "ok")
	case descriptors.IsGone(err):
		refreshCounter.Add(ctx, 1, kind, "gone")
	default:
		refreshCounter.Add(ctx, 1, kind, "error")
		logging.WithError(err).Errorf(ctx, "%s: background refresh failed, keeping the cached copy", kind)
	}
}
