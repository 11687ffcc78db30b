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

// Package wildfyre is a caching client for the WildFyre API.
//
// A Session holds everything fetched from the server: areas with their
// posts and drafts, and users. Lookups return cached copies and refresh
// stale ones in the background, so reads of known entities never wait on
// the network.
//
//	s, err := wildfyre.Connect(ctx, wildfyre.Options{}, "me", "secret")
//	if err != nil {
//		return err
//	}
//	defer s.Close(ctx)
//
//	fun, err := s.Areas().Get(ctx, "fun")
//	...
//	post, err := fun.Post(ctx, 42)
//
// The library logs through go.chromium.org/luci/common/logging, with the
// logger installed in ctx by the host.
package wildfyre
