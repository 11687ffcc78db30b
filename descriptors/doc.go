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

// Package descriptors implements the lifecycle shared by every entity the
// library mirrors from the WildFyre API.
//
// A Descriptor is a local proxy for a server-held entity. It starts NEW
// (only its ID is known), becomes VALID once Update succeeds, turns EXPIRED
// when its CacheManager says so, and is REMOVED for good once the server
// reports it gone.
//
// Lookups go through Resolve:
//
//   - a NEW descriptor is fetched synchronously, at most once even when many
//     goroutines look it up at the same time;
//   - a VALID descriptor is returned as is, without any network traffic;
//   - an EXPIRED descriptor is returned as is and a refresh is submitted to
//     the asynchronous dispatcher;
//   - a REMOVED descriptor is reported with a NoSuchEntity error.
//
// The per-instance bookkeeping lives in State, meant to be embedded into the
// entity structs.
package descriptors
