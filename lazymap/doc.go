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

// Package lazymap implements a concurrency-safe map that can build missing
// values on demand.
//
// A Map without a factory behaves as an ordinary map: looking up a missing
// key reports absence and leaves the map untouched. A Map with a factory
// (see WithFactory) resolves a missing key by calling the factory, storing
// the result and returning it, so every key is backed by exactly one value
// for the life of the entry.
package lazymap
