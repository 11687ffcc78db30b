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

// Package transport sends single requests to the WildFyre API.
//
// A Request describes one call: a method, a path relative to the API root
// and an optional body (a JSON document, or a multipart form when a file is
// attached). A Client sends it and classifies the outcome:
//
//   - the connection could not be made at all: the error is tagged with
//     CantConnect (and transient.Tag, so hosts may decide to retry);
//   - the server replied with a non-success status: *TransferIssue, carrying
//     the decoded JSON error body, if any;
//   - the server replied with something that is not the JSON it promised:
//     *ProtocolError, carrying the raw body.
//
// The transport never retries and never imposes deadlines: both are up to
// the caller's context.
//
// This package is not part of the public API.
package transport
