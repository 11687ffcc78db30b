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
	"github.com/wildfyre-app/lib-go/internal/transport"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/errors/errtag"
)

// NoSuchEntity tags errors meaning the entity does not exist on the server,
// or was removed from it.
var NoSuchEntity = errtag.Make("no such entity", true)

// Gone wraps err, a reply saying an entity does not exist, into a
// NoSuchEntity error.
func Gone(err error, format string, args ...any) error {
	args = append(args, err)
	return NoSuchEntity.Apply(errors.Fmt(format+": %w", args...))
}

// IsGone is true if err says the entity does not exist.
func IsGone(err error) bool {
	return NoSuchEntity.In(err)
}

// Missing is true if err says the entity does not exist or could not be
// reached at all.
//
// It is for callers which only care whether they got the entity, and treat
// a connectivity failure on the first fetch the same as absence.
func Missing(err error) bool {
	return IsGone(err) || transport.CantConnect.In(err)
}

// translate converts the API "Not found." reply into NoSuchEntity.
func translate(kind string, err error) error {
	if err == nil || IsGone(err) {
		return err
	}
	if transport.IsNotFound(err) {
		return Gone(err, "%s", kind)
	}
	return err
}
