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

package wire

import (
	"encoding/json"

	"github.com/wildfyre-app/lib-go/internal/transport"
)

// Required fails with a *transport.ProtocolError if v is nil.
//
// Fields decoded as pointers are nil only when the API omitted them.
func Required[T any](v *T, what string, raw []byte) (T, error) {
	if v == nil {
		var zero T
		return zero, transport.Protocolf(raw, "reply has no %q", what)
	}
	return *v, nil
}

// IDs extracts the IDs of list entries, failing on an entry without one.
func IDs(refs []Ref, raw []byte) ([]ID, error) {
	out := make([]ID, len(refs))
	for i, r := range refs {
		id, err := Required(r.ID, "id", raw)
		if err != nil {
			return nil, err
		}
		out[i] = id
	}
	return out, nil
}

// Decode unmarshals raw into out, failing with a *transport.ProtocolError.
func Decode(raw []byte, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return transport.Protocolf(raw, "%s", err)
	}
	return nil
}
