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

// Package wire holds JSON shapes shared by the API replies.
package wire

import (
	"bytes"
	"encoding/json"
	"strconv"

	"go.chromium.org/luci/common/errors"
)

// ID is a numeric entity ID. The API sends it either as a number or as a
// string holding a number.
type ID int64

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(s)
	}
	v, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return errors.Fmt("bad id %q: %w", b, err)
	}
	*id = ID(v)
	return nil
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Results is the envelope of list replies.
type Results[T any] struct {
	Count   int    `json:"count"`
	Next    string `json:"next"`
	Results []T    `json:"results"`
}

// Ref is a list entry carrying only the entity ID.
type Ref struct {
	ID *ID `json:"id"`
}

// Owner is the "author" object of posts and comments.
type Owner struct {
	User *ID `json:"user"`
}
