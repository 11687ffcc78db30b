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

package transport

// Method is an HTTP method supported by the API.
type Method string

const (
	GET     Method = "GET"
	PUT     Method = "PUT"
	POST    Method = "POST"
	PATCH   Method = "PATCH"
	DELETE  Method = "DELETE"
	OPTIONS Method = "OPTIONS"
)

// MethodOverrideHeader carries the real method when it can't be sent as is.
const MethodOverrideHeader = "X-HTTP-Method-Override"

// String implements fmt.Stringer.
func (m Method) String() string { return string(m) }

// wire returns the verb to put on the request line and, if the verb differs
// from m, the value of the MethodOverrideHeader.
//
// PATCH is sent as PUT with an override header, some proxies in front of the
// API refuse PATCH.
func (m Method) wire() (verb, override string) {
	if m == PATCH {
		return string(PUT), string(PATCH)
	}
	return string(m), ""
}

// valid is true for the methods declared above.
func (m Method) valid() bool {
	switch m {
	case GET, PUT, POST, PATCH, DELETE, OPTIONS:
		return true
	}
	return false
}
