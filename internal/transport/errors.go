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

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/errors/errtag"
)

// CantConnect marks errors from requests that never reached the server.
//
// Such errors are also tagged with transient.Tag. Nothing in this module
// retries them.
var CantConnect = errtag.Make("cannot connect to the WildFyre API", true)

// NotFoundDetail is the "detail" the API puts in 404 bodies.
const NotFoundDetail = "Not found."

// TransferIssue is returned when the server replies with a non-success
// status.
type TransferIssue struct {
	// Method and Path identify the failed request.
	Method Method
	Path   string
	// Status is the HTTP status code.
	Status int
	// Body is the decoded JSON error body, nil if the body was not JSON.
	Body any
	// Raw is the body as received.
	Raw []byte
}

func (e *TransferIssue) Error() string {
	msg := fmt.Sprintf("%s %s: HTTP %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
	if body := strings.TrimSpace(string(e.Raw)); body != "" {
		msg += ": " + body
	}
	return msg
}

// Detail returns the "detail" field of the JSON error body.
func (e *TransferIssue) Detail() (string, bool) {
	obj, ok := e.Body.(map[string]any)
	if !ok {
		return "", false
	}
	detail, ok := obj["detail"].(string)
	return detail, ok
}

// Field returns a top level field of the JSON error body.
func (e *TransferIssue) Field(name string) (any, bool) {
	obj, ok := e.Body.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := obj[name]
	return v, ok
}

func newTransferIssue(m Method, path string, status int, raw []byte) *TransferIssue {
	issue := &TransferIssue{Method: m, Path: path, Status: status, Raw: raw}
	var body any
	if err := json.Unmarshal(raw, &body); err == nil {
		issue.Body = body
	}
	return issue
}

// AsTransferIssue finds a *TransferIssue in the err chain.
func AsTransferIssue(err error) (*TransferIssue, bool) {
	var issue *TransferIssue
	if errors.As(err, &issue) {
		return issue, true
	}
	return nil, false
}

// HasDetail is true if err is a TransferIssue whose body has the given
// "detail".
func HasDetail(err error, detail string) bool {
	issue, ok := AsTransferIssue(err)
	if !ok {
		return false
	}
	got, ok := issue.Detail()
	return ok && got == detail
}

// IsNotFound is true if err is the API's "Not found." reply.
func IsNotFound(err error) bool {
	return HasDetail(err, NotFoundDetail)
}

// ProtocolError is returned when a server reply breaks the API contract: a
// body that is not JSON, or JSON missing a field the API always sends.
//
// It indicates a client/server mismatch and is never recovered from.
type ProtocolError struct {
	Reason string
	Raw    []byte
}

func (e *ProtocolError) Error() string {
	if len(e.Raw) == 0 {
		return "protocol violation: " + e.Reason
	}
	return fmt.Sprintf("protocol violation: %s (body %q)", e.Reason, e.Raw)
}

// Protocolf builds a *ProtocolError.
func Protocolf(raw []byte, format string, args ...any) error {
	return &ProtocolError{Reason: fmt.Sprintf(format, args...), Raw: raw}
}

// IsProtocolError is true if err has a *ProtocolError in its chain.
func IsProtocolError(err error) bool {
	var perr *ProtocolError
	return errors.As(err, &perr)
}
