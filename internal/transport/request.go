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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.chromium.org/luci/common/errors"
)

const (
	// FromHeader identifies this library to the API.
	FromHeader = "lib-go"

	jsonContentType = "application/json"
)

// Request is a single API call.
//
// Build it with NewRequest and the Add* methods, send it with a Client. A
// Request may be sent more than once.
type Request struct {
	Method Method
	// Path is relative to the API root, e.g. "/areas/".
	Path string

	token   string
	json    any
	hasJSON bool
	file    *attachment
}

type attachment struct {
	field string
	name  string
	open  func() (io.ReadCloser, error)
}

// NewRequest returns a request without a body.
func NewRequest(m Method, path string) *Request {
	return &Request{Method: m, Path: path}
}

// AddToken sends the "Authorization: token <tok>" header.
func (r *Request) AddToken(tok string) *Request {
	r.token = tok
	return r
}

// AddJSON sets the JSON body.
//
// When a file is attached too, v must marshal to a JSON object: each of its
// fields is sent as a separate form part.
func (r *Request) AddJSON(v any) *Request {
	r.json = v
	r.hasJSON = true
	return r
}

// AddFile attaches the file at path under the given form field. The file is
// read when the request is sent.
func (r *Request) AddFile(field, path string) *Request {
	r.file = &attachment{
		field: field,
		name:  filepath.Base(path),
		open:  func() (io.ReadCloser, error) { return os.Open(path) },
	}
	return r
}

// AddFileContent attaches in-memory content as a file named name.
func (r *Request) AddFileContent(field, name string, content []byte) *Request {
	r.file = &attachment{
		field: field,
		name:  name,
		open:  func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(content)), nil },
	}
	return r
}

// HasBody is true if the request carries JSON or a file.
func (r *Request) HasBody() bool {
	return r.hasJSON || r.file != nil
}

// build makes the http.Request against the API root base.
func (r *Request) build(ctx context.Context, base string) (*http.Request, error) {
	if !r.Method.valid() {
		return nil, errors.Fmt("unsupported method %q", r.Method)
	}
	u, err := url.Parse(strings.TrimSuffix(base, "/") + r.Path)
	if err != nil {
		return nil, errors.Fmt("bad request URL: %w", err)
	}

	var body io.Reader
	var contentType string
	switch {
	case r.file != nil:
		var fields []byte
		if r.hasJSON {
			if fields, err = json.Marshal(r.json); err != nil {
				return nil, errors.Fmt("encoding JSON body: %w", err)
			}
		}
		buf, ct, err := encodeMultipart(fields, r.file)
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case r.hasJSON:
		blob, err := json.Marshal(r.json)
		if err != nil {
			return nil, errors.Fmt("encoding JSON body: %w", err)
		}
		body, contentType = bytes.NewReader(blob), jsonContentType
	}

	verb, override := r.Method.wire()
	req, err := http.NewRequestWithContext(ctx, verb, u.String(), body)
	if err != nil {
		return nil, errors.Fmt("building request: %w", err)
	}
	req.Host = u.Host
	req.Header.Set("From", FromHeader)
	req.Header.Set("Accept", jsonContentType)
	if override != "" {
		req.Header.Set(MethodOverrideHeader, override)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if r.token != "" {
		req.Header.Set("Authorization", "token "+r.token)
	}
	return req, nil
}
