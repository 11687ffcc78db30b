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
	"slices"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/retry/transient"
)

// Client sends Requests to one API root.
//
// It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for the API at baseURL.
//
// An empty baseURL means DefaultTarget(). A nil hc means a default client
// whose transport is instrumented with OpenTelemetry.
func NewClient(baseURL string, hc *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultTarget()
	}
	if hc == nil {
		hc = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &Client{baseURL: baseURL, http: hc}
}

// BaseURL is the API root this client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// JSON sends the request and decodes the JSON reply into out.
//
// A success reply which is not valid JSON is a *ProtocolError.
func (c *Client) JSON(ctx context.Context, r *Request, out any) error {
	raw, err := c.round(ctx, r)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		perr := Protocolf(raw, "%s %s: reply is not the expected JSON: %s", r.Method, r.Path, err)
		logging.Errorf(ctx, "wildfyre: %s", perr)
		return perr
	}
	return nil
}

// Exec sends the request and ignores the body of a success reply.
func (c *Client) Exec(ctx context.Context, r *Request) error {
	_, err := c.round(ctx, r)
	return err
}

// round does one round trip and returns the body of a success reply.
func (c *Client) round(ctx context.Context, r *Request) ([]byte, error) {
	req, err := r.build(ctx, c.baseURL)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()[:8]
	if logging.IsLogging(ctx, logging.Debug) {
		logRequest(ctx, id, r, req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.Fmt("%s %s: %w", r.Method, r.Path, ctxErr)
		}
		return nil, transient.Tag.Apply(CantConnect.Apply(
			errors.Fmt("%s %s: cannot connect to %s: %w", r.Method, r.Path, req.URL.Host, err)))
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transient.Tag.Apply(errors.Fmt("%s %s: reading reply: %w", r.Method, r.Path, err))
	}
	logging.Debugf(ctx, "wildfyre[%s]: HTTP %d, %d bytes", id, resp.StatusCode, len(raw))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newTransferIssue(r.Method, r.Path, resp.StatusCode, bytes.TrimSpace(raw))
	}
	return raw, nil
}

func logRequest(ctx context.Context, id string, r *Request, req *http.Request) {
	logging.Debugf(ctx, "wildfyre[%s]: %s %s", id, r.Method, req.URL)
	names := make([]string, 0, len(req.Header))
	for name := range req.Header {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		value := req.Header.Get(name)
		if name == "Authorization" {
			value = "token <redacted>"
		}
		logging.Debugf(ctx, "wildfyre[%s]:   %s: %s", id, name, value)
	}
}
