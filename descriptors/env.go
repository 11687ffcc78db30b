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
	"context"

	"github.com/wildfyre-app/lib-go/internal/transport"

	"go.chromium.org/luci/common/logging"
)

// TokenSource provides the token of the authenticated user.
type TokenSource interface {
	// Token fails if no user is authenticated.
	Token() (string, error)
}

// Env bundles what entities need to talk to the API.
type Env struct {
	Client *transport.Client
	Tokens TokenSource
	// Async receives refreshes of stale entities. Nil means stale entities
	// are served as is and never refreshed in the background.
	Async Submitter
	// ReportCantConnect, if set, is told about every connectivity failure
	// seen while resolving an entity.
	ReportCantConnect func(ctx context.Context, err error)
}

// Request starts an authenticated request.
func (e *Env) Request(m transport.Method, path string) (*transport.Request, error) {
	tok, err := e.Tokens.Token()
	if err != nil {
		return nil, err
	}
	return transport.NewRequest(m, path).AddToken(tok), nil
}

// JSON sends an authenticated request and decodes the reply into out.
func (e *Env) JSON(ctx context.Context, m transport.Method, path string, body, out any) error {
	req, err := e.Request(m, path)
	if err != nil {
		return err
	}
	if body != nil {
		req.AddJSON(body)
	}
	return e.report(ctx, e.Client.JSON(ctx, req, out))
}

// Exec sends an authenticated request, ignoring the reply body.
func (e *Env) Exec(ctx context.Context, m transport.Method, path string, body any) error {
	req, err := e.Request(m, path)
	if err != nil {
		return err
	}
	if body != nil {
		req.AddJSON(body)
	}
	return e.report(ctx, e.Client.Exec(ctx, req))
}

// Send sends a prepared request.
func (e *Env) Send(ctx context.Context, req *transport.Request, out any) error {
	if out == nil {
		return e.report(ctx, e.Client.Exec(ctx, req))
	}
	return e.report(ctx, e.Client.JSON(ctx, req, out))
}

// Resolve is Resolve with e.Async.
func (e *Env) Resolve(ctx context.Context, d Descriptor) error {
	return Resolve(ctx, e.Async, d)
}

func (e *Env) report(ctx context.Context, err error) error {
	if err != nil && transport.CantConnect.In(err) {
		logging.Warningf(ctx, "wildfyre: API unreachable: %s", err)
		if e.ReportCantConnect != nil {
			e.ReportCantConnect(ctx, err)
		}
	}
	return err
}
