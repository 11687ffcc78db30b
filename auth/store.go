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

// Package auth holds the token of the authenticated WildFyre user.
package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/wildfyre-app/lib-go/internal/transport"

	"go.chromium.org/luci/common/errors"
	"go.chromium.org/luci/common/errors/errtag"
	"go.chromium.org/luci/common/logging"
)

var (
	// NotAuthenticated tags errors from calls needing a token when none is
	// set.
	NotAuthenticated = errtag.Make("not authenticated", true)

	// InvalidCredentials tags errors from login with a bad username or
	// password.
	InvalidCredentials = errtag.Make("invalid credentials", true)
)

// Store holds the API token.
//
// It is safe for concurrent use.
type Store struct {
	client *transport.Client

	mu       sync.RWMutex
	token    string
	onChange []func()
}

// NewStore returns a Store without a token.
func NewStore(c *transport.Client) *Store {
	return &Store{client: c}
}

// Token returns the current token or a NotAuthenticated error.
func (s *Store) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.token == "" {
		return "", NotAuthenticated.Apply(errors.New("no token, log in first"))
	}
	return s.token, nil
}

// Authenticated is true if a token is set.
func (s *Store) Authenticated() bool {
	_, err := s.Token()
	return err == nil
}

// SetToken replaces the token. Registered OnChange callbacks run after it.
func (s *Store) SetToken(tok string) error {
	tok = strings.TrimSpace(tok)
	if tok == "" {
		return errors.New("empty token")
	}
	s.set(tok)
	return nil
}

// Reset forgets the token.
func (s *Store) Reset() {
	s.set("")
}

// OnChange registers fn to run whenever the token changes.
//
// Caches built with the previous identity use it to empty themselves.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

func (s *Store) set(tok string) {
	s.mu.Lock()
	changed := s.token != tok
	s.token = tok
	hooks := s.onChange
	s.mu.Unlock()

	if changed {
		for _, fn := range hooks {
			fn()
		}
	}
}

// RequestToken logs in and stores the token the API hands out.
func (s *Store) RequestToken(ctx context.Context, username, password string) error {
	req := transport.NewRequest(transport.POST, "/account/auth/").AddJSON(map[string]string{
		"username": username,
		"password": password,
	})
	var reply struct {
		Token *string `json:"token"`
	}
	switch err := s.client.JSON(ctx, req, &reply); {
	case err == nil:
	case isRejection(err):
		return InvalidCredentials.Apply(errors.Fmt("logging in as %q: %w", username, err))
	default:
		return errors.Fmt("logging in as %q: %w", username, err)
	}
	if reply.Token == nil || *reply.Token == "" {
		perr := transport.Protocolf(nil, "login reply has no token")
		logging.Errorf(ctx, "wildfyre: %s", perr)
		return perr
	}
	logging.Infof(ctx, "wildfyre: logged in as %q", username)
	return s.SetToken(*reply.Token)
}

// Registration is a sign up form.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Captcha  string `json:"captcha"`
}

// Register creates an account. It does not log in.
func (s *Store) Register(ctx context.Context, r Registration) error {
	req := transport.NewRequest(transport.POST, "/account/register/").AddJSON(r)
	if err := s.client.Exec(ctx, req); err != nil {
		return errors.Fmt("registering %q: %w", r.Username, err)
	}
	return nil
}

// isRejection is true for replies refusing the credentials, as opposed to
// server failures.
func isRejection(err error) bool {
	issue, ok := transport.AsTransferIssue(err)
	return ok && issue.Status >= 400 && issue.Status < 500
}
