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
	"context"
	"strings"
	"sync"

	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/system/environ"
)

const (
	// ProductionURL is the root of the public API.
	ProductionURL = "https://api.wildfyre.net"

	// TestingURL is the root of the API served by a local test backend.
	TestingURL = "http://localhost:8000"

	// TestingEnvVar selects TestingURL when set to anything but "" or
	// "default". The test harness sets it, nothing else should.
	TestingEnvVar = "WILDFYRE_TESTING"
)

// isTesting is resolved exactly once per process.
var isTesting = sync.OnceValue(func() bool {
	return testingValue(environ.System().Get(TestingEnvVar))
})

func testingValue(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != "default"
}

// IsTesting reports whether the process runs under the test harness.
//
// The environment is read on the first call only, the answer never changes
// afterwards.
func IsTesting() bool {
	return isTesting()
}

// DefaultTarget is the API root selected for this process.
func DefaultTarget() string {
	if IsTesting() {
		return TestingURL
	}
	return ProductionURL
}

// LogTarget logs which API root the process talks to.
func LogTarget(ctx context.Context) {
	logging.Infof(ctx, "wildfyre: using API at %s (testing=%v)", DefaultTarget(), IsTesting())
}
