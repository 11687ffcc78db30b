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
	"os"
	"strings"

	"go.chromium.org/luci/common/logging"
	"go.chromium.org/luci/common/logging/memlogger"
)

func putFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0600)
}

// logged is true if a message at the level containing substr was logged.
func logged(ctx context.Context, level logging.Level, substr string) bool {
	for _, m := range logging.Get(ctx).(*memlogger.MemLogger).Messages() {
		if m.Level == level && strings.Contains(m.Msg, substr) {
			return true
		}
	}
	return false
}
