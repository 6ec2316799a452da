// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pack_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/batpack/pkg/container/jsondoc"
	"github.com/walteh/batpack/pkg/pack"
	"gitlab.com/tozd/go/errors"
)

func TestRunner(t *testing.T) {
	tests := []struct {
		name   string
		async  bool
		cancel bool
	}{
		{name: "sync", async: false},
		{name: "async", async: true},
		{name: "sync_cancelled", async: false, cancel: true},
		{name: "async_cancelled", async: true, cancel: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			writeFile(t, filepath.Join(f.project, "textures", "wood.png"), "wood")
			writeDoc(t, f.source, ref(1, "//textures/wood.png", jsondoc.Ref{}))

			ctx, cancel := context.WithCancel(testContext(t))
			defer cancel()
			if tt.cancel {
				cancel()
			}

			logger := zerolog.New(zerolog.NewTestWriter(t))
			p := f.packer(t, pack.Options{})
			err := pack.NewRunner(&logger, tt.async).Run(ctx, p)

			if !tt.cancel {
				require.NoError(t, err)
				assert.FileExists(t, filepath.Join(f.target, "textures", "wood.png"))
				return
			}

			var aborted *pack.AbortedError
			require.True(t, errors.As(err, &aborted), "got %v", err)
			assert.Equal(t, pack.InterruptedReason, aborted.Reason)
			assert.NoDirExists(t, f.target)
		})
	}
}
