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

package main

import (
	"bytes"
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInfoFrom(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.23.5",
		Main:      debug.Module{Path: "github.com/walteh/batpack", Version: "v0.3.0"},
		Deps: []*debug.Module{
			{Path: "github.com/klauspost/compress", Version: "v1.18.4"},
			{Path: "github.com/bmatcuk/doublestar/v4", Version: "v4.8.0", Replace: &debug.Module{Path: "github.com/bmatcuk/doublestar/v4", Version: "v4.8.1"}},
			{Path: "github.com/spf13/cobra", Version: "v1.8.1"},
		},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "CGO_ENABLED", Value: "0"},
		},
	}

	info := buildInfoFrom(bi)
	assert.Equal(t, "v0.3.0", info.Version)
	assert.Equal(t, "go1.23.5", info.Go)
	assert.Equal(t, "abc123", info.Revision)
	assert.True(t, info.Dirty)
	assert.False(t, info.CGO)
	assert.Equal(t, map[string]string{
		"github.com/klauspost/compress":    "v1.18.4",
		"github.com/bmatcuk/doublestar/v4": "v4.8.1",
	}, info.Engine)

	rows := info.Rows()
	assert.Contains(t, rows, []string{"revision", "abc123 (dirty)"})
	assert.Contains(t, rows, []string{"golang.org/x/text", "not linked"})
}

func TestBuildInfoFromDevelBuild(t *testing.T) {
	info := buildInfoFrom(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})
	assert.Equal(t, "dev", info.Version)
	assert.Contains(t, info.Rows(), []string{"revision", "unknown"})

	assert.Equal(t, "dev", buildInfoFrom(nil).Version)
}

func TestVersionCommandShort(t *testing.T) {
	var out bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--short"})
	require.NoError(t, cmd.Execute())
	assert.NotEmpty(t, bytes.TrimSpace(out.Bytes()))
}
