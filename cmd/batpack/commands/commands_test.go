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

package commands_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/batpack/cmd/batpack/commands"
	"github.com/walteh/batpack/cmd/batpack/opts"
	"github.com/walteh/batpack/pkg/container/jsondoc"
	"github.com/walteh/batpack/pkg/pathid"
	"github.com/walteh/batpack/pkg/trace"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(testContext(t))
	return out.String(), err
}

// project writes proj/shot.jdoc referencing a texture in the project and one outside it
func project(t *testing.T) (dir, source string) {
	t.Helper()
	dir = t.TempDir()
	source = filepath.Join(dir, "proj", "shot.jdoc")
	outside := filepath.Join(dir, "lib", "rock.png")

	for _, p := range []string{filepath.Join(dir, "proj", "tex", "wood.png"), outside} {
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(filepath.Base(p)), 0644))
	}

	doc := &jsondoc.Document{Version: 1, Blocks: []*jsondoc.BlockData{
		{Addr: 1, Code: "IM", Fields: map[string]string{"filepath": "//tex/wood.png"}, Refs: []jsondoc.Ref{{Field: "filepath"}}},
		{Addr: 2, Code: "IM", Fields: map[string]string{"filepath": outside}, Refs: []jsondoc.Ref{{Field: "filepath"}}},
	}}
	require.NoError(t, jsondoc.Write(source, doc))
	return dir, source
}

func TestPackCommand(t *testing.T) {
	dir, source := project(t)
	target := filepath.Join(dir, "out")

	_, err := run(t, commands.NewPackCmd(&opts.RootOpts{}), source, target)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(target, "shot.jdoc"))
	assert.FileExists(t, filepath.Join(target, "tex", "wood.png"))
	assert.FileExists(t, filepath.Join(target, "pack-info.txt"))

	outside := filepath.Join(dir, "lib", "rock.png")
	assert.FileExists(t, filepath.Join(target, "_outside_project", filepath.FromSlash(pathid.OutsideProjectRelPath(outside))))
}

func TestPackCommandPlanOnly(t *testing.T) {
	dir, source := project(t)
	target := filepath.Join(dir, "out")

	out, err := run(t, commands.NewPackCmd(&opts.RootOpts{}), "--plan-only", source, target)
	require.NoError(t, err)

	assert.Contains(t, out, "wood.png")
	assert.Contains(t, out, "rock.png")
	assert.NoDirExists(t, target)
}

func TestPackCommandConfigFile(t *testing.T) {
	dir, _ := project(t)
	cfgPath := filepath.Join(dir, "pack.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
pack:
  source: proj/shot.jdoc
  target: out.zip
  archive: true
`), 0644))

	_, err := run(t, commands.NewPackCmd(&opts.RootOpts{ConfigFile: cfgPath}))
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "out.zip"))
}

func TestPackCommandRequiresSource(t *testing.T) {
	_, err := run(t, commands.NewPackCmd(&opts.RootOpts{}))
	require.ErrorContains(t, err, "pack.source is required")
}

func TestTraceThenPackWithDeps(t *testing.T) {
	dir, source := project(t)
	manifest := filepath.Join(dir, "deps.yaml")

	_, err := run(t, commands.NewTraceCmd(&opts.RootOpts{}), "-o", manifest, source)
	require.NoError(t, err)

	m, err := trace.LoadManifest(testContext(t), manifest)
	require.NoError(t, err)
	assert.Len(t, m.Usages, 2)

	target := filepath.Join(dir, "out")
	_, err = run(t, commands.NewPackCmd(&opts.RootOpts{}), "--deps", manifest, source, target)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(target, "tex", "wood.png"))
}

func TestTraceCommandWritesYAMLToStdout(t *testing.T) {
	_, source := project(t)

	out, err := run(t, commands.NewTraceCmd(&opts.RootOpts{}), source)
	require.NoError(t, err)
	assert.Contains(t, out, "usages:")
	assert.Contains(t, out, "wood.png")
}
