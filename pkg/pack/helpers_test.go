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
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/walteh/batpack/pkg/container/jsondoc"
	"github.com/walteh/batpack/pkg/pack"
	"github.com/walteh/batpack/pkg/progress"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func writeFile(t *testing.T, path string, data string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
}

// ref builds a single-reference block
func ref(addr uint64, value string, r jsondoc.Ref) *jsondoc.BlockData {
	if r.Field == "" {
		r.Field = "filepath"
	}
	return &jsondoc.BlockData{
		Addr:   addr,
		Code:   "IM",
		Fields: map[string]string{r.Field: value},
		Refs:   []jsondoc.Ref{r},
	}
}

func writeDoc(t *testing.T, path string, blocks ...*jsondoc.BlockData) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, jsondoc.Write(path, &jsondoc.Document{Version: 1, Blocks: blocks}))
}

func fieldOf(t *testing.T, path string, addr uint64, field string) string {
	t.Helper()
	doc, err := jsondoc.Read(path)
	require.NoError(t, err)
	for _, b := range doc.Blocks {
		if b.Addr == addr {
			return b.Fields[field]
		}
	}
	t.Fatalf("block %d not found in %s", addr, path)
	return ""
}

type events struct {
	progress.Nop
	mu          sync.Mutex
	missing     []string
	rewritten   []string
	transferred []string
	aborted     []string
	done        [][]string
	output      string
}

func (e *events) MissingFile(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.missing = append(e.missing, path)
}

func (e *events) RewriteBlendfile(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rewritten = append(e.rewritten, path)
}

func (e *events) TransferFile(src, dst string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transferred = append(e.transferred, dst)
}

func (e *events) PackDone(outputPath string, notIncluded []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.output = outputPath
	e.done = append(e.done, slices.Clone(notIncluded))
}

func (e *events) PackAborted(reason string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.aborted = append(e.aborted, reason)
}

// fixture is a project directory, a target and a packer over a jsondoc source
type fixture struct {
	dir     string
	project string
	target  string
	source  string
	events  *events
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	return &fixture{
		dir:     dir,
		project: filepath.Join(dir, "proj"),
		target:  filepath.Join(dir, "out"),
		source:  filepath.Join(dir, "proj", "shot.jdoc"),
		events:  &events{},
	}
}

func (f *fixture) packer(t *testing.T, opts pack.Options) *pack.Packer {
	t.Helper()
	if opts.Scanner == nil && opts.PreTraced == nil {
		opts.Scanner = jsondoc.Scanner{}
	}
	if opts.Container == nil {
		opts.Container = jsondoc.Opener{}
	}
	p, err := pack.New(f.source, f.project, f.target, opts)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, p.Close()) })
	p.SetProgress(f.events)
	return p
}
