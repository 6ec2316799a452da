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

package jsondoc_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/batpack/pkg/container"
	"github.com/walteh/batpack/pkg/container/jsondoc"
	"github.com/walteh/batpack/pkg/trace"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func TestDuplicateAndPatch(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	orig := filepath.Join(dir, "shot.jdoc")
	require.NoError(t, jsondoc.Write(orig, &jsondoc.Document{
		Version: 1,
		Blocks: []*jsondoc.BlockData{
			{Addr: 10, Code: "IM", Fields: map[string]string{"filepath": "//tex/wood.png"}, Refs: []jsondoc.Ref{{Field: "filepath"}}},
		},
	}))

	h, err := jsondoc.Opener{}.Open(ctx, orig)
	require.NoError(t, err)

	dupPath := filepath.Join(dir, "dup.jdoc")
	dup, err := h.DuplicateTo(ctx, dupPath)
	require.NoError(t, err)
	require.NoError(t, h.Close())

	blk, err := dup.Dereference(10)
	require.NoError(t, err)
	assert.False(t, dup.IsModified())

	n, err := blk.Set("filepath", "//_outside_project/lib.png")
	require.NoError(t, err)
	assert.Equal(t, len("//_outside_project/lib.png"), n)
	assert.True(t, dup.IsModified())
	require.NoError(t, dup.Close())

	patched, err := jsondoc.Read(dupPath)
	require.NoError(t, err)
	assert.Equal(t, "//_outside_project/lib.png", patched.Blocks[0].Fields["filepath"])

	original, err := jsondoc.Read(orig)
	require.NoError(t, err)
	assert.Equal(t, "//tex/wood.png", original.Blocks[0].Fields["filepath"], "original must be untouched")

	_, err = dup.Dereference(99)
	assert.ErrorIs(t, err, container.ErrNoSuchBlock)
}

func TestScanFollowsLinkedDocuments(t *testing.T) {
	ctx := testContext(t)
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "libs"), 0755))

	root := filepath.Join(dir, "shot.jdoc")
	lib := filepath.Join(dir, "libs", "chars.jdoc")

	require.NoError(t, jsondoc.Write(root, &jsondoc.Document{Blocks: []*jsondoc.BlockData{
		{Addr: 1, Code: "LI", Fields: map[string]string{"filepath": "//libs/chars.jdoc"}, Refs: []jsondoc.Ref{{Field: "filepath"}}},
		{Addr: 2, Code: "CF", Fields: map[string]string{"dir": "/abs/cache/"}, Refs: []jsondoc.Ref{{Field: "dir", Kind: "dir", Sequence: true}}},
	}}))
	require.NoError(t, jsondoc.Write(lib, &jsondoc.Document{Blocks: []*jsondoc.BlockData{
		{Addr: 3, Code: "IM", Fields: map[string]string{"filepath": "//../tex/skin.png"}, Refs: []jsondoc.Ref{{Field: "filepath"}}},
		{Addr: 4, Code: "LI", Fields: map[string]string{"filepath": "//../shot.jdoc"}, Refs: []jsondoc.Ref{{Field: "filepath"}}},
	}}))

	var usages []trace.Usage
	for u, err := range (jsondoc.Scanner{}).Scan(ctx, root, nil) {
		require.NoError(t, err)
		usages = append(usages, u)
	}

	require.Len(t, usages, 4)
	assert.Equal(t, lib, usages[0].AbsPath)
	assert.Equal(t, root, usages[0].Document)

	assert.Equal(t, "/abs/cache", usages[1].AbsPath)
	assert.Equal(t, trace.DirectoryField, usages[1].Locator.Kind)
	assert.True(t, usages[1].IsSequence)

	assert.Equal(t, filepath.Join(dir, "tex", "skin.png"), usages[2].AbsPath)
	assert.Equal(t, lib, usages[2].Document)

	// the cycle back to the root is reported but not descended into again
	assert.Equal(t, root, usages[3].AbsPath)
}

func TestResolve(t *testing.T) {
	doc := filepath.FromSlash("/proj/scenes/shot.jdoc")
	assert.Equal(t, filepath.FromSlash("/proj/tex/wood.png"), jsondoc.Resolve("//../tex/wood.png", doc))
	assert.Equal(t, filepath.FromSlash("/proj/scenes/wood.png"), jsondoc.Resolve("wood.png", doc))
	assert.Equal(t, filepath.FromSlash("/outside/lib.png"), jsondoc.Resolve(filepath.FromSlash("/outside/lib.png"), doc))
}
