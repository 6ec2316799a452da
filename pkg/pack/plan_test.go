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

package pack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanGetOrInsert(t *testing.T) {
	p := newPlan()

	// decomposed and composed spellings are one asset
	a, inserted := p.getOrInsert("/proj/caf\u00e9.png")
	require.True(t, inserted)
	assert.Equal(t, KeepPath, a.PathAction)
	assert.Equal(t, "/proj/caf\u00e9.png", a.Path, "on-disk spelling is kept")

	b, inserted := p.getOrInsert("/proj/cafe\u0301.png")
	assert.False(t, inserted)
	assert.Same(t, a, b)

	p.getOrInsert("/proj/z.png")
	p.getOrInsert("/proj/a.png")

	var order []string
	for _, act := range p.all() {
		order = append(order, act.Path)
	}
	assert.Equal(t, []string{"/proj/caf\u00e9.png", "/proj/z.png", "/proj/a.png"}, order)

	_, ok := p.get("/proj/missing.png")
	assert.False(t, ok)
}

func TestExtraFilesAreSortedAndUnique(t *testing.T) {
	act := &AssetAction{}
	assert.Empty(t, act.ExtraFiles())
	act.addExtra("/t/b.1011.png", "/t/a.1001.png")
	act.addExtra("/t/a.1001.png")
	assert.Equal(t, []string{"/t/a.1001.png", "/t/b.1011.png"}, act.ExtraFiles())
}

func TestExcludeMatching(t *testing.T) {
	p := &Packer{exclude: []string{"*.tmp", "cache/**", "/abs/only/*.png"}}

	tests := []struct {
		path string
		want bool
	}{
		{"/proj/tex/wood.tmp", true},
		{"/proj/tex/wood.png", false},
		{"/proj/cache/a/b.vdb", true},
		{"/abs/only/x.png", true},
		{"/other/abs/only/x.png", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, p.excluded(tt.path), tt.path)
	}
}

func TestPathActionString(t *testing.T) {
	assert.Equal(t, "keep-path", KeepPath.String())
	assert.Equal(t, "find-new-location", FindNewLocation.String())
}
