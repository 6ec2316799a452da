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

package sequence

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// FirstTile is the lowest tile number of a texture tileset
const FirstTile = 1001

// Template returns the name with its last standalone 4-digit run replaced by
// "*", plus the tile number. ok is false when there is no such run or the
// number is below FirstTile.
func Template(name string) (template string, tile int, ok bool) {
	start := -1
	for i := 0; i < len(name); {
		if !isDigit(name[i]) {
			i++
			continue
		}
		j := i
		for j < len(name) && isDigit(name[j]) {
			j++
		}
		if j-i == 4 {
			start = i
		}
		i = j
	}
	if start < 0 {
		return "", 0, false
	}

	tile, err := strconv.Atoi(name[start : start+4])
	if err != nil || tile < FirstTile {
		return "", 0, false
	}
	return name[:start] + "*" + name[start+4:], tile, true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

type tileKey struct {
	dir      string
	template string
}

// 🧩 Tileset finds the sibling tiles of a texture tileset. Results are cached
// per (directory, template) for the lifetime of the resolver.
type Tileset struct {
	expander Expander

	mu    sync.Mutex
	cache map[tileKey][]string
}

// NewTileset creates a resolver; placeholder names are expanded with e
func NewTileset(e Expander) *Tileset {
	if e == nil {
		e = FS{}
	}
	return &Tileset{expander: e, cache: make(map[tileKey][]string)}
}

// 🧩 Tiles returns the tiles belonging to path, or nil when path is not part
// of a tileset. A numbered name only counts when at least two tiles exist.
func (t *Tileset) Tiles(ctx context.Context, path string) []string {
	dir := filepath.Dir(path)
	name := filepath.Base(path)

	if strings.Contains(name, Placeholder) {
		key := tileKey{dir: dir, template: strings.ReplaceAll(name, Placeholder, "*")}
		if tiles, ok := t.cached(key); ok {
			return tiles
		}

		files, err := t.expander.Expand(ctx, filepath.Join(dir, key.template))
		if err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("cannot expand tile placeholder")
			files = nil
		}
		var tiles []string
		for _, f := range files {
			if info, err := os.Stat(f); err == nil && info.Mode().IsRegular() {
				tiles = append(tiles, f)
			}
		}
		return t.store(key, tiles)
	}

	template, _, ok := Template(name)
	if !ok {
		return nil
	}
	key := tileKey{dir: dir, template: template}
	if tiles, ok := t.cached(key); ok {
		return tiles
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("dir", dir).Msg("cannot list tile directory")
		return t.store(key, nil)
	}

	var tiles []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		candTemplate, _, ok := Template(e.Name())
		if !ok || candTemplate != template {
			continue
		}
		tiles = append(tiles, filepath.Join(dir, e.Name()))
	}

	if len(tiles) < 2 {
		tiles = nil
	}
	return t.store(key, tiles)
}

func (t *Tileset) cached(key tileKey) ([]string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tiles, ok := t.cache[key]
	return slices.Clone(tiles), ok
}

func (t *Tileset) store(key tileKey, tiles []string) []string {
	slices.Sort(tiles)
	tiles = slices.Compact(tiles)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.cache[key] = tiles
	return slices.Clone(tiles)
}
