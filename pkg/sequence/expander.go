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

// Package sequence turns sequence-like references (globs, directories,
// numbered frames, texture tilesets) into the concrete files they denote.
package sequence

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/batpack/pkg/pathid"
	"gitlab.com/tozd/go/errors"
)

// Placeholder is the tile marker some documents store instead of a tile number
const Placeholder = "<UDIM>"

// ❌ DoesNotExistError is returned when a literal sequence path is absent
type DoesNotExistError struct {
	Path string
}

func (e *DoesNotExistError) Error() string {
	return "does not exist: " + e.Path
}

// 🎞️ Expander expands a sequence path into its files
type Expander interface {
	Expand(ctx context.Context, path string) ([]string, error)
}

// 🎞️ FS expands sequences against the local filesystem
type FS struct{}

var _ Expander = FS{}

// metaEscaper quotes glob syntax so a literal file name matches only itself
var metaEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
	`{`, `\{`,
	`}`, `\}`,
)

func escapeMeta(s string) string {
	return metaEscaper.Replace(s)
}

// IsPlaceholder reports whether the file name carries the tile marker
func IsPlaceholder(path string) bool {
	return strings.Contains(filepath.Base(path), Placeholder)
}

func (FS) Expand(ctx context.Context, path string) ([]string, error) {
	logger := zerolog.Ctx(ctx)
	cloud := pathid.LooksLikeCloudStorage(path)

	if IsPlaceholder(path) {
		path = filepath.Join(filepath.Dir(path), strings.ReplaceAll(filepath.Base(path), Placeholder, "*"))
	}

	if strings.Contains(path, "*") {
		logger.Debug().Str("pattern", path).Msg("expanding glob")
		matches, err := doublestar.FilepathGlob(path, doublestar.WithFilesOnly())
		if err != nil {
			logger.Debug().Err(err).Str("pattern", path).Msg("glob failed")
		}
		sort.Strings(matches)
		if len(matches) == 0 && cloud {
			return listFallback(ctx, filepath.Dir(path), filepath.Base(path)), nil
		}
		return matches, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.WithStack(&DoesNotExistError{Path: path})
	}

	if info.IsDir() {
		return walkFiles(ctx, path), nil
	}

	logger.Debug().Str("path", path).Msg("expanding file sequence")

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	bare := strings.TrimRight(stem, "0123456789")
	if bare == stem {
		return []string{path}, nil
	}

	dir := filepath.Dir(path)
	pattern := escapeMeta(bare) + "*" + escapeMeta(ext)
	names, err := doublestar.Glob(os.DirFS(dir), pattern, doublestar.WithFilesOnly())
	if err != nil {
		logger.Debug().Err(err).Str("pattern", pattern).Msg("glob failed")
	}
	if len(names) == 0 && cloud {
		return listFallback(ctx, dir, pattern), nil
	}

	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, filepath.FromSlash(name)))
	}
	sort.Strings(out)
	return out, nil
}

func walkFiles(ctx context.Context, root string) []string {
	var out []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// unreadable subtrees are skipped, not fatal
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			out = append(out, p)
		}
		return nil
	})
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("dir", root).Msg("cannot walk directory")
	}
	return out
}

// listFallback lists dir and matches names one by one; some synced folders
// fail on glob but still answer plain directory reads.
func listFallback(ctx context.Context, dir, pattern string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("dir", dir).Msg("cannot list directory")
		return nil
	}

	var out []string
	for _, e := range entries {
		ok, err := doublestar.Match(pattern, e.Name())
		if err != nil || !ok {
			continue
		}
		full := filepath.Join(dir, e.Name())
		if info, err := os.Stat(full); err == nil && info.Mode().IsRegular() {
			out = append(out, full)
		}
	}
	sort.Strings(out)
	return out
}

// 🔎 FirstExisting returns the first expanded file that exists on disk
func FirstExisting(ctx context.Context, e Expander, path string) (string, error) {
	files, err := e.Expand(ctx, path)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			return f, nil
		}
	}
	return "", errors.WithStack(&DoesNotExistError{Path: path})
}
