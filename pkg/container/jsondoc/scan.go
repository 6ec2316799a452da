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

package jsondoc

import (
	"context"
	"iter"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/walteh/batpack/pkg/pathid"
	"github.com/walteh/batpack/pkg/progress"
	"github.com/walteh/batpack/pkg/trace"
)

// 🔍 Scanner yields usages of a document and, recursively, of linked documents
type Scanner struct {
	// Ext is the extension of linked documents to descend into
	Ext string
}

var _ trace.Scanner = Scanner{}

// Resolve turns a stored reference into an absolute path
func Resolve(raw, document string) string {
	if pathid.IsBlendRelative(raw) {
		return pathid.MakeAbsolute(filepath.Join(filepath.Dir(document), filepath.FromSlash(raw[len(pathid.BlendRelPrefix):])))
	}
	if filepath.IsAbs(raw) || pathid.IsWindowsLike(raw) {
		return pathid.MakeAbsolute(raw)
	}
	return pathid.MakeAbsolute(filepath.Join(filepath.Dir(document), raw))
}

func (s Scanner) Scan(ctx context.Context, root string, cb progress.Callback) iter.Seq2[trace.Usage, error] {
	ext := s.Ext
	if ext == "" {
		ext = DefaultExt
	}

	return func(yield func(trace.Usage, error) bool) {
		logger := zerolog.Ctx(ctx)
		queue := []string{pathid.MakeAbsolute(root)}
		visited := map[string]bool{pathid.Key(root): true}

		for len(queue) > 0 {
			if err := ctx.Err(); err != nil {
				yield(trace.Usage{}, err)
				return
			}

			docPath := queue[0]
			queue = queue[1:]
			logger.Debug().Str("document", docPath).Msg("scanning document")

			doc, err := Read(docPath)
			if err != nil {
				yield(trace.Usage{}, err)
				return
			}

			for _, b := range doc.Blocks {
				for _, ref := range b.Refs {
					raw, ok := b.Fields[ref.Field]
					if !ok || raw == "" {
						continue
					}

					kind := trace.FullPathField
					if ref.Kind == "dir" {
						kind = trace.DirectoryField
					}

					u := trace.Usage{
						AssetPath:  raw,
						AbsPath:    Resolve(raw, docPath),
						IsSequence: ref.Sequence,
						IsOptional: ref.Optional,
						Document:   docPath,
						Locator:    trace.Locator{Block: b.Addr, Field: ref.Field, Kind: kind},
					}
					if !yield(u, nil) {
						return
					}

					if !strings.EqualFold(filepath.Ext(u.AbsPath), ext) {
						continue
					}
					key := pathid.Key(u.AbsPath)
					if visited[key] {
						continue
					}
					visited[key] = true
					if _, err := os.Stat(u.AbsPath); err == nil {
						queue = append(queue, u.AbsPath)
					}
				}
			}
		}
	}
}
