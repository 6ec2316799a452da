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
	"context"
	"io"
	"io/fs"
	"os"
	"runtime"

	"github.com/rs/zerolog"
	"github.com/walteh/batpack/pkg/pathid"
	"gitlab.com/tozd/go/errors"
)

func (p *Packer) recordMissing(path string) {
	key := pathid.Key(path)
	if _, ok := p.missingSet[key]; ok {
		return
	}
	p.missingSet[key] = struct{}{}
	p.missing = append(p.missing, path)
	p.cb.MissingFile(path)
}

func (p *Packer) recordUnreadable(ctx context.Context, path, reason string) {
	key := pathid.Key(path)
	if _, ok := p.unreadableSet[key]; ok {
		return
	}
	p.unreadableSet[key] = struct{}{}
	p.unreadable[path] = reason
	p.cb.MissingFile(path)

	logger := zerolog.Ctx(ctx)
	if runtime.GOOS == "darwin" {
		logger.Warn().Str("path", path).Msg(pathid.PermissionHint(path, reason))
		return
	}
	logger.Warn().Str("path", path).Str("error", reason).Msg("unreadable file")
}

// checkReadable opens path and reads one byte, which also makes lazily
// synced cloud files materialise. Directories count as readable. The
// outcome is cached and missing or unreadable paths are recorded.
func (p *Packer) checkReadable(ctx context.Context, path string) bool {
	abs := pathid.MakeAbsolute(path)
	key := pathid.NFC(abs)
	if r, ok := p.readability[key]; ok {
		return r.ok
	}

	r := p.probe(abs)
	p.readability[key] = r
	switch {
	case r.ok:
	case r.err == "missing":
		p.recordMissing(abs)
	default:
		p.recordUnreadable(ctx, abs, r.err)
	}
	return r.ok
}

func (p *Packer) probe(abs string) readability {
	info, err := os.Stat(abs)
	if err == nil && info.IsDir() {
		return readability{ok: true}
	}

	f, err := os.Open(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return readability{err: "missing"}
		}
		return readability{err: err.Error()}
	}
	defer f.Close()

	var one [1]byte
	if _, err := f.Read(one[:]); err != nil && !errors.Is(err, io.EOF) {
		return readability{err: err.Error()}
	}
	return readability{ok: true}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
