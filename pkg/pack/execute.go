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
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/batpack/pkg/pathid"
	"github.com/walteh/batpack/pkg/sequence"
	"github.com/walteh/batpack/pkg/transfer"
	"gitlab.com/tozd/go/errors"
)

// 🚚 Execute patches documents and transfers every planned asset.
//
// Missing and unreadable assets never fail the run; they are reported
// through NotIncluded and the PackDone notification.
func (p *Packer) Execute(ctx context.Context) error {
	if !p.strategised {
		return errors.WithStack(ErrNotStrategised)
	}

	if !p.opts.PlanOnly || p.opts.ForceRewrite {
		if err := p.rewritePaths(ctx); err != nil {
			return err
		}
	}

	if !p.opts.PlanOnly {
		p.backend.Start(ctx)
		p.started = true
	}

	if err := p.writeInfoFile(ctx); err != nil {
		p.backend.AbortAndJoin()
		return err
	}
	if err := p.copyFilesToTarget(ctx); err != nil {
		return err
	}

	p.tscb.Flush()
	p.cb.PackDone(p.outputPath, p.NotIncluded())
	return nil
}

func (p *Packer) writeInfoFile(ctx context.Context) error {
	infoPath := filepath.Join(p.tmpDir, InfoFileName)
	zerolog.Ctx(ctx).Debug().Str("path", infoPath).Msg("writing info file")

	rel, err := filepath.Rel(p.target, p.outputPath)
	if err != nil {
		return errors.Errorf("locating packed document: %w", err)
	}

	var b strings.Builder
	fmt.Fprintln(&b, "This is a batpack asset pack.")
	fmt.Fprintln(&b, "Start by opening the following blend file:")
	fmt.Fprintf(&b, "    %s\n", filepath.ToSlash(rel))
	if err := os.WriteFile(infoPath, []byte(b.String()), 0644); err != nil {
		return errors.Errorf("writing info file: %w", err)
	}

	// a plan-only run lists assets, not pack bookkeeping
	if !p.opts.PlanOnly {
		p.backend.QueueMove(infoPath, filepath.Join(p.target, InfoFileName))
	}
	return nil
}

func (p *Packer) copyFilesToTarget(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Int("actions", p.plan.len()).Msg("executing copy actions")

	err := func() error {
		for _, act := range p.plan.all() {
			if err := p.checkAborted(ctx); err != nil {
				return err
			}
			p.copyAssetAndDeps(ctx, act)
		}

		if p.opts.PlanOnly {
			logger.Info().Int("files", p.FileCount()).Str("target", p.target).Msgf("would copy %d files", p.FileCount())
			return nil
		}
		return p.backend.DoneAndJoin()
	}()

	if err != nil && !p.opts.PlanOnly {
		p.backend.AbortAndJoin()
	}

	p.tscb.Flush()
	if abortErr := p.checkAborted(ctx); abortErr != nil {
		return abortErr
	}
	if err != nil {
		return errors.Errorf("transferring files: %w", err)
	}
	return nil
}

// copyAssetAndDeps enqueues the asset, its tileset siblings and, for a
// sequence, every file of the expansion
func (p *Packer) copyAssetAndDeps(ctx context.Context, act *AssetAction) {
	logger := zerolog.Ctx(ctx)
	extras := act.ExtraFiles()

	primary := !strings.Contains(act.Path, "*") && !sequence.IsPlaceholder(act.Path) && !isDir(act.Path)
	if primary && act.ReadFrom == "" && len(extras) > 0 && !exists(act.Path) {
		// a tile name that only stands for its siblings
		primary = false
	}

	if primary {
		if act.ReadFrom != "" {
			p.sendToTarget(ctx, act.ReadFrom, act.NewPath, transfer.Move)
		} else {
			p.sendToTarget(ctx, act.Path, act.NewPath, transfer.Copy)
		}
	}

	dstDir := filepath.Dir(act.NewPath)
	self := pathid.Key(act.Path)
	for _, extra := range extras {
		if pathid.Key(extra) == self {
			continue
		}
		p.sendToTarget(ctx, extra, filepath.Join(dstDir, filepath.Base(extra)), transfer.Copy)
	}

	if !act.IsSequence() {
		return
	}

	files, err := p.expander.Expand(ctx, act.Path)
	if err != nil {
		logger.Debug().Err(err).Str("path", act.Path).Msg("cannot expand sequence")
		return
	}

	base, packedBase := sequenceBase(act.Path, act.NewPath)
	for _, file := range files {
		if primary && pathid.Key(file) == self {
			continue
		}
		rel, err := filepath.Rel(base, file)
		if err != nil || strings.HasPrefix(rel, "..") {
			logger.Debug().Str("file", file).Str("base", base).Msg("sequence file outside its base directory")
			continue
		}
		p.sendToTarget(ctx, file, filepath.Join(packedBase, rel), transfer.Copy)
	}
}

// sendToTarget queues one transfer. A destination already queued in this
// run is skipped: sibling tiles are carried by every tile that references them.
func (p *Packer) sendToTarget(ctx context.Context, src, dst string, action transfer.Action) {
	dst = pathid.NFC(dst)
	key := pathid.Key(dst)
	if _, ok := p.queued[key]; ok {
		zerolog.Ctx(ctx).Debug().Str("src", src).Str("dst", dst).Msg("destination already queued")
		return
	}
	p.queued[key] = struct{}{}

	if !p.checkReadable(ctx, src) {
		if rec, ok := p.backend.(transfer.Recorder); ok {
			rec.Record(src, dst)
		}
		return
	}

	if p.started {
		p.tscb.Flush()
	}
	switch action {
	case transfer.Move:
		p.backend.QueueMove(src, dst)
	default:
		p.backend.QueueCopy(src, dst)
	}
}

// sequenceBase returns the directory a sequence expands below and where that
// directory lands in the pack. For a glob it is the part before the first
// meta character.
func sequenceBase(path, newPath string) (base, packedBase string) {
	if isDir(path) {
		return path, newPath
	}
	prefix, pattern := doublestar.SplitPattern(filepath.ToSlash(path))
	packedBase = newPath
	for range strings.Count(pattern, "/") + 1 {
		packedBase = filepath.Dir(packedBase)
	}
	return filepath.FromSlash(prefix), packedBase
}
