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
	"iter"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/walteh/batpack/pkg/pathid"
	"github.com/walteh/batpack/pkg/sequence"
	"github.com/walteh/batpack/pkg/trace"
	"gitlab.com/tozd/go/errors"
)

// 🧭 Strategise decides what happens to every asset the source references.
//
// Sequences stay one logical asset here; they are expanded by Execute.
func (p *Packer) Strategise(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	rel, ok := pathid.RelToProject(p.source, p.project)
	if !ok {
		return errors.Errorf("source %s is not inside project %s", p.source, p.project)
	}
	p.outputPath = p.targetPath(rel)

	p.cb.PackStart()

	act, _ := p.plan.getOrInsert(p.source)
	act.PathAction = KeepPath
	act.NewPath = p.outputPath

	if err := p.checkAborted(ctx); err != nil {
		return err
	}

	for u, err := range p.usages(ctx) {
		if err != nil {
			if abortErr := p.checkAborted(ctx); abortErr != nil {
				return abortErr
			}
			return errors.Errorf("tracing dependencies: %w", err)
		}
		if err := p.checkAborted(ctx); err != nil {
			return err
		}

		if p.excluded(u.AbsPath) {
			logger.Info().Str("path", u.AbsPath).Msg("excluding file")
			continue
		}
		if p.opts.RelativeOnly && !u.IsBlendRelative() {
			logger.Info().Str("path", u.AssetPath).Msg("skipping absolute path")
			continue
		}

		if u.IsSequence {
			p.visitSequence(ctx, u)
		} else {
			p.visitAsset(ctx, u, u.AbsPath)
		}
	}

	p.findNewPaths(ctx)
	p.groupRewrites(ctx)
	p.strategised = true

	logger.Debug().Int("actions", p.plan.len()).Int("missing", len(p.missing)).Msg("strategy complete")
	return nil
}

func (p *Packer) usages(ctx context.Context) iter.Seq2[trace.Usage, error] {
	if p.opts.PreTraced != nil {
		zerolog.Ctx(ctx).Debug().Int("count", len(p.opts.PreTraced)).Msg("using pre-traced dependencies")
		return trace.Static(p.opts.PreTraced).Scan(ctx, p.source, p.cb)
	}
	if p.opts.Scanner == nil {
		return func(yield func(trace.Usage, error) bool) {
			yield(trace.Usage{}, errors.New("no dependency scanner configured"))
		}
	}
	return p.opts.Scanner.Scan(ctx, p.source, p.cb)
}

func (p *Packer) excluded(path string) bool {
	slashed := filepath.ToSlash(path)
	trimmed := strings.TrimLeft(slashed, "/")
	for _, glob := range p.exclude {
		pattern := filepath.ToSlash(glob)
		subject := slashed
		if !strings.HasPrefix(pattern, "/") && !pathid.IsWindowsLike(pattern) {
			pattern = "**/" + pattern
			subject = trimmed
		}
		if ok, _ := doublestar.Match(pattern, subject); ok {
			return true
		}
	}
	return false
}

// visitSequence requires at least one file of the sequence to exist
func (p *Packer) visitSequence(ctx context.Context, u trace.Usage) {
	first, err := sequence.FirstExisting(ctx, p.expander, u.AbsPath)
	if err != nil {
		zerolog.Ctx(ctx).Debug().Err(err).Str("path", u.AbsPath).Msg("no file of the sequence exists")
		if !u.IsOptional {
			p.recordMissing(u.AbsPath)
		}
		return
	}
	p.visitAsset(ctx, u, first)
}

// visitAsset plans one usage. firstPath is the asset itself, or the first
// existing file for a sequence.
func (p *Packer) visitAsset(ctx context.Context, u trace.Usage, firstPath string) {
	logger := zerolog.Ctx(ctx)
	assetPath := u.AbsPath

	// optional data outside the project is already embedded in the document
	if u.IsOptional && !pathid.InProject(assetPath, p.project) {
		logger.Debug().Str("path", assetPath).Msg("skipping optional asset outside project")
		return
	}

	tiles := p.tiles.Tiles(ctx, assetPath)

	if !u.IsSequence && !exists(assetPath) {
		if len(tiles) == 0 {
			if !u.IsOptional {
				p.recordMissing(assetPath)
			}
			return
		}
		logger.Info().Str("path", assetPath).Int("tiles", len(tiles)).Msg("tileset resolved through its tiles")
	}

	p.cb.TraceAsset(assetPath)

	inProject := pathid.InProject(firstPath, p.project)
	useAsIs := u.IsBlendRelative() && inProject

	act, _ := p.plan.getOrInsert(assetPath)
	act.Usages = append(act.Usages, u)
	act.addExtra(tiles...)

	if rel, ok := pathid.RelToProject(assetPath, p.project); ok && inProject {
		act.NewPath = p.targetPath(rel)
	} else {
		p.deferNewPath(assetPath)
	}

	if useAsIs {
		logger.Debug().Str("document", u.Document).Str("ref", u.AssetPath).Msg("reference can stay")
		return
	}
	logger.Info().Str("document", u.Document).Str("ref", u.AssetPath).Msg("reference needs rewriting")
	act.PathAction = FindNewLocation
}

func (p *Packer) deferNewPath(path string) {
	key := pathid.Key(path)
	if _, ok := p.deferredSet[key]; ok {
		return
	}
	p.deferredSet[key] = struct{}{}
	p.deferred = append(p.deferred, path)
}

// findNewPaths places out-of-root assets under the _outside_project subtree.
// A destination assigned earlier is never replaced.
func (p *Packer) findNewPaths(ctx context.Context) {
	for _, path := range p.deferred {
		act, ok := p.plan.get(path)
		if !ok || act.NewPath != "" {
			continue
		}
		act.NewPath = p.targetPath(pathid.OutsideProjectDir + "/" + pathid.OutsideProjectRelPath(path))
		zerolog.Ctx(ctx).Debug().Str("path", path).Str("new_path", act.NewPath).Msg("placed outside project")
	}
}

// placeUnplanned gives a document that was never traced as an asset the
// destination it would have had
func (p *Packer) placeUnplanned(act *AssetAction) {
	if rel, ok := pathid.RelToProject(act.Path, p.project); ok {
		act.NewPath = p.targetPath(rel)
		return
	}
	act.NewPath = p.targetPath(pathid.OutsideProjectDir + "/" + pathid.OutsideProjectRelPath(act.Path))
}

// groupRewrites hands every reference to a relocated asset to the document
// holding it. Documents first seen here join the work-list, since they may
// themselves be relocated.
func (p *Packer) groupRewrites(ctx context.Context) {
	work := make([]*AssetAction, 0, p.plan.len())
	for _, act := range p.plan.all() {
		work = append(work, act)
	}

	for len(work) > 0 {
		act := work[0]
		work = work[1:]

		if act.PathAction != FindNewLocation {
			continue
		}

		for _, u := range act.Usages {
			doc, inserted := p.plan.getOrInsert(u.Document)
			doc.Rewrites = append(doc.Rewrites, u)
			if inserted {
				p.placeUnplanned(doc)
				zerolog.Ctx(ctx).Debug().Str("document", u.Document).Msg("document joins the rewrite closure")
				work = append(work, doc)
			}
		}
	}
}
