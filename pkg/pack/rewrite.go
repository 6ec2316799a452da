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
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/batpack/pkg/container"
	"github.com/walteh/batpack/pkg/pathid"
	"github.com/walteh/batpack/pkg/trace"
	"gitlab.com/tozd/go/errors"
)

// rewritePaths writes a patched copy of every document whose references
// point at relocated assets. The copies live in the temporary area and are
// moved, not copied, by the transfer step.
func (p *Packer) rewritePaths(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)

	for _, act := range p.plan.all() {
		if len(act.Rewrites) == 0 {
			continue
		}
		if err := p.checkAborted(ctx); err != nil {
			return err
		}
		if p.opts.Container == nil {
			return errors.Errorf("document %s needs rewriting but no container opener is configured", act.Path)
		}

		logger.Info().Str("document", p.shorten(act.Path)).Int("fields", len(act.Rewrites)).Msg("rewriting document")
		if err := p.rewriteDocument(ctx, act); err != nil {
			return err
		}
	}
	return nil
}

func (p *Packer) rewriteDocument(ctx context.Context, act *AssetAction) (err error) {
	tmp, err := os.CreateTemp(p.tmpDir, "bat-*-"+filepath.Base(act.Path))
	if err != nil {
		return errors.Errorf("creating temporary copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return errors.Errorf("closing temporary copy: %w", err)
	}
	act.ReadFrom = tmp.Name()

	orig, err := p.opts.Container.Open(ctx, act.Path)
	if err != nil {
		return errors.Errorf("opening %s: %w", act.Path, err)
	}
	doc, err := orig.DuplicateTo(ctx, act.ReadFrom)
	if closeErr := orig.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return errors.Errorf("duplicating %s: %w", act.Path, err)
	}
	defer func() {
		if closeErr := doc.Close(); closeErr != nil && err == nil {
			err = errors.Errorf("writing patched %s: %w", act.Path, closeErr)
		}
	}()

	for _, u := range act.Rewrites {
		if err := p.checkAborted(ctx); err != nil {
			return err
		}
		if err := p.rewriteUsage(ctx, doc, act, u); err != nil {
			return err
		}
	}

	if doc.IsModified() {
		p.cb.RewriteBlendfile(act.Path)
	}
	return nil
}

// rewriteUsage patches one field. A field whose computed reference equals
// the stored one byte for byte is left alone.
func (p *Packer) rewriteUsage(ctx context.Context, doc container.Handle, act *AssetAction, u trace.Usage) error {
	logger := zerolog.Ctx(ctx)

	asset, ok := p.plan.get(u.AbsPath)
	if !ok || asset.NewPath == "" {
		return errors.Errorf("no destination planned for %s", u.AbsPath)
	}

	relpath := pathid.BlendRelative(asset.NewPath, act.NewPath)
	if relpath == u.AssetPath {
		logger.Info().Str("ref", u.AssetPath).Msg("reference remained")
		return nil
	}

	blk, err := doc.Dereference(u.Locator.Block)
	if err != nil {
		return errors.Errorf("dereferencing block %d of %s: %w", u.Locator.Block, act.Path, err)
	}

	value := relpath
	if u.Locator.Kind == trace.DirectoryField {
		value = pathid.BlendRelative(filepath.Dir(asset.NewPath), act.NewPath)
	}

	logger.Debug().Str("field", u.Locator.Field).Uint64("block", u.Locator.Block).Str("from", u.AssetPath).Str("to", value).Msg("updating field")
	written, err := blk.Set(u.Locator.Field, value)
	if err != nil {
		return errors.Errorf("setting %s of block %d: %w", u.Locator.Field, u.Locator.Block, err)
	}
	logger.Debug().Int("bytes", written).Msg("field written")
	return nil
}
