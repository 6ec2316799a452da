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
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/walteh/batpack/pkg/container"
	"github.com/walteh/batpack/pkg/pathid"
	"github.com/walteh/batpack/pkg/progress"
	"github.com/walteh/batpack/pkg/sequence"
	"github.com/walteh/batpack/pkg/trace"
	"github.com/walteh/batpack/pkg/transfer"
	"gitlab.com/tozd/go/errors"
)

// InfoFileName is written at the root of every pack
const InfoFileName = "pack-info.txt"

// ⚙️ Options configures a Packer
type Options struct {
	// PlanOnly records what would be transferred without touching the target
	PlanOnly bool
	// Archive writes a single zip file at the target path
	Archive bool
	// RelativeOnly ignores references that are not document-relative
	RelativeOnly bool
	// ForceRewrite patches documents even in plan-only mode
	ForceRewrite bool

	// Scanner discovers usages; ignored when PreTraced is set
	Scanner trace.Scanner
	// PreTraced replaces live scanning with a recorded list
	PreTraced []trace.Usage
	// Container opens documents for patching
	Container container.Opener
	// Expander expands sequences; defaults to the local filesystem
	Expander sequence.Expander
	// Zip tunes the archive writer; the zero value means defaults
	Zip transfer.ZipOptions
	// Copier tunes the plain copier
	Copier []transfer.CopierOption
}

type readability struct {
	ok  bool
	err string
}

// 📦 Packer plans and performs the relocation of a document and everything
// it references into a target layout
type Packer struct {
	source  string
	project string
	target  string
	opts    Options

	tmpDir   string
	expander sequence.Expander
	tiles    *sequence.Tileset
	backend  transfer.Transferer
	started  bool

	exclude     []string
	plan        *plan
	strategised bool
	deferred    []string
	deferredSet map[string]struct{}
	outputPath  string

	missing       []string
	missingSet    map[string]struct{}
	unreadable    map[string]string
	unreadableSet map[string]struct{}
	readability   map[string]readability
	queued        map[string]struct{}

	cb   progress.Callback
	tscb *progress.ThreadSafe

	aborted       atomic.Bool
	abortMu       sync.Mutex
	abortReason   string
	abortReported *AbortedError
}

// 🏗️ New creates a packer for source, a document inside project, packing
// into target. Close must be called to remove the temporary area.
func New(source, project, target string, opts Options) (*Packer, error) {
	tmpDir, err := os.MkdirTemp("", "bat-*-batpack")
	if err != nil {
		return nil, errors.Errorf("creating temporary directory: %w", err)
	}

	if opts.Expander == nil {
		opts.Expander = sequence.FS{}
	}
	if opts.Zip == (transfer.ZipOptions{}) {
		opts.Zip = transfer.DefaultZipOptions()
	}

	p := &Packer{
		source:        pathid.MakeAbsolute(source),
		project:       pathid.MakeAbsolute(project),
		target:        pathid.MakeAbsolute(target),
		opts:          opts,
		tmpDir:        tmpDir,
		expander:      opts.Expander,
		tiles:         sequence.NewTileset(opts.Expander),
		plan:          newPlan(),
		deferredSet:   make(map[string]struct{}),
		missingSet:    make(map[string]struct{}),
		unreadable:    make(map[string]string),
		unreadableSet: make(map[string]struct{}),
		readability:   make(map[string]readability),
		queued:        make(map[string]struct{}),
	}
	p.backend = p.newBackend()
	p.SetProgress(nil)
	return p, nil
}

// newBackend picks the transfer strategy once, at construction
func (p *Packer) newBackend() transfer.Transferer {
	switch {
	case p.opts.PlanOnly:
		return transfer.NewDryRun()
	case p.opts.Archive:
		return transfer.NewArchiveWriter(p.target, p.opts.Zip)
	default:
		return transfer.NewFileCopier(p.opts.Copier...)
	}
}

// 🧹 Close flushes pending progress reports and removes the temporary area
func (p *Packer) Close() error {
	p.tscb.Flush()
	if err := os.RemoveAll(p.tmpDir); err != nil {
		return errors.Errorf("removing temporary directory: %w", err)
	}
	return nil
}

// 📈 SetProgress replaces the progress observer; nil means no reports
func (p *Packer) SetProgress(cb progress.Callback) {
	if p.tscb != nil {
		p.tscb.Flush()
	}
	if cb == nil {
		cb = progress.Nop{}
	}
	p.cb = cb
	p.tscb = progress.NewThreadSafe(cb)
	p.backend.SetProgress(p.tscb)
}

// 🚫 Exclude registers glob patterns of assets to leave out. Relative
// patterns match the end of a path, absolute ones the whole path.
func (p *Packer) Exclude(globs ...string) error {
	if p.plan.len() > 0 {
		return errors.WithStack(ErrExcludeAfterStrategise)
	}
	p.exclude = append(p.exclude, globs...)
	return nil
}

// 🛑 Abort stops the pack at the next safe point; safe from any goroutine
func (p *Packer) Abort(reason string) {
	p.abortMu.Lock()
	defer p.abortMu.Unlock()
	p.abortReason = reason
	p.backend.Abort()
	p.aborted.Store(true)
}

// checkAborted is the safe point check. A cancelled context counts as an
// abort, and so does a failed backend.
func (p *Packer) checkAborted(ctx context.Context) error {
	if ctx.Err() != nil && !p.aborted.Load() {
		p.Abort(InterruptedReason)
	}

	p.abortMu.Lock()
	defer p.abortMu.Unlock()

	if p.abortReported != nil {
		return errors.WithStack(p.abortReported)
	}

	logger := zerolog.Ctx(ctx)
	abortErr := &AbortedError{Reason: p.abortReason}
	switch {
	case p.started && p.backend.HasError():
		logger.Error().Msg("a transfer error occurred")
		abortErr.Reason = p.backend.ErrorMessage()
		if e, ok := p.backend.(interface{ Err() error }); ok {
			abortErr.Err = e.Err()
		}
	case p.aborted.Load():
	default:
		return nil
	}

	logger.Warn().Str("reason", abortErr.Reason).Msg("aborting")
	p.tscb.Flush()
	p.cb.PackAborted(abortErr.Reason)
	p.abortReported = abortErr
	return errors.WithStack(abortErr)
}

// OutputPath is where the packed source document ends up
func (p *Packer) OutputPath() string {
	return p.outputPath
}

// TempDir is the scoped temporary area, removed by Close
func (p *Packer) TempDir() string {
	return p.tmpDir
}

// 🗺️ Actions returns the plan in insertion order
func (p *Packer) Actions() []*AssetAction {
	out := make([]*AssetAction, 0, p.plan.len())
	for _, act := range p.plan.all() {
		out = append(out, act)
	}
	return out
}

// Action returns the plan entry for path
func (p *Packer) Action(path string) (*AssetAction, bool) {
	return p.plan.get(path)
}

// 🗺️ FileMap returns source -> destination of a plan-only run
func (p *Packer) FileMap() map[string]string {
	if dr, ok := p.backend.(*transfer.DryRun); ok {
		return dr.Files()
	}
	return map[string]string{}
}

// FileCount is the number of transfers a plan-only run would perform
func (p *Packer) FileCount() int {
	if dr, ok := p.backend.(*transfer.DryRun); ok {
		return dr.Count()
	}
	return 0
}

// ❓ MissingFiles returns assets that do not exist, in discovery order
func (p *Packer) MissingFiles() []string {
	return slices.Clone(p.missing)
}

// 🔒 UnreadableFiles maps assets that exist but cannot be read to the OS error
func (p *Packer) UnreadableFiles() map[string]string {
	return maps.Clone(p.unreadable)
}

// NotIncluded is the sorted union of missing and unreadable assets
func (p *Packer) NotIncluded() []string {
	set := make(map[string]struct{}, len(p.missing)+len(p.unreadable))
	for _, m := range p.missing {
		set[m] = struct{}{}
	}
	for u := range p.unreadable {
		set[u] = struct{}{}
	}
	return slices.Sorted(maps.Keys(set))
}

// Unwritten returns archive items left behind by a failed entry
func (p *Packer) Unwritten() []transfer.Item {
	if aw, ok := p.backend.(*transfer.ArchiveWriter); ok {
		return aw.Remaining()
	}
	return nil
}

func (p *Packer) shorten(path string) string {
	return pathid.ShortenPath(p.project, path)
}

func (p *Packer) targetPath(rel string) string {
	return pathid.NFC(filepath.Join(p.target, filepath.FromSlash(rel)))
}
