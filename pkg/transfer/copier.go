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

package transfer

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 📂 FileCopier copies queued files into a directory tree using a pool of workers
type FileCopier struct {
	queue

	fs      afero.Fs
	workers int
	bufSize int

	group   *errgroup.Group
	logger  *zerolog.Logger
	started bool
}

var _ Transferer = (*FileCopier)(nil)

// CopierOption configures a FileCopier
type CopierOption func(*FileCopier)

// WithFs swaps the filesystem, mostly for tests
func WithFs(fs afero.Fs) CopierOption {
	return func(fc *FileCopier) { fc.fs = fs }
}

// WithWorkers sets the number of concurrent copies
func WithWorkers(n int) CopierOption {
	return func(fc *FileCopier) {
		if n > 0 {
			fc.workers = n
		}
	}
}

// WithBufferSize sets the copy buffer size
func WithBufferSize(n int) CopierOption {
	return func(fc *FileCopier) {
		if n > 0 {
			fc.bufSize = n
		}
	}
}

// 🏗️ NewFileCopier creates a copier writing to the OS filesystem
func NewFileCopier(opts ...CopierOption) *FileCopier {
	fc := &FileCopier{
		queue:   newQueue(DefaultCapacity),
		fs:      afero.NewOsFs(),
		workers: 4,
		bufSize: 1 << 20,
	}
	for _, opt := range opts {
		opt(fc)
	}
	return fc
}

func (fc *FileCopier) Start(ctx context.Context) {
	fc.logger = zerolog.Ctx(ctx)
	g, gctx := errgroup.WithContext(ctx)
	fc.group = g
	fc.started = true

	for range fc.workers {
		g.Go(func() error {
			for it := range fc.items {
				if fc.isAborted() || gctx.Err() != nil {
					continue
				}
				if err := fc.transfer(it); err != nil {
					fc.logger.Error().Err(err).Str("src", it.Src).Str("dst", it.Dst).Msg("transfer failed")
					fc.setError(err)
					fc.Abort()
					return err
				}
			}
			return nil
		})
	}
}

func (fc *FileCopier) DoneAndJoin() error {
	if !fc.started {
		return ErrNotStarted
	}
	fc.closeQueue()
	_ = fc.group.Wait()
	return fc.Err()
}

func (fc *FileCopier) AbortAndJoin() {
	fc.Abort()
	if !fc.started {
		return
	}
	fc.closeQueue()
	_ = fc.group.Wait()
}

func (fc *FileCopier) transfer(it Item) error {
	info, err := fc.fs.Stat(it.Src)
	if err != nil {
		return errors.Errorf("stat %s: %w", it.Src, err)
	}

	if info.IsDir() {
		if err := fc.copyDir(it.Src, it.Dst); err != nil {
			return err
		}
		if it.Action == Move {
			if err := fc.fs.RemoveAll(it.Src); err != nil {
				return errors.Errorf("removing moved directory: %w", err)
			}
		}
		fc.progress().TransferFile(it.Src, it.Dst)
		return nil
	}

	if err := fc.fs.MkdirAll(filepath.Dir(it.Dst), 0755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}

	if it.Action == Move {
		return fc.move(it, info)
	}

	if fc.upToDate(info, it.Dst) {
		fc.logger.Debug().Str("src", it.Src).Msg("destination up to date, skipping")
		fc.progress().TransferFileSkipped(it.Src, it.Dst)
		return nil
	}

	if err := fc.copyFile(it.Src, it.Dst, info); err != nil {
		return err
	}
	fc.progress().TransferFile(it.Src, it.Dst)
	return nil
}

// upToDate reports whether dst has the same size as src and is not older
func (fc *FileCopier) upToDate(src os.FileInfo, dst string) bool {
	dinfo, err := fc.fs.Stat(dst)
	if err != nil || dinfo.IsDir() {
		return false
	}
	return dinfo.Size() == src.Size() && !dinfo.ModTime().Before(src.ModTime())
}

func (fc *FileCopier) move(it Item, info os.FileInfo) error {
	if _, err := fc.fs.Stat(it.Dst); err == nil {
		if err := fc.fs.Remove(it.Dst); err != nil {
			return errors.Errorf("replacing %s: %w", it.Dst, err)
		}
	}

	if err := fc.fs.Rename(it.Src, it.Dst); err != nil {
		// cross-device moves fall back to copy and delete
		fc.logger.Debug().Err(err).Str("src", it.Src).Msg("rename failed, copying instead")
		if err := fc.copyFile(it.Src, it.Dst, info); err != nil {
			return err
		}
		if err := fc.fs.Remove(it.Src); err != nil {
			return errors.Errorf("removing moved file: %w", err)
		}
	}

	fc.progress().TransferFile(it.Src, it.Dst)
	return nil
}

func (fc *FileCopier) copyFile(src, dst string, info os.FileInfo) error {
	in, err := fc.fs.Open(src)
	if err != nil {
		return errors.Errorf("opening source: %w", err)
	}
	defer in.Close()

	out, err := fc.fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return errors.Errorf("creating destination: %w", err)
	}

	buf := make([]byte, fc.bufSize)
	if _, err := io.CopyBuffer(out, in, buf); err != nil {
		out.Close()
		return errors.Errorf("copying %s: %w", src, err)
	}
	if err := out.Close(); err != nil {
		return errors.Errorf("closing destination: %w", err)
	}

	if err := fc.fs.Chmod(dst, info.Mode().Perm()); err != nil {
		return errors.Errorf("setting mode: %w", err)
	}
	if err := fc.fs.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return errors.Errorf("setting times: %w", err)
	}
	return nil
}

func (fc *FileCopier) copyDir(src, dst string) error {
	return afero.Walk(fc.fs, src, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return errors.Errorf("walking %s: %w", p, err)
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return errors.Errorf("relative path: %w", err)
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			if err := fc.fs.MkdirAll(target, info.Mode().Perm()|0700); err != nil {
				return errors.Errorf("creating directory: %w", err)
			}
			return nil
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		if fc.upToDate(info, target) {
			return nil
		}
		return fc.copyFile(p, target, info)
	})
}
