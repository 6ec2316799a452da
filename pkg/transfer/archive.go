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
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	"github.com/walteh/batpack/pkg/progress"
	"gitlab.com/tozd/go/errors"
)

// ❌ EntryError is returned when one archive entry could not be written.
// The failing item and everything after it are kept in Remaining.
type EntryError struct {
	Item      Item
	Remaining []Item
	Err       error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("writing archive entry for %s (%d left unwritten): %v", e.Item.Src, len(e.Remaining), e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// 🗜️ ArchiveWriter writes every queued item into a single zip file
type ArchiveWriter struct {
	queue

	path string
	opts ZipOptions

	done    chan struct{}
	started bool

	remMu     sync.Mutex
	remaining []Item
}

var _ Transferer = (*ArchiveWriter)(nil)

// 🏗️ NewArchiveWriter creates a writer for the zip file at path
func NewArchiveWriter(path string, opts ZipOptions) *ArchiveWriter {
	if opts.BufSize <= 0 {
		opts.BufSize = DefaultZipOptions().BufSize
	}
	return &ArchiveWriter{
		queue: newQueue(DefaultCapacity),
		path:  path,
		opts:  opts,
		done:  make(chan struct{}),
	}
}

func (aw *ArchiveWriter) Start(ctx context.Context) {
	aw.started = true
	go func() {
		defer close(aw.done)

		// totals need the full list, so collect before writing
		var items []Item
		for it := range aw.items {
			items = append(items, it)
		}
		if aw.isAborted() {
			return
		}
		if err := aw.write(ctx, items); err != nil {
			aw.setError(err)
		}
	}()
}

func (aw *ArchiveWriter) DoneAndJoin() error {
	if !aw.started {
		return ErrNotStarted
	}
	aw.closeQueue()
	<-aw.done
	return aw.Err()
}

func (aw *ArchiveWriter) AbortAndJoin() {
	aw.Abort()
	if !aw.started {
		return
	}
	aw.closeQueue()
	<-aw.done
}

// Remaining returns the items left unwritten by a failed entry
func (aw *ArchiveWriter) Remaining() []Item {
	aw.remMu.Lock()
	defer aw.remMu.Unlock()
	return append([]Item(nil), aw.remaining...)
}

func (aw *ArchiveWriter) requeue(items []Item) {
	aw.remMu.Lock()
	defer aw.remMu.Unlock()
	aw.remaining = append(aw.remaining, items...)
}

func (aw *ArchiveWriter) write(ctx context.Context, items []Item) error {
	logger := zerolog.Ctx(ctx)
	start := time.Now()

	var totalBytes int64
	for _, it := range items {
		if info, err := os.Stat(it.Src); err == nil && info.Mode().IsRegular() {
			totalBytes += info.Size()
		}
	}

	if err := os.MkdirAll(filepath.Dir(aw.path), 0755); err != nil {
		return errors.Errorf("creating archive directory: %w", err)
	}

	setting := fmt.Sprintf("deflate level %d", aw.opts.CompressLevel)
	if aw.opts.NoCompress {
		setting = "store-only"
	}
	bigFiles := "off"
	if aw.opts.StoreBigFiles > 0 {
		bigFiles = ">" + progress.HumanBytes(aw.opts.StoreBigFiles)
	}
	logger.Info().
		Str("path", aw.path).
		Str("compression", setting).
		Str("io_buf", progress.HumanBytes(int64(aw.opts.BufSize))).
		Str("store_big_files", bigFiles).
		Int("files", len(items)).
		Str("size_estimate", progress.HumanBytes(totalBytes)).
		Msg("creating zip")

	f, err := os.Create(aw.path)
	if err != nil {
		return errors.Errorf("creating archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	level := aw.opts.CompressLevel
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, level)
	})

	buf := make([]byte, aw.opts.BufSize)
	var bytesDone int64
	var lastPrint time.Time

	for idx, it := range items {
		if aw.isAborted() {
			logger.Warn().Int("written", idx).Int("total", len(items)).Msg("zip aborted")
			break
		}

		size, err := aw.writeEntry(ctx, zw, it, buf, idx+1, len(items))
		if err != nil {
			rest := append([]Item(nil), items[idx:]...)
			aw.requeue(rest)
			logger.Error().Err(err).Str("src", it.Src).Msg("zip error while processing entry")
			// entries written so far stay readable
			_ = zw.Close()
			return errors.WithStack(&EntryError{Item: it, Remaining: rest, Err: err})
		}
		bytesDone += size
		aw.progress().TransferFile(it.Src, it.Dst)

		if now := time.Now(); now.Sub(lastPrint) >= aw.opts.PrintInterval || idx == len(items)-1 {
			lastPrint = now
			logger.Debug().
				Str("progress", progress.FormatProgress(idx+1, len(items))).
				Str("done", progress.HumanBytes(bytesDone)).
				Str("total", progress.HumanBytes(totalBytes)).
				Str("file", filepath.Base(it.Src)).
				Msg("zipping")
		}
	}

	if err := zw.Close(); err != nil {
		return errors.Errorf("finishing archive: %w", err)
	}
	if err := f.Close(); err != nil {
		return errors.Errorf("closing archive: %w", err)
	}

	logger.Info().
		Str("path", aw.path).
		Int("files", len(items)).
		Str("bytes", progress.HumanBytes(bytesDone)).
		Dur("elapsed", time.Since(start)).
		Msg("zip complete")
	return nil
}

// entryName is dst relative to the archive path, slash separated
func (aw *ArchiveWriter) entryName(dst string) (string, error) {
	rel, err := filepath.Rel(aw.path, dst)
	if err != nil {
		return "", errors.Errorf("archive name for %s: %w", dst, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return "", errors.Errorf("destination %s is not inside archive %s", dst, aw.path)
	}
	return rel, nil
}

func (aw *ArchiveWriter) writeEntry(ctx context.Context, zw *zip.Writer, it Item, buf []byte, idx, total int) (int64, error) {
	name, err := aw.entryName(it.Dst)
	if err != nil {
		return 0, err
	}

	info, err := os.Stat(it.Src)
	if err != nil {
		return 0, errors.Errorf("stat source: %w", err)
	}

	if info.IsDir() {
		fh := &zip.FileHeader{Name: strings.TrimSuffix(name, "/") + "/", Method: zip.Store, Modified: info.ModTime()}
		fh.SetMode(info.Mode())
		if _, err := zw.CreateHeader(fh); err != nil {
			return 0, errors.Errorf("creating directory entry: %w", err)
		}
		return 0, aw.finishMove(it)
	}

	method := ChooseMethod(aw.opts, name, info.Size())
	isContainer := strings.EqualFold(filepath.Ext(name), ContainerExt)
	if isContainer {
		method = zip.Store
	}

	in, err := os.Open(it.Src)
	if err != nil {
		return 0, errors.Errorf("opening source: %w", err)
	}
	defer in.Close()

	fh := &zip.FileHeader{Name: name, Method: method, Modified: info.ModTime()}
	fh.SetMode(info.Mode())
	w, err := zw.CreateHeader(fh)
	if err != nil {
		return 0, errors.Errorf("creating entry: %w", err)
	}

	label := "stored"
	if method == zip.Deflate {
		label = "deflated"
	}

	r := bufio.NewReaderSize(in, len(buf))
	if isContainer {
		head, _ := r.Peek(HeadSize)
		kind := SniffContainer(head)
		if kind == ContainerPlain {
			label = "zstd"
			if err := compressZstd(w, r, buf); err != nil {
				return 0, err
			}
		} else {
			label = "stored " + kind.String()
			if _, err := io.CopyBuffer(w, r, buf); err != nil {
				return 0, errors.Errorf("copying %s: %w", it.Src, err)
			}
		}
	} else if _, err := io.CopyBuffer(w, r, buf); err != nil {
		return 0, errors.Errorf("copying %s: %w", it.Src, err)
	}

	ev := zerolog.Ctx(ctx).Debug()
	if aw.opts.Verbose {
		ev = zerolog.Ctx(ctx).Info()
	}
	ev.Str("progress", progress.FormatProgress(idx, total)).
		Str("entry", progress.ShortenMiddle(name)).
		Str("size", progress.HumanBytes(info.Size())).
		Str("method", label).
		Msg("zipping")

	in.Close()
	return info.Size(), aw.finishMove(it)
}

func compressZstd(w io.Writer, r io.Reader, buf []byte) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return errors.Errorf("creating zstd encoder: %w", err)
	}
	if _, err := io.CopyBuffer(enc, r, buf); err != nil {
		enc.Close()
		return errors.Errorf("compressing document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return errors.Errorf("finishing zstd stream: %w", err)
	}
	return nil
}

func (aw *ArchiveWriter) finishMove(it Item) error {
	if it.Action != Move {
		return nil
	}
	if err := os.RemoveAll(it.Src); err != nil {
		return errors.Errorf("removing moved source: %w", err)
	}
	return nil
}
