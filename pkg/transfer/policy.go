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
	"bytes"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

// ContainerExt is the extension of documents that get the header sniffing treatment
const ContainerExt = ".blend"

// 🗜️ ZipOptions tunes the archive writer
type ZipOptions struct {
	// CompressLevel is the deflate level, 0..9
	CompressLevel int
	// BufSize is the copy buffer size in bytes
	BufSize int
	// StoreBigFiles stores files at or above this many bytes; 0 disables
	StoreBigFiles int64
	Verbose       bool
	NoCompress    bool
	PrintInterval time.Duration
}

// DefaultZipOptions favours speed over archive size
func DefaultZipOptions() ZipOptions {
	return ZipOptions{
		CompressLevel: 1,
		BufSize:       1 << 20,
		StoreBigFiles: 256 << 20,
		PrintInterval: 200 * time.Millisecond,
	}
}

// storeOnly lists formats that are already compressed
var storeOnly = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
	".exr": true,
	".mp4": true, ".mov": true, ".mkv": true, ".avi": true,
	".mp3": true, ".ogg": true, ".flac": true,
	".zip": true, ".rar": true, ".7z": true, ".gz": true, ".bz2": true, ".xz": true,
	".ktx2": true, ".dds": true,
	ContainerExt: true,
}

// 🗜️ ChooseMethod picks the zip method for a file of the given name and size
func ChooseMethod(opts ZipOptions, name string, size int64) uint16 {
	if opts.NoCompress || opts.CompressLevel == 0 {
		return zip.Store
	}
	if storeOnly[strings.ToLower(filepath.Ext(name))] {
		return zip.Store
	}
	if opts.StoreBigFiles > 0 && size >= opts.StoreBigFiles {
		return zip.Store
	}
	return zip.Deflate
}

// 🔍 ContainerKind is what the first bytes of a container document say about it
type ContainerKind int

const (
	// ContainerUnknown is stored as-is
	ContainerUnknown ContainerKind = iota
	// ContainerZstd is already zstd-compressed, stored as-is
	ContainerZstd
	// ContainerGzip is already gzip-compressed, stored as-is
	ContainerGzip
	// ContainerPlain is an uncompressed document, compressed with zstd by the writer
	ContainerPlain
)

var (
	zstdMagic   = []byte{0x28, 0xb5, 0x2f, 0xfd}
	gzipMagic   = []byte{0x1f, 0x8b}
	plainHeader = []byte("BLENDER")
)

// HeadSize is how many leading bytes SniffContainer needs
const HeadSize = 7

func (k ContainerKind) String() string {
	switch k {
	case ContainerZstd:
		return "zstd"
	case ContainerGzip:
		return "gzip"
	case ContainerPlain:
		return "plain"
	default:
		return "unknown"
	}
}

// 🔍 SniffContainer classifies a container document by its first bytes
func SniffContainer(head []byte) ContainerKind {
	switch {
	case bytes.HasPrefix(head, zstdMagic):
		return ContainerZstd
	case bytes.HasPrefix(head, gzipMagic):
		return ContainerGzip
	case bytes.HasPrefix(head, plainHeader):
		return ContainerPlain
	default:
		return ContainerUnknown
	}
}
