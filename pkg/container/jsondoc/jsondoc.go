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

// Package jsondoc is a document container stored as JSON block lists.
//
// Each block carries named string fields; some of them are references to
// external files, listed in the block's refs. It implements both the
// container contract (patching) and a dependency scanner, which makes it
// usable end to end without any proprietary format.
package jsondoc

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/walteh/batpack/pkg/container"
	"gitlab.com/tozd/go/errors"
)

// DefaultExt is the extension of jsondoc documents
const DefaultExt = ".jdoc"

// 📄 Document is the on-disk form
type Document struct {
	Version int          `json:"version"`
	Blocks  []*BlockData `json:"blocks"`
}

// 🧱 BlockData is one block
type BlockData struct {
	Addr   uint64            `json:"addr"`
	Code   string            `json:"code"`
	Name   string            `json:"name,omitempty"`
	Fields map[string]string `json:"fields"`
	Refs   []Ref             `json:"refs,omitempty"`
}

// 🔗 Ref marks a field as a reference to an external file
type Ref struct {
	Field    string `json:"field"`
	Kind     string `json:"kind,omitempty"` // "file" (default) or "dir"
	Sequence bool   `json:"sequence,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// 💾 Read parses a document from disk
func Read(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Errorf("parsing document %s: %w", path, err)
	}
	return &doc, nil
}

// 💾 Write stores a document on disk
func Write(path string, doc *Document) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return errors.Errorf("encoding document: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Errorf("writing document: %w", err)
	}
	return nil
}

// 🔓 Opener opens jsondoc documents
type Opener struct{}

var _ container.Opener = Opener{}

func (Opener) Open(ctx context.Context, path string) (container.Handle, error) {
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("opening document")
	doc, err := Read(path)
	if err != nil {
		return nil, err
	}
	return &handle{path: path, doc: doc}, nil
}

type handle struct {
	path     string
	doc      *Document
	modified bool
	closed   bool
}

var _ container.Handle = (*handle)(nil)

func (h *handle) DuplicateTo(ctx context.Context, path string) (container.Handle, error) {
	zerolog.Ctx(ctx).Debug().Str("from", h.path).Str("to", path).Msg("duplicating document")

	data, err := os.ReadFile(h.path)
	if err != nil {
		return nil, errors.Errorf("reading document: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, errors.Errorf("writing duplicate: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Errorf("parsing duplicate: %w", err)
	}
	return &handle{path: path, doc: &doc}, nil
}

func (h *handle) Dereference(addr uint64) (container.Block, error) {
	for _, b := range h.doc.Blocks {
		if b.Addr == addr {
			return &block{h: h, data: b}, nil
		}
	}
	return nil, errors.Errorf("block %#x in %s: %w", addr, filepath.Base(h.path), container.ErrNoSuchBlock)
}

func (h *handle) IsModified() bool {
	return h.modified
}

func (h *handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if !h.modified {
		return nil
	}
	return Write(h.path, h.doc)
}

type block struct {
	h    *handle
	data *BlockData
}

func (b *block) Get(field string) (string, error) {
	v, ok := b.data.Fields[field]
	if !ok {
		return "", errors.Errorf("block %#x has no field %q", b.data.Addr, field)
	}
	return v, nil
}

func (b *block) Set(field string, value string) (int, error) {
	if _, ok := b.data.Fields[field]; !ok {
		return 0, errors.Errorf("block %#x has no field %q", b.data.Addr, field)
	}
	b.data.Fields[field] = value
	b.h.modified = true
	return len(value), nil
}
