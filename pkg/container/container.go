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

// Package container is the contract for documents whose internal path fields
// can be patched. The packer never looks inside a document itself.
package container

import (
	"context"

	"gitlab.com/tozd/go/errors"
)

// ErrNoSuchBlock is returned by Dereference for an unknown block address
var ErrNoSuchBlock = errors.Base("no such block")

// 🔓 Opener opens documents
type Opener interface {
	Open(ctx context.Context, path string) (Handle, error)
}

// 📄 Handle is an open document
type Handle interface {
	// DuplicateTo copies the document to path and returns a handle bound to the copy
	DuplicateTo(ctx context.Context, path string) (Handle, error)
	// Dereference resolves a block address to a patchable block
	Dereference(block uint64) (Block, error)
	// IsModified reports whether any field was changed through this handle
	IsModified() bool
	// Close persists pending changes and releases the document
	Close() error
}

// 🧱 Block is one addressable record inside a document
type Block interface {
	Get(field string) (string, error)
	// Set writes value into field and returns the number of bytes written
	Set(field string, value string) (int, error)
}
