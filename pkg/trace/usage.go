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

// Package trace describes references from source documents to external assets
// and the scanners that discover them.
package trace

import (
	"context"
	"fmt"
	"iter"

	"github.com/walteh/batpack/pkg/pathid"
	"github.com/walteh/batpack/pkg/progress"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 🏷️ FieldKind tells which kind of field holds a reference
type FieldKind int

const (
	// FullPathField stores the complete path of the asset
	FullPathField FieldKind = iota
	// DirectoryField stores only the directory of the asset
	DirectoryField
)

func (k FieldKind) String() string {
	switch k {
	case DirectoryField:
		return "dir"
	default:
		return "file"
	}
}

func (k FieldKind) MarshalYAML() (any, error) {
	return k.String(), nil
}

func (k *FieldKind) UnmarshalYAML(node *yaml.Node) error {
	switch node.Value {
	case "", "file":
		*k = FullPathField
	case "dir":
		*k = DirectoryField
	default:
		return errors.Errorf("unknown field kind %q", node.Value)
	}
	return nil
}

// 📍 Locator names the field inside a document that holds a reference
type Locator struct {
	Block uint64    `yaml:"block"`
	Field string    `yaml:"field"`
	Kind  FieldKind `yaml:"kind"`
}

// 🔗 Usage is one reference from a source document to one asset
type Usage struct {
	// AssetPath is the path as stored in the document, possibly "//"-relative
	AssetPath string `yaml:"asset_path"`
	// AbsPath is the resolved absolute path (may be a glob for sequences)
	AbsPath    string `yaml:"abspath"`
	IsSequence bool   `yaml:"sequence,omitempty"`
	IsOptional bool   `yaml:"optional,omitempty"`
	// Document is the absolute path of the document holding the reference
	Document string  `yaml:"document"`
	Locator  Locator `yaml:"locator"`
}

// IsBlendRelative reports whether the stored reference is relative to its document
func (u Usage) IsBlendRelative() bool {
	return pathid.IsBlendRelative(u.AssetPath)
}

func (u Usage) String() string {
	return fmt.Sprintf("%s[%d].%s -> %s", u.Document, u.Locator.Block, u.Locator.Field, u.AssetPath)
}

// 🔍 Scanner walks a root document and yields one Usage per external reference.
// The sequence is lazy; scanning again means calling Scan again.
type Scanner interface {
	Scan(ctx context.Context, root string, cb progress.Callback) iter.Seq2[Usage, error]
}

// 📼 Static replays a pre-computed list of usages
type Static []Usage

var _ Scanner = Static(nil)

func (s Static) Scan(ctx context.Context, root string, cb progress.Callback) iter.Seq2[Usage, error] {
	return func(yield func(Usage, error) bool) {
		for _, u := range s {
			if err := ctx.Err(); err != nil {
				yield(Usage{}, err)
				return
			}
			if !yield(u, nil) {
				return
			}
		}
	}
}
