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
	"iter"
	"maps"
	"slices"

	"github.com/walteh/batpack/pkg/pathid"
	"github.com/walteh/batpack/pkg/trace"
)

// 🧭 PathAction says whether references to an asset survive packing untouched
type PathAction int

const (
	// KeepPath means the stored reference stays valid as-is
	KeepPath PathAction = iota
	// FindNewLocation means the asset moves and referencing documents are patched
	FindNewLocation
)

func (a PathAction) String() string {
	if a == FindNewLocation {
		return "find-new-location"
	}
	return "keep-path"
}

// 📦 AssetAction is the plan for one distinct asset
type AssetAction struct {
	// Path is the absolute on-disk spelling used for I/O
	Path       string
	PathAction PathAction
	// Usages are all references to this asset
	Usages []trace.Usage
	// NewPath is the destination; empty until resolved
	NewPath string
	// ReadFrom is the patched temporary copy to move instead of Path
	ReadFrom string
	// Rewrites are the references this asset, as a document, must patch
	Rewrites []trace.Usage

	extra map[string]struct{}
}

func (a *AssetAction) addExtra(paths ...string) {
	if a.extra == nil {
		a.extra = make(map[string]struct{}, len(paths))
	}
	for _, p := range paths {
		a.extra[p] = struct{}{}
	}
}

// ExtraFiles returns the sibling files carried next to the asset, sorted
func (a *AssetAction) ExtraFiles() []string {
	return slices.Sorted(maps.Keys(a.extra))
}

// IsSequence reports whether any reference treats the asset as a sequence
func (a *AssetAction) IsSequence() bool {
	return slices.ContainsFunc(a.Usages, func(u trace.Usage) bool { return u.IsSequence })
}

// plan maps asset identity to its action and remembers insertion order
type plan struct {
	actions map[string]*AssetAction
	order   []string
}

func newPlan() *plan {
	return &plan{actions: make(map[string]*AssetAction)}
}

func (p *plan) get(path string) (*AssetAction, bool) {
	act, ok := p.actions[pathid.Key(path)]
	return act, ok
}

// getOrInsert returns the action for path, creating a KeepPath entry on
// first reference. inserted reports whether the entry is new.
func (p *plan) getOrInsert(path string) (act *AssetAction, inserted bool) {
	key := pathid.Key(path)
	if act, ok := p.actions[key]; ok {
		return act, false
	}
	act = &AssetAction{Path: pathid.MakeAbsolute(path), PathAction: KeepPath}
	p.actions[key] = act
	p.order = append(p.order, key)
	return act, true
}

func (p *plan) len() int {
	return len(p.order)
}

// all yields actions in insertion order
func (p *plan) all() iter.Seq2[string, *AssetAction] {
	return func(yield func(string, *AssetAction) bool) {
		for _, key := range p.order {
			if !yield(key, p.actions[key]) {
				return
			}
		}
	}
}
