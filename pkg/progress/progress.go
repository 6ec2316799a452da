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

package progress

import (
	"sync"
)

// 📈 Callback receives progress reports from a pack run.
// All calls are fire-and-forget.
type Callback interface {
	// PackStart is called once, when planning begins
	PackStart()
	// TraceAsset is called for every asset the planner accepts
	TraceAsset(path string)
	// MissingFile is called once per missing or unreadable asset
	MissingFile(path string)
	// RewriteBlendfile is called when a document was actually patched
	RewriteBlendfile(path string)
	// TransferFile is called when a file lands at its destination
	TransferFile(src, dst string)
	// TransferFileSkipped is called when the destination was already up to date
	TransferFileSkipped(src, dst string)
	// PackDone is called after a completed execute
	PackDone(outputPath string, notIncluded []string)
	// PackAborted is called when the run was aborted
	PackAborted(reason string)
}

// 🙈 Nop ignores everything. Embed it to implement only some methods.
type Nop struct{}

var _ Callback = Nop{}

func (Nop) PackStart()                          {}
func (Nop) TraceAsset(path string)              {}
func (Nop) MissingFile(path string)             {}
func (Nop) RewriteBlendfile(path string)        {}
func (Nop) TransferFile(src, dst string)        {}
func (Nop) TransferFileSkipped(src, dst string) {}
func (Nop) PackDone(string, []string)           {}
func (Nop) PackAborted(reason string)           {}

// 🔒 ThreadSafe buffers calls made from worker goroutines.
//
// Calls are queued and replayed in order on whichever goroutine calls Flush,
// so the wrapped Callback never sees concurrent calls.
type ThreadSafe struct {
	wrapped Callback

	mu      sync.Mutex
	pending []func(Callback)
	flushMu sync.Mutex
}

var _ Callback = (*ThreadSafe)(nil)

// 🏭 NewThreadSafe wraps cb
func NewThreadSafe(cb Callback) *ThreadSafe {
	if cb == nil {
		cb = Nop{}
	}
	return &ThreadSafe{wrapped: cb}
}

// Wrapped returns the callback calls are replayed on
func (ts *ThreadSafe) Wrapped() Callback {
	return ts.wrapped
}

func (ts *ThreadSafe) enqueue(call func(Callback)) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	ts.pending = append(ts.pending, call)
}

// 🚿 Flush replays all buffered calls on the calling goroutine
func (ts *ThreadSafe) Flush() {
	ts.flushMu.Lock()
	defer ts.flushMu.Unlock()

	ts.mu.Lock()
	calls := ts.pending
	ts.pending = nil
	ts.mu.Unlock()

	for _, call := range calls {
		call(ts.wrapped)
	}
}

func (ts *ThreadSafe) PackStart() {
	ts.enqueue(func(cb Callback) { cb.PackStart() })
}

func (ts *ThreadSafe) TraceAsset(path string) {
	ts.enqueue(func(cb Callback) { cb.TraceAsset(path) })
}

func (ts *ThreadSafe) MissingFile(path string) {
	ts.enqueue(func(cb Callback) { cb.MissingFile(path) })
}

func (ts *ThreadSafe) RewriteBlendfile(path string) {
	ts.enqueue(func(cb Callback) { cb.RewriteBlendfile(path) })
}

func (ts *ThreadSafe) TransferFile(src, dst string) {
	ts.enqueue(func(cb Callback) { cb.TransferFile(src, dst) })
}

func (ts *ThreadSafe) TransferFileSkipped(src, dst string) {
	ts.enqueue(func(cb Callback) { cb.TransferFileSkipped(src, dst) })
}

func (ts *ThreadSafe) PackDone(outputPath string, notIncluded []string) {
	ts.enqueue(func(cb Callback) { cb.PackDone(outputPath, notIncluded) })
}

func (ts *ThreadSafe) PackAborted(reason string) {
	ts.enqueue(func(cb Callback) { cb.PackAborted(reason) })
}
