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
	"maps"
	"sync"

	"github.com/walteh/batpack/pkg/pathid"
	"github.com/walteh/batpack/pkg/progress"
)

// 📋 DryRun records what would be transferred without touching the filesystem
type DryRun struct {
	mu      sync.Mutex
	files   map[string]string
	order   []string
	count   int
	aborted bool
}

var (
	_ Transferer = (*DryRun)(nil)
	_ Recorder   = (*DryRun)(nil)
)

// 🏗️ NewDryRun creates an empty recorder
func NewDryRun() *DryRun {
	return &DryRun{files: make(map[string]string)}
}

func (d *DryRun) record(src, dst string, counted bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.aborted {
		return
	}
	key := pathid.NFC(src)
	if _, ok := d.files[key]; !ok {
		d.order = append(d.order, key)
	}
	d.files[key] = pathid.NFC(dst)
	if counted {
		d.count++
	}
}

func (d *DryRun) Start(context.Context)     {}
func (d *DryRun) QueueCopy(src, dst string) { d.record(src, dst, true) }
func (d *DryRun) QueueMove(src, dst string) { d.record(src, dst, true) }

// Record notes src without counting it as a transfer
func (d *DryRun) Record(src, dst string) { d.record(src, dst, false) }

func (d *DryRun) DoneAndJoin() error { return nil }
func (d *DryRun) AbortAndJoin()      { d.Abort() }

func (d *DryRun) Abort() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.aborted = true
}

func (d *DryRun) HasError() bool                { return false }
func (d *DryRun) ErrorMessage() string          { return "" }
func (d *DryRun) SetProgress(progress.Callback) {}

// Files returns a copy of the recorded src -> dst map
func (d *DryRun) Files() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return maps.Clone(d.files)
}

// Sources returns the recorded sources in first-seen order
func (d *DryRun) Sources() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.order...)
}

// Count is the number of queued (not merely recorded) transfers
func (d *DryRun) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.count
}
