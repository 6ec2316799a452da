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

// Package transfer moves planned files to their destination: a directory tree,
// a zip archive, or (in plan-only mode) an in-memory record.
package transfer

import (
	"context"
	"sync"

	"github.com/walteh/batpack/pkg/progress"
	"gitlab.com/tozd/go/errors"
)

// DefaultCapacity bounds the number of queued, not yet transferred items
const DefaultCapacity = 100

// 🚚 Action is what happens to the source once it reached its destination
type Action int

const (
	Copy Action = iota
	Move
)

func (a Action) String() string {
	if a == Move {
		return "move"
	}
	return "copy"
}

// 📄 Item is one queued transfer
type Item struct {
	Src    string
	Dst    string
	Action Action
}

// 🚚 Transferer is a backend draining queued transfers
type Transferer interface {
	// Start launches the backend; items may be queued afterwards
	Start(ctx context.Context)
	// QueueCopy and QueueMove block while the queue is full and return
	// immediately once the backend is aborted
	QueueCopy(src, dst string)
	QueueMove(src, dst string)
	// DoneAndJoin signals the end of the queue and waits for it to drain
	DoneAndJoin() error
	// AbortAndJoin stops the backend and waits for in-flight work
	AbortAndJoin()
	// Abort stops the backend without waiting; safe from any goroutine
	Abort()
	HasError() bool
	ErrorMessage() string
	SetProgress(cb progress.Callback)
}

// 📝 Recorder is implemented by backends that can note a file they will not
// transfer, so plan-only output still lists it
type Recorder interface {
	Record(src, dst string)
}

// queue is the shared producer/consumer half of every backend
type queue struct {
	items   chan Item
	aborted chan struct{}

	abortOnce sync.Once
	closeOnce sync.Once

	mu  sync.Mutex
	err error
	cb  progress.Callback
}

func newQueue(capacity int) queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return queue{
		items:   make(chan Item, capacity),
		aborted: make(chan struct{}),
	}
}

func (q *queue) enqueue(it Item) {
	if q.isAborted() {
		return
	}
	select {
	case q.items <- it:
	case <-q.aborted:
	}
}

func (q *queue) QueueCopy(src, dst string) {
	q.enqueue(Item{Src: src, Dst: dst, Action: Copy})
}

func (q *queue) QueueMove(src, dst string) {
	q.enqueue(Item{Src: src, Dst: dst, Action: Move})
}

func (q *queue) Abort() {
	q.abortOnce.Do(func() { close(q.aborted) })
}

func (q *queue) isAborted() bool {
	select {
	case <-q.aborted:
		return true
	default:
		return false
	}
}

// closeQueue ends the producer side; only the enqueueing goroutine calls it
func (q *queue) closeQueue() {
	q.closeOnce.Do(func() { close(q.items) })
}

// setError keeps the first error
func (q *queue) setError(err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err == nil {
		q.err = err
	}
}

func (q *queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

func (q *queue) HasError() bool {
	return q.Err() != nil
}

func (q *queue) ErrorMessage() string {
	if err := q.Err(); err != nil {
		return err.Error()
	}
	return ""
}

func (q *queue) SetProgress(cb progress.Callback) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.cb = cb
}

func (q *queue) progress() progress.Callback {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cb == nil {
		return progress.Nop{}
	}
	return q.cb
}

// ErrNotStarted is returned by DoneAndJoin on a backend that never started
var ErrNotStarted = errors.Base("transfer backend not started")
