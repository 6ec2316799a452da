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
	"context"
	"sync"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// InterruptedReason is the abort reason used when the context is cancelled
const InterruptedReason = "interrupted"

// 🏃 Runner drives a Packer through Strategise and Execute, turning context
// cancellation into Packer.Abort
type Runner struct {
	logger *zerolog.Logger
	async  bool
}

// 🏗️ NewRunner creates a new runner. An async runner returns as soon as the
// context is cancelled and the pack has unwound.
func NewRunner(logger *zerolog.Logger, async bool) *Runner {
	return &Runner{
		logger: logger,
		async:  async,
	}
}

// 🏃 Run plans and executes the pack
func (r *Runner) Run(ctx context.Context, p *Packer) error {
	stop := context.AfterFunc(ctx, func() {
		r.logger.Info().Msg("pack interrupted, aborting")
		p.Abort(InterruptedReason)
	})
	defer stop()

	if r.async {
		return r.runAsync(ctx, p)
	}
	return r.runSync(ctx, p)
}

// 🔄 runSync runs the pack on the calling goroutine
func (r *Runner) runSync(ctx context.Context, p *Packer) error {
	return run(ctx, p)
}

// ⚡ runAsync runs the pack on its own goroutine
func (r *Runner) runAsync(ctx context.Context, p *Packer) error {
	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		errCh <- run(ctx, p)
	}()

	select {
	case <-ctx.Done():
		// the abort is already on its way; wait for the pack to unwind
		wg.Wait()
		if err := <-errCh; err != nil {
			return err
		}
		return errors.Errorf("pack cancelled: %w", ctx.Err())
	case err := <-errCh:
		return err
	}
}

func run(ctx context.Context, p *Packer) error {
	if err := p.Strategise(ctx); err != nil {
		return errors.Errorf("strategising: %w", err)
	}
	if err := p.Execute(ctx); err != nil {
		return errors.Errorf("executing: %w", err)
	}
	return nil
}
