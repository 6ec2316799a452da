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

package progress_test

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/fatih/color"
	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/batpack/pkg/progress"
)

type recorder struct {
	progress.Nop
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) MissingFile(path string)      { r.add("missing:" + path) }
func (r *recorder) TransferFile(src, dst string) { r.add("transfer:" + src + "->" + dst) }
func (r *recorder) PackAborted(reason string)    { r.add("aborted:" + reason) }

func TestThreadSafeBuffersUntilFlush(t *testing.T) {
	rec := &recorder{}
	ts := progress.NewThreadSafe(rec)

	ts.MissingFile("/a")
	ts.TransferFile("/b", "/c")
	assert.Empty(t, rec.calls, "calls must be buffered")

	ts.Flush()
	assert.Equal(t, []string{"missing:/a", "transfer:/b->/c"}, rec.calls)

	ts.Flush()
	assert.Len(t, rec.calls, 2, "flush replays each call once")
}

func TestThreadSafeConcurrentProducers(t *testing.T) {
	rec := &recorder{}
	ts := progress.NewThreadSafe(rec)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				ts.TransferFile("src", "dst")
			}
		}()
	}
	wg.Wait()
	ts.Flush()
	assert.Len(t, rec.calls, 400)
}

func TestNewThreadSafeNil(t *testing.T) {
	ts := progress.NewThreadSafe(nil)
	ts.PackAborted("x")
	ts.Flush()
	assert.IsType(t, progress.Nop{}, ts.Wrapped())
}

func TestFormatProgress(t *testing.T) {
	assert.Equal(t, "⏳ Progress: 1/4 (25%)", progress.FormatProgress(1, 4))
	assert.Equal(t, "✅ Progress: 4/4 (100%)", progress.FormatProgress(4, 4))
	assert.Equal(t, "✅ Progress: 0/0 (0%)", progress.FormatProgress(0, 0))
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", progress.HumanBytes(512))
	assert.Equal(t, "1.0 KiB", progress.HumanBytes(1024))
	assert.Equal(t, "1.5 MiB", progress.HumanBytes(1536*1024))
	assert.Equal(t, "2048.0 TiB", progress.HumanBytes(2048<<40))
}

func TestShortenMiddle(t *testing.T) {
	short := "textures/wood.png"
	assert.Equal(t, short, progress.ShortenMiddle(short))

	long := strings.Repeat("a", 40) + "/" + strings.Repeat("b", 40)
	out := progress.ShortenMiddle(long)
	assert.Len(t, out, 64)
	assert.True(t, strings.HasPrefix(out, "aaaa"))
	assert.True(t, strings.HasSuffix(out, "bbbb"))
	assert.Contains(t, out, "...")
}

func TestConsoleSummary(t *testing.T) {
	color.NoColor = true
	pterm.DisableColor()

	var buf bytes.Buffer
	logger := zerolog.New(zerolog.NewTestWriter(t))
	ctx := logger.WithContext(context.Background())

	c := progress.NewConsole(ctx, &buf, "/proj", true)
	c.PackStart()
	c.TraceAsset("/proj/tex/wood.png")
	c.TransferFile("/proj/tex/wood.png", "/out/tex/wood.png")
	c.MissingFile("/proj/tex/gone.png")
	c.PackDone("/out/shot.blend", []string{"/proj/tex/gone.png"})

	out := buf.String()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "Packed 1 files")
	assert.Contains(t, out, "1 files were not included")
	assert.Contains(t, out, "tex/gone.png")
}
