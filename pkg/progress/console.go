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
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/pterm/pterm"
	"github.com/rs/zerolog"
	"github.com/walteh/batpack/pkg/pathid"
)

// 📢 Console reports pack progress to a terminal and to zerolog
type Console struct {
	log     zerolog.Logger
	out     io.Writer
	cwd     string
	verbose bool

	traced      int
	missing     int
	rewritten   int
	transferred int
	skipped     int
}

var _ Callback = (*Console)(nil)

// 🏭 NewConsole creates a console reporter. Per-file lines are only printed when verbose.
func NewConsole(ctx context.Context, out io.Writer, cwd string, verbose bool) *Console {
	return &Console{
		log:     *zerolog.Ctx(ctx),
		out:     out,
		cwd:     cwd,
		verbose: verbose,
	}
}

func (c *Console) printer(p pterm.PrefixPrinter, prefix string) *pterm.PrefixPrinter {
	return p.WithPrefix(pterm.Prefix{Text: prefix}).WithWriter(c.out)
}

func (c *Console) fileLine(path string, kind FileKind) {
	if !c.verbose {
		return
	}
	fmt.Fprintln(c.out, FormatFileOperation(pathid.ShortenPath(c.cwd, path), kind))
}

func (c *Console) PackStart() {
	c.printer(pterm.Info, "📦").Println("Tracing dependencies")
	c.log.Info().Msg("pack started")
}

func (c *Console) TraceAsset(path string) {
	c.traced++
	c.fileLine(path, FileTraced)
	c.log.Debug().Str("path", path).Msg("traced asset")
}

func (c *Console) MissingFile(path string) {
	c.missing++
	c.fileLine(path, FileMissing)
	c.printer(pterm.Warning, "⚠️").Println("Missing or unreadable: " + pathid.ShortenPath(c.cwd, path))
	c.log.Warn().Str("path", path).Msg("missing file")
}

func (c *Console) RewriteBlendfile(path string) {
	c.rewritten++
	c.fileLine(path, FileRewritten)
	c.log.Info().Str("path", path).Msg("rewrote document")
}

func (c *Console) TransferFile(src, dst string) {
	c.transferred++
	c.fileLine(dst, FileTransferred)
	c.log.Debug().Str("src", src).Str("dst", dst).Msg("transferred file")
}

func (c *Console) TransferFileSkipped(src, dst string) {
	c.skipped++
	c.fileLine(dst, FileSkipped)
	c.log.Debug().Str("src", src).Str("dst", dst).Msg("destination up to date")
}

func (c *Console) PackDone(outputPath string, notIncluded []string) {
	sorted := append([]string(nil), notIncluded...)
	sort.Strings(sorted)

	summary := fmt.Sprintf("Packed %d files (%d unchanged, %d documents rewritten) → %s",
		c.transferred, c.skipped, c.rewritten, outputPath)
	c.printer(pterm.Success, "✅").Println(summary)
	c.log.Info().
		Int("traced", c.traced).
		Int("transferred", c.transferred).
		Int("skipped", c.skipped).
		Int("rewritten", c.rewritten).
		Int("not_included", len(sorted)).
		Str("output", outputPath).
		Msg("pack done")

	if len(sorted) == 0 {
		return
	}
	warn := c.printer(pterm.Warning, "⚠️")
	warn.Println(fmt.Sprintf("%d files were not included:", len(sorted)))
	for _, path := range sorted {
		fmt.Fprintln(c.out, FormatFileOperation(pathid.ShortenPath(c.cwd, path), FileMissing))
	}
}

func (c *Console) PackAborted(reason string) {
	c.printer(pterm.Error, "❌").Println("Pack aborted: " + reason)
	c.log.Error().Str("reason", reason).Msg("pack aborted")
}
