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
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// 🎨 Display configuration
const (
	fileIndent   = 4  // spaces to indent file entries
	nameWidth    = 48 // Base width for filename
	statusWidth  = 12 // Width for status text
	maxShortened = 64
)

// FileKind is the kind of event a file line reports
type FileKind int

const (
	FileTraced FileKind = iota
	FileMissing
	FileRewritten
	FileTransferred
	FileSkipped
)

// 🎯 FormatFileOperation formats one per-file line for the console
func FormatFileOperation(path string, kind FileKind) string {
	var prefix, status string
	switch kind {
	case FileMissing:
		prefix, status = color.RedString("✗"), "missing"
	case FileRewritten:
		prefix, status = color.BlueString("⟳"), "rewritten"
	case FileTransferred:
		prefix, status = color.GreenString("✓"), "packed"
	case FileSkipped:
		prefix, status = color.HiBlackString("-"), "unchanged"
	default:
		prefix, status = color.CyanString("•"), "traced"
	}

	return fmt.Sprintf("%s%s %s %s",
		strings.Repeat(" ", fileIndent),
		prefix,
		fmt.Sprintf("%-*s", nameWidth, ShortenMiddle(path)),
		fmt.Sprintf("%-*s", statusWidth, status),
	)
}

// FormatProgress formats a progress message with percentage
func FormatProgress(current, total int) string {
	var percentage float64
	if total == 0 {
		if current > 0 {
			percentage = 100
		}
	} else {
		percentage = float64(current) / float64(total) * 100
	}

	if current >= total {
		return fmt.Sprintf("✅ Progress: %d/%d (%.0f%%)", current, total, percentage)
	}
	return fmt.Sprintf("⏳ Progress: %d/%d (%.0f%%)", current, total, percentage)
}

// ✂️ ShortenMiddle keeps both ends of long paths, joined by "..."
func ShortenMiddle(path string) string {
	if len(path) <= maxShortened {
		return path
	}
	const dots = "..."
	keep := maxShortened - len(dots)
	left := keep / 2
	right := keep - left
	return path[:left] + dots + path[len(path)-right:]
}

// 📏 HumanBytes renders n in binary units
func HumanBytes(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	x := float64(n)
	units := []string{"KiB", "MiB", "GiB", "TiB"}
	for i, unit := range units {
		x /= 1024.0
		if x < 1024.0 || i == len(units)-1 {
			return fmt.Sprintf("%.1f %s", x, unit)
		}
	}
	return fmt.Sprintf("%.1f TiB", x)
}
