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

// Package pathid gives paths a stable, cross-platform identity: NFC form,
// drive/volume/UNC awareness, and collision-safe keys for files that live
// outside the project root.
package pathid

import (
	"path"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// 📁 OutsideProjectDir is the subtree of the target root holding out-of-root assets
const OutsideProjectDir = "_outside_project"

// BlendRelPrefix marks a reference relative to the document holding it
const BlendRelPrefix = "//"

var winDriveRe = regexp.MustCompile(`^[A-Za-z]:[\\/]+`)

// 🔤 NFC returns the NFC form of s. Applying it twice is a no-op.
func NFC(s string) string {
	return norm.NFC.String(s)
}

// 🔍 IsWindowsLike reports whether p is a drive-letter or UNC path, whatever the host OS
func IsWindowsLike(p string) bool {
	raw := strings.ReplaceAll(p, `\`, "/")
	return winDriveRe.MatchString(raw) || strings.HasPrefix(raw, "//")
}

// 📍 MakeAbsolute returns a cleaned absolute path.
//
// Drive-letter and UNC strings are cleaned lexically on non-Windows hosts and
// never joined with the working directory.
func MakeAbsolute(p string) string {
	if runtime.GOOS != "windows" && IsWindowsLike(p) {
		return cleanWindowsLike(p)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return filepath.Clean(p)
	}
	return abs
}

func cleanWindowsLike(p string) string {
	raw := strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(raw, "//") {
		return "/" + path.Clean("/"+strings.TrimLeft(raw, "/"))
	}
	drive := strings.ToUpper(raw[:1])
	return drive + ":" + path.Clean("/"+raw[2:])
}

// 🔑 Key is the identity used for plan lookups: absolute, cleaned, NFC
func Key(p string) string {
	return NFC(MakeAbsolute(p))
}

// volume returns the drive ("C:") or UNC share ("//server/share") of a slash path
func volume(slashed string) string {
	if winDriveRe.MatchString(slashed) {
		return strings.ToUpper(slashed[:2])
	}
	if strings.HasPrefix(slashed, "//") {
		parts := splitNonEmpty(slashed)
		if len(parts) >= 2 {
			return strings.ToLower("//" + parts[0] + "/" + parts[1])
		}
		return strings.ToLower(slashed)
	}
	return ""
}

// 🏠 RelToProject returns the slash-separated position of p inside project
func RelToProject(p, project string) (string, bool) {
	a := filepath.ToSlash(Key(p))
	b := filepath.ToSlash(Key(project))
	if volume(a) != volume(b) {
		return "", false
	}
	if a == b {
		return ".", true
	}
	prefix := strings.TrimSuffix(b, "/") + "/"
	if !strings.HasPrefix(a, prefix) {
		return "", false
	}
	return strings.TrimPrefix(a, prefix), true
}

// 🏠 InProject reports whether p is physically inside project (or is project itself)
func InProject(p, project string) bool {
	_, ok := RelToProject(p, project)
	return ok
}

// 🚚 OutsideProjectRelPath returns a POSIX relative key for an out-of-root asset.
//
//	/Users/a/file            -> Users/a/file
//	C:\Users\a\file          -> C/Users/a/file
//	\\server\share\dir\file  -> UNC/server/share/dir/file
func OutsideProjectRelPath(p string) string {
	raw := strings.ReplaceAll(p, `\`, "/")

	if strings.HasPrefix(raw, "//") {
		return joinNFC(append([]string{"UNC"}, splitNonEmpty(raw)...))
	}

	if winDriveRe.MatchString(raw) {
		drive := strings.ToUpper(raw[:1])
		return joinNFC(append([]string{drive}, splitNonEmpty(path.Clean("/"+raw[2:]))...))
	}

	abs := filepath.ToSlash(MakeAbsolute(p))
	if abs != raw && IsWindowsLike(abs) {
		return OutsideProjectRelPath(abs)
	}
	return joinNFC(splitNonEmpty(abs))
}

func splitNonEmpty(slashed string) []string {
	parts := strings.Split(slashed, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func joinNFC(parts []string) string {
	for i := range parts {
		parts[i] = NFC(parts[i])
	}
	return path.Join(parts...)
}

// 🔗 IsBlendRelative reports whether a stored reference is relative to its document
func IsBlendRelative(raw string) bool {
	return strings.HasPrefix(raw, BlendRelPrefix)
}

// 🔗 BlendRelative returns the "//"-prefixed slash path from the directory of
// doc to asset. When no relative path exists (different drives or shares) the
// absolute slash form of asset is returned.
func BlendRelative(asset, doc string) string {
	a := filepath.ToSlash(asset)
	d := filepath.ToSlash(doc)
	if volume(a) != volume(d) {
		return a
	}

	docDir := path.Dir(d)
	if IsWindowsLike(a) && runtime.GOOS != "windows" {
		rel, ok := relSlash(docDir, a)
		if !ok {
			return a
		}
		return BlendRelPrefix + rel
	}

	rel, err := filepath.Rel(filepath.FromSlash(docDir), filepath.FromSlash(a))
	if err != nil {
		return a
	}
	return BlendRelPrefix + filepath.ToSlash(rel)
}

// relSlash is a lexical Rel for slash paths sharing a volume
func relSlash(base, target string) (string, bool) {
	bp := splitNonEmpty(base)
	tp := splitNonEmpty(target)
	if len(bp) == 0 || len(tp) == 0 || !strings.EqualFold(bp[0], tp[0]) {
		return "", false
	}
	i := 0
	for i < len(bp) && i < len(tp) && bp[i] == tp[i] {
		i++
	}
	rel := make([]string, 0, len(bp)-i+len(tp)-i)
	for j := i; j < len(bp); j++ {
		rel = append(rel, "..")
	}
	rel = append(rel, tp[i:]...)
	if len(rel) == 0 {
		return ".", true
	}
	return strings.Join(rel, "/"), true
}

// ✂️ ShortenPath returns p relative to cwd when p lies below it
func ShortenPath(cwd, p string) string {
	if rel, ok := RelToProject(p, cwd); ok && rel != "." {
		return rel
	}
	return p
}
