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

package pathid

import (
	"strings"
)

var cloudMarkers = []string{
	"/library/cloudstorage/",
	"/dropbox",
	"/onedrive",
	"/icloud",
	"/mobile documents/",
	"/google drive/",
	"googledrive",
	"/my drive/",
}

// ☁️ LooksLikeCloudStorage reports whether p sits in a cloud-synced folder
func LooksLikeCloudStorage(p string) bool {
	s := strings.ToLower(strings.ReplaceAll(p, `\`, "/"))
	for _, marker := range cloudMarkers {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// 💡 PermissionHint is the remediation text shown when macOS blocks file access
func PermissionHint(p string, err string) string {
	lines := []string{
		"macOS blocked file access.",
		"Fix:",
		"  • System Settings → Privacy & Security → Full Disk Access",
		"  • Enable the app running this pack (your terminal if you see a console window).",
	}
	if LooksLikeCloudStorage(p) {
		lines = append(lines,
			"",
			"Cloud storage note:",
			"  • This file is in a cloud-synced folder.",
			"  • Make sure it is downloaded / available offline, then retry.",
		)
	}
	lines = append(lines, "", "Technical: "+err)
	return strings.Join(lines, "\n")
}
