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

package main

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"slices"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// engineModules are the libraries whose versions decide what a pack looks like
var engineModules = []string{
	"github.com/klauspost/compress",
	"github.com/bmatcuk/doublestar/v4",
	"golang.org/x/text",
}

// 🏷️ BuildInfo describes the running batpack binary
type BuildInfo struct {
	Version  string
	Revision string
	Dirty    bool
	Go       string
	Platform string
	CGO      bool
	// Engine maps engine module paths to their linked version
	Engine map[string]string
}

// 🔍 ReadBuildInfo reads the running binary's build settings
func ReadBuildInfo() BuildInfo {
	bi, _ := debug.ReadBuildInfo()
	return buildInfoFrom(bi)
}

func buildInfoFrom(bi *debug.BuildInfo) BuildInfo {
	info := BuildInfo{
		Version:  "dev",
		Go:       runtime.Version(),
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
		Engine:   make(map[string]string, len(engineModules)),
	}
	if bi == nil {
		return info
	}

	if bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		info.Version = bi.Main.Version
	}
	if bi.GoVersion != "" {
		info.Go = bi.GoVersion
	}

	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			info.Revision = s.Value
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		case "CGO_ENABLED":
			info.CGO = s.Value == "1"
		}
	}

	for _, dep := range bi.Deps {
		if !slices.Contains(engineModules, dep.Path) {
			continue
		}
		if dep.Replace != nil {
			dep = dep.Replace
		}
		info.Engine[dep.Path] = dep.Version
	}
	return info
}

// 📝 Rows lays the build info out as a two column table
func (b BuildInfo) Rows() [][]string {
	revision := b.Revision
	if revision == "" {
		revision = "unknown"
	}
	if b.Dirty {
		revision += " (dirty)"
	}

	rows := [][]string{
		{"batpack", b.Version},
		{"revision", revision},
		{"go", b.Go},
		{"platform", b.Platform},
		{"cgo", fmt.Sprint(b.CGO)},
	}
	for _, mod := range engineModules {
		v, ok := b.Engine[mod]
		if !ok {
			v = "not linked"
		}
		rows = append(rows, []string{mod, v})
	}
	return rows
}

func newVersionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build and engine library versions",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := ReadBuildInfo()
			if short {
				fmt.Fprintln(cmd.OutOrStdout(), info.Version)
				return nil
			}

			table, err := pterm.DefaultTable.WithData(info.Rows()).Srender()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "print only the version")

	return cmd
}
