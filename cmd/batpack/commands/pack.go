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

package commands

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/batpack/cmd/batpack/opts"
	"github.com/walteh/batpack/pkg/config"
	"github.com/walteh/batpack/pkg/container/jsondoc"
	"github.com/walteh/batpack/pkg/pack"
	"github.com/walteh/batpack/pkg/pathid"
	"github.com/walteh/batpack/pkg/progress"
	"github.com/walteh/batpack/pkg/trace"
	"gitlab.com/tozd/go/errors"
)

type packFlags struct {
	project      string
	exclude      []string
	deps         string
	archive      bool
	planOnly     bool
	relativeOnly bool
	forceRewrite bool
	verbose      bool
}

// 📦 NewPackCmd creates the pack command
func NewPackCmd(root *opts.RootOpts) *cobra.Command {
	var f packFlags

	cmd := &cobra.Command{
		Use:   "pack [source] [target]",
		Short: "Pack a document and its dependencies",
		Long: `Pack traces the dependencies of a document and copies them into target.
It will:
1. Trace every referenced file (or read a --deps manifest)
2. Mirror files inside the project, move the rest below _outside_project/
3. Patch references in documents that would otherwise break
4. Copy everything into a directory, or a zip file with --archive`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "pack").Logger().WithContext(cmd.Context())

			cfg, err := loadConfig(ctx, root.ConfigFile)
			if err != nil {
				return err
			}
			applyPackFlags(cmd, cfg, f, args)
			config.ApplyEnv(ctx, cfg)
			if err := cfg.Validate(); err != nil {
				return errors.Errorf("validating config: %w", err)
			}

			zerolog.Ctx(ctx).Debug().Str("config", cfg.String()).Msg("packing")
			return runPack(ctx, cmd.OutOrStdout(), cfg, f.verbose)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.project, "project", "p", "", "project root (default: directory of source)")
	flags.StringSliceVarP(&f.exclude, "exclude", "e", nil, "glob of files to leave out (repeatable)")
	flags.StringVar(&f.deps, "deps", "", "pre-traced usage manifest to use instead of tracing")
	flags.BoolVarP(&f.archive, "archive", "z", false, "write a zip file instead of a directory")
	flags.BoolVarP(&f.planOnly, "plan-only", "n", false, "only show what would be packed")
	flags.BoolVar(&f.relativeOnly, "relative-only", false, "only pack files referenced by relative paths")
	flags.BoolVar(&f.forceRewrite, "force-rewrite", false, "rewrite documents even with --plan-only")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "print one line per file")

	return cmd
}

func loadConfig(ctx context.Context, path string) (*config.Config, error) {
	if path == "" {
		return config.Defaults(), nil
	}
	cfg, err := config.Load(ctx, path)
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// applyPackFlags lets arguments and explicitly set flags override the config file
func applyPackFlags(cmd *cobra.Command, cfg *config.Config, f packFlags, args []string) {
	if len(args) > 0 {
		cfg.Pack.Source = args[0]
	}
	if len(args) > 1 {
		cfg.Pack.Target = args[1]
	}

	changed := cmd.Flags().Changed
	if changed("project") {
		cfg.Pack.Project = f.project
	}
	if changed("exclude") {
		cfg.Pack.Exclude = append(cfg.Pack.Exclude, f.exclude...)
	}
	if changed("deps") {
		cfg.Pack.Deps = f.deps
	}
	if changed("archive") {
		cfg.Pack.Archive = f.archive
	}
	if changed("plan-only") {
		cfg.Pack.PlanOnly = f.planOnly
	}
	if changed("relative-only") {
		cfg.Pack.RelativeOnly = f.relativeOnly
	}
	if changed("force-rewrite") {
		cfg.Pack.ForceRewrite = f.forceRewrite
	}
}

func runPack(ctx context.Context, out io.Writer, cfg *config.Config, verbose bool) error {
	logger := zerolog.Ctx(ctx)

	packOpts := pack.Options{
		PlanOnly:     cfg.Pack.PlanOnly,
		Archive:      cfg.Pack.Archive,
		RelativeOnly: cfg.Pack.RelativeOnly,
		ForceRewrite: cfg.Pack.ForceRewrite,
		Scanner:      jsondoc.Scanner{},
		Container:    jsondoc.Opener{},
		Zip:          cfg.Zip.Options(),
	}

	if cfg.Pack.Deps != "" {
		m, err := trace.LoadManifest(ctx, cfg.Pack.Deps)
		if err != nil {
			return errors.Errorf("loading dependency manifest: %w", err)
		}
		packOpts.PreTraced = append([]trace.Usage{}, m.Usages...)
	}

	p, err := pack.New(cfg.Pack.Source, cfg.Pack.Project, cfg.Pack.Target, packOpts)
	if err != nil {
		return errors.Errorf("creating packer: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn().Err(err).Msg("cleaning up")
		}
	}()

	if err := p.Exclude(cfg.Pack.Exclude...); err != nil {
		return errors.Errorf("registering excludes: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = cfg.Pack.Project
	}
	p.SetProgress(progress.NewConsole(ctx, out, cwd, verbose))

	if err := pack.NewRunner(logger, false).Run(ctx, p); err != nil {
		return errors.Errorf("packing %s: %w", cfg.Pack.Source, err)
	}

	if cfg.Pack.PlanOnly {
		printFileMap(out, cwd, p.FileMap())
	}
	return nil
}

func printFileMap(out io.Writer, cwd string, files map[string]string) {
	arrow := color.New(color.Faint).Sprint("→")
	for _, src := range slices.Sorted(maps.Keys(files)) {
		fmt.Fprintf(out, "    %s %s %s\n",
			pathid.ShortenPath(cwd, src),
			arrow,
			color.CyanString(pathid.ShortenPath(cwd, files[src])))
	}
}
