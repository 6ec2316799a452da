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

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/walteh/batpack/pkg/transfer"
	"gitlab.com/tozd/go/errors"
)

// 🔌 Parser is the interface for config parsers
type Parser interface {
	// 📝 Parse decodes data over the values already in cfg
	Parse(ctx context.Context, data []byte, cfg *Config) error

	// 🔍 CanParse checks if this parser can handle the given file
	CanParse(filename string) bool
}

var (
	// 🗺️ parsers is a list of available parsers
	parsers []Parser
)

// 📝 Register registers a parser
func Register(p Parser) {
	parsers = append(parsers, p)
}

// 🎯 GetParser returns a parser that can handle the given file
func GetParser(filename string) Parser {
	for _, p := range parsers {
		if p.CanParse(filename) {
			return p
		}
	}
	return nil
}

// 📦 Pack describes one pack job
type Pack struct {
	Source       string   `json:"source" yaml:"source"`
	Project      string   `json:"project,omitempty" yaml:"project,omitempty"`
	Target       string   `json:"target" yaml:"target"`
	Exclude      []string `json:"exclude,omitempty" yaml:"exclude,omitempty"`
	Deps         string   `json:"deps,omitempty" yaml:"deps,omitempty"`
	Archive      bool     `json:"archive,omitempty" yaml:"archive,omitempty"`
	PlanOnly     bool     `json:"plan_only,omitempty" yaml:"plan_only,omitempty"`
	RelativeOnly bool     `json:"relative_only,omitempty" yaml:"relative_only,omitempty"`
	ForceRewrite bool     `json:"force_rewrite,omitempty" yaml:"force_rewrite,omitempty"`
}

// 🗜️ Zip holds the archive tunables
type Zip struct {
	CompressLevel   int     `json:"compress_level" yaml:"compress_level"`
	IOBufSize       int     `json:"io_bufsize" yaml:"io_bufsize"`
	StoreBigFilesMB int     `json:"store_big_files_mb" yaml:"store_big_files_mb"`
	Verbose         bool    `json:"verbose" yaml:"verbose"`
	NoCompress      bool    `json:"no_compress" yaml:"no_compress"`
	PrintInterval   float64 `json:"print_interval" yaml:"print_interval"`
}

// 📚 Config represents the complete configuration
type Config struct {
	Pack Pack `json:"pack" yaml:"pack"`
	Zip  Zip  `json:"zip" yaml:"zip"`
}

const (
	minIOBufSize     = 64 * 1024
	minPrintInterval = 0.05
)

// 🏗️ Defaults returns a config with every tunable at its default
func Defaults() *Config {
	return &Config{
		Zip: Zip{
			CompressLevel:   1,
			IOBufSize:       1024 * 1024,
			StoreBigFilesMB: 256,
			PrintInterval:   0.2,
		},
	}
}

// 🎯 Load decodes the file at path over the defaults
func Load(ctx context.Context, path string) (*Config, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("path", path).Msg("loading configuration")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading config file: %w", err)
	}

	p := GetParser(path)
	if p == nil {
		return nil, errors.Errorf("no parser found for file: %s", path)
	}

	cfg := Defaults()
	if err := p.Parse(ctx, data, cfg); err != nil {
		return nil, errors.Errorf("parsing config: %w", err)
	}

	// relative paths in a config file are relative to the file
	base := filepath.Dir(path)
	cfg.Pack.Source = relativeTo(base, cfg.Pack.Source)
	cfg.Pack.Project = relativeTo(base, cfg.Pack.Project)
	cfg.Pack.Target = relativeTo(base, cfg.Pack.Target)
	cfg.Pack.Deps = relativeTo(base, cfg.Pack.Deps)

	return cfg, nil
}

func relativeTo(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// 🔍 Validate checks required fields, cleans paths and clamps tunables
func (cfg *Config) Validate() error {
	if cfg.Pack.Source == "" {
		return errors.Errorf("pack.source is required")
	}
	if cfg.Pack.Target == "" {
		return errors.Errorf("pack.target is required")
	}

	cfg.Pack.Source = filepath.Clean(cfg.Pack.Source)
	cfg.Pack.Target = filepath.Clean(cfg.Pack.Target)
	if cfg.Pack.Project == "" {
		cfg.Pack.Project = filepath.Dir(cfg.Pack.Source)
	}
	cfg.Pack.Project = filepath.Clean(cfg.Pack.Project)
	if cfg.Pack.Deps != "" {
		cfg.Pack.Deps = filepath.Clean(cfg.Pack.Deps)
	}

	cfg.Zip.clamp()
	return nil
}

func (z *Zip) clamp() {
	z.CompressLevel = max(0, min(z.CompressLevel, 9))
	z.IOBufSize = max(minIOBufSize, z.IOBufSize)
	z.StoreBigFilesMB = max(0, z.StoreBigFilesMB)
	z.PrintInterval = max(minPrintInterval, z.PrintInterval)
}

// 🗜️ Options converts the tunables for the archive writer
func (z Zip) Options() transfer.ZipOptions {
	z.clamp()
	return transfer.ZipOptions{
		CompressLevel: z.CompressLevel,
		BufSize:       z.IOBufSize,
		StoreBigFiles: int64(z.StoreBigFilesMB) * 1024 * 1024,
		Verbose:       z.Verbose,
		NoCompress:    z.NoCompress,
		PrintInterval: time.Duration(z.PrintInterval * float64(time.Second)),
	}
}

// 📝 String returns a string representation of the config
func (cfg *Config) String() string {
	mode := "directory"
	if cfg.Pack.Archive {
		mode = "zip"
	}
	if cfg.Pack.PlanOnly {
		mode += ", plan only"
	}
	return fmt.Sprintf("%s (project %s) -> %s [%s]", cfg.Pack.Source, cfg.Pack.Project, cfg.Pack.Target, mode)
}
