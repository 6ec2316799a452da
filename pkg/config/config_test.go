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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t))
	return logger.WithContext(context.Background())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		config      string
		wantErr     bool
		errContains string
		check       func(t *testing.T, dir string, cfg *Config)
	}{
		{
			name: "yaml_full",
			file: "pack.yaml",
			config: `
pack:
  source: scenes/shot.blend
  target: /out/shot.zip
  exclude:
    - "*.tmp"
  archive: true
  relative_only: true
zip:
  compress_level: 6
  no_compress: true
`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, filepath.Join(dir, "scenes", "shot.blend"), cfg.Pack.Source)
				assert.Equal(t, "/out/shot.zip", cfg.Pack.Target)
				assert.Equal(t, []string{"*.tmp"}, cfg.Pack.Exclude)
				assert.True(t, cfg.Pack.Archive)
				assert.True(t, cfg.Pack.RelativeOnly)
				assert.False(t, cfg.Pack.PlanOnly)
				assert.Equal(t, 6, cfg.Zip.CompressLevel)
				assert.True(t, cfg.Zip.NoCompress)
				assert.Equal(t, 1024*1024, cfg.Zip.IOBufSize, "unset tunables keep defaults")
				assert.Equal(t, 256, cfg.Zip.StoreBigFilesMB)
			},
		},
		{
			name: "yaml_unknown_field",
			file: "pack.yml",
			config: `
pack:
  source: a.blend
  bogus: 1
`,
			wantErr:     true,
			errContains: "parsing YAML",
		},
		{
			name: "hcl",
			file: "pack.hcl",
			config: `
pack {
  source  = "/proj/shot.blend"
  project = "/proj"
  target  = "/out/pack"
  exclude = ["**/*.bak"]
}

zip {
  compress_level = 0
  print_interval = 1.5
}
`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.Equal(t, "/proj/shot.blend", cfg.Pack.Source)
				assert.Equal(t, "/proj", cfg.Pack.Project)
				assert.Equal(t, []string{"**/*.bak"}, cfg.Pack.Exclude)
				assert.Equal(t, 0, cfg.Zip.CompressLevel)
				assert.InDelta(t, 1.5, cfg.Zip.PrintInterval, 1e-9)
				assert.Equal(t, 256, cfg.Zip.StoreBigFilesMB, "unset tunables keep defaults")
			},
		},
		{
			name: "json",
			file: "pack.json",
			config: `{"pack": {"source": "/a.blend", "target": "/out", "plan_only": true}}`,
			check: func(t *testing.T, dir string, cfg *Config) {
				assert.True(t, cfg.Pack.PlanOnly)
				assert.Equal(t, 1, cfg.Zip.CompressLevel)
			},
		},
		{
			name:        "unknown_extension",
			file:        "pack.toml",
			config:      `x = 1`,
			wantErr:     true,
			errContains: "no parser found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testContext(t)
			dir := t.TempDir()
			path := filepath.Join(dir, tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.config), 0644))

			cfg, err := Load(ctx, path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			tt.check(t, dir, cfg)
		})
	}
}

func TestHCLReadsEnvironment(t *testing.T) {
	t.Setenv("BATPACK_TEST_OUT", "/mnt/packs")
	ctx := testContext(t)
	path := filepath.Join(t.TempDir(), "pack.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
pack {
  source = "/proj/shot.blend"
  target = "${env.BATPACK_TEST_OUT}/shot.zip"
}
`), 0644))

	cfg, err := Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/packs/shot.zip", cfg.Pack.Target)
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	require.ErrorContains(t, cfg.Validate(), "pack.source is required")

	cfg.Pack.Source = "/proj/scenes/../scenes/shot.blend"
	require.ErrorContains(t, cfg.Validate(), "pack.target is required")

	cfg.Pack.Target = "/out/"
	cfg.Zip.CompressLevel = 42
	cfg.Zip.IOBufSize = 10
	cfg.Zip.StoreBigFilesMB = -5
	cfg.Zip.PrintInterval = 0
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/proj/scenes/shot.blend", cfg.Pack.Source)
	assert.Equal(t, "/proj/scenes", cfg.Pack.Project, "project defaults to the source directory")
	assert.Equal(t, "/out", cfg.Pack.Target)
	assert.Equal(t, 9, cfg.Zip.CompressLevel)
	assert.Equal(t, 64*1024, cfg.Zip.IOBufSize)
	assert.Equal(t, 0, cfg.Zip.StoreBigFilesMB)
	assert.InDelta(t, 0.05, cfg.Zip.PrintInterval, 1e-9)
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name  string
		env   map[string]string
		check func(t *testing.T, z Zip)
	}{
		{
			name: "overrides",
			env: map[string]string{
				"BATPACK_ZIP_COMPRESSLEVEL":      "9",
				"BATPACK_ZIP_IO_BUFSIZE":         "131072",
				"BATPACK_ZIP_STORE_BIG_FILES_MB": "0",
				"BATPACK_ZIP_VERBOSE":            "yes",
				"BATPACK_ZIP_NO_COMPRESS":        "on",
				"BATPACK_ZIP_PRINT_INTERVAL":     "0.5",
			},
			check: func(t *testing.T, z Zip) {
				assert.Equal(t, 9, z.CompressLevel)
				assert.Equal(t, 131072, z.IOBufSize)
				assert.Equal(t, 0, z.StoreBigFilesMB)
				assert.True(t, z.Verbose)
				assert.True(t, z.NoCompress)
				assert.InDelta(t, 0.5, z.PrintInterval, 1e-9)
			},
		},
		{
			name: "garbage_keeps_defaults",
			env: map[string]string{
				"BATPACK_ZIP_COMPRESSLEVEL":  "fast",
				"BATPACK_ZIP_IO_BUFSIZE":     "1MB",
				"BATPACK_ZIP_PRINT_INTERVAL": "soon",
				"BATPACK_ZIP_VERBOSE":        "maybe",
			},
			check: func(t *testing.T, z Zip) {
				assert.Equal(t, 1, z.CompressLevel)
				assert.Equal(t, 1024*1024, z.IOBufSize)
				assert.InDelta(t, 0.2, z.PrintInterval, 1e-9)
				assert.False(t, z.Verbose)
			},
		},
		{
			name: "clamped",
			env: map[string]string{
				"BATPACK_ZIP_COMPRESSLEVEL":  "-3",
				"BATPACK_ZIP_IO_BUFSIZE":     "1",
				"BATPACK_ZIP_PRINT_INTERVAL": "0.001",
			},
			check: func(t *testing.T, z Zip) {
				assert.Equal(t, 0, z.CompressLevel)
				assert.Equal(t, 64*1024, z.IOBufSize)
				assert.InDelta(t, 0.05, z.PrintInterval, 1e-9)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg := Defaults()
			ApplyEnv(testContext(t), cfg)
			tt.check(t, cfg.Zip)
		})
	}
}

func TestZipOptions(t *testing.T) {
	z := Defaults().Zip
	opts := z.Options()
	assert.Equal(t, 1, opts.CompressLevel)
	assert.Equal(t, int64(256*1024*1024), opts.StoreBigFiles)
	assert.Equal(t, 200*time.Millisecond, opts.PrintInterval)

	z.StoreBigFilesMB = -1
	assert.Zero(t, z.Options().StoreBigFiles)
}

func TestParserSelection(t *testing.T) {
	assert.IsType(t, &YAMLParser{}, GetParser("pack.YAML"))
	assert.IsType(t, &YAMLParser{}, GetParser("pack.yml"))
	assert.IsType(t, &HCLParser{}, GetParser("pack.hcl"))
	assert.IsType(t, &JSONParser{}, GetParser("pack.json"))
	assert.Nil(t, GetParser("pack.toml"))
}

func TestConfigString(t *testing.T) {
	cfg := &Config{Pack: Pack{Source: "/p/a.blend", Project: "/p", Target: "/o.zip", Archive: true}}
	assert.Equal(t, "/p/a.blend (project /p) -> /o.zip [zip]", cfg.String())
}
