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
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"gitlab.com/tozd/go/errors"
)

func init() {
	Register(&HCLParser{})
}

// 🔧 HCLParser implements the Parser interface for HCL files
type HCLParser struct{}

// 🔍 CanParse checks if this parser can handle the given file
func (p *HCLParser) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".hcl")
}

// 📝 Parse parses the config from HCL
//
// Files may read the environment through env.NAME, for example
// target = "${env.HOME}/packs/shot.zip".
func (p *HCLParser) Parse(ctx context.Context, data []byte, cfg *Config) error {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(data, "config.hcl")
	if diags.HasErrors() {
		return errors.Errorf("parsing HCL: %s", diags.Error())
	}

	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": envObject(),
		},
	}

	// optional attributes are pointers so absent ones keep their defaults
	type hclConfig struct {
		Pack *struct {
			Source       string   `hcl:"source"`
			Project      *string  `hcl:"project,optional"`
			Target       string   `hcl:"target"`
			Exclude      []string `hcl:"exclude,optional"`
			Deps         *string  `hcl:"deps,optional"`
			Archive      *bool    `hcl:"archive,optional"`
			PlanOnly     *bool    `hcl:"plan_only,optional"`
			RelativeOnly *bool    `hcl:"relative_only,optional"`
			ForceRewrite *bool    `hcl:"force_rewrite,optional"`
		} `hcl:"pack,block"`
		Zip *struct {
			CompressLevel   *int     `hcl:"compress_level,optional"`
			IOBufSize       *int     `hcl:"io_bufsize,optional"`
			StoreBigFilesMB *int     `hcl:"store_big_files_mb,optional"`
			Verbose         *bool    `hcl:"verbose,optional"`
			NoCompress      *bool    `hcl:"no_compress,optional"`
			PrintInterval   *float64 `hcl:"print_interval,optional"`
		} `hcl:"zip,block"`
	}

	var hclCfg hclConfig
	diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &hclCfg)
	if diags.HasErrors() {
		return errors.Errorf("decoding HCL: %s", diags.Error())
	}

	if pk := hclCfg.Pack; pk != nil {
		cfg.Pack.Source = pk.Source
		cfg.Pack.Target = pk.Target
		cfg.Pack.Exclude = append(cfg.Pack.Exclude, pk.Exclude...)
		setIf(&cfg.Pack.Project, pk.Project)
		setIf(&cfg.Pack.Deps, pk.Deps)
		setIf(&cfg.Pack.Archive, pk.Archive)
		setIf(&cfg.Pack.PlanOnly, pk.PlanOnly)
		setIf(&cfg.Pack.RelativeOnly, pk.RelativeOnly)
		setIf(&cfg.Pack.ForceRewrite, pk.ForceRewrite)
	}

	if z := hclCfg.Zip; z != nil {
		setIf(&cfg.Zip.CompressLevel, z.CompressLevel)
		setIf(&cfg.Zip.IOBufSize, z.IOBufSize)
		setIf(&cfg.Zip.StoreBigFilesMB, z.StoreBigFilesMB)
		setIf(&cfg.Zip.Verbose, z.Verbose)
		setIf(&cfg.Zip.NoCompress, z.NoCompress)
		setIf(&cfg.Zip.PrintInterval, z.PrintInterval)
	}

	return nil
}

func setIf[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

func envObject() cty.Value {
	vars := map[string]cty.Value{}
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		vars[name] = cty.StringVal(value)
	}
	if len(vars) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(vars)
}
