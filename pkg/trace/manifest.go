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

package trace

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 📜 Manifest is a pre-traced dependency list for one root document
type Manifest struct {
	Root   string  `yaml:"root"`
	Usages []Usage `yaml:"usages"`
}

// 📥 LoadManifest reads a manifest written by WriteManifest
func LoadManifest(ctx context.Context, path string) (*Manifest, error) {
	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("loading usage manifest")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Errorf("reading manifest: %w", err)
	}

	var m Manifest
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, errors.Errorf("parsing manifest: %w", err)
	}

	// relative paths in a manifest are relative to the manifest itself
	base := filepath.Dir(path)
	m.Root = absFrom(base, m.Root)
	for i := range m.Usages {
		m.Usages[i].AbsPath = absFrom(base, m.Usages[i].AbsPath)
		m.Usages[i].Document = absFrom(base, m.Usages[i].Document)
	}

	return &m, nil
}

func absFrom(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// 📤 WriteManifest writes m as YAML
func WriteManifest(ctx context.Context, path string, m *Manifest) error {
	zerolog.Ctx(ctx).Debug().Str("path", path).Int("usages", len(m.Usages)).Msg("writing usage manifest")

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(m); err != nil {
		return errors.Errorf("encoding manifest: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return errors.Errorf("encoding manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.Errorf("creating parent directories: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return errors.Errorf("writing manifest: %w", err)
	}
	return nil
}

// 📼 Collect drains a scanner into a manifest
func Collect(ctx context.Context, s Scanner, root string) (*Manifest, error) {
	m := &Manifest{Root: root}
	for u, err := range s.Scan(ctx, root, nil) {
		if err != nil {
			return nil, errors.Errorf("scanning %s: %w", root, err)
		}
		m.Usages = append(m.Usages, u)
	}
	return m, nil
}
