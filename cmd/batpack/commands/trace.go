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
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/batpack/cmd/batpack/opts"
	"github.com/walteh/batpack/pkg/container/jsondoc"
	"github.com/walteh/batpack/pkg/pathid"
	"github.com/walteh/batpack/pkg/trace"
	"gitlab.com/tozd/go/errors"
	"gopkg.in/yaml.v3"
)

// 🔍 NewTraceCmd creates the trace command
func NewTraceCmd(root *opts.RootOpts) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "trace <document>",
		Short: "List the files a document references",
		Long: `Trace scans a document, and every document it links, and writes one usage
per reference as YAML. The result can be fed back to pack with --deps.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := zerolog.Ctx(cmd.Context()).With().Str("command", "trace").Logger().WithContext(cmd.Context())

			m, err := trace.Collect(ctx, jsondoc.Scanner{}, pathid.MakeAbsolute(args[0]))
			if err != nil {
				return errors.Errorf("tracing: %w", err)
			}

			if output != "" {
				return trace.WriteManifest(ctx, output, m)
			}

			encoder := yaml.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent(2)
			if err := encoder.Encode(m); err != nil {
				return errors.Errorf("encoding manifest: %w", err)
			}
			return encoder.Close()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write the manifest to a file instead of stdout")

	return cmd
}
