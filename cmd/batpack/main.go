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
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/batpack/cmd/batpack/commands"
	"github.com/walteh/batpack/cmd/batpack/opts"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &opts.RootOpts{}

	rootCmd := &cobra.Command{
		Use:   "batpack",
		Short: "Pack a document together with every file it references",
		Long: `batpack traces the files a document references, decides where each one
belongs in a self-contained pack, patches the references that would break and
copies everything into a directory or a zip archive.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.SetContext(setupLogging(cmd.Context(), root.Debug))
		},
	}

	addRootFlags(rootCmd, root)

	rootCmd.AddCommand(
		commands.NewPackCmd(root),
		commands.NewTraceCmd(root),
		newVersionCmd(),
	)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		pterm.Error.WithPrefix(pterm.Prefix{Text: "❌"}).Println(err.Error())
		os.Exit(1)
	}
}
