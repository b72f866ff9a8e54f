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
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/extsort/cmd/extsort/commands"
	"github.com/walteh/extsort/cmd/extsort/opts"
	"github.com/walteh/extsort/pkg/config"
)

// dotEnvFile is loaded into the environment before the config is resolved
const dotEnvFile = ".env"

// newRootCmd creates the root command and its subcommands
func newRootCmd(o *opts.RootOpts, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "extsort <source> [destination]",
		Short: "Copy every file of a directory tree into per-extension directories",
		Long: `extsort walks a source tree depth-first and copies every regular file to
<destination>/<extension>/<name>, flattening the source structure. Files
without an extension go to <destination>/no_extension. The destination
defaults to "dist".`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger := setupLogging(o.Debug, stderr)
			ctx := logger.WithContext(cmd.Context())
			config.LoadDotEnv(ctx, dotEnvFile)
			cmd.SetContext(ctx)
		},
		RunE: commands.RunSort(o),
	}

	addRootFlags(rootCmd, o)

	rootCmd.AddCommand(
		commands.NewSortCmd(o),
		commands.NewStatusCmd(o),
		commands.NewCleanCmd(o),
		commands.NewWatchCmd(o),
		newVersionCmd(o),
	)

	return rootCmd
}

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command, o *opts.RootOpts) {
	cmd.PersistentFlags().StringVarP(&o.ConfigFile, "config", "c", config.DefaultConfigFile, "config file path (.yaml, .json or .hcl)")
	cmd.PersistentFlags().BoolVarP(&o.Debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().StringArrayVar(&o.Ignore, "ignore", nil, "glob of source paths to skip (repeatable)")
	cmd.PersistentFlags().BoolVar(&o.FollowSymlinks, "follow-symlinks", true, "copy symlinked files and descend into symlinked directories (--follow-symlinks=false skips them)")
	cmd.PersistentFlags().BoolVar(&o.NoManifest, "no-manifest", false, "do not write the destination manifest")
	cmd.PersistentFlags().BoolVar(&o.Async, "async", false, "run operations asynchronously")
}

// setupLogging configures zerolog based on flags. Human readable output is
// used when stderr is a terminal.
func setupLogging(debug bool, stderr io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	out := stderr
	if f, ok := stderr.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		out = zerolog.ConsoleWriter{Out: f, NoColor: color.NoColor}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// execute runs the command line and returns the process exit code
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	o := opts.New(stdout)
	rootCmd := newRootCmd(o, stderr)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		color.New(color.FgRed).Fprintf(stderr, "❌ %v\n", err)
		return 1
	}
	return 0
}
