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
	"github.com/spf13/cobra"
	"github.com/walteh/extsort/cmd/extsort/opts"
	"github.com/walteh/extsort/pkg/operation"
	"gitlab.com/tozd/go/errors"
)

// 🧹 NewCleanCmd creates the clean command
func NewCleanCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean [destination]",
		Short: "Remove the files a previous sort copied",
		Long: `Clean removes every file recorded in the destination manifest, removes
extension directories left empty and deletes the manifest. Files that were
changed after they were sorted, and files the manifest does not list, are
kept.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var destination string
			if len(args) > 0 {
				destination = args[0]
			}
			cfg, err := o.LoadConfig(ctx, cmd, destination)
			if err != nil {
				return err
			}
			ctx = o.WithConsole(ctx, cfg)

			op := operation.NewCleanOperation(o.Operation(ctx, cfg, ""))
			if err := o.Runner(ctx, cfg).Run(ctx, op); err != nil {
				return errors.Errorf("cleaning %s: %w", cfg.Destination, err)
			}
			return nil
		},
	}

	return cmd
}
