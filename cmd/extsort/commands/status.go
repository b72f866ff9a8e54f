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

// 🔎 NewStatusCmd creates the status command
func NewStatusCmd(o *opts.RootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <source> [destination]",
		Short: "Show what a sort would do without writing anything",
		Long: `Status plans a sort of the source tree and reports, for every file,
whether the copy would be new, would replace different content, or is
already up to date. Nothing is written to the destination.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			source, destination := sourceArgs(args)
			cfg, err := o.LoadConfig(ctx, cmd, destination)
			if err != nil {
				return err
			}
			ctx = o.WithConsole(ctx, cfg)

			options := o.Operation(ctx, cfg, source)
			op := operation.NewStatusOperation(options)
			if err := o.Runner(ctx, cfg).Run(ctx, op); err != nil {
				if reportSourceError(ctx, err) {
					return nil
				}
				return errors.Errorf("checking status: %w", err)
			}
			return nil
		},
	}

	return cmd
}
