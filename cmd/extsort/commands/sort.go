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

	"github.com/spf13/cobra"
	"github.com/walteh/extsort/cmd/extsort/opts"
	"github.com/walteh/extsort/pkg/log"
	"github.com/walteh/extsort/pkg/operation"
	"github.com/walteh/extsort/pkg/walk"
	"gitlab.com/tozd/go/errors"
)

// RunSort returns the RunE of the sort command, which the root command
// runs for `extsort <source> [destination]`
func RunSort(o *opts.RootOpts) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		source, destination := sourceArgs(args)
		cfg, err := o.LoadConfig(ctx, cmd, destination)
		if err != nil {
			return err
		}
		ctx = o.WithConsole(ctx, cfg)

		options := o.Operation(ctx, cfg, source)
		op := operation.NewSortOperation(options)
		if err := o.Runner(ctx, cfg).Run(ctx, op); err != nil {
			if reportSourceError(ctx, err) {
				return nil
			}
			return errors.Errorf("sorting %s: %w", source, err)
		}
		return nil
	}
}

// 📦 NewSortCmd creates the explicit sort subcommand
func NewSortCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "sort <source> [destination]",
		Short: "Copy every file of a tree into per-extension directories",
		Long: `Sort walks the source tree depth-first and copies every regular file
to <destination>/<extension>/<name>. Files without an extension go to
<destination>/no_extension. The destination defaults to "dist".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: RunSort(o),
	}
}

func sourceArgs(args []string) (source, destination string) {
	source = args[0]
	if len(args) > 1 {
		destination = args[1]
	}
	return source, destination
}

// reportSourceError prints an unusable source and reports whether err was one
func reportSourceError(ctx context.Context, err error) bool {
	if errors.Is(err, walk.ErrSourceNotFound) || errors.Is(err, walk.ErrSourceNotDirectory) {
		log.FromContext(ctx).Error(err.Error())
		return true
	}
	return false
}
