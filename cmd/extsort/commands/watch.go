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
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/extsort/cmd/extsort/opts"
	"github.com/walteh/extsort/pkg/operation"
	"github.com/walteh/extsort/pkg/watch"
	"gitlab.com/tozd/go/errors"
)

// 👀 NewWatchCmd creates the watch command
func NewWatchCmd(o *opts.RootOpts) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <source> [destination]",
		Short: "Sort, then sort again whenever the source changes",
		Long: `Watch runs a sort, then watches the source tree and runs the sort again
once changes have settled. New directories are watched as they appear.
Stop it with an interrupt.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := zerolog.Ctx(ctx)

			source, destination := sourceArgs(args)
			cfg, err := o.LoadConfig(ctx, cmd, destination)
			if err != nil {
				return err
			}
			ctx = o.WithConsole(ctx, cfg)

			options := o.Operation(ctx, cfg, source)
			runner := o.Runner(ctx, cfg)
			sortOnce := func(ctx context.Context) error {
				run := options
				run.StatusMgr = nil
				return runner.Run(ctx, operation.NewSortOperation(run))
			}

			if err := sortOnce(ctx); err != nil {
				if reportSourceError(ctx, err) {
					return nil
				}
				return errors.Errorf("sorting %s: %w", source, err)
			}

			w, err := watch.New(ctx, source, watch.Options{
				Debounce: debounce,
				Exclude:  []string{cfg.Destination},
				Ignore:   cfg.Ignore,
			})
			if err != nil {
				return errors.Errorf("watching %s: %w", source, err)
			}
			defer w.Close()

			options.Console.Infof("watching %s (%d directories)", source, w.Paths())
			logger.Debug().Dur("debounce", debounce).Msg("watch started")

			return w.Run(ctx, sortOnce)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", watch.DefaultDebounce, "quiet period before re-sorting")

	return cmd
}
