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

package opts

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/extsort/pkg/config"
	"github.com/walteh/extsort/pkg/log"
	"github.com/walteh/extsort/pkg/operation"
	"github.com/walteh/extsort/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// RootOpts contains shared options used by all commands
type RootOpts struct {
	ConfigFile     string
	Debug          bool
	Ignore         []string
	FollowSymlinks bool
	NoManifest     bool
	Async          bool

	Stdout io.Writer
	Lookup config.LookupFunc
}

// 🏭 New creates options writing to stdout and reading the process environment
func New(stdout io.Writer) *RootOpts {
	if stdout == nil {
		stdout = os.Stdout
	}
	return &RootOpts{
		ConfigFile: config.DefaultConfigFile,
		Stdout:     stdout,
		Lookup:     os.LookupEnv,
	}
}

// 🎯 LoadConfig resolves the configuration of a command. Values are layered
// as defaults, config file, environment, then flags and the destination
// argument. An explicitly passed --config must exist.
func (o *RootOpts) LoadConfig(ctx context.Context, cmd *cobra.Command, destination string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if cmd.Flags().Changed("config") {
		cfg, err = config.Load(ctx, o.ConfigFile)
	} else {
		cfg, err = config.LoadOptional(ctx, o.ConfigFile)
	}
	if err != nil {
		return nil, errors.Errorf("loading config: %w", err)
	}

	lookup := o.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfg.ApplyEnv(lookup)

	if destination != "" {
		cfg.Destination = destination
	}
	if len(o.Ignore) > 0 {
		cfg.Ignore = append(cfg.Ignore, o.Ignore...)
	}
	if cmd.Flags().Changed("follow-symlinks") {
		cfg.FollowSymlinks = o.FollowSymlinks
	}
	if o.NoManifest {
		cfg.Manifest = false
	}
	if cmd.Flags().Changed("async") {
		cfg.Async = o.Async
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Errorf("validating config: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("config", cfg.String()).Str("location", cfg.Location()).Msg("resolved configuration")
	return cfg, nil
}

// 🖥️ Console creates the user facing logger for a run
func (o *RootOpts) Console(ctx context.Context, cfg *config.Config) *log.Logger {
	options := []log.Option{log.WithIcons(cfg.Icons)}
	if o.Debug {
		options = append(options, log.WithZerolog(*zerolog.Ctx(ctx)))
	}
	return log.New(o.Stdout, options...)
}

// WithConsole returns ctx carrying the console of a run configured by cfg
func (o *RootOpts) WithConsole(ctx context.Context, cfg *config.Config) context.Context {
	return log.NewContext(ctx, o.Console(ctx, cfg))
}

// 🔧 Operation builds the options shared by every operation. ctx must carry
// the console, see WithConsole.
func (o *RootOpts) Operation(ctx context.Context, cfg *config.Config, source string) operation.Options {
	logger := zerolog.Ctx(ctx)
	return operation.Options{
		Source:    source,
		Config:    cfg,
		StatusMgr: status.New(cfg.Destination, logger),
		Console:   log.FromContext(ctx),
		Logger:    logger,
	}
}

// Runner returns the runner configured by cfg
func (o *RootOpts) Runner(ctx context.Context, cfg *config.Config) *operation.OperationRunner {
	return operation.NewRunner(zerolog.Ctx(ctx), cfg.Async)
}
