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

package operation

import (
	"context"
	"io"
	"io/fs"

	"github.com/rs/zerolog"
	"github.com/walteh/extsort/pkg/config"
	"github.com/walteh/extsort/pkg/log"
	"github.com/walteh/extsort/pkg/status"
	"github.com/walteh/extsort/pkg/walk"
)

// 🎯 Operation is a unit of work run by the OperationRunner
type Operation interface {
	Execute(ctx context.Context) error
}

// 🔧 Options contains what every operation needs
type Options struct {
	// Source is the root of the tree to sort. Unused by clean.
	Source string
	// Config carries the destination and walk settings
	Config *config.Config
	// StatusMgr owns the destination tree; created from Config when nil
	StatusMgr *status.Manager
	// Console receives user facing output; discarded when nil
	Console *log.Logger
	// Logger receives structured logs; zerolog.Ctx(ctx) when nil
	Logger *zerolog.Logger
}

// 🧱 BaseOperation holds the shared options of all operations
type BaseOperation struct {
	Options

	// readDir replaces os.ReadDir in the walker when set
	readDir func(dir string) ([]fs.DirEntry, error)
}

// 🏗️ NewBaseOperation fills in defaults for unset options
func NewBaseOperation(opts Options) BaseOperation {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if opts.Console == nil {
		opts.Console = log.New(io.Discard)
	}
	if opts.StatusMgr == nil {
		opts.StatusMgr = status.New(opts.Config.Destination, opts.Logger)
	}
	return BaseOperation{Options: opts}
}

// logger returns the configured logger or the one carried by ctx
func (op *BaseOperation) logger(ctx context.Context) *zerolog.Logger {
	if op.Logger != nil {
		return op.Logger
	}
	return zerolog.Ctx(ctx)
}

// walkOptions builds the walker settings. The destination is always
// excluded so a destination nested in the source is never re-sorted.
func (op *BaseOperation) walkOptions(onError func(ctx context.Context, err *walk.EntryError)) walk.Options {
	return walk.Options{
		Ignore:         op.Config.Ignore,
		Exclude:        []string{op.StatusMgr.BaseDir()},
		FollowSymlinks: op.Config.FollowSymlinks,
		ReadDir:        op.readDir,
		OnError:        onError,
	}
}

// reportDirError prints a recovered walk failure
func (op *BaseOperation) reportDirError(ctx context.Context, err *walk.EntryError) {
	if err.Permission() {
		op.Console.Warningf("permission denied: %s", err.Path)
		return
	}
	op.Console.Warningf("error reading %s: %v", err.Path, err.Err)
}

func fileOperation(info status.FileInfo, key string) log.FileOperation {
	return log.FileOperation{
		Path:       info.Path,
		Source:     info.Source,
		Key:        key,
		Status:     info.Status.String(),
		IsNew:      info.Status == status.StatusNew,
		IsModified: info.Status == status.StatusModified,
		IsRemoved:  info.Status == status.StatusDeleted,
	}
}
