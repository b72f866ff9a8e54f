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
	"path"
	"path/filepath"
	"sort"

	"github.com/walteh/extsort/pkg/log"
	"github.com/walteh/extsort/pkg/state"
	"github.com/walteh/extsort/pkg/status"
	"gitlab.com/tozd/go/errors"
)

// 🧹 CleanResult is what a clean run did
type CleanResult struct {
	Removed []string
	Kept    []string
	Failed  []string
	Dirs    []string
}

// 🧹 NewCleanOperation creates the operation that removes every file a
// previous sort recorded in the destination manifest
func NewCleanOperation(opts Options) *CleanOperation {
	return &CleanOperation{
		BaseOperation: NewBaseOperation(opts),
	}
}

// 🧹 CleanOperation implements the clean operation
type CleanOperation struct {
	BaseOperation
	result *CleanResult
}

// Result returns the outcome of the last Execute
func (op *CleanOperation) Result() *CleanResult {
	return op.result
}

// 🏃 Execute runs the clean operation. Files changed since they were
// sorted are kept and stay in the manifest.
func (op *CleanOperation) Execute(ctx context.Context) error {
	logger := op.logger(ctx)
	op.result = &CleanResult{}

	exists, err := op.StatusMgr.FileExists(ctx, state.FileName)
	if err != nil {
		return errors.Errorf("checking manifest: %w", err)
	}
	if !exists {
		op.Console.Infof("no manifest in %s, nothing to clean", op.StatusMgr.BaseDir())
		return nil
	}

	lock, err := state.AcquireLock(ctx, op.StatusMgr.BaseDir())
	if err != nil {
		return errors.Errorf("locking destination: %w", err)
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			logger.Warn().Err(err).Msg("releasing destination lock")
		}
	}()

	manifest := state.New(op.StatusMgr.BaseDir())
	if err := manifest.Load(ctx); err != nil {
		return errors.Errorf("loading manifest: %w", err)
	}

	op.Console.Header("cleaning " + op.StatusMgr.BaseDir())

	entries := manifest.Entries()
	keys := make(map[string]struct{})

	op.StatusMgr.StartOperation(ctx, len(entries))
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			op.StatusMgr.FinishOperation(ctx)
			return errors.Errorf("clean cancelled: %w", err)
		}
		keys[path.Dir(entry.Path)] = struct{}{}

		if err := op.cleanEntry(ctx, manifest, entry); err != nil {
			op.result.Failed = append(op.result.Failed, entry.Path)
			op.Console.Errorf("error removing %s: %v", entry.Path, err)
		}
		op.StatusMgr.UpdateProgress(ctx, i+1)
	}
	op.StatusMgr.FinishOperation(ctx)

	dirs := make([]string, 0, len(keys))
	for dir := range keys {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	for _, dir := range dirs {
		removed, err := op.StatusMgr.RemoveDirIfEmpty(ctx, dir)
		if err != nil {
			op.Console.Warningf("removing %s: %v", dir, err)
			continue
		}
		if removed {
			op.result.Dirs = append(op.result.Dirs, dir)
		}
	}

	if len(manifest.Entries()) == 0 {
		if err := manifest.Delete(ctx); err != nil {
			return errors.Errorf("deleting manifest: %w", err)
		}
	} else if err := manifest.Save(ctx); err != nil {
		return errors.Errorf("saving manifest: %w", err)
	}

	msg := "removed %d files, kept %d, %d failed"
	if len(op.result.Kept) > 0 || len(op.result.Failed) > 0 {
		op.Console.Warningf(msg, len(op.result.Removed), len(op.result.Kept), len(op.result.Failed))
	} else {
		op.Console.Successf(msg, len(op.result.Removed), len(op.result.Kept), len(op.result.Failed))
	}

	return nil
}

// 🗑️ cleanEntry removes one recorded file unless its content changed
func (op *CleanOperation) cleanEntry(ctx context.Context, manifest *state.State, entry state.Entry) error {
	abs := filepath.Join(op.StatusMgr.BaseDir(), filepath.FromSlash(entry.Path))

	exists, err := op.StatusMgr.FileExists(ctx, entry.Path)
	if err != nil {
		return err
	}
	if exists && entry.Checksum != "" {
		sum, err := status.ChecksumFile(abs)
		if err != nil {
			return err
		}
		if sum != entry.Checksum {
			op.result.Kept = append(op.result.Kept, entry.Path)
			op.Console.Warningf("keeping %s: changed since it was sorted", entry.Path)
			return nil
		}
	}

	if err := op.StatusMgr.DeleteFile(ctx, entry.Path); err != nil {
		return err
	}
	manifest.Remove(entry.Path)
	op.result.Removed = append(op.result.Removed, entry.Path)
	op.Console.LogFileOperation(ctx, log.FileOperation{
		Path:      entry.Path,
		Source:    entry.Source,
		Key:       entry.Key,
		Status:    status.StatusDeleted.String(),
		IsRemoved: true,
	})
	return nil
}
