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
	"path/filepath"

	"github.com/walteh/extsort/pkg/classify"
	"github.com/walteh/extsort/pkg/log"
	"github.com/walteh/extsort/pkg/state"
	"github.com/walteh/extsort/pkg/status"
	"github.com/walteh/extsort/pkg/walk"
	"gitlab.com/tozd/go/errors"
)

// 📊 SortResult is what a sort run did
type SortResult struct {
	RunID     string
	Copies    []status.FileInfo
	Failures  []*walk.EntryError
	DirErrors []*walk.EntryError
	Skipped   int
	Keys      []classify.KeyStats
}

// Count returns the number of copies with the given status
func (r *SortResult) Count(s status.FileStatus) int {
	n := 0
	for _, c := range r.Copies {
		if c.Status == s {
			n++
		}
	}
	return n
}

// 📦 NewSortOperation creates the operation that sorts Source into the
// destination by extension
func NewSortOperation(opts Options) *SortOperation {
	return &SortOperation{
		BaseOperation: NewBaseOperation(opts),
	}
}

// 📦 SortOperation copies every regular file of the source tree into
// <destination>/<key>/<name>
type SortOperation struct {
	BaseOperation
	result *SortResult
}

// Result returns the outcome of the last Execute
func (op *SortOperation) Result() *SortResult {
	return op.result
}

// 🏃 Execute runs the sort.
//
// A missing or non-directory source fails before anything is written. All
// other per-directory and per-file failures are reported and recorded in
// the result; they do not fail the run.
func (op *SortOperation) Execute(ctx context.Context) error {
	logger := op.logger(ctx)

	if err := walk.CheckRoot(op.Source); err != nil {
		return err
	}

	source, err := filepath.Abs(op.Source)
	if err != nil {
		return errors.Errorf("resolving source: %w", err)
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
	if op.Config.Manifest {
		if err := manifest.Load(ctx); err != nil {
			op.Console.Warningf("ignoring unreadable manifest: %v", err)
			manifest = state.New(op.StatusMgr.BaseDir())
		}
		if prev := manifest.Source(); prev != "" && prev != source {
			op.Console.Warningf("destination was last sorted from %s", prev)
		}
	}
	saveManifest := func() {
		if !op.Config.Manifest {
			return
		}
		manifest.SetSource(source)
		if err := manifest.Save(ctx); err != nil {
			op.Console.Warningf("saving manifest: %v", err)
		}
	}

	result := &SortResult{RunID: manifest.RunID()}
	op.result = result

	op.Console.StartRun(ctx, log.RunOperation{
		Source:      op.Source,
		Destination: op.StatusMgr.BaseDir(),
		RunID:       manifest.RunID(),
	})
	defer op.Console.EndRun(ctx)

	logger.Debug().Str("source", source).Str("destination", op.StatusMgr.BaseDir()).Msg("walking source")

	var entries []walk.Entry
	walked, err := walk.Walk(ctx, source, op.walkOptions(op.reportDirError), func(ctx context.Context, entry walk.Entry) error {
		entries = append(entries, entry)
		return nil
	})
	if walked != nil {
		result.DirErrors = walked.Errors
		result.Skipped = walked.Skipped
	}
	if err != nil {
		return errors.Errorf("walking source: %w", err)
	}

	tally := classify.NewTally()

	op.StatusMgr.StartOperation(ctx, len(entries))
	for i, entry := range entries {
		if err := ctx.Err(); err != nil {
			op.StatusMgr.FinishOperation(ctx)
			processed, total := op.StatusMgr.Progress()
			op.Console.Warningf("sort cancelled after %d of %d files", processed, total)
			// keep what was copied so clean can still remove it
			saveManifest()
			return errors.Errorf("sort cancelled: %w", err)
		}

		key := classify.Key(entry.Path)
		rel := classify.RelTarget(entry.Path)

		if prev, ok := manifest.Get(rel); ok && prev.RunID == manifest.RunID() {
			logger.Debug().Str("target", rel).Str("previous", prev.Source).Str("source", entry.Path).Msg("target collision, later file wins")
		}

		info, err := op.StatusMgr.CopyFile(ctx, entry.Path, rel)
		if err != nil {
			result.Failures = append(result.Failures, &walk.EntryError{Path: entry.Path, Err: err})
			op.Console.LogFileOperation(ctx, log.FileOperation{
				Path:     rel,
				Source:   entry.Path,
				Key:      key,
				Status:   "failed",
				IsFailed: true,
			})
			op.Console.Errorf("error copying %s: %v", entry.Path, err)
		} else {
			result.Copies = append(result.Copies, info)
			tally.Add(key, info.Size)
			manifest.Put(state.Entry{
				Path:     rel,
				Source:   entry.Path,
				Key:      key,
				Size:     info.Size,
				Checksum: info.Checksum,
				ModTime:  info.ModTime,
			})
			op.Console.LogFileOperation(ctx, fileOperation(info, key))
		}

		op.StatusMgr.UpdateProgress(ctx, i+1)
	}
	op.StatusMgr.FinishOperation(ctx)

	result.Keys = tally.Stats()

	saveManifest()

	if err := op.Console.Summary(log.RunSummary{
		New:       result.Count(status.StatusNew),
		Modified:  result.Count(status.StatusModified),
		Unchanged: result.Count(status.StatusUnchanged),
		Failed:    len(result.Failures),
		Skipped:   result.Skipped,
		DirErrors: len(result.DirErrors),
		Keys:      result.Keys,
	}); err != nil {
		logger.Warn().Err(err).Msg("printing summary")
	}

	return nil
}
