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
	"runtime"

	"github.com/walteh/extsort/pkg/classify"
	"github.com/walteh/extsort/pkg/log"
	"github.com/walteh/extsort/pkg/status"
	"github.com/walteh/extsort/pkg/walk"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"
)

// 🔎 PlanResult is what a sort would do
type PlanResult struct {
	Planned   []status.FileInfo
	Failures  []*walk.EntryError
	DirErrors []*walk.EntryError
	Skipped   int
	Keys      []classify.KeyStats
}

// Count returns the number of planned copies with the given status
func (r *PlanResult) Count(s status.FileStatus) int {
	n := 0
	for _, p := range r.Planned {
		if p.Status == s {
			n++
		}
	}
	return n
}

// 🔎 NewStatusOperation creates the operation that reports what a sort of
// Source would do without writing anything
func NewStatusOperation(opts Options) *StatusOperation {
	return &StatusOperation{
		BaseOperation: NewBaseOperation(opts),
		Workers:       runtime.GOMAXPROCS(0),
	}
}

// 🔎 StatusOperation implements the status operation
type StatusOperation struct {
	BaseOperation
	// Workers bounds how many files are hashed at once
	Workers int
	result  *PlanResult
}

// Result returns the outcome of the last Execute
func (op *StatusOperation) Result() *PlanResult {
	return op.result
}

// 🏃 Execute computes the plan
func (op *StatusOperation) Execute(ctx context.Context) error {
	logger := op.logger(ctx)

	if err := walk.CheckRoot(op.Source); err != nil {
		return err
	}

	result := &PlanResult{}
	op.result = result

	var entries []walk.Entry
	walked, err := walk.Walk(ctx, op.Source, op.walkOptions(op.reportDirError), func(ctx context.Context, entry walk.Entry) error {
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

	logger.Debug().Int("files", len(entries)).Msg("planning copies")

	planned := make([]status.FileInfo, len(entries))
	failed := make([]error, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	if op.Workers > 0 {
		g.SetLimit(op.Workers)
	}
	for i, entry := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			info, err := op.StatusMgr.Plan(gctx, entry.Path, classify.RelTarget(entry.Path))
			planned[i] = info
			failed[i] = err
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Errorf("planning cancelled: %w", err)
	}

	// a later file with the same name and key overwrites the earlier copy,
	// so it is compared against that copy rather than the disk
	seen := make(map[string]status.FileInfo)
	tally := classify.NewTally()

	op.Console.Header("status of " + op.StatusMgr.BaseDir())
	for i, entry := range entries {
		info := planned[i]
		key := classify.Key(entry.Path)

		if failed[i] != nil {
			result.Failures = append(result.Failures, &walk.EntryError{Path: entry.Path, Err: failed[i]})
			op.Console.LogFileOperation(ctx, log.FileOperation{
				Path:     info.Path,
				Source:   entry.Path,
				Key:      key,
				Status:   "failed",
				IsFailed: true,
			})
			continue
		}

		if prev, ok := seen[info.Path]; ok {
			if prev.Checksum == info.Checksum {
				info.Status = status.StatusUnchanged
			} else {
				info.Status = status.StatusModified
			}
			logger.Debug().
				Str("path", info.Path).
				Str("previous", prev.Source).
				Msg("name collision, later file wins")
		}
		seen[info.Path] = info

		result.Planned = append(result.Planned, info)
		tally.Add(key, info.Size)
		op.Console.LogFileOperation(ctx, fileOperation(info, key))
	}

	result.Keys = tally.Stats()

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
