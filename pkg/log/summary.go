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

package log

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/walteh/extsort/pkg/classify"
	"gitlab.com/tozd/go/errors"
)

// 📊 RunSummary is what a run reports when it finishes
type RunSummary struct {
	New       int
	Modified  int
	Unchanged int
	Failed    int
	Skipped   int
	DirErrors int
	Keys      []classify.KeyStats
}

// 📊 Summary prints the per-key table and the status counts of a run
func (l *Logger) Summary(sum RunSummary) error {
	if len(sum.Keys) > 0 {
		data := pterm.TableData{{"", "key", "files", "size"}}
		var files, size int64
		for _, k := range sum.Keys {
			icon := ""
			if l.icons {
				icon = iconForName("x." + k.Key)
			}
			data = append(data, []string{icon, k.Key, fmt.Sprintf("%d", k.Count), humanize.IBytes(uint64(k.Size))})
			files += k.Count
			size += k.Size
		}
		data = append(data, []string{"", "total", fmt.Sprintf("%d", files), humanize.IBytes(uint64(size))})

		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return errors.Errorf("rendering summary table: %w", err)
		}

		l.LogNewline()
		l.mu.Lock()
		fmt.Fprintln(l.console, table)
		l.mu.Unlock()
	}

	msg := fmt.Sprintf("%d new, %d modified, %d unchanged, %d failed, %d skipped",
		sum.New, sum.Modified, sum.Unchanged, sum.Failed, sum.Skipped)
	if sum.DirErrors > 0 {
		msg += fmt.Sprintf(", %d unreadable directories", sum.DirErrors)
	}

	if sum.Failed > 0 || sum.DirErrors > 0 {
		l.Warning(msg)
	} else {
		l.Success(msg)
	}

	l.zlog.Info().
		Int("new", sum.New).
		Int("modified", sum.Modified).
		Int("unchanged", sum.Unchanged).
		Int("failed", sum.Failed).
		Int("skipped", sum.Skipped).
		Int("dir_errors", sum.DirErrors).
		Msg("run summary")
	return nil
}
