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

package status

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

// 🧪 TestDefaultFileFormatter tests the default file formatter implementation
func TestDefaultFileFormatter(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		status FileStatus
		want   string
	}{
		{name: "new_file", path: "txt/test.txt", status: StatusNew, want: "✨ Created txt/test.txt"},
		{name: "modified_file", path: "yaml/config.yaml", status: StatusModified, want: "📝 Modified yaml/config.yaml"},
		{name: "removed_file", path: "txt/old.txt", status: StatusDeleted, want: "🗑️  Removed txt/old.txt"},
		{name: "unchanged_file", path: "txt/stable.txt", status: StatusUnchanged, want: "👍 Unchanged txt/stable.txt"},
		{name: "unknown_status", path: "txt/error.txt", status: StatusUnknown, want: "❌ Failed txt/error.txt"},
		{name: "empty_path", path: "", status: StatusNew, want: "✨ Created "},
	}

	formatter := NewDefaultFileFormatter()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatter.FormatFileOperation(tt.path, tt.status))
		})
	}
}

// 🧪 TestProgressFormatting tests progress message formatting
func TestProgressFormatting(t *testing.T) {
	tests := []struct {
		name     string
		current  int
		total    int
		expected string
	}{
		{name: "zero_progress", current: 0, total: 10, expected: fmt.Sprintf(MsgProgress, EmojiProgress, 0, 10, 0.0)},
		{name: "half_progress", current: 5, total: 10, expected: fmt.Sprintf(MsgProgress, EmojiProgress, 5, 10, 50.0)},
		{name: "complete", current: 10, total: 10, expected: fmt.Sprintf(MsgProgress, EmojiComplete, 10, 10, 100.0)},
		{name: "zero_total", current: 0, total: 0, expected: fmt.Sprintf(MsgProgress, EmojiComplete, 0, 0, 0.0)},
		{name: "current_exceeds_total", current: 15, total: 10, expected: fmt.Sprintf(MsgProgress, EmojiComplete, 15, 10, 100.0)},
		{name: "negative_values", current: -1, total: -1, expected: fmt.Sprintf(MsgProgress, EmojiComplete, 0, 0, 0.0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			formatter := NewDefaultFileFormatter()
			assert.Equal(t, tt.expected, formatter.FormatProgress(tt.current, tt.total))
		})
	}
}

// 🧪 TestErrorFormatting tests error message formatting
func TestErrorFormatting(t *testing.T) {
	formatter := NewDefaultFileFormatter()
	assert.Equal(t, "❌ Error: assert.AnError general error for testing", formatter.FormatError(assert.AnError))
	assert.Equal(t, "", formatter.FormatError(nil))
}
