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

package classify

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name string
		file string
		want string
	}{
		{name: "simple_extension", file: "b.txt", want: "txt"},
		{name: "case_preserved", file: "Photo.JPG", want: "JPG"},
		{name: "multi_dot", file: "archive.tar.gz", want: "gz"},
		{name: "no_extension", file: "README", want: NoExtensionKey},
		{name: "dotfile", file: ".bashrc", want: NoExtensionKey},
		{name: "dotfile_with_extension", file: ".env.local", want: "local"},
		{name: "trailing_dot", file: "name.", want: NoExtensionKey},
		{name: "only_dots", file: "...", want: NoExtensionKey},
		{name: "nested_path", file: filepath.Join("a", "b", "c.md"), want: "md"},
		{name: "dot_in_directory", file: filepath.Join("v1.2", "Makefile"), want: NoExtensionKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.file), "key should match")
		})
	}
}

func TestRelTarget(t *testing.T) {
	assert.Equal(t, "txt/b.txt", RelTarget(filepath.Join("src", "a", "b.txt")), "nested source should flatten")
	assert.Equal(t, NoExtensionKey+"/README", RelTarget("README"), "extensionless file should use sentinel")
	assert.Equal(t, "txt/c.txt", RelTarget(filepath.Join("x", "c.txt")), "relative target should be slash separated")
}

func TestTally(t *testing.T) {
	tally := NewTally()
	tally.Add("txt", 10)
	tally.Add("go", 5)
	tally.Add("txt", 20)
	tally.Add("md", 1)
	tally.Add("go", 1)

	stats := tally.Stats()
	assert.Equal(t, []KeyStats{
		{Key: "go", Count: 2, Size: 6},
		{Key: "txt", Count: 2, Size: 30},
		{Key: "md", Count: 1, Size: 1},
	}, stats, "stats should be sorted by count then key")
}
