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

// Package classify derives the bucket a file is sorted into.
package classify

import (
	"path/filepath"
	"strings"
)

// NoExtensionKey is the bucket for files without an extension.
const NoExtensionKey = "no_extension"

// 🏷️ Key returns the classification key for a file name.
//
// The key is the text after the last dot, case preserved. A dot that is the
// first or the last character of the name does not start an extension, so
// ".bashrc", "name." and "README" all land in NoExtensionKey.
func Key(name string) string {
	name = filepath.Base(name)
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return NoExtensionKey
	}
	return name[i+1:]
}

// 📍 RelTarget returns the destination path of a file relative to the
// destination root, always slash separated.
func RelTarget(name string) string {
	base := filepath.Base(name)
	return Key(base) + "/" + base
}
