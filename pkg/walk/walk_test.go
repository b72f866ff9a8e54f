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

package walk

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755), "creating parent directory")
		require.NoError(t, os.WriteFile(path, []byte(content), 0644), "writing file")
	}
}

func collect(t *testing.T, root string, opts Options) ([]string, *Result) {
	t.Helper()
	ctx := zerolog.New(zerolog.TestWriter{T: t}).WithContext(context.Background())

	var got []string
	res, err := Walk(ctx, root, opts, func(ctx context.Context, entry Entry) error {
		got = append(got, entry.Rel)
		return nil
	})
	require.NoError(t, err, "walk should succeed")
	return got, res
}

func TestWalk(t *testing.T) {
	tests := []struct {
		name  string
		files map[string]string
		opts  func(root string) Options
		want  []string
		check func(t *testing.T, res *Result)
	}{
		{
			name: "depth_first_lexical",
			files: map[string]string{
				"c.txt":     "c",
				"a/b.txt":   "b",
				"a/z/y.go":  "y",
				"b/README":  "readme",
				"a/a.md":    "a",
				"0-top.bin": "0",
			},
			want: []string{"0-top.bin", "a/a.md", "a/b.txt", "a/z/y.go", "b/README", "c.txt"},
			check: func(t *testing.T, res *Result) {
				assert.Equal(t, 6, res.Files, "all files should be visited")
				assert.Equal(t, 4, res.Dirs, "root and three subdirectories should be read")
				assert.Empty(t, res.Errors, "no errors expected")
			},
		},
		{
			name: "ignore_patterns",
			files: map[string]string{
				"keep.txt":          "k",
				"drop.log":          "d",
				"nested/drop.log":   "d",
				"node_modules/x.js": "x",
				"src/main.go":       "m",
			},
			opts: func(root string) Options {
				return Options{Ignore: []string{"**/*.log", "node_modules"}}
			},
			want: []string{"keep.txt", "src/main.go"},
			check: func(t *testing.T, res *Result) {
				assert.Equal(t, 3, res.Skipped, "two logs and one directory should be skipped")
			},
		},
		{
			name: "exclude_nested_destination",
			files: map[string]string{
				"a.txt":         "a",
				"dist/txt/a.txt": "a",
			},
			opts: func(root string) Options {
				return Options{Exclude: []string{filepath.Join(root, "dist")}}
			},
			want: []string{"a.txt"},
		},
		{
			name:  "empty_root",
			files: map[string]string{},
			want:  nil,
			check: func(t *testing.T, res *Result) {
				assert.Equal(t, 0, res.Files, "no files expected")
				assert.Equal(t, 1, res.Dirs, "root should be read")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeTree(t, root, tt.files)

			opts := Options{}
			if tt.opts != nil {
				opts = tt.opts(root)
			}

			got, res := collect(t, root, opts)
			assert.Equal(t, tt.want, got, "visited files should match")
			if tt.check != nil {
				tt.check(t, res)
			}
		})
	}
}

func TestWalkInvalidRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644), "writing file")

	ctx := context.Background()
	visit := func(ctx context.Context, entry Entry) error {
		t.Fatalf("visit should not be called for %s", entry.Rel)
		return nil
	}

	_, err := Walk(ctx, filepath.Join(dir, "missing"), Options{}, visit)
	require.Error(t, err, "missing root should fail")
	assert.True(t, errors.Is(err, ErrSourceNotFound), "error should be ErrSourceNotFound")

	_, err = Walk(ctx, file, Options{}, visit)
	require.Error(t, err, "file root should fail")
	assert.True(t, errors.Is(err, ErrSourceNotDirectory), "error should be ErrSourceNotDirectory")
}

func TestWalkInvalidPattern(t *testing.T) {
	root := t.TempDir()
	_, err := Walk(context.Background(), root, Options{Ignore: []string{"[a-"}}, func(ctx context.Context, entry Entry) error {
		return nil
	})
	require.Error(t, err, "invalid pattern should fail")
	assert.Contains(t, err.Error(), "invalid ignore pattern", "error should name the pattern")
}

func TestWalkPermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for this user")
	}

	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/one.txt":      "1",
		"locked/two.txt": "2",
		"z/three.txt":    "3",
	})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0000), "locking directory")
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	var reported []*EntryError
	got, res := collect(t, root, Options{
		OnError: func(ctx context.Context, err *EntryError) {
			reported = append(reported, err)
		},
	})

	assert.Equal(t, []string{"a/one.txt", "z/three.txt"}, got, "siblings should still be visited")
	require.Len(t, res.Errors, 1, "one directory error expected")
	assert.True(t, res.Errors[0].Permission(), "error should be a permission error")
	assert.Equal(t, locked, res.Errors[0].Path, "error should name the locked directory")
	assert.Equal(t, res.Errors, reported, "OnError should see every recovered error")
}

func TestWalkReadDirDenied(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a/one.txt":      "1",
		"locked/two.txt": "2",
		"z/three.txt":    "3",
	})
	locked := filepath.Join(root, "locked")

	var reported []*EntryError
	got, res := collect(t, root, Options{
		ReadDir: func(dir string) ([]fs.DirEntry, error) {
			if dir == locked {
				return nil, &fs.PathError{Op: "open", Path: dir, Err: fs.ErrPermission}
			}
			return os.ReadDir(dir)
		},
		OnError: func(ctx context.Context, err *EntryError) {
			reported = append(reported, err)
		},
	})

	assert.Equal(t, []string{"a/one.txt", "z/three.txt"}, got, "siblings should still be visited")
	require.Len(t, res.Errors, 1, "one directory error expected")
	assert.True(t, res.Errors[0].Permission(), "error should be a permission error")
	assert.Equal(t, locked, res.Errors[0].Path, "error should name the locked directory")
	assert.Equal(t, res.Errors, reported, "OnError should see every recovered error")
	assert.Equal(t, 3, res.Dirs, "root and both readable directories should be counted")
}

func TestWalkSymlinks(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}

	root := t.TempDir()
	outside := t.TempDir()
	writeTree(t, root, map[string]string{"real/a.txt": "a"})
	writeTree(t, outside, map[string]string{"b.txt": "b"})

	require.NoError(t, os.Symlink(filepath.Join(outside, "b.txt"), filepath.Join(root, "link.txt")), "linking file")
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "ext")), "linking directory")
	require.NoError(t, os.Symlink(root, filepath.Join(root, "real", "loop")), "linking cycle")

	t.Run("not_followed_when_disabled", func(t *testing.T) {
		got, res := collect(t, root, Options{})
		assert.Equal(t, []string{"real/a.txt"}, got, "symlinks should be skipped")
		assert.Equal(t, 3, res.Skipped, "three symlinks should be skipped")
	})

	t.Run("followed_with_cycle_protection", func(t *testing.T) {
		got, res := collect(t, root, Options{FollowSymlinks: true})
		assert.Equal(t, []string{"ext/b.txt", "link.txt", "real/a.txt"}, got, "link targets should be visited once")
		assert.Equal(t, 1, res.Skipped, "the cycle should be skipped")
	})
}

func TestWalkVisitError(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a", "b.txt": "b"})

	boom := errors.New("boom")
	calls := 0
	_, err := Walk(context.Background(), root, Options{}, func(ctx context.Context, entry Entry) error {
		calls++
		return boom
	})
	require.Error(t, err, "visit error should stop the walk")
	assert.True(t, errors.Is(err, boom), "visit error should be wrapped")
	assert.Equal(t, 1, calls, "walk should stop after the first error")
}

func TestWalkCancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Walk(ctx, root, Options{}, func(ctx context.Context, entry Entry) error {
		return nil
	})
	require.Error(t, err, "cancelled walk should fail")
	assert.True(t, errors.Is(err, context.Canceled), "error should wrap context.Canceled")
}
