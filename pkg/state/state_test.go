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

package state

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
)

func setupTestLogger(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.TestWriter{T: t}).With().Timestamp().Logger()
	return logger.WithContext(context.Background())
}

func TestNew(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	assert.Equal(t, filepath.Join(dir, FileName), st.Path(), "manifest path should be in the destination root")
	assert.NotEmpty(t, st.RunID(), "run id should be set")
	assert.Empty(t, st.Entries(), "new state should be empty")

	_, err := os.Stat(st.Path())
	assert.True(t, os.IsNotExist(err), "New should not write")
}

func TestLoadAndSave(t *testing.T) {
	ctx := setupTestLogger(t)

	t.Run("load_nonexistent_is_empty", func(t *testing.T) {
		st := New(t.TempDir())
		require.NoError(t, st.Load(ctx), "loading missing manifest")
		assert.Empty(t, st.Entries())
	})

	t.Run("save_and_load", func(t *testing.T) {
		dir := t.TempDir()
		mtime := time.Date(2021, 5, 6, 7, 8, 9, 0, time.UTC)

		st := New(dir)
		st.SetSource("/src")
		st.Put(Entry{Path: "txt/c.txt", Source: "/src/c.txt", Key: "txt", Size: 1, Checksum: "c", ModTime: mtime})
		st.Put(Entry{Path: "txt/b.txt", Source: "/src/a/b.txt", Key: "txt", Size: 2, Checksum: "b", ModTime: mtime})
		st.Put(Entry{Path: "txt/b.txt", Source: "/src/z/b.txt", Key: "txt", Size: 3, Checksum: "b2", ModTime: mtime})
		require.NoError(t, st.Save(ctx), "saving manifest")

		loaded := New(dir)
		require.NoError(t, loaded.Load(ctx), "loading manifest")

		entries := loaded.Entries()
		require.Len(t, entries, 2, "colliding paths should keep one entry")
		assert.Equal(t, "txt/b.txt", entries[0].Path, "entries should be sorted")
		assert.Equal(t, "/src/z/b.txt", entries[0].Source, "last put should win")
		assert.Equal(t, st.RunID(), entries[0].RunID, "entry should carry the run id")
		assert.True(t, entries[0].ModTime.Equal(mtime), "mod time should round trip")
		assert.Equal(t, "/src", loaded.Source(), "source should round trip")

		matches, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
		require.NoError(t, err)
		assert.Empty(t, matches, "no temp manifests should remain")
	})

	t.Run("corrupt_manifest", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte("{not json"), 0644))

		err := New(dir).Load(ctx)
		require.Error(t, err, "corrupt manifest should fail")
		assert.Contains(t, err.Error(), "parsing manifest")
	})

	t.Run("unsupported_schema", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(`{"schema_version":"9"}`), 0644))

		err := New(dir).Load(ctx)
		require.Error(t, err, "unknown schema should fail")
		assert.Contains(t, err.Error(), "unsupported manifest schema")
	})
}

func TestRemoveAndDelete(t *testing.T) {
	ctx := setupTestLogger(t)
	dir := t.TempDir()

	st := New(dir)
	st.Put(Entry{Path: "a/x.a"})
	st.Put(Entry{Path: "b/y.b"})
	st.Put(Entry{Path: "c/z.c"})

	st.Remove("b/y.b")
	st.Remove("missing")

	_, ok := st.Get("b/y.b")
	assert.False(t, ok, "removed entry should be gone")
	e, ok := st.Get("c/z.c")
	require.True(t, ok, "index should survive removal")
	assert.Equal(t, "c/z.c", e.Path)

	require.NoError(t, st.Save(ctx))
	require.NoError(t, st.Delete(ctx))
	assert.Empty(t, st.Entries(), "delete should clear entries")

	_, err := os.Stat(st.Path())
	assert.True(t, os.IsNotExist(err), "manifest should be removed")
	require.NoError(t, st.Delete(ctx), "deleting twice should succeed")
}

func TestAcquireLock(t *testing.T) {
	ctx := setupTestLogger(t)
	dir := filepath.Join(t.TempDir(), "dist")

	lock, err := AcquireLock(ctx, dir)
	require.NoError(t, err, "first lock should succeed")

	_, err = AcquireLock(ctx, dir)
	require.Error(t, err, "second lock should fail")
	assert.True(t, errors.Is(err, ErrDestinationLocked), "error should be ErrDestinationLocked")

	require.NoError(t, lock.Release(ctx), "release should succeed")

	assert.FileExists(t, filepath.Join(dir, LockFileName), "lock file should stay in place")

	lock, err = AcquireLock(ctx, dir)
	require.NoError(t, err, "lock should be available again")
	require.NoError(t, lock.Release(ctx))
}

func TestLockHandoff(t *testing.T) {
	ctx := setupTestLogger(t)
	dir := filepath.Join(t.TempDir(), "dist")

	first, err := AcquireLock(ctx, dir)
	require.NoError(t, err, "first lock should succeed")
	require.NoError(t, first.Release(ctx), "release should succeed")

	second, err := AcquireLock(ctx, dir)
	require.NoError(t, err, "second run should take over the lock")
	defer func() { _ = second.Release(ctx) }()

	_, err = AcquireLock(ctx, dir)
	require.Error(t, err, "a third run must not lock a fresh file while the second holds the lock")
	assert.True(t, errors.Is(err, ErrDestinationLocked), "error should be ErrDestinationLocked")
}
