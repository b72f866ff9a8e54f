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

// Package walk traverses a source tree depth-first and hands every regular
// file to a visitor. Directories that cannot be read are reported and
// skipped; the rest of the tree is still visited.
package walk

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

var (
	ErrSourceNotFound     = errors.Base("source directory does not exist")
	ErrSourceNotDirectory = errors.Base("source path is not a directory")
)

// 🔧 Options controls what the walker visits
type Options struct {
	// Ignore holds doublestar globs matched against the slash separated path
	// relative to the root. Matching files are skipped, matching directories
	// are pruned.
	Ignore []string
	// Exclude holds paths that are pruned wherever they appear in the tree.
	Exclude []string
	// FollowSymlinks descends into symlinked directories and visits
	// symlinked files. Off in the zero value.
	FollowSymlinks bool
	// ReadDir lists a directory. Defaults to os.ReadDir.
	ReadDir func(dir string) ([]fs.DirEntry, error)
	// OnError is called for every directory or entry that could not be read.
	OnError func(ctx context.Context, err *EntryError)
}

// 📄 Entry is a regular file found under the root
type Entry struct {
	Path string      // absolute path
	Rel  string      // slash separated path relative to the root
	Info fs.FileInfo // info of the file (of the link target when following links)
}

// ❌ EntryError is a recovered failure on one path
type EntryError struct {
	Path string
	Err  error
}

func (e *EntryError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Permission reports whether the failure was a permission denial
func (e *EntryError) Permission() bool {
	return errors.Is(e.Err, fs.ErrPermission)
}

// 📊 Result summarises a walk
type Result struct {
	Files   int
	Dirs    int
	Skipped int
	Errors  []*EntryError
}

// VisitFunc is called for every regular file. Returning an error stops the walk.
type VisitFunc func(ctx context.Context, entry Entry) error

type walker struct {
	root    string
	opts    Options
	exclude map[string]struct{}
	visited map[string]struct{}
	result  *Result
	visit   VisitFunc
}

// 🔍 CheckRoot verifies that root exists and is a directory
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return errors.Errorf("%w: %s", ErrSourceNotFound, root)
		}
		return errors.Errorf("checking source %s: %w", root, err)
	}
	if !info.IsDir() {
		return errors.Errorf("%w: %s", ErrSourceNotDirectory, root)
	}
	return nil
}

// 🚶 Walk visits every regular file under root in lexical depth-first order.
//
// The returned error is non-nil only when root is unusable, the context is
// cancelled, or visit returns an error. Unreadable directories end up in
// Result.Errors.
func Walk(ctx context.Context, root string, opts Options, visit VisitFunc) (*Result, error) {
	if err := CheckRoot(root); err != nil {
		return nil, err
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving source %s: %w", root, err)
	}

	for _, pattern := range opts.Ignore {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	if opts.ReadDir == nil {
		opts.ReadDir = os.ReadDir
	}

	w := &walker{
		root:    absRoot,
		opts:    opts,
		exclude: make(map[string]struct{}, len(opts.Exclude)),
		visited: make(map[string]struct{}),
		result:  &Result{},
		visit:   visit,
	}

	for _, ex := range opts.Exclude {
		abs, err := filepath.Abs(ex)
		if err != nil {
			continue
		}
		w.exclude[abs] = struct{}{}
	}

	if opts.FollowSymlinks {
		if real, err := filepath.EvalSymlinks(absRoot); err == nil {
			w.visited[real] = struct{}{}
		}
	}

	if err := w.walkDir(ctx, absRoot); err != nil {
		return w.result, err
	}

	return w.result, nil
}

func (w *walker) walkDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return errors.Errorf("walk cancelled: %w", err)
	}

	entries, err := w.opts.ReadDir(dir)
	if err != nil {
		w.fail(ctx, dir, err)
		// ReadDir may still return the entries read before the failure
		if len(entries) == 0 {
			return nil
		}
	}
	w.result.Dirs++

	for _, de := range entries {
		if err := ctx.Err(); err != nil {
			return errors.Errorf("walk cancelled: %w", err)
		}

		path := filepath.Join(dir, de.Name())
		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			w.fail(ctx, path, err)
			continue
		}
		rel = filepath.ToSlash(rel)

		if _, ok := w.exclude[path]; ok {
			zerolog.Ctx(ctx).Debug().Str("path", rel).Msg("pruning excluded path")
			w.result.Skipped++
			continue
		}

		if w.ignored(ctx, rel) {
			w.result.Skipped++
			continue
		}

		if err := w.walkEntry(ctx, path, rel, de); err != nil {
			return err
		}
	}

	return nil
}

func (w *walker) walkEntry(ctx context.Context, path, rel string, de fs.DirEntry) error {
	mode := de.Type()

	if mode&fs.ModeSymlink != 0 {
		if !w.opts.FollowSymlinks {
			zerolog.Ctx(ctx).Debug().Str("path", rel).Msg("skipping symlink")
			w.result.Skipped++
			return nil
		}
		return w.walkLink(ctx, path, rel)
	}

	switch {
	case mode.IsDir():
		return w.walkDir(ctx, path)
	case mode.IsRegular():
		info, err := de.Info()
		if err != nil {
			w.fail(ctx, path, err)
			return nil
		}
		return w.file(ctx, path, rel, info)
	default:
		zerolog.Ctx(ctx).Debug().Str("path", rel).Str("mode", mode.String()).Msg("skipping irregular file")
		w.result.Skipped++
		return nil
	}
}

func (w *walker) walkLink(ctx context.Context, path, rel string) error {
	info, err := os.Stat(path)
	if err != nil {
		w.fail(ctx, path, err)
		return nil
	}

	if info.Mode().IsRegular() {
		return w.file(ctx, path, rel, info)
	}

	if !info.IsDir() {
		w.result.Skipped++
		return nil
	}

	real, err := filepath.EvalSymlinks(path)
	if err != nil {
		w.fail(ctx, path, err)
		return nil
	}
	if _, seen := w.visited[real]; seen {
		zerolog.Ctx(ctx).Debug().Str("path", rel).Str("target", real).Msg("skipping symlink cycle")
		w.result.Skipped++
		return nil
	}
	w.visited[real] = struct{}{}

	return w.walkDir(ctx, path)
}

func (w *walker) file(ctx context.Context, path, rel string, info fs.FileInfo) error {
	w.result.Files++
	if err := w.visit(ctx, Entry{Path: path, Rel: rel, Info: info}); err != nil {
		return errors.Errorf("visiting %s: %w", rel, err)
	}
	return nil
}

func (w *walker) ignored(ctx context.Context, rel string) bool {
	for _, pattern := range w.opts.Ignore {
		matched, err := doublestar.Match(pattern, rel)
		if err != nil {
			zerolog.Ctx(ctx).Debug().Str("pattern", pattern).Str("path", rel).Err(err).Msg("error matching pattern")
			continue
		}
		if matched {
			zerolog.Ctx(ctx).Debug().Str("path", rel).Str("pattern", pattern).Msg("path ignored by pattern")
			return true
		}
	}
	return false
}

func (w *walker) fail(ctx context.Context, path string, err error) {
	ee := &EntryError{Path: path, Err: err}
	w.result.Errors = append(w.result.Errors, ee)
	zerolog.Ctx(ctx).Debug().Str("path", path).Err(err).Msg("recovered walk error")
	if w.opts.OnError != nil {
		w.opts.OnError(ctx, ee)
	}
}
