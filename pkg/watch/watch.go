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

// Package watch re-runs a sort whenever the source tree changes.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// DefaultDebounce is how long the tree has to stay quiet before a run
const DefaultDebounce = 500 * time.Millisecond

// TriggerFunc is called once per settled burst of changes
type TriggerFunc func(ctx context.Context) error

// 🔧 Options controls what the watcher reacts to
type Options struct {
	// Debounce is the quiet window; DefaultDebounce when zero
	Debounce time.Duration
	// Exclude holds directories whose events are dropped, such as a
	// destination nested in the source
	Exclude []string
	// Ignore holds doublestar globs matched against the slash separated path
	// relative to the root
	Ignore []string
}

// 👀 Watcher watches a directory tree recursively
type Watcher struct {
	root     string
	opts     Options
	exclude  []string
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	paths    map[string]struct{}
	triggers int
}

// 🏭 New starts watching root and every directory below it
func New(ctx context.Context, root string, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Errorf("resolving %s: %w", root, err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		root:    abs,
		opts:    opts,
		watcher: fw,
		paths:   make(map[string]struct{}),
	}
	for _, ex := range opts.Exclude {
		if exAbs, err := filepath.Abs(ex); err == nil {
			w.exclude = append(w.exclude, exAbs)
		}
	}

	if err := w.addTree(ctx, abs); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Paths returns the number of watched directories
func (w *Watcher) Paths() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.paths)
}

// Triggers returns how many times the trigger ran
func (w *Watcher) Triggers() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.triggers
}

// 🔄 Run feeds events into trigger until ctx is done. Trigger errors are
// logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context, trigger TriggerFunc) error {
	logger := zerolog.Ctx(ctx)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ctx, event) {
				continue
			}
			logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("source changed")
			if timer == nil {
				timer = time.NewTimer(w.opts.Debounce)
			} else {
				timer.Reset(w.opts.Debounce)
			}
			fire = timer.C
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn().Err(err).Msg("watcher error")
		case <-fire:
			fire = nil
			w.mu.Lock()
			w.triggers++
			w.mu.Unlock()
			if err := trigger(ctx); err != nil {
				logger.Error().Err(err).Msg("re-sorting after change")
			}
		}
	}
}

// relevant filters an event and watches directories as they appear
func (w *Watcher) relevant(ctx context.Context, event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	if w.skip(ctx, event.Name) {
		return false
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		w.forget(ctx, event.Name)
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Lstat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(ctx, event.Name); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Str("path", event.Name).Msg("watching new directory")
			}
		}
	}
	return true
}

func (w *Watcher) skip(ctx context.Context, path string) bool {
	for _, ex := range w.exclude {
		if path == ex || strings.HasPrefix(path, ex+string(filepath.Separator)) {
			return true
		}
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range w.opts.Ignore {
		if matched, _ := doublestar.Match(pattern, rel); matched {
			return true
		}
	}
	return false
}

// forget drops path and everything below it so a directory recreated at the
// same path is watched again
func (w *Watcher) forget(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	prefix := path + string(filepath.Separator)
	for p := range w.paths {
		if p != path && !strings.HasPrefix(p, prefix) {
			continue
		}
		delete(w.paths, p)
		// the kernel drops watches of deleted directories itself
		_ = w.watcher.Remove(p)
		zerolog.Ctx(ctx).Debug().Str("path", p).Msg("stopped watching")
	}
}

func (w *Watcher) addTree(ctx context.Context, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root && !errors.Is(err, fs.ErrPermission) {
				return errors.Errorf("walking %s: %w", path, err)
			}
			zerolog.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("not watching unreadable path")
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.skip(ctx, path) {
			return filepath.SkipDir
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if _, ok := w.paths[path]; ok {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			zerolog.Ctx(ctx).Debug().Err(err).Str("path", path).Msg("watch add failed")
			return nil
		}
		w.paths[path] = struct{}{}
		return nil
	})
}
