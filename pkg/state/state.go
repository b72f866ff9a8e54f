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

// Package state records what a run copied into a destination so later runs
// can report on it and clean it up.
package state

import (
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const (
	// FileName is the manifest written to the destination root
	FileName = ".extsort.lock"

	SchemaVersion = "1.0.0"
)

// 📦 File is the on-disk manifest
type File struct {
	SchemaVersion string    `json:"schema_version"`
	LastUpdated   time.Time `json:"last_updated"`
	RunID         string    `json:"run_id"`
	Source        string    `json:"source"`
	Files         []Entry   `json:"files"`
}

// 📄 Entry is one copied file
type Entry struct {
	Path     string    `json:"path"` // slash separated, relative to the destination
	Source   string    `json:"source"`
	Key      string    `json:"key"`
	Size     int64     `json:"size"`
	Checksum string    `json:"checksum"`
	ModTime  time.Time `json:"mod_time"`
	RunID    string    `json:"run_id"`
}

// 🗂️ State wraps the manifest of one destination
type State struct {
	path  string
	runID string

	mu    sync.Mutex
	file  *File
	index map[string]int
}

// 🏭 New creates an empty state for the destination dir. Nothing is read or
// written until Load or Save.
func New(dir string) *State {
	return &State{
		path:  filepath.Join(dir, FileName),
		runID: uuid.NewString(),
		file:  &File{SchemaVersion: SchemaVersion},
		index: make(map[string]int),
	}
}

// Path returns the manifest path
func (s *State) Path() string {
	return s.path
}

// RunID identifies the current run
func (s *State) RunID() string {
	return s.runID
}

// 📥 Load reads the manifest. A missing manifest leaves the state empty.
func (s *State) Load(ctx context.Context) error {
	zerolog.Ctx(ctx).Debug().Str("path", s.path).Msg("loading manifest")

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return errors.Errorf("reading manifest: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return errors.Errorf("parsing manifest %s: %w", s.path, err)
	}
	if file.SchemaVersion != SchemaVersion {
		return errors.Errorf("unsupported manifest schema %q", file.SchemaVersion)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.file = &file
	s.reindex()
	return nil
}

// 💾 Save writes the manifest atomically
func (s *State) Save(ctx context.Context) error {
	s.mu.Lock()
	s.file.LastUpdated = time.Now().UTC()
	s.file.RunID = s.runID
	sort.Slice(s.file.Files, func(i, j int) bool { return s.file.Files[i].Path < s.file.Files[j].Path })
	s.reindex()
	data, err := json.MarshalIndent(s.file, "", "  ")
	s.mu.Unlock()
	if err != nil {
		return errors.Errorf("encoding manifest: %w", err)
	}

	zerolog.Ctx(ctx).Debug().Str("path", s.path).Msg("saving manifest")

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return errors.Errorf("creating manifest directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".extsort-lock-*.tmp")
	if err != nil {
		return errors.Errorf("creating temp manifest: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return errors.Errorf("writing temp manifest: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("closing temp manifest: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return errors.Errorf("renaming temp manifest: %w", err)
	}
	return nil
}

// 🗑️ Delete removes the manifest from disk and clears the state
func (s *State) Delete(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Errorf("removing manifest: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.file = &File{SchemaVersion: SchemaVersion}
	s.reindex()
	return nil
}

// SetSource records the source root of the current run
func (s *State) SetSource(source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.file.Source = source
}

// Source returns the recorded source root
func (s *State) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Source
}

// ✏️ Put adds or replaces the entry for e.Path and stamps it with the run id
func (s *State) Put(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.RunID = s.runID
	if i, ok := s.index[e.Path]; ok {
		s.file.Files[i] = e
		return
	}
	s.index[e.Path] = len(s.file.Files)
	s.file.Files = append(s.file.Files, e)
}

// Get returns the entry for a destination path
func (s *State) Get(path string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[path]
	if !ok {
		return Entry{}, false
	}
	return s.file.Files[i], true
}

// Remove drops the entry for a destination path
func (s *State) Remove(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[path]
	if !ok {
		return
	}
	s.file.Files = append(s.file.Files[:i], s.file.Files[i+1:]...)
	s.reindex()
}

// Entries returns a copy of all entries sorted by path
func (s *State) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, len(s.file.Files))
	copy(out, s.file.Files)
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (s *State) reindex() {
	s.index = make(map[string]int, len(s.file.Files))
	for i, e := range s.file.Files {
		s.index[e.Path] = i
	}
}
