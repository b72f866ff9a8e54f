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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// dirCacheSize bounds the number of key directories remembered per run
const dirCacheSize = 512

// 📊 FileStatus represents the state of a destination file
type FileStatus int

const (
	StatusUnknown   FileStatus = iota
	StatusNew                  // File doesn't exist in destination
	StatusModified             // File exists but content differs
	StatusUnchanged            // File exists and content matches
	StatusDeleted              // File was deleted
)

// String returns a string representation of FileStatus
func (s FileStatus) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusModified:
		return "modified"
	case StatusUnchanged:
		return "unchanged"
	case StatusDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// 📄 FileInfo contains metadata about a destination file
type FileInfo struct {
	Path     string      // Slash separated path relative to the destination root
	Source   string      // Source file it was copied from
	Status   FileStatus  // Current status
	Size     int64       // File size in bytes
	Mode     os.FileMode // File permissions
	ModTime  time.Time   // Modification time carried over from the source
	Checksum string      // SHA-256 of the content
	Error    error       // Any error associated with this file
}

// 🔧 Manager owns every write under the destination root
type Manager struct {
	baseDir   string          // Destination root
	logger    *zerolog.Logger // Logger for status updates
	formatter FileFormatter   // Formatter for status messages
	dirs      *lru.Cache[string, struct{}]

	// Progress tracking
	mu        sync.RWMutex
	total     int
	processed int
}

// 🏭 New creates a new status manager rooted at baseDir. Nothing is created
// on disk until the first copy.
func New(baseDir string, logger *zerolog.Logger) *Manager {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	dirs, _ := lru.New[string, struct{}](dirCacheSize)
	return &Manager{
		baseDir:   filepath.Clean(baseDir),
		logger:    logger,
		formatter: NewDefaultFileFormatter(),
		dirs:      dirs,
	}
}

// BaseDir returns the destination root
func (m *Manager) BaseDir() string {
	return m.baseDir
}

// 🔒 getAbsPath returns the path on disk for a slash separated relative path
func (m *Manager) getAbsPath(path string) string {
	return filepath.Join(m.baseDir, filepath.FromSlash(path))
}

// 🔍 ChecksumFile returns the hex SHA-256 of a file's content
func ChecksumFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", errors.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// 📁 EnsureDir creates a directory under the root once per run
func (m *Manager) EnsureDir(ctx context.Context, path string) error {
	if _, ok := m.dirs.Get(path); ok {
		return nil
	}
	if err := os.MkdirAll(m.getAbsPath(path), 0755); err != nil {
		return errors.Errorf("creating directory %s: %w", path, err)
	}
	m.dirs.Add(path, struct{}{})
	return nil
}

// 🔎 Plan reports what copying src to path would do, without writing
func (m *Manager) Plan(ctx context.Context, src, path string) (FileInfo, error) {
	info := FileInfo{Path: path, Source: src}

	st, err := os.Stat(src)
	if err != nil {
		return info, errors.Errorf("reading source: %w", err)
	}
	info.Size = st.Size()
	info.Mode = st.Mode().Perm()
	info.ModTime = st.ModTime()

	sum, err := ChecksumFile(src)
	if err != nil {
		return info, err
	}
	info.Checksum = sum

	existing, err := m.existingChecksum(path)
	if err != nil {
		return info, err
	}
	info.Status = compare(existing, sum)
	return info, nil
}

// 📋 CopyFile copies src to path under the root. Content is streamed to a
// temp file next to the target and renamed into place; when the existing
// file already has the same content it is left alone and only its metadata
// is synced.
func (m *Manager) CopyFile(ctx context.Context, src, path string) (FileInfo, error) {
	info := FileInfo{Path: path, Source: src}

	in, err := os.Open(src)
	if err != nil {
		return info, errors.Errorf("opening source: %w", err)
	}
	defer in.Close()

	st, err := in.Stat()
	if err != nil {
		return info, errors.Errorf("reading source: %w", err)
	}
	info.Size = st.Size()
	info.Mode = st.Mode().Perm()
	info.ModTime = st.ModTime()

	existing, err := m.existingChecksum(path)
	if err != nil {
		return info, err
	}

	dir := filepath.Dir(path)
	if err := m.EnsureDir(ctx, dir); err != nil {
		return info, err
	}

	absPath := m.getAbsPath(path)
	tmp, err := os.CreateTemp(filepath.Dir(absPath), ".extsort-*.tmp")
	if errors.Is(err, fs.ErrNotExist) {
		// the key directory was removed behind the cache's back
		m.dirs.Remove(dir)
		if err := m.EnsureDir(ctx, dir); err != nil {
			return info, err
		}
		tmp, err = os.CreateTemp(filepath.Dir(absPath), ".extsort-*.tmp")
	}
	if err != nil {
		return info, errors.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	h := sha256.New()
	if _, err := io.Copy(tmp, io.TeeReader(in, h)); err != nil {
		tmp.Close()
		return info, errors.Errorf("copying content: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return info, errors.Errorf("closing temp file: %w", err)
	}
	info.Checksum = hex.EncodeToString(h.Sum(nil))
	info.Status = compare(existing, info.Checksum)

	if info.Status == StatusUnchanged {
		if err := syncMetadata(absPath, info); err != nil {
			return info, err
		}
		m.TrackFile(ctx, path, info)
		return info, nil
	}

	if err := syncMetadata(tmpPath, info); err != nil {
		return info, err
	}
	if err := os.Rename(tmpPath, absPath); err != nil {
		return info, errors.Errorf("renaming temp file: %w", err)
	}
	committed = true

	m.TrackFile(ctx, path, info)
	return info, nil
}

func (m *Manager) existingChecksum(path string) (string, error) {
	sum, err := ChecksumFile(m.getAbsPath(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", errors.Errorf("reading existing copy: %w", err)
	}
	return sum, nil
}

func compare(existing, sum string) FileStatus {
	switch existing {
	case "":
		return StatusNew
	case sum:
		return StatusUnchanged
	default:
		return StatusModified
	}
}

func syncMetadata(path string, info FileInfo) error {
	if err := os.Chmod(path, info.Mode); err != nil {
		return errors.Errorf("setting mode: %w", err)
	}
	if err := os.Chtimes(path, info.ModTime, info.ModTime); err != nil {
		return errors.Errorf("setting times: %w", err)
	}
	return nil
}

func (m *Manager) FileExists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(m.getAbsPath(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, errors.Errorf("checking file existence: %w", err)
}

// DeleteFile removes a file under the root. A missing file is not an error.
func (m *Manager) DeleteFile(ctx context.Context, path string) error {
	if err := os.Remove(m.getAbsPath(path)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Errorf("deleting file: %w", err)
	}
	m.TrackFile(ctx, path, FileInfo{Path: path, Status: StatusDeleted})
	return nil
}

// RemoveDirIfEmpty removes a directory under the root when it has no entries
func (m *Manager) RemoveDirIfEmpty(ctx context.Context, path string) (bool, error) {
	abs := m.getAbsPath(path)
	entries, err := os.ReadDir(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.Errorf("reading directory: %w", err)
	}
	if len(entries) > 0 {
		return false, nil
	}
	if err := os.Remove(abs); err != nil {
		return false, errors.Errorf("removing directory: %w", err)
	}
	m.dirs.Remove(path)
	return true, nil
}

// StatusReporter implementation

// TrackFile logs the outcome of a write at debug level
func (m *Manager) TrackFile(ctx context.Context, path string, info FileInfo) {
	msg := m.formatter.FormatFileOperation(path, info.Status)
	if info.Error != nil {
		msg = m.formatter.FormatError(info.Error)
	}
	m.logger.Debug().Str("path", path).Str("status", info.Status.String()).Msg(msg)
}

func (m *Manager) StartOperation(ctx context.Context, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.total = total
	m.processed = 0
	msg := m.formatter.FormatProgress(0, total)
	m.logger.Debug().Int("total", total).Msg(msg)
}

func (m *Manager) UpdateProgress(ctx context.Context, processed int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.processed = processed
	msg := m.formatter.FormatProgress(processed, m.total)
	m.logger.Debug().
		Int("processed", processed).
		Int("total", m.total).
		Msg(msg)
}

func (m *Manager) FinishOperation(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := m.formatter.FormatProgress(m.processed, m.total)
	m.logger.Debug().
		Int("processed", m.processed).
		Int("total", m.total).
		Msg(msg)
}

// Progress returns the processed and total counters of the current operation
func (m *Manager) Progress() (processed, total int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.processed, m.total
}
