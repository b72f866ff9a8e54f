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

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// LockFileName is the advisory lock held in the destination root during a run
const LockFileName = ".extsort.flock"

var ErrDestinationLocked = errors.Base("destination is locked by another run")

// 🔒 Lock is an advisory lock on a destination
type Lock struct {
	flock *flock.Flock
	path  string
}

// 🔒 AcquireLock takes the destination lock without blocking. The
// destination directory is created when missing.
func AcquireLock(ctx context.Context, dir string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Errorf("creating destination: %w", err)
	}

	path := filepath.Join(dir, LockFileName)
	fl := flock.New(path)
	acquired, err := fl.TryLock()
	if err != nil {
		return nil, errors.Errorf("locking %s: %w", path, err)
	}
	if !acquired {
		return nil, errors.Errorf("%w: %s", ErrDestinationLocked, dir)
	}

	zerolog.Ctx(ctx).Debug().Str("path", path).Msg("acquired destination lock")
	return &Lock{flock: fl, path: path}, nil
}

// Release unlocks the destination. The lock file stays on disk: removing it
// would let a waiting run lock an unlinked inode while a third run creates
// and locks a fresh file at the same path.
func (l *Lock) Release(ctx context.Context) error {
	if err := l.flock.Unlock(); err != nil {
		return errors.Errorf("unlocking %s: %w", l.path, err)
	}
	zerolog.Ctx(ctx).Debug().Str("path", l.path).Msg("released destination lock")
	return nil
}
