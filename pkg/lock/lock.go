// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-ovpnpki.
//
// go-ovpnpki is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package lock serializes reconciliations of the same subject across
// processes with an advisory file lock held around the
// validate, command, persist sequence.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// ErrInvalidName is returned for lock names that are not safe file names.
var ErrInvalidName = errors.New("lock: invalid name")

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-\.@]+$`)

// Locker acquires a lock keyed by name.
type Locker interface {
	Lock(ctx context.Context, name string) (Unlock, error)
}

// Unlock releases a held lock.
type Unlock func() error

// File is a Locker backed by flock(2) on one file per name inside Dir.
type File struct {
	Dir string

	// PollInterval is the delay between attempts while another process
	// holds the lock. Defaults to 100ms.
	PollInterval time.Duration
}

// NewFile returns a File locker keeping lock files in dir.
func NewFile(dir string) *File {
	return &File{Dir: dir, PollInterval: 100 * time.Millisecond}
}

// Lock blocks until the lock for name is acquired or ctx is done.
func (f *File) Lock(ctx context.Context, name string) (Unlock, error) {
	if !namePattern.MatchString(name) || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := os.MkdirAll(f.Dir, 0700); err != nil {
		return nil, fmt.Errorf("lock: failed to create %s: %w", f.Dir, err)
	}

	path := filepath.Join(f.Dir, name+".lock")
	// #nosec G304 - lock names are validated above
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("lock: failed to open %s: %w", path, err)
	}

	interval := f.PollInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	for {
		locked, err := tryLock(file)
		if err != nil {
			_ = file.Close()
			return nil, fmt.Errorf("lock: failed to lock %s: %w", path, err)
		}
		if locked {
			break
		}

		select {
		case <-ctx.Done():
			_ = file.Close()
			return nil, fmt.Errorf("lock: waiting for %s: %w", path, ctx.Err())
		case <-time.After(interval):
		}
	}

	return func() error {
		unlockErr := unlock(file)
		closeErr := file.Close()
		return errors.Join(unlockErr, closeErr)
	}, nil
}

// Nop is a Locker that never blocks. Used when locking is disabled
// (lock.enabled: false or --no-lock) and in tests.
type Nop struct{}

// Lock returns immediately.
func (Nop) Lock(context.Context, string) (Unlock, error) {
	return func() error { return nil }, nil
}
