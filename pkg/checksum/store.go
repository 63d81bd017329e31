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

// Package checksum implements the sidecar digest store used as the
// idempotency gate for PKI artifacts and rendered client bundles.
//
// Content files are read through an afero filesystem rooted at the directory
// the external tooling writes to. Digests live in a storage.Backend, one
// plain-text sidecar per tracked file holding exactly one hex digest line.
// The store is the only writer of sidecars.
package checksum

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/afero"

	"github.com/jeremyhahn/go-ovpnpki/pkg/storage"
)

// Status classifies the outcome of Validate for a single tracked file.
type Status int

const (
	// StatusAbsent means neither the content file nor its sidecar exist.
	StatusAbsent Status = iota

	// StatusBootstrapped means the content existed without a usable sidecar;
	// the current digest was recorded and the file is treated as unchanged.
	StatusBootstrapped

	// StatusUnchanged means the recorded digest matches the content.
	StatusUnchanged

	// StatusChanged means the content no longer matches the recorded digest.
	StatusChanged

	// StatusContentMissing means a sidecar exists but its content file is gone.
	StatusContentMissing

	// StatusUntracked means the content exists without a usable sidecar. Only
	// Check reports it; Validate records the digest and reports
	// StatusBootstrapped instead.
	StatusUntracked
)

// String returns the status name used in logs and JSON output.
func (s Status) String() string {
	switch s {
	case StatusAbsent:
		return "absent"
	case StatusBootstrapped:
		return "bootstrapped"
	case StatusUnchanged:
		return "unchanged"
	case StatusChanged:
		return "changed"
	case StatusContentMissing:
		return "content_missing"
	case StatusUntracked:
		return "untracked"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Validation is the result of comparing a content file with its sidecar.
type Validation struct {
	Status   Status  `json:"status"`
	Current  *Record `json:"current,omitempty"`
	Previous *Record `json:"previous,omitempty"`
}

// Changed reports whether the content drifted from its recorded digest.
func (v *Validation) Changed() bool {
	return v.Status == StatusChanged
}

// Store computes, persists and compares content digests.
type Store struct {
	content  afero.Fs
	sidecars storage.Backend
}

// NewStore creates a Store reading content files from content and keeping
// sidecars in sidecars. Content paths passed to the store are resolved by the
// filesystem, so callers normally hand in an afero.BasePathFs rooted at the
// PKI or bundle directory.
func NewStore(content afero.Fs, sidecars storage.Backend) *Store {
	return &Store{
		content:  content,
		sidecars: sidecars,
	}
}

// Digest hashes the content file at path.
// Returns ErrNotFound if the file does not exist.
func (s *Store) Digest(path string) (*Record, error) {
	data, err := afero.ReadFile(s.content, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("checksum: failed to read %s: %w", path, err)
	}
	return Sum(data), nil
}

// Persist writes record as the sole content of the sidecar, replacing any
// previous value.
func (s *Store) Persist(checksumKey string, record *Record) error {
	if record == nil {
		return fmt.Errorf("checksum: refusing to persist nil record for %s", checksumKey)
	}
	if err := s.sidecars.Put(checksumKey, []byte(record.Digest), storage.DefaultOptions()); err != nil {
		return fmt.Errorf("checksum: failed to persist %s: %w", checksumKey, err)
	}
	return nil
}

// Record hashes the content at path and persists the digest to checksumKey.
func (s *Store) Record(checksumKey, path string) (*Record, error) {
	record, err := s.Digest(path)
	if err != nil {
		return nil, err
	}
	if err := s.Persist(checksumKey, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Load reads the digest recorded in a sidecar.
// Returns ErrNotFound if the sidecar does not exist. A sidecar that is empty
// or not a digest yields an error matching both ErrNotFound and
// ErrCorruptStore so that callers recover from it by bootstrapping.
func (s *Store) Load(checksumKey string) (*Record, error) {
	data, err := s.sidecars.Get(checksumKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, checksumKey)
		}
		return nil, fmt.Errorf("checksum: failed to load %s: %w", checksumKey, err)
	}

	record, err := ParseRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %s: %v", ErrNotFound, ErrCorruptStore, checksumKey, err)
	}
	return record, nil
}

// Check compares the content at contentPath with the digest recorded in
// checksumKey without writing anything.
func (s *Store) Check(checksumKey, contentPath string) (*Validation, error) {
	current, err := s.Digest(contentPath)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	previous, err := s.Load(checksumKey)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	switch {
	case current == nil && previous == nil:
		return &Validation{Status: StatusAbsent}, nil
	case current == nil:
		return &Validation{Status: StatusContentMissing, Previous: previous}, nil
	case previous == nil:
		return &Validation{Status: StatusUntracked, Current: current}, nil
	case current.Equal(previous):
		return &Validation{Status: StatusUnchanged, Current: current, Previous: previous}, nil
	default:
		return &Validation{Status: StatusChanged, Current: current, Previous: previous}, nil
	}
}

// Validate is Check followed by the first-observation bootstrap: a content
// file without a usable sidecar has its digest recorded and is reported as
// unchanged. A sidecar that disagrees with its content is never rewritten.
func (s *Store) Validate(checksumKey, contentPath string) (*Validation, error) {
	v, err := s.Check(checksumKey, contentPath)
	if err != nil {
		return nil, err
	}
	if v.Status != StatusUntracked {
		return v, nil
	}

	if err := s.Persist(checksumKey, v.Current); err != nil {
		return nil, err
	}
	v.Status = StatusBootstrapped
	return v, nil
}

// Exists reports whether a content file exists.
func (s *Store) Exists(path string) (bool, error) {
	ok, err := afero.Exists(s.content, path)
	if err != nil {
		return false, fmt.Errorf("checksum: failed to stat %s: %w", path, err)
	}
	return ok, nil
}

// Remove deletes a sidecar. A missing sidecar is not an error.
func (s *Store) Remove(checksumKey string) error {
	if err := s.sidecars.Delete(checksumKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("checksum: failed to remove %s: %w", checksumKey, err)
	}
	return nil
}

// Sidecars exposes the backend holding the sidecars.
func (s *Store) Sidecars() storage.Backend {
	return s.sidecars
}

// Content exposes the filesystem content paths are resolved against.
func (s *Store) Content() afero.Fs {
	return s.content
}
