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

package checksum

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// AlgorithmSHA256 is the only digest algorithm the store produces.
const AlgorithmSHA256 = "sha256"

// digestHexLen is the length of a hex encoded SHA-256 digest.
const digestHexLen = sha256.Size * 2

// Record is a content digest as persisted in a sidecar file.
type Record struct {
	Algorithm string `json:"algorithm"`
	Digest    string `json:"digest"`
}

// Sum hashes data the way every tracked file is hashed: exactly one trailing
// newline is stripped before computing SHA-256, so an editor that appends a
// final newline does not register as drift.
func Sum(data []byte) *Record {
	data = bytes.TrimSuffix(data, []byte("\n"))
	sum := sha256.Sum256(data)
	return &Record{
		Algorithm: AlgorithmSHA256,
		Digest:    hex.EncodeToString(sum[:]),
	}
}

// ParseRecord parses the first line of a sidecar into a Record.
func ParseRecord(data []byte) (*Record, error) {
	line, _, _ := strings.Cut(string(data), "\n")
	line = strings.ToLower(strings.TrimSpace(line))
	if len(line) != digestHexLen {
		return nil, fmt.Errorf("%w: %d characters, want %d", ErrInvalidDigest, len(line), digestHexLen)
	}
	if _, err := hex.DecodeString(line); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDigest, err)
	}
	return &Record{Algorithm: AlgorithmSHA256, Digest: line}, nil
}

// Equal reports whether two records carry the same digest. A nil record is
// only equal to another nil record.
func (r *Record) Equal(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Algorithm == other.Algorithm && r.Digest == other.Digest
}

// String returns the hex digest, or "<none>" for a nil record.
func (r *Record) String() string {
	if r == nil {
		return "<none>"
	}
	return r.Digest
}
