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

import "errors"

var (
	// ErrNotFound is returned when a content file or a sidecar does not exist.
	// It describes a valid "artifact absent" state rather than a fault.
	ErrNotFound = errors.New("checksum: not found")

	// ErrCorruptStore is returned (always together with ErrNotFound) when a
	// sidecar exists but does not hold a SHA-256 hex digest.
	ErrCorruptStore = errors.New("checksum: corrupt sidecar")

	// ErrInvalidDigest is returned when a string is not a SHA-256 hex digest.
	ErrInvalidDigest = errors.New("checksum: invalid digest")
)
