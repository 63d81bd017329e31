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

package artifact

import "errors"

var (
	// ErrIncompleteArtifactSet is returned when some but not all constituents
	// of a set exist, or a recorded constituent has disappeared.
	ErrIncompleteArtifactSet = errors.New("artifact: incomplete artifact set")

	// ErrChecksumDrift is returned when a constituent no longer matches its
	// recorded digest.
	ErrChecksumDrift = errors.New("artifact: checksum drift")

	// ErrRevoked is returned when the subject's identity has been revoked and
	// its state was not cleared.
	ErrRevoked = errors.New("artifact: subject revoked")
)
