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

import "fmt"

// State is the lifecycle state of an artifact set.
type State int

const (
	// StateAbsent means no tracked file and no sidecar exist.
	StateAbsent State = iota

	// StatePendingChecksum means every file exists but at least one has no
	// recorded digest yet.
	StatePendingChecksum

	// StateTrackedValid means every file exists and matches its digest.
	StateTrackedValid

	// StateDrifted means at least one file differs from its digest.
	StateDrifted

	// StateIncomplete means some constituents are missing.
	StateIncomplete

	// StateRevoked is terminal until the subject's state is cleared.
	StateRevoked
)

// String returns the state name used in logs and JSON output.
func (s State) String() string {
	switch s {
	case StateAbsent:
		return "absent"
	case StatePendingChecksum:
		return "pending_checksum"
	case StateTrackedValid:
		return "tracked_valid"
	case StateDrifted:
		return "drifted"
	case StateIncomplete:
		return "incomplete"
	case StateRevoked:
		return "revoked"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
