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


package reconcile

import "errors"

var (
	// ErrExternalCommand is wrapped by results of a command that exited
	// non-zero.
	ErrExternalCommand = errors.New("reconcile: external command failed")

	// ErrMissingInput is wrapped by results when key or certificate
	// material needed for rendering does not exist.
	ErrMissingInput = errors.New("reconcile: missing input")
)
