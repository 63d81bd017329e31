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


package easyrsa

import "errors"

var (
	// ErrUnknownStep is returned for a PKI step name easyrsa does not know.
	ErrUnknownStep = errors.New("easyrsa: unknown step")

	// ErrMissingOption is returned when a step lacks a required option.
	ErrMissingOption = errors.New("easyrsa: missing option")
)
