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


package crl

import "errors"

var (
	// ErrCRLNotFound is returned when the CRL file does not exist.
	ErrCRLNotFound = errors.New("crl: CRL not found")

	// ErrCRLInvalid is returned when the CRL cannot be decoded.
	ErrCRLInvalid = errors.New("crl: invalid CRL")
)
