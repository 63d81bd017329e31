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


package render

import "errors"

var (
	// ErrNestedBlock is returned when a BEGIN marker appears inside a block.
	ErrNestedBlock = errors.New("render: certificate start found but block already started")

	// ErrUnmatchedEnd is returned for an END marker without BEGIN.
	ErrUnmatchedEnd = errors.New("render: certificate end found without start")

	// ErrUnterminatedBlock is returned when the input ends inside a block.
	ErrUnterminatedBlock = errors.New("render: certificate file is corrupted")

	// ErrNoCertificate is returned when the input holds no certificate.
	ErrNoCertificate = errors.New("render: no certificate found")

	// ErrTemplate wraps template parse and execution failures.
	ErrTemplate = errors.New("render: template error")
)
