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

//go:build !unix

package lock

import "os"

// Advisory locks are not available; reconciliations rely on the
// orchestrator serializing runs.
func tryLock(*os.File) (bool, error) {
	return true, nil
}

func unlock(*os.File) error {
	return nil
}
