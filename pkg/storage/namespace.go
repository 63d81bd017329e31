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

package storage

import (
	"errors"
	"strings"
)

const (
	// SidecarExt is the suffix of every checksum sidecar key.
	SidecarExt = ".sha256"

	// TombstoneName marks a subject whose identity has been revoked.
	TombstoneName = "revoked"

	// CRLPendingName marks a revocation the CRL does not reflect yet.
	CRLPendingName = "crl-pending"
)

// SidecarKey returns the storage key of a checksum sidecar inside a
// per-subject cache directory. The key follows the convention:
// {subject}/{name}.sha256
func SidecarKey(subject, name string) string {
	return subject + "/" + name + SidecarExt
}

// TombstoneKey returns the storage key of a subject's revocation marker.
// The key follows the convention: {subject}/revoked
func TombstoneKey(subject string) string {
	return subject + "/" + TombstoneName
}

// CRLPendingKey returns the storage key of a subject's pending CRL marker.
// The key follows the convention: {subject}/crl-pending
func CRLPendingKey(subject string) string {
	return subject + "/" + CRLPendingName
}

// BundleSidecarKey returns the hidden sidecar key that sits next to a
// rendered client bundle: .{subject}.ovpn.sha256
func BundleSidecarKey(subject string) string {
	return "." + subject + ".ovpn" + SidecarExt
}

// ListSubjects returns the distinct subjects that have at least one entry in
// a per-subject cache backend.
func ListSubjects(backend Backend) ([]string, error) {
	keys, err := backend.List("")
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	subjects := make([]string, 0)
	for _, k := range keys {
		subject, _, ok := strings.Cut(k, "/")
		if !ok || subject == "" {
			continue
		}
		if _, dup := seen[subject]; dup {
			continue
		}
		seen[subject] = struct{}{}
		subjects = append(subjects, subject)
	}
	return subjects, nil
}

// DeleteSubject removes every key stored under {subject}/ and reports how
// many were removed. A subject with no keys is not an error.
func DeleteSubject(backend Backend, subject string) (int, error) {
	keys, err := backend.List(subject + "/")
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, k := range keys {
		if err := backend.Delete(k); err != nil && !errors.Is(err, ErrNotFound) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
