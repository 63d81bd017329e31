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

import (
	"fmt"
	"path"

	"github.com/jeremyhahn/go-ovpnpki/pkg/storage"
)

// Names of the constituents of a client identity and of a rendered bundle.
const (
	NameRequest     = "req"
	NameKey         = "key"
	NameCertificate = "crt"
	NameBundle      = "ovpn"
)

// TrackedArtifact is one file whose integrity is monitored.
type TrackedArtifact struct {
	// Name identifies the artifact inside its set ("req", "key", ...).
	Name string `json:"name"`

	// Path is the content file, relative to the content root of the store.
	Path string `json:"path"`

	// ChecksumKey is the sidecar key in the store's sidecar backend.
	ChecksumKey string `json:"checksum"`
}

// Set is a named, ordered collection of tracked artifacts whose paths all
// derive from the subject name.
type Set struct {
	Subject   string            `json:"subject"`
	Artifacts []TrackedArtifact `json:"artifacts"`

	// TombstoneKey marks the set as revoked when present in the sidecar
	// backend. Empty for sets that cannot be revoked (rendered bundles).
	TombstoneKey string `json:"-"`

	// CRLPendingKey is present while a revocation of the subject is not
	// yet reflected in the CRL.
	CRLPendingKey string `json:"-"`
}

// ClientCertificateSet returns the request/key/certificate triple easyrsa
// produces for subject, relative to the easyrsa directory, with sidecars in
// a per-subject cache directory.
func ClientCertificateSet(subject string) *Set {
	return &Set{
		Subject: subject,
		Artifacts: []TrackedArtifact{
			{
				Name:        NameRequest,
				Path:        path.Join("pki", "reqs", subject+".req"),
				ChecksumKey: storage.SidecarKey(subject, NameRequest),
			},
			{
				Name:        NameKey,
				Path:        path.Join("pki", "private", subject+".key"),
				ChecksumKey: storage.SidecarKey(subject, NameKey),
			},
			{
				Name:        NameCertificate,
				Path:        path.Join("pki", "issued", subject+".crt"),
				ChecksumKey: storage.SidecarKey(subject, NameCertificate),
			},
		},
		TombstoneKey:  storage.TombstoneKey(subject),
		CRLPendingKey: storage.CRLPendingKey(subject),
	}
}

// BundleSet returns the singleton set for a rendered client bundle, relative
// to the bundle destination directory. The sidecar is a hidden file next to
// the bundle.
func BundleSet(subject string) *Set {
	return &Set{
		Subject: subject,
		Artifacts: []TrackedArtifact{
			{
				Name:        NameBundle,
				Path:        subject + ".ovpn",
				ChecksumKey: storage.BundleSidecarKey(subject),
			},
		},
	}
}

// Get returns the artifact with the given name.
func (s *Set) Get(name string) (TrackedArtifact, error) {
	for _, a := range s.Artifacts {
		if a.Name == name {
			return a, nil
		}
	}
	return TrackedArtifact{}, fmt.Errorf("artifact: %s has no artifact named %q", s.Subject, name)
}

// Names returns the artifact names in set order.
func (s *Set) Names() []string {
	names := make([]string, len(s.Artifacts))
	for i, a := range s.Artifacts {
		names[i] = a.Name
	}
	return names
}
