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


// Package crl reports the validity window of the easyrsa certificate
// revocation list so expiry can be caught before clients are rejected.
package crl

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const (
	// DefaultPKIDir is the easyrsa PKI directory of the server role.
	DefaultPKIDir = "/etc/easy-rsa/pki"

	// FileName is the CRL file easyrsa gen-crl writes below the PKI.
	FileName = "crl.pem"

	// DefaultExpireInDays is the warning window before next_update.
	DefaultExpireInDays = 10

	// asn1Time is the GeneralizedTime layout used for raw timestamps.
	asn1Time = "20060102150405Z"
)

// Options control what Inspect reports.
type Options struct {
	ListRevoked   bool `yaml:"list_revoked_certificates" json:"list_revoked_certificates"`
	WarnForExpire bool `yaml:"warn_for_expire" json:"warn_for_expire"`
	ExpireInDays  int  `yaml:"expire_in_days" json:"expire_in_days"`
}

// DefaultOptions returns the default reporting options.
func DefaultOptions() Options {
	return Options{
		WarnForExpire: true,
		ExpireInDays:  DefaultExpireInDays,
	}
}

// Timestamp is a CRL time in raw ASN.1 and parsed form.
type Timestamp struct {
	Raw    string    `json:"raw" yaml:"raw"`
	Parsed time.Time `json:"parsed" yaml:"parsed"`
}

func newTimestamp(t time.Time) Timestamp {
	t = t.UTC()
	return Timestamp{Raw: t.Format(asn1Time), Parsed: t}
}

// RevokedCertificate is one CRL entry.
type RevokedCertificate struct {
	SerialNumber   string    `json:"serial_number" yaml:"serial_number"`
	RevocationDate Timestamp `json:"revocation_date" yaml:"revocation_date"`
	ReasonCode     int       `json:"reason_code,omitempty" yaml:"reason_code,omitempty"`
}

// Status is the reported state of a CRL.
type Status struct {
	Issuer              string               `json:"issuer" yaml:"issuer"`
	LastUpdate          Timestamp            `json:"last_update" yaml:"last_update"`
	NextUpdate          Timestamp            `json:"next_update" yaml:"next_update"`
	DaysRemaining       int                  `json:"days_remaining" yaml:"days_remaining"`
	Expired             *bool                `json:"expired,omitempty" yaml:"expired,omitempty"`
	Warn                bool                 `json:"warn,omitempty" yaml:"warn,omitempty"`
	RevokedCount        int                  `json:"revoked_count" yaml:"revoked_count"`
	RevokedCertificates []RevokedCertificate `json:"revoked_certificates,omitempty" yaml:"revoked_certificates,omitempty"`
}

// Path returns the CRL location below pkiDir.
func Path(pkiDir string) string {
	if pkiDir == "" {
		pkiDir = DefaultPKIDir
	}
	return filepath.Join(pkiDir, FileName)
}

// Load reads and parses the CRL at path.
func Load(fs afero.Fs, path string) (*x509.RevocationList, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCRLNotFound, path)
		}
		return nil, fmt.Errorf("crl: error while reading CRL file from disk: %w", err)
	}
	return Parse(data)
}

// Parse decodes a PEM or DER encoded CRL.
func Parse(data []byte) (*x509.RevocationList, error) {
	der := data
	if block, _ := pem.Decode(data); block != nil {
		if block.Type != "X509 CRL" {
			return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrCRLInvalid, block.Type)
		}
		der = block.Bytes
	}
	list, err := x509.ParseRevocationList(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCRLInvalid, err)
	}
	return list, nil
}

// Inspect builds the status of list at time now.
func Inspect(list *x509.RevocationList, opts Options, now time.Time) *Status {
	s := &Status{
		Issuer:        list.Issuer.String(),
		LastUpdate:    newTimestamp(list.ThisUpdate),
		NextUpdate:    newTimestamp(list.NextUpdate),
		DaysRemaining: daysUntil(list.NextUpdate, now),
		RevokedCount:  len(list.RevokedCertificateEntries),
	}

	if opts.WarnForExpire {
		expired := s.DaysRemaining <= opts.ExpireInDays
		s.Expired = &expired
		s.Warn = expired
	}

	if opts.ListRevoked {
		s.RevokedCertificates = make([]RevokedCertificate, 0, len(list.RevokedCertificateEntries))
		for _, e := range list.RevokedCertificateEntries {
			s.RevokedCertificates = append(s.RevokedCertificates, RevokedCertificate{
				SerialNumber:   strings.ToUpper(e.SerialNumber.Text(16)),
				RevocationDate: newTimestamp(e.RevocationTime),
				ReasonCode:     e.ReasonCode,
			})
		}
	}
	return s
}

// daysUntil returns whole days from now to t, rounded down so a CRL
// expiring in 23 hours reports 0 and one expired an hour ago reports -1.
func daysUntil(t, now time.Time) int {
	return int(math.Floor(t.Sub(now).Hours() / 24))
}
