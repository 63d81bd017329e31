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

import (
	"bufio"
	"bytes"
	"encoding/pem"
	"fmt"
	"strings"
)

const (
	beginCertificate = "-----BEGIN CERTIFICATE-----"
	endCertificate   = "-----END CERTIFICATE-----"
)

// ExtractCertificates returns every PEM certificate block in data, each
// including its BEGIN and END lines. Text outside blocks (the
// human readable dump easyrsa prepends to issued certificates) is skipped.
func ExtractCertificates(data []byte) ([]string, error) {
	var (
		certs   []string
		block   strings.Builder
		started bool
		lineNo  int
	)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()

		switch {
		case strings.Contains(line, beginCertificate):
			if started {
				return nil, fmt.Errorf("%w (line %d)", ErrNestedBlock, lineNo)
			}
			started = true
			block.WriteString(line)
			block.WriteByte('\n')

		case strings.Contains(line, endCertificate):
			if !started {
				return nil, fmt.Errorf("%w (line %d)", ErrUnmatchedEnd, lineNo)
			}
			block.WriteString(line)
			block.WriteByte('\n')

			text := block.String()
			if p, _ := pem.Decode([]byte(text)); p == nil {
				return nil, fmt.Errorf("%w: invalid PEM block ending on line %d", ErrUnterminatedBlock, lineNo)
			}
			certs = append(certs, text)
			block.Reset()
			started = false

		case started:
			block.WriteString(line)
			block.WriteByte('\n')
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("render: reading certificate: %w", err)
	}
	if started {
		return nil, ErrUnterminatedBlock
	}
	return certs, nil
}

// FirstCertificate returns the first PEM certificate block of data
// without its trailing newline.
func FirstCertificate(data []byte) (string, error) {
	certs, err := ExtractCertificates(data)
	if err != nil {
		return "", err
	}
	if len(certs) == 0 {
		return "", ErrNoCertificate
	}
	return strings.TrimRight(certs[0], "\n"), nil
}
