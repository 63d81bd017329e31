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


// Package validation provides centralized input validation for ovpnpki.
// Subject names end up in file paths below the PKI and cache directories
// and in easyrsa arguments, so every entry point validates them here.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidInput is wrapped by every validation failure.
var ErrInvalidInput = errors.New("invalid input")

var (
	// subjectPattern matches names easyrsa accepts as file base names
	subjectPattern = regexp.MustCompile(`^[a-zA-Z0-9_\-\.@]+$`)

	// commonNamePattern additionally allows spaces for CA common names
	commonNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-\.@ ]+$`)
)

const (
	// MinKeySize is the smallest RSA key size passed to easyrsa.
	MinKeySize = 1024
	// MaxKeySize is the largest RSA key size passed to easyrsa.
	MaxKeySize = 16384
)

// ValidateSubject validates a client or server subject name.
// Prevents path traversal and argument injection by:
// - Rejecting empty strings
// - Rejecting null bytes and control characters
// - Rejecting "." and ".." and names starting with "-"
// - Allowing only safe characters
// - Enforcing length limits
func ValidateSubject(subject string) error {
	if subject == "" {
		return fmt.Errorf("%w: subject cannot be empty", ErrInvalidInput)
	}

	// Check for null bytes (can bypass some path checks)
	if strings.Contains(subject, "\x00") {
		return fmt.Errorf("%w: subject contains null byte", ErrInvalidInput)
	}

	// Check length before other validations (prevent ReDoS)
	if len(subject) > 64 {
		return fmt.Errorf("%w: subject too long (max 64 characters)", ErrInvalidInput)
	}

	if err := rejectControl("subject", subject); err != nil {
		return err
	}

	if subject == "." || subject == ".." {
		return fmt.Errorf("%w: subject cannot be a directory reference", ErrInvalidInput)
	}

	// easyrsa would read it as an option
	if strings.HasPrefix(subject, "-") {
		return fmt.Errorf("%w: subject cannot start with '-'", ErrInvalidInput)
	}

	if !subjectPattern.MatchString(subject) {
		return fmt.Errorf("%w: subject contains invalid characters (allowed: a-z, A-Z, 0-9, -, _, ., @)", ErrInvalidInput)
	}

	return nil
}

// ValidateCommonName validates a certificate common name passed as
// --req-cn. Spaces are allowed.
func ValidateCommonName(cn string) error {
	if strings.TrimSpace(cn) == "" {
		return fmt.Errorf("%w: common name cannot be empty", ErrInvalidInput)
	}
	if len(cn) > 64 {
		return fmt.Errorf("%w: common name too long (max 64 characters)", ErrInvalidInput)
	}
	if err := rejectControl("common name", cn); err != nil {
		return err
	}
	if !commonNamePattern.MatchString(cn) {
		return fmt.Errorf("%w: common name contains invalid characters", ErrInvalidInput)
	}
	return nil
}

// ValidateKeySize validates an RSA key size. Zero means "easyrsa default".
func ValidateKeySize(size int) error {
	if size == 0 {
		return nil
	}
	if size < MinKeySize || size > MaxKeySize {
		return fmt.Errorf("%w: key size %d out of range (%d-%d)", ErrInvalidInput, size, MinKeySize, MaxKeySize)
	}
	if size%8 != 0 {
		return fmt.Errorf("%w: key size %d is not a multiple of 8", ErrInvalidInput, size)
	}
	return nil
}

func rejectControl(what, s string) error {
	for _, r := range s {
		if r < 32 || r == 127 {
			return fmt.Errorf("%w: %s contains control characters", ErrInvalidInput, what)
		}
	}
	return nil
}

// SanitizeForLog sanitizes a string for safe logging (prevents log injection).
func SanitizeForLog(s string) string {
	// Remove control characters and null bytes
	s = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, s)

	// Limit length to prevent log flooding
	if len(s) > 1000 {
		s = s[:1000] + "...[truncated]"
	}

	return s
}
