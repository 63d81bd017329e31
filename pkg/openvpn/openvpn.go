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


// Package openvpn wraps the openvpn binary for version discovery and
// static key generation.
package openvpn

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jeremyhahn/go-ovpnpki/pkg/runner"
)

// DefaultBinary is resolved against PATH when no binary is configured.
const DefaultBinary = "openvpn"

// ErrVersionNotFound is returned when openvpn --version prints no version.
var ErrVersionNotFound = errors.New("openvpn: version not found")

var versionPattern = regexp.MustCompile(`(?m)OpenVPN ([0-9]+)\.([0-9]+)\.([0-9]+)`)

// Version is a parsed openvpn release.
type Version struct {
	Major int `json:"major"`
	Minor int `json:"minor"`
	Patch int `json:"patch"`
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// Less reports whether v is older than major.minor.
func (v Version) Less(major, minor int) bool {
	if v.Major != major {
		return v.Major < major
	}
	return v.Minor < minor
}

// ParseVersion extracts the first "OpenVPN x.y.z" from text.
func ParseVersion(text string) (Version, error) {
	m := versionPattern.FindStringSubmatch(text)
	if m == nil {
		return Version{}, ErrVersionNotFound
	}
	var v Version
	v.Major, _ = strconv.Atoi(m[1])
	v.Minor, _ = strconv.Atoi(m[2])
	v.Patch, _ = strconv.Atoi(m[3])
	return v, nil
}

// VersionInfo is the result of openvpn --version.
type VersionInfo struct {
	Version     string   `json:"version"`
	Stdout      string   `json:"stdout"`
	StdoutLines []string `json:"stdout_lines"`
	Failed      bool     `json:"failed"`
	parsed      Version
}

// Parsed returns the numeric version. Only meaningful when !Failed.
func (i *VersionInfo) Parsed() Version {
	return i.parsed
}

// Client runs openvpn commands.
type Client struct {
	runner runner.Runner
	binary string
}

// New creates a Client.
func New(r runner.Runner, binary string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{runner: r, binary: binary}
}

// Version runs openvpn --version. openvpn exits non-zero after printing
// its version on some releases, so the exit code is ignored and only the
// output decides.
func (c *Client) Version(ctx context.Context) (*VersionInfo, error) {
	res, err := c.runner.Run(ctx, c.binary, "--version")
	if err != nil {
		return nil, fmt.Errorf("openvpn: %w", err)
	}

	stdout := strings.TrimRight(res.Stdout, "\n")
	info := &VersionInfo{
		Version:     "unknown",
		Stdout:      stdout,
		StdoutLines: strings.Split(stdout, "\n"),
		Failed:      true,
	}
	if v, err := ParseVersion(stdout); err == nil {
		info.Version = v.String()
		info.parsed = v
		info.Failed = false
	}
	return info, nil
}

// GenKeyArgs returns the arguments generating a static key at path.
// Releases before 2.5 only understand the deprecated --secret form.
func GenKeyArgs(v *Version, path string) []string {
	if v != nil && v.Less(2, 5) {
		return []string{"--genkey", "--secret", path}
	}
	return []string{"--genkey", "secret", path}
}

// GenKey writes a tls-auth static key to path. The version is probed
// first to pick the argument form; an unknown version uses the modern one.
func (c *Client) GenKey(ctx context.Context, path string) (*runner.Result, error) {
	var version *Version
	if info, err := c.Version(ctx); err == nil && !info.Failed {
		v := info.Parsed()
		version = &v
	} else if err != nil {
		return nil, err
	}

	res, err := c.runner.Run(ctx, c.binary, GenKeyArgs(version, path)...)
	if err != nil {
		return nil, fmt.Errorf("openvpn: %w", err)
	}
	return res, nil
}
