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


package cli

import (
	"fmt"

	"github.com/jeremyhahn/go-ovpnpki/internal/config"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Config holds global CLI configuration
type Config struct {
	// ConfigFile is the path to the configuration file
	ConfigFile string

	// OutputFormat controls output formatting (text, json, yaml, table)
	OutputFormat string

	// Verbose enables debug logging
	Verbose bool

	LogLevel  string
	LogFormat string
	Syslog    bool

	EasyRSADir string
	EasyRSABin string
	OpenVPNBin string

	// CacheDir holds the client certificate checksum sidecars
	CacheDir string

	// BundleDir holds rendered .ovpn profiles and their sidecars
	BundleDir string

	LockDir string
	NoLock  bool

	MetricsTextfile string
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		OutputFormat: "text",
	}
}

// loadConfig resolves the effective configuration: defaults, then the
// YAML file, then OVPNPKI_* environment variables, then flags.
func loadConfig(fs afero.Fs, s *viper.Viper) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := s.GetString("config"); path != "" {
		cfg, err = config.Load(fs, path)
	} else {
		cfg, err = config.LoadDefault(fs)
	}
	if err != nil {
		return nil, err
	}

	overrideString(s, "easyrsa-dir", &cfg.EasyRSA.Dir)
	overrideString(s, "easyrsa-bin", &cfg.EasyRSA.Binary)
	overrideString(s, "openvpn-bin", &cfg.OpenVPN.Binary)
	overrideString(s, "cache-dir", &cfg.Checksum.CacheDir)
	overrideString(s, "bundle-dir", &cfg.Bundle.DestDir)
	overrideString(s, "lock-dir", &cfg.Lock.Dir)
	overrideString(s, "log-level", &cfg.Logging.Level)
	overrideString(s, "log-format", &cfg.Logging.Format)
	overrideString(s, "metrics-textfile", &cfg.Metrics.Textfile)
	if s.IsSet("syslog") {
		cfg.Logging.Syslog = s.GetBool("syslog")
	}
	if s.GetBool("no-lock") {
		cfg.Lock.Enabled = false
	}
	if s.GetBool("verbose") {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// overrideString copies an explicitly set flag or environment value.
func overrideString(s *viper.Viper, key string, dst *string) {
	if !s.IsSet(key) {
		return
	}
	if val := s.GetString(key); val != "" {
		*dst = val
	}
}
