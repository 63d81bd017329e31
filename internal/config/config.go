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


package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is given and it exists.
const DefaultPath = "/etc/ovpnpki/config.yaml"

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the ovpnpki configuration file.
type Config struct {
	EasyRSA  EasyRSAConfig  `yaml:"easyrsa" json:"easyrsa"`
	OpenVPN  OpenVPNConfig  `yaml:"openvpn" json:"openvpn"`
	Bundle   BundleConfig   `yaml:"bundle" json:"bundle"`
	Checksum ChecksumConfig `yaml:"checksum" json:"checksum"`
	Lock     LockConfig     `yaml:"lock" json:"lock"`
	CRL      CRLConfig      `yaml:"crl" json:"crl"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
}

// EasyRSAConfig locates easyrsa and its PKI.
type EasyRSAConfig struct {
	Binary string `yaml:"binary" json:"binary"`

	// Dir is the easyrsa working directory; the PKI lives in Dir/pki.
	Dir string `yaml:"dir" json:"dir"`

	CACommonName     string `yaml:"req_cn_ca" json:"req_cn_ca"`
	ServerCommonName string `yaml:"req_cn_server" json:"req_cn_server"`
	KeySize          int    `yaml:"keysize" json:"keysize"`
}

// OpenVPNConfig locates the openvpn binary and configuration directory.
type OpenVPNConfig struct {
	Binary string `yaml:"binary" json:"binary"`
	Dir    string `yaml:"dir" json:"dir"`
}

// BundleConfig controls rendering of client profiles.
type BundleConfig struct {
	DestDir  string `yaml:"dest_dir" json:"dest_dir"`
	Template string `yaml:"template" json:"template"`

	// CAFile is relative to the easyrsa directory, e.g. pki/ca.crt.
	CAFile string `yaml:"ca_file" json:"ca_file"`

	TLSAuthFile string `yaml:"tls_auth_file" json:"tls_auth_file"`
}

// ChecksumConfig locates the client certificate checksum cache.
type ChecksumConfig struct {
	CacheDir string `yaml:"cache_dir" json:"cache_dir"`
}

// LockConfig controls per-subject advisory locking.
type LockConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Dir     string `yaml:"dir" json:"dir"`
}

// CRLConfig controls crl status reporting.
type CRLConfig struct {
	ExpireInDays  int  `yaml:"expire_in_days" json:"expire_in_days"`
	WarnForExpire bool `yaml:"warn_for_expire" json:"warn_for_expire"`
	ListRevoked   bool `yaml:"list_revoked" json:"list_revoked"`
}

// LoggingConfig controls the structured logger and the syslog audit trail.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Syslog bool   `yaml:"syslog" json:"syslog"`
	Tag    string `yaml:"tag" json:"tag"`
}

// MetricsConfig controls the node_exporter textfile written at exit.
type MetricsConfig struct {
	Textfile string `yaml:"textfile" json:"textfile"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		EasyRSA: EasyRSAConfig{
			Binary: "easyrsa",
			Dir:    "/etc/easy-rsa",
		},
		OpenVPN: OpenVPNConfig{
			Binary: "openvpn",
			Dir:    "/etc/openvpn",
		},
		Bundle: BundleConfig{
			DestDir:  "/etc/openvpn/clients",
			Template: "/etc/openvpn/client.ovpn.template",
		},
		Checksum: ChecksumConfig{
			CacheDir: "~/.cache/ovpnpki",
		},
		Lock: LockConfig{
			Enabled: true,
			Dir:     filepath.Join(os.TempDir(), "ovpnpki-locks"),
		},
		CRL: CRLConfig{
			ExpireInDays:  10,
			WarnForExpire: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Tag:    "ovpnpki",
		},
	}
}

// Load reads a YAML file over the defaults, applies OVPNPKI_* environment
// overrides and validates the result.
func Load(fs afero.Fs, path string) (*Config, error) {
	// #nosec G304 - Config file path is provided by admin/user
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg, os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault behaves like Load for DefaultPath when it exists and
// otherwise returns the environment-adjusted defaults.
func LoadDefault(fs afero.Fs) (*Config, error) {
	if ok, _ := afero.Exists(fs, DefaultPath); ok {
		return Load(fs, DefaultPath)
	}
	cfg := Default()
	applyEnvOverrides(cfg, os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults without environment overrides.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func applyEnvOverrides(cfg *Config, lookup lookupFunc) {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	boolean := func(name string, dst *bool) {
		v, ok := lookup(name)
		if !ok || v == "" {
			return
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("Warning: invalid %s value %q, using default %t: %v", name, v, *dst, err)
			return
		}
		*dst = b
	}
	integer := func(name string, dst *int) {
		v, ok := lookup(name)
		if !ok || v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Warning: invalid %s value %q, using default %d: %v", name, v, *dst, err)
			return
		}
		*dst = n
	}

	// easyrsa
	str("OVPNPKI_EASYRSA_BIN", &cfg.EasyRSA.Binary)
	str("OVPNPKI_EASYRSA_DIR", &cfg.EasyRSA.Dir)
	str("OVPNPKI_REQ_CN_CA", &cfg.EasyRSA.CACommonName)
	str("OVPNPKI_REQ_CN_SERVER", &cfg.EasyRSA.ServerCommonName)
	integer("OVPNPKI_KEYSIZE", &cfg.EasyRSA.KeySize)

	// openvpn
	str("OVPNPKI_OPENVPN_BIN", &cfg.OpenVPN.Binary)
	str("OVPNPKI_OPENVPN_DIR", &cfg.OpenVPN.Dir)

	// bundle
	str("OVPNPKI_BUNDLE_DIR", &cfg.Bundle.DestDir)
	str("OVPNPKI_BUNDLE_TEMPLATE", &cfg.Bundle.Template)
	str("OVPNPKI_BUNDLE_CA_FILE", &cfg.Bundle.CAFile)
	str("OVPNPKI_BUNDLE_TLS_AUTH_FILE", &cfg.Bundle.TLSAuthFile)

	// checksum cache and locks
	str("OVPNPKI_CACHE_DIR", &cfg.Checksum.CacheDir)
	boolean("OVPNPKI_LOCK_ENABLED", &cfg.Lock.Enabled)
	str("OVPNPKI_LOCK_DIR", &cfg.Lock.Dir)

	// crl
	integer("OVPNPKI_CRL_EXPIRE_IN_DAYS", &cfg.CRL.ExpireInDays)
	boolean("OVPNPKI_CRL_WARN_FOR_EXPIRE", &cfg.CRL.WarnForExpire)

	// logging and metrics
	str("OVPNPKI_LOG_LEVEL", &cfg.Logging.Level)
	str("OVPNPKI_LOG_FORMAT", &cfg.Logging.Format)
	boolean("OVPNPKI_SYSLOG", &cfg.Logging.Syslog)
	str("OVPNPKI_METRICS_TEXTFILE", &cfg.Metrics.Textfile)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.EasyRSA.Binary == "" {
		return fmt.Errorf("%w: easyrsa binary must be specified", ErrInvalidConfig)
	}
	if c.EasyRSA.Dir == "" {
		return fmt.Errorf("%w: easyrsa dir must be specified", ErrInvalidConfig)
	}
	if c.OpenVPN.Binary == "" {
		return fmt.Errorf("%w: openvpn binary must be specified", ErrInvalidConfig)
	}
	if c.Bundle.DestDir == "" {
		return fmt.Errorf("%w: bundle dest_dir must be specified", ErrInvalidConfig)
	}
	if c.Checksum.CacheDir == "" {
		return fmt.Errorf("%w: checksum cache_dir must be specified", ErrInvalidConfig)
	}
	if c.Lock.Enabled && c.Lock.Dir == "" {
		return fmt.Errorf("%w: lock dir is required when locking is enabled", ErrInvalidConfig)
	}
	if c.CRL.ExpireInDays < 0 {
		return fmt.Errorf("%w: crl expire_in_days must not be negative: %d", ErrInvalidConfig, c.CRL.ExpireInDays)
	}
	if c.Bundle.CAFile != "" && filepath.IsAbs(c.Bundle.CAFile) {
		return fmt.Errorf("%w: bundle ca_file must be relative to the easyrsa dir: %s", ErrInvalidConfig, c.Bundle.CAFile)
	}

	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("%w: invalid log level: %s (must be debug, info, warn, or error)", ErrInvalidConfig, c.Logging.Level)
	}

	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("%w: invalid log format: %s (must be json or text)", ErrInvalidConfig, c.Logging.Format)
	}

	return nil
}

// PKIDir returns the easyrsa PKI directory.
func (c *Config) PKIDir() string {
	return filepath.Join(c.EasyRSA.Dir, "pki")
}

// CacheDir returns the checksum cache directory with a leading ~ expanded.
func (c *Config) CacheDir() (string, error) {
	return ExpandHome(c.Checksum.CacheDir)
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
