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
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/jeremyhahn/go-ovpnpki/pkg/crl"
	"github.com/jeremyhahn/go-ovpnpki/pkg/health"
	"github.com/jeremyhahn/go-ovpnpki/pkg/metrics"
	"github.com/jeremyhahn/go-ovpnpki/pkg/render"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// doctorCmd represents the doctor command
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the tools and files ovpnpki depends on",
	Long: `Run preflight checks against the configured easyrsa and openvpn
binaries, the PKI directory, the client template, the checksum cache and the
CRL. Exits 2 when any check is unhealthy; degraded checks only warn.`,
	Args: cobra.NoArgs,
	RunE: withApp(metrics.OpDoctor, func(ctx context.Context, a *app, args []string) error {
		report := a.doctor().Run(ctx)
		for _, c := range report.Checks {
			if c.Status != health.StatusHealthy {
				a.logger.Warn("check "+string(c.Status), "check", c.Name, "message", c.Message)
			}
		}
		if err := a.printer.PrintHealth(report); err != nil {
			return err
		}
		if report.Status == health.StatusUnhealthy {
			return fmt.Errorf("%w: preflight checks failed", ErrFailed)
		}
		return nil
	}),
}

// doctor registers the preflight checks for the loaded configuration.
func (a *app) doctor() *health.Checker {
	cfg := a.cfg
	c := health.NewChecker()

	c.RegisterCheck("easyrsa", func(context.Context) health.CheckResult {
		p, err := host.lookPath(cfg.EasyRSA.Binary)
		if err != nil {
			return health.Unhealthy(err, "%s not found", cfg.EasyRSA.Binary)
		}
		return health.Healthy("%s", p)
	})

	c.RegisterCheck("pki", func(context.Context) health.CheckResult {
		dir := cfg.PKIDir()
		if ok, _ := afero.DirExists(a.fs, dir); !ok {
			return health.Unhealthy(nil, "%s does not exist, run \"ovpnpki pki init-pki\"", dir)
		}
		if ok, _ := afero.Exists(a.fs, filepath.Join(dir, "ca.crt")); !ok {
			return health.Degraded("%s has no CA, run \"ovpnpki pki build-ca\"", dir)
		}
		return health.Healthy("%s", dir)
	})

	c.RegisterCheck("openvpn", func(ctx context.Context) health.CheckResult {
		info, err := a.openvpn().Version(ctx)
		if err != nil {
			return health.Unhealthy(err, "%s --version failed", cfg.OpenVPN.Binary)
		}
		if info.Failed {
			return health.Unhealthy(nil, "no OpenVPN version in %s --version output", cfg.OpenVPN.Binary)
		}
		return health.Healthy("OpenVPN %s", info.Version)
	})

	c.RegisterCheck("template", func(context.Context) health.CheckResult {
		if _, err := render.Load(a.fs, cfg.Bundle.Template); err != nil {
			return health.Degraded("bundles can not be rendered: %v", err)
		}
		return health.Healthy("%s", cfg.Bundle.Template)
	})

	if cfg.Bundle.TLSAuthFile != "" {
		c.RegisterCheck("tls-auth", func(context.Context) health.CheckResult {
			if ok, _ := afero.Exists(a.fs, cfg.Bundle.TLSAuthFile); !ok {
				return health.Degraded("%s does not exist, run \"ovpnpki genkey\"", cfg.Bundle.TLSAuthFile)
			}
			return health.Healthy("%s", cfg.Bundle.TLSAuthFile)
		})
	}

	c.RegisterCheck("cache", func(context.Context) health.CheckResult {
		dir, err := cfg.CacheDir()
		if err != nil {
			return health.Unhealthy(err, "checksum cache directory can not be resolved")
		}
		info, err := a.fs.Stat(dir)
		switch {
		case err == nil && !info.IsDir():
			return health.Unhealthy(nil, "%s is not a directory", dir)
		case err == nil:
			return health.Healthy("%s", dir)
		default:
			return health.Healthy("%s will be created on first use", dir)
		}
	})

	c.RegisterCheck("crl", func(context.Context) health.CheckResult {
		path := crl.Path(cfg.PKIDir())
		list, err := crl.Load(a.fs, path)
		if errors.Is(err, crl.ErrCRLNotFound) {
			return health.Degraded("%s does not exist, run \"ovpnpki pki gen-crl\"", path)
		}
		if err != nil {
			return health.Unhealthy(err, "%s can not be read", path)
		}
		s := crl.Inspect(list, crl.Options{
			WarnForExpire: true,
			ExpireInDays:  cfg.CRL.ExpireInDays,
		}, host.now())
		if s.DaysRemaining < 0 {
			return health.Unhealthy(nil, "CRL expired %s", s.NextUpdate.Parsed.Format("2006-01-02"))
		}
		if s.Warn {
			return health.Degraded("CRL expires in %d days, run \"ovpnpki pki gen-crl\"", s.DaysRemaining)
		}
		return health.Healthy("next update in %d days", s.DaysRemaining)
	})

	return c
}
