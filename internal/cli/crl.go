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

	"github.com/jeremyhahn/go-ovpnpki/pkg/crl"
	"github.com/jeremyhahn/go-ovpnpki/pkg/metrics"
	"github.com/spf13/cobra"
)

var (
	crlListRevoked   bool
	crlExpireInDays  int
	crlWarnForExpire bool
)

// crlCmd represents the crl command
var crlCmd = &cobra.Command{
	Use:   "crl",
	Short: "Inspect the certificate revocation list",
}

var crlStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Report CRL update times, expiry and revoked certificates",
	Long: `Read pki/crl.pem and report its last and next update. With expiry
warnings enabled the CRL is flagged expired once the next update is no more
than --expire-in-days away; regenerate it with "ovpnpki pki gen-crl".`,
	Args: cobra.NoArgs,
}

// runCRLStatus reports the CRL; command flags override the crl config section.
func runCRLStatus(ctx context.Context, a *app, args []string) error {
	opts := crl.Options{
		ListRevoked:   a.cfg.CRL.ListRevoked,
		WarnForExpire: a.cfg.CRL.WarnForExpire,
		ExpireInDays:  a.cfg.CRL.ExpireInDays,
	}
	flags := crlStatusCmd.Flags()
	if flags.Changed("list-revoked") {
		opts.ListRevoked = crlListRevoked
	}
	if flags.Changed("expire-in-days") {
		opts.ExpireInDays = crlExpireInDays
	}
	if flags.Changed("warn-for-expire") {
		opts.WarnForExpire = crlWarnForExpire
	}

	path := crl.Path(a.cfg.PKIDir())
	list, err := crl.Load(a.fs, path)
	if err != nil {
		return err
	}
	status := crl.Inspect(list, opts, host.now())
	metrics.SetCRLStatus(status.NextUpdate.Parsed, status.RevokedCount)

	if status.Warn {
		a.logger.Warn("CRL expires soon",
			"path", path,
			"next_update", status.NextUpdate.Raw,
			"days_remaining", status.DaysRemaining)
	}
	return a.printer.PrintCRLStatus(path, status)
}

func init() {
	crlStatusCmd.RunE = withApp(metrics.OpCRLStatus, runCRLStatus)

	crlStatusCmd.Flags().BoolVar(&crlListRevoked, "list-revoked", false,
		"include the revoked certificates")
	crlStatusCmd.Flags().IntVar(&crlExpireInDays, "expire-in-days", crl.DefaultExpireInDays,
		"flag the CRL expired this many days before its next update")
	crlStatusCmd.Flags().BoolVar(&crlWarnForExpire, "warn-for-expire", true,
		"report expiry")

	crlCmd.AddCommand(crlStatusCmd)
}
