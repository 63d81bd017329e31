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

	"github.com/jeremyhahn/go-ovpnpki/pkg/metrics"
	"github.com/jeremyhahn/go-ovpnpki/pkg/reconcile"
	"github.com/spf13/cobra"
)

var (
	genkeyForce   bool
	genkeyCreates string
)

// genkeyCmd represents the genkey command
var genkeyCmd = &cobra.Command{
	Use:   "genkey <secret-file>",
	Short: "Generate the OpenVPN tls-auth static key",
	Long: `Generate a tls-auth static key with openvpn --genkey and restrict it to
mode 0600. The syntax is chosen from the installed OpenVPN version. Relative
paths resolve against the openvpn directory.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(metrics.OpGenKey, func(ctx context.Context, a *app, args []string) error {
		t, err := reconcile.NewTLSAuthKey(a.openvpn(), a.fs, a.cfg.OpenVPN.Dir, a.logger)
		if err != nil {
			return err
		}
		r, err := t.Present(ctx, args[0], reconcile.Options{Force: genkeyForce, Creates: genkeyCreates})
		if err != nil {
			return err
		}
		return a.report(r)
	}),
}

func init() {
	genkeyCmd.Flags().BoolVar(&genkeyForce, "force", false,
		"remove the creates path before generating")
	genkeyCmd.Flags().StringVar(&genkeyCreates, "creates", "",
		"skip generation when this path exists")
}
