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
	"fmt"
	"strings"

	"github.com/jeremyhahn/go-ovpnpki/pkg/easyrsa"
	"github.com/jeremyhahn/go-ovpnpki/pkg/metrics"
	"github.com/jeremyhahn/go-ovpnpki/pkg/reconcile"
	"github.com/spf13/cobra"
)

var (
	pkiForce    bool
	pkiCreates  string
	pkiCACN     string
	pkiServerCN string
	pkiKeySize  int
)

// pkiCmd represents the pki command
var pkiCmd = &cobra.Command{
	Use:   "pki <step>",
	Short: "Run an easyrsa PKI bootstrap step",
	Long: fmt.Sprintf(`Run one easyrsa bootstrap step in the easyrsa directory.

Steps: %s

With --creates the step is skipped (changed=false) when the path exists,
relative paths resolving against the easyrsa directory. --force removes the
creates path first so the step runs again.`, strings.Join(stepNames(), ", ")),
	Args:      cobra.ExactArgs(1),
	ValidArgs: stepNames(),
	RunE: withApp(metrics.OpPKIStep, func(ctx context.Context, a *app, args []string) error {
		step, err := easyrsa.ParseStep(args[0])
		if err != nil {
			return err
		}

		stepOpts := easyrsa.StepOptions{
			CACommonName:     a.cfg.EasyRSA.CACommonName,
			ServerCommonName: a.cfg.EasyRSA.ServerCommonName,
			KeySize:          a.cfg.EasyRSA.KeySize,
		}
		if pkiCACN != "" {
			stepOpts.CACommonName = pkiCACN
		}
		if pkiServerCN != "" {
			stepOpts.ServerCommonName = pkiServerCN
		}
		if pkiKeySize != 0 {
			stepOpts.KeySize = pkiKeySize
		}

		p, err := reconcile.NewPKI(a.easyrsa(), a.fs, a.cfg.EasyRSA.Dir, a.logger)
		if err != nil {
			return err
		}
		r, err := p.Step(ctx, step, stepOpts, reconcile.Options{Force: pkiForce, Creates: pkiCreates})
		if err != nil {
			return err
		}
		return a.report(r)
	}),
}

func stepNames() []string {
	var names []string
	for _, s := range easyrsa.Steps() {
		names = append(names, string(s))
	}
	return names
}

func init() {
	pkiCmd.Flags().BoolVar(&pkiForce, "force", false,
		"remove the creates path before running the step")
	pkiCmd.Flags().StringVar(&pkiCreates, "creates", "",
		"skip the step when this path exists (e.g. pki/ca.crt)")
	pkiCmd.Flags().StringVar(&pkiCACN, "req-cn-ca", "",
		"CA common name for build-ca and gen-req")
	pkiCmd.Flags().StringVar(&pkiServerCN, "req-cn-server", "",
		"server common name for gen-req and sign-req")
	pkiCmd.Flags().IntVar(&pkiKeySize, "keysize", 0,
		"key size for build-ca and gen-dh (default: easyrsa default)")
}
