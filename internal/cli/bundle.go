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
	bundleForce       bool
	bundleCreates     string
	bundleTemplate    string
	bundleCAFile      string
	bundleTLSAuthFile string
)

// bundleCmd represents the bundle command
var bundleCmd = &cobra.Command{
	Use:   "bundle",
	Short: "Manage rendered .ovpn client profiles",
	Long: `Render a client's inline .ovpn profile from a template using its
private key and issued certificate. The profile is written 0600 to the bundle
directory and tracked by a .<user>.ovpn.sha256 sidecar next to it.`,
}

var bundlePresentCmd = &cobra.Command{
	Use:   "present <user>",
	Short: "Ensure a client profile exists and is unmodified",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(metrics.OpBundlePresent, func(ctx context.Context, a *app, args []string) error {
		if err := applyBundleFlags(a); err != nil {
			return err
		}
		b, err := a.bundle()
		if err != nil {
			return err
		}
		r, err := b.Present(ctx, args[0], reconcile.Options{Force: bundleForce, Creates: bundleCreates})
		if err != nil {
			return err
		}
		return a.report(r)
	}),
}

var bundleAbsentCmd = &cobra.Command{
	Use:   "absent <user>",
	Short: "Remove a client profile and its sidecar",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(metrics.OpBundleAbsent, func(ctx context.Context, a *app, args []string) error {
		b, err := a.bundle()
		if err != nil {
			return err
		}
		r, err := b.Absent(ctx, args[0], reconcile.Options{})
		if err != nil {
			return err
		}
		return a.report(r)
	}),
}

var bundleInspectCmd = &cobra.Command{
	Use:   "inspect <user>",
	Short: "Show the tracked state of a client profile without changing it",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(metrics.OpChecksum, func(ctx context.Context, a *app, args []string) error {
		b, err := a.bundle()
		if err != nil {
			return err
		}
		vr, err := b.Inspect(args[0])
		if err != nil {
			return err
		}
		return a.printer.PrintValidation(vr)
	}),
}

// applyBundleFlags overrides the bundle section and revalidates it.
func applyBundleFlags(a *app) error {
	if bundleTemplate != "" {
		a.cfg.Bundle.Template = bundleTemplate
	}
	if bundleCAFile != "" {
		a.cfg.Bundle.CAFile = bundleCAFile
	}
	if bundleTLSAuthFile != "" {
		a.cfg.Bundle.TLSAuthFile = bundleTLSAuthFile
	}
	return a.cfg.Validate()
}

func init() {
	bundlePresentCmd.Flags().BoolVar(&bundleForce, "force", false,
		"remove the profile and its sidecar before rendering")
	bundlePresentCmd.Flags().StringVar(&bundleCreates, "creates", "",
		"skip rendering when this path exists")
	bundlePresentCmd.Flags().StringVar(&bundleTemplate, "template", "",
		"profile template (default /etc/openvpn/client.ovpn.template)")
	bundlePresentCmd.Flags().StringVar(&bundleCAFile, "ca-file", "",
		"CA certificate to inline, relative to the easyrsa directory (e.g. pki/ca.crt)")
	bundlePresentCmd.Flags().StringVar(&bundleTLSAuthFile, "tls-auth-file", "",
		"tls-auth static key to inline")

	bundleCmd.AddCommand(bundlePresentCmd)
	bundleCmd.AddCommand(bundleAbsentCmd)
	bundleCmd.AddCommand(bundleInspectCmd)
}
