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

var clientForce bool

// clientCmd represents the client command
var clientCmd = &cobra.Command{
	Use:   "client",
	Short: "Manage client certificates",
	Long: `Issue, revoke and inspect client certificates built with
easyrsa build-client-full. The request, key and certificate of each client
are tracked by SHA-256 in the checksum cache; a set that was modified after
it was recorded is reported and never regenerated.`,
}

var clientPresentCmd = &cobra.Command{
	Use:   "present <user>",
	Short: "Ensure a client certificate exists and is unmodified",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(metrics.OpClientPresent, func(ctx context.Context, a *app, args []string) error {
		c, err := a.clientCertificate()
		if err != nil {
			return err
		}
		r, err := c.Present(ctx, args[0], reconcile.Options{Force: clientForce})
		if err != nil {
			return err
		}
		return a.report(r)
	}),
}

var clientAbsentCmd = &cobra.Command{
	Use:   "absent <user>",
	Short: "Revoke a client certificate and regenerate the CRL",
	Long: `Revoke a client certificate with easyrsa revoke, regenerate the CRL,
drop its recorded checksums and rendered profile and mark the user revoked.
A revoked user cannot be issued again until "client clear" is run or
--force is given to "client present".`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(metrics.OpClientAbsent, func(ctx context.Context, a *app, args []string) error {
		c, err := a.clientCertificate()
		if err != nil {
			return err
		}
		r, err := c.Absent(ctx, args[0], reconcile.Options{Force: clientForce})
		if err != nil {
			return err
		}
		return a.report(r)
	}),
}

var clientClearCmd = &cobra.Command{
	Use:   "clear <user>",
	Short: "Forget recorded checksums and revocation of a client",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(metrics.OpClientClear, func(ctx context.Context, a *app, args []string) error {
		c, err := a.clientCertificate()
		if err != nil {
			return err
		}
		r, err := c.Clear(ctx, args[0])
		if err != nil {
			return err
		}
		return a.report(r)
	}),
}

var clientInspectCmd = &cobra.Command{
	Use:   "inspect <user>",
	Short: "Show the tracked state of a client certificate without changing it",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(metrics.OpChecksum, func(ctx context.Context, a *app, args []string) error {
		c, err := a.clientCertificate()
		if err != nil {
			return err
		}
		vr, err := c.Inspect(args[0])
		if err != nil {
			return err
		}
		return a.printer.PrintValidation(vr)
	}),
}

func init() {
	clientPresentCmd.Flags().BoolVar(&clientForce, "force", false,
		"discard recorded checksums and revocation before reconciling")
	clientAbsentCmd.Flags().BoolVar(&clientForce, "force", false,
		"revoke again even if the user is already marked revoked")

	clientCmd.AddCommand(clientPresentCmd)
	clientCmd.AddCommand(clientAbsentCmd)
	clientCmd.AddCommand(clientClearCmd)
	clientCmd.AddCommand(clientInspectCmd)
}
