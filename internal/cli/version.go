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
	"runtime"

	"github.com/jeremyhahn/go-ovpnpki/pkg/metrics"
	"github.com/spf13/cobra"
)

// Version information (injected at build time via -ldflags)
var (
	Version   = "dev"     // Set via -ldflags "-X github.com/jeremyhahn/go-ovpnpki/internal/cli.Version=x.y.z"
	GitCommit = "unknown" // Set via -ldflags "-X github.com/jeremyhahn/go-ovpnpki/internal/cli.GitCommit=abc123"
	BuildDate = "unknown" // Set via -ldflags "-X github.com/jeremyhahn/go-ovpnpki/internal/cli.BuildDate=2025-01-15"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version information for the ovpnpki CLI`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		printer := NewPrinter(settings.GetString("output"), cmd.OutOrStdout())

		info := map[string]interface{}{
			"version":    Version,
			"commit":     GitCommit,
			"build_date": BuildDate,
			"go_version": runtime.Version(),
			"os":         runtime.GOOS,
			"arch":       runtime.GOARCH,
		}
		switch printer.format {
		case OutputFormatJSON:
			return printer.printJSON(info)
		case OutputFormatYAML:
			return printer.printYAML(info)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ovpnpki version %s\n", Version)
		fmt.Fprintf(out, "Git commit: %s\n", GitCommit)
		fmt.Fprintf(out, "Build date: %s\n", BuildDate)
		fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
		fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		return nil
	},
}

var versionOpenVPNCmd = &cobra.Command{
	Use:   "openvpn",
	Short: "Report the installed OpenVPN version",
	Long: `Run openvpn --version and report the parsed version together with the
raw output. Fails when no "OpenVPN x.y.z" banner is found.`,
	Args: cobra.NoArgs,
	RunE: withApp(metrics.OpVersion, func(ctx context.Context, a *app, args []string) error {
		info, err := a.openvpn().Version(ctx)
		if err != nil {
			return err
		}
		if err := a.printer.PrintOpenVPNVersion(info); err != nil {
			return err
		}
		if info.Failed {
			return fmt.Errorf("%w: no OpenVPN version found", ErrFailed)
		}
		a.logger.Debug("openvpn version", "version", info.Version)
		return nil
	}),
}

func init() {
	versionCmd.AddCommand(versionOpenVPNCmd)
}
