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
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Exit codes returned by ExitCode.
const (
	ExitOK     = 0
	ExitError  = 1
	ExitFailed = 2
)

// ErrFailed marks a command that ran to completion but reported
// failed=true. The report has already been printed.
var ErrFailed = errors.New("failed")

var (
	// Global configuration
	globalConfig *Config

	// settings resolves persistent flags and OVPNPKI_* environment variables.
	settings = viper.New()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "ovpnpki",
	Short: "ovpnpki - OpenVPN PKI reconciliation tool",
	Long: `ovpnpki drives easyrsa and openvpn to converge an OpenVPN PKI on a
desired state. Every command is idempotent: it reports whether it changed
anything, and generated certificates and client profiles are tracked by
SHA-256 so manual edits are reported instead of overwritten.

Exit status is 0 on success, 2 when the command reports failed=true and
1 on any other error.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, ErrFailed) {
		handleError(err)
	}
	return ExitCode(err)
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrFailed):
		return ExitFailed
	default:
		return ExitError
	}
}

func init() {
	// Initialize global config
	globalConfig = NewConfig()

	// Persistent flags (available to all commands)
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globalConfig.ConfigFile, "config", "",
		"config file (default is /etc/ovpnpki/config.yaml when present)")
	flags.StringVarP(&globalConfig.OutputFormat, "output", "o", "text",
		"output format (text, json, yaml, table)")
	flags.BoolVarP(&globalConfig.Verbose, "verbose", "v", false,
		"verbose output (debug logging)")
	flags.StringVar(&globalConfig.LogLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	flags.StringVar(&globalConfig.LogFormat, "log-format", "",
		"log format (text, json)")
	flags.BoolVar(&globalConfig.Syslog, "syslog", false,
		"mirror the audit trail to the system log")
	flags.StringVar(&globalConfig.EasyRSADir, "easyrsa-dir", "",
		"easyrsa working directory (default /etc/easy-rsa)")
	flags.StringVar(&globalConfig.EasyRSABin, "easyrsa-bin", "",
		"easyrsa executable (default easyrsa)")
	flags.StringVar(&globalConfig.OpenVPNBin, "openvpn-bin", "",
		"openvpn executable (default openvpn)")
	flags.StringVar(&globalConfig.CacheDir, "cache-dir", "",
		"checksum cache directory (default ~/.cache/ovpnpki)")
	flags.StringVar(&globalConfig.BundleDir, "bundle-dir", "",
		"directory for rendered client profiles (default /etc/openvpn/clients)")
	flags.StringVar(&globalConfig.LockDir, "lock-dir", "",
		"directory for per-subject lock files")
	flags.BoolVar(&globalConfig.NoLock, "no-lock", false,
		"do not take per-subject locks")
	flags.StringVar(&globalConfig.MetricsTextfile, "metrics-textfile", "",
		"write Prometheus metrics to this node_exporter textfile at exit")

	settings.SetEnvPrefix("OVPNPKI")
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	if err := settings.BindPFlags(flags); err != nil {
		panic(err)
	}

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(clientCmd)
	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(pkiCmd)
	rootCmd.AddCommand(genkeyCmd)
	rootCmd.AddCommand(crlCmd)
	rootCmd.AddCommand(clientsCmd)
	rootCmd.AddCommand(checksumCmd)
	rootCmd.AddCommand(doctorCmd)
}

// getConfig returns the global configuration
func getConfig() *Config {
	return globalConfig
}

// handleError prints an error to stderr
func handleError(err error) {
	printer := NewPrinter(settings.GetString("output"), rootCmd.ErrOrStderr())
	_ = printer.PrintError(err) // Error printing to stderr is best-effort
}
