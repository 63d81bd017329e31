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
	"path/filepath"

	"github.com/jeremyhahn/go-ovpnpki/pkg/checksum"
	"github.com/jeremyhahn/go-ovpnpki/pkg/metrics"
	"github.com/jeremyhahn/go-ovpnpki/pkg/storage"
	"github.com/jeremyhahn/go-ovpnpki/pkg/storage/file"
	"github.com/spf13/cobra"
)

var checksumSidecar string

// checksumCmd represents the checksum command
var checksumCmd = &cobra.Command{
	Use:   "checksum",
	Short: "Inspect tracked digests",
	Long: `Inspect the SHA-256 digests ovpnpki tracks. Digests are taken after
stripping exactly one trailing newline, so they differ from sha256sum for
files that end in a newline.`,
}

var checksumDigestCmd = &cobra.Command{
	Use:   "digest <file>",
	Short: "Print the tracked digest of a file",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(metrics.OpChecksum, func(ctx context.Context, a *app, args []string) error {
		record, err := checksum.NewStore(a.fs, nil).Digest(args[0])
		if err != nil {
			return err
		}
		return a.printer.PrintDigest(args[0], record)
	}),
}

var checksumValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Compare a file with its sidecar without recording anything",
	Long: `Compare a file with the digest recorded in its sidecar. The sidecar
defaults to .<name>.sha256 next to the file, the layout used for client
profiles. Exits 2 when the file drifted or is missing.`,
	Args: cobra.ExactArgs(1),
	RunE: withApp(metrics.OpChecksum, func(ctx context.Context, a *app, args []string) error {
		path := args[0]
		sidecar := checksumSidecar
		if sidecar == "" {
			sidecar = filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+storage.SidecarExt)
		}

		sidecars, err := file.New(a.fs, filepath.Dir(sidecar))
		if err != nil {
			return err
		}
		val, err := checksum.NewStore(a.fs, sidecars).Check(filepath.Base(sidecar), path)
		if err != nil {
			return err
		}
		if err := a.printer.PrintChecksumValidation(path, sidecar, val); err != nil {
			return err
		}

		switch val.Status {
		case checksum.StatusChanged, checksum.StatusContentMissing:
			metrics.RecordDrift("file", 1)
			return fmt.Errorf("%w: %s is %s", ErrFailed, path, val.Status)
		}
		return nil
	}),
}

var checksumListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the subjects tracked in the checksum cache",
	Args:  cobra.NoArgs,
	RunE: withApp(metrics.OpChecksum, func(ctx context.Context, a *app, args []string) error {
		cacheDir, err := a.cfg.CacheDir()
		if err != nil {
			return err
		}
		sidecars, err := file.New(a.fs, cacheDir)
		if err != nil {
			return err
		}
		subjects, err := storage.ListSubjects(sidecars)
		if err != nil {
			return err
		}
		return a.printer.PrintSubjects(subjects)
	}),
}

func init() {
	checksumValidateCmd.Flags().StringVar(&checksumSidecar, "sidecar", "",
		"sidecar file (default .<name>.sha256 next to the file)")

	checksumCmd.AddCommand(checksumDigestCmd)
	checksumCmd.AddCommand(checksumValidateCmd)
	checksumCmd.AddCommand(checksumListCmd)
}
