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


package reconcile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jeremyhahn/go-ovpnpki/pkg/logging"
	"github.com/jeremyhahn/go-ovpnpki/pkg/metrics"
	"github.com/spf13/afero"
)

// Artifact kinds, used as metric labels.
const (
	KindClientCertificate = "client_certificate"
	KindBundle            = "bundle"
	KindPKIStep           = "pki_step"
	KindTLSAuthKey        = "tls_auth_key"
)

// Options are the caller's switches for one reconciliation.
type Options struct {
	// Force discards recorded state before reconciling. For client
	// certificates this re-baselines checksums and clears a revocation;
	// for bundles it deletes the rendered file; for guarded commands it
	// removes the Creates file.
	Force bool

	// Creates short-circuits the run with changed=false when the path
	// exists. Relative paths resolve against the working directory of
	// the reconciler.
	Creates string
}

// guard implements the creates/force convention shared by the command
// reconcilers. It returns a NoOp when the creates file exists.
func guard(fs afero.Fs, dir string, opts Options, message string, logger *logging.Logger) (Result, error) {
	if opts.Creates == "" {
		return nil, nil
	}
	path := opts.Creates
	if !filepath.IsAbs(path) && dir != "" {
		path = filepath.Join(dir, path)
	}

	if opts.Force {
		logger.Info("force mode, removing creates file", "path", path)
		if err := fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reconcile: failed to remove %s: %w", path, err)
		}
	}

	exists, err := afero.Exists(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reconcile: failed to stat %s: %w", path, err)
	}
	if exists {
		return NoOp{Message: message}, nil
	}
	return nil, nil
}

// finish logs the audit line and records metrics for a result.
func finish(logger *logging.Logger, kind, subject string, r Result) Result {
	rep := r.Report()
	metrics.RecordOutcome(kind, r.Outcome())
	if d, ok := r.(Drifted); ok {
		metrics.RecordDrift(kind, len(d.Changed))
	}

	args := []any{
		"kind", kind,
		"subject", subject,
		"outcome", rep.Outcome,
		"changed", rep.Changed,
		"failed", rep.Failed,
	}
	if len(rep.ChangedArtifacts) > 0 {
		args = append(args, "changed_artifacts", rep.ChangedArtifacts)
	}
	logger.Audit(rep.Failed, rep.Message, args...)
	return r
}
