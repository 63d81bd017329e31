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
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/jeremyhahn/go-ovpnpki/internal/config"
	"github.com/jeremyhahn/go-ovpnpki/pkg/artifact"
	"github.com/jeremyhahn/go-ovpnpki/pkg/checksum"
	"github.com/jeremyhahn/go-ovpnpki/pkg/correlation"
	"github.com/jeremyhahn/go-ovpnpki/pkg/easyrsa"
	"github.com/jeremyhahn/go-ovpnpki/pkg/lock"
	"github.com/jeremyhahn/go-ovpnpki/pkg/logging"
	"github.com/jeremyhahn/go-ovpnpki/pkg/metrics"
	"github.com/jeremyhahn/go-ovpnpki/pkg/openvpn"
	"github.com/jeremyhahn/go-ovpnpki/pkg/reconcile"
	"github.com/jeremyhahn/go-ovpnpki/pkg/runner"
	"github.com/jeremyhahn/go-ovpnpki/pkg/storage/file"
	"github.com/jeremyhahn/go-ovpnpki/pkg/validation"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// hostEnv is what commands run against. Tests replace it with an
// in-memory filesystem and a scripted runner.
type hostEnv struct {
	fs       afero.Fs
	stdin    io.Reader
	now      func() time.Time
	lookPath func(file string) (string, error)
	runner   func(dir string) runner.Runner
	locker   func(cfg config.LockConfig) lock.Locker
}

var host = defaultHost()

func defaultHost() hostEnv {
	return hostEnv{
		fs:       afero.NewOsFs(),
		stdin:    os.Stdin,
		now:      time.Now,
		lookPath: exec.LookPath,
		runner: func(dir string) runner.Runner {
			return runner.NewExec(dir)
		},
		locker: func(cfg config.LockConfig) lock.Locker {
			if !cfg.Enabled {
				return lock.Nop{}
			}
			return lock.NewFile(cfg.Dir)
		},
	}
}

// app is the per-invocation wiring of configuration, logging and the
// external tools.
type app struct {
	cfg     *config.Config
	fs      afero.Fs
	logger  *logging.Logger
	runner  runner.Runner
	locker  lock.Locker
	printer *Printer
	runID   string
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(host.fs, settings)
	if err != nil {
		return nil, err
	}

	runID := correlation.FromEnvironment()
	logger := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: cmd.ErrOrStderr(),
		Syslog: cfg.Logging.Syslog,
		Tag:    cfg.Logging.Tag,
	}).With(correlation.LogKey, runID)

	// easyrsa resolves its pki relative to the working directory.
	r := runner.Instrument(host.runner(cfg.EasyRSA.Dir), logger)

	return &app{
		cfg:     cfg,
		fs:      host.fs,
		logger:  logger,
		runner:  r,
		locker:  host.locker(cfg.Lock),
		printer: NewPrinter(settings.GetString("output"), cmd.OutOrStdout()),
		runID:   runID,
	}, nil
}

// close flushes metrics and the audit log.
func (a *app) close() {
	if err := metrics.WriteTextfile(a.cfg.Metrics.Textfile); err != nil {
		a.logger.Warn("failed to write metrics textfile", "path", a.cfg.Metrics.Textfile, "error", err)
	}
	a.logger.Close()
}

func (a *app) context(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return correlation.WithRunID(ctx, a.runID)
}

// report prints a reconciliation result and turns failed=true into
// ErrFailed.
func (a *app) report(r reconcile.Result) error {
	rep := r.Report()
	if err := a.printer.PrintReport(rep); err != nil {
		return err
	}
	if rep.Failed {
		return fmt.Errorf("%w: %s", ErrFailed, rep.Message)
	}
	return nil
}

func (a *app) pkiFs() afero.Fs {
	return afero.NewBasePathFs(a.fs, a.cfg.EasyRSA.Dir)
}

func (a *app) easyrsa() *easyrsa.Client {
	return easyrsa.New(a.runner, a.cfg.EasyRSA.Binary)
}

func (a *app) openvpn() *openvpn.Client {
	return openvpn.New(a.runner, a.cfg.OpenVPN.Binary)
}

// clientValidator tracks client certificates in the checksum cache.
func (a *app) clientValidator() (*artifact.Validator, error) {
	cacheDir, err := a.cfg.CacheDir()
	if err != nil {
		return nil, err
	}
	sidecars, err := file.New(a.fs, cacheDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open checksum cache: %w", err)
	}
	return artifact.NewValidator(checksum.NewStore(a.pkiFs(), sidecars), cacheDir, a.logger), nil
}

// bundleValidator tracks profiles with sidecars next to them in the
// bundle directory.
func (a *app) bundleValidator() (*artifact.Validator, error) {
	dest := a.cfg.Bundle.DestDir
	sidecars, err := file.New(a.fs, dest)
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle directory: %w", err)
	}
	content := afero.NewBasePathFs(a.fs, dest)
	return artifact.NewValidator(checksum.NewStore(content, sidecars), dest, a.logger), nil
}

func (a *app) bundle() (*reconcile.Bundle, error) {
	validator, err := a.bundleValidator()
	if err != nil {
		return nil, err
	}
	return reconcile.NewBundle(reconcile.BundleConfig{
		PKI:          a.pkiFs(),
		Host:         a.fs,
		Validator:    validator,
		DestDir:      a.cfg.Bundle.DestDir,
		TemplatePath: a.cfg.Bundle.Template,
		CAPath:       a.cfg.Bundle.CAFile,
		TLSAuthPath:  a.cfg.Bundle.TLSAuthFile,
		Locker:       a.locker,
		Logger:       a.logger,
	})
}

func (a *app) clientCertificate() (*reconcile.ClientCertificate, error) {
	validator, err := a.clientValidator()
	if err != nil {
		return nil, err
	}

	// Revocation removes the rendered profile when one can exist.
	var bundles *reconcile.Bundle
	if ok, _ := afero.DirExists(a.fs, a.cfg.Bundle.DestDir); ok {
		if bundles, err = a.bundle(); err != nil {
			return nil, err
		}
	}

	return reconcile.NewClientCertificate(reconcile.ClientCertificateConfig{
		EasyRSA:   a.easyrsa(),
		Validator: validator,
		Locker:    a.locker,
		Bundles:   bundles,
		Logger:    a.logger,
	})
}

type runFunc func(ctx context.Context, a *app, args []string) error

// withApp builds the app for a command, records the operation metric
// and flushes metrics when it returns.
func withApp(op string, fn runFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := newApp(cmd)
		if err != nil {
			metrics.RecordError(op, errorType(err))
			return err
		}

		start := time.Now()
		defer func() {
			metrics.RecordOperation(op, operationStatus(err), time.Since(start).Seconds())
			if err != nil && !errors.Is(err, ErrFailed) {
				metrics.RecordError(op, errorType(err))
				a.logger.Error(err, "operation", op)
			}
			a.close()
		}()

		return fn(a.context(cmd), a, args)
	}
}

func operationStatus(err error) string {
	switch {
	case err == nil:
		return metrics.StatusSuccess
	case errors.Is(err, ErrFailed):
		return metrics.StatusFailed
	default:
		return metrics.StatusError
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, validation.ErrInvalidInput),
		errors.Is(err, easyrsa.ErrMissingOption),
		errors.Is(err, easyrsa.ErrUnknownStep):
		return "validation"
	case errors.Is(err, config.ErrInvalidConfig):
		return "config"
	case errors.Is(err, reconcile.ErrExternalCommand):
		return "command"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
