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
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jeremyhahn/go-ovpnpki/pkg/artifact"
	"github.com/jeremyhahn/go-ovpnpki/pkg/lock"
	"github.com/jeremyhahn/go-ovpnpki/pkg/logging"
	"github.com/jeremyhahn/go-ovpnpki/pkg/render"
	"github.com/jeremyhahn/go-ovpnpki/pkg/validation"
	"github.com/spf13/afero"
)

// BundleFileMode is the permission of rendered client profiles; they embed
// a private key.
const BundleFileMode os.FileMode = 0600

// BundleConfig wires a Bundle reconciler.
type BundleConfig struct {
	// PKI is rooted at the easyrsa directory; keys are read from
	// pki/private and certificates from pki/issued.
	PKI afero.Fs

	// Host resolves the template, tls-auth key and creates paths.
	Host afero.Fs

	// Validator reads and writes content and sidecars rooted at DestDir.
	Validator *artifact.Validator

	// DestDir is only used in messages.
	DestDir string

	// TemplatePath defaults to render.DefaultTemplatePath.
	TemplatePath string

	// CAPath, relative to PKI, is inlined as {{ .CA }} when set.
	CAPath string

	// TLSAuthPath, on Host, is inlined as {{ .TLSAuth }} when set.
	TLSAuthPath string

	Locker lock.Locker
	Logger *logging.Logger
}

// Bundle reconciles the rendered .ovpn profile of a client.
type Bundle struct {
	pki          afero.Fs
	host         afero.Fs
	validator    *artifact.Validator
	destDir      string
	templatePath string
	caPath       string
	tlsAuthPath  string
	locker       lock.Locker
	logger       *logging.Logger
}

// NewBundle creates a Bundle reconciler.
func NewBundle(cfg BundleConfig) (*Bundle, error) {
	if cfg.PKI == nil || cfg.Host == nil {
		return nil, errors.New("reconcile: pki and host filesystems are required")
	}
	if cfg.Validator == nil {
		return nil, errors.New("reconcile: validator is required")
	}
	if cfg.TemplatePath == "" {
		cfg.TemplatePath = render.DefaultTemplatePath
	}
	if cfg.Locker == nil {
		cfg.Locker = lock.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &Bundle{
		pki:          cfg.PKI,
		host:         cfg.Host,
		validator:    cfg.Validator,
		destDir:      cfg.DestDir,
		templatePath: cfg.TemplatePath,
		caPath:       cfg.CAPath,
		tlsAuthPath:  cfg.TLSAuthPath,
		locker:       cfg.Locker,
		logger:       cfg.Logger,
	}, nil
}

// Path returns the display path of subject's profile.
func (b *Bundle) Path(subject string) string {
	return filepath.Join(b.destDir, subject+".ovpn")
}

// Inspect reports the state of subject's profile without writing anything.
func (b *Bundle) Inspect(subject string) (*artifact.ValidationResult, error) {
	if err := validation.ValidateSubject(subject); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	return b.validator.Inspect(artifact.BundleSet(subject))
}

// Present renders subject's profile when it does not exist yet. An
// existing profile is validated against its checksum and never rewritten.
func (b *Bundle) Present(ctx context.Context, subject string, opts Options) (Result, error) {
	if err := validation.ValidateSubject(subject); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	unlock, err := b.locker.Lock(ctx, subject+".ovpn")
	if err != nil {
		return nil, err
	}
	defer func() { b.logger.MaybeError(unlock()) }()

	logger := b.logger.With("subject", subject)
	set := artifact.BundleSet(subject)

	if opts.Force {
		logger.Info("force mode, removing rendered profile", "path", b.Path(subject))
		if err := b.deleteProfile(set); err != nil {
			return nil, err
		}
	}

	if r, err := guard(b.host, "", opts, fmt.Sprintf("ovpn file for user %s already created", subject), logger); err != nil || r != nil {
		if r != nil {
			r = finish(logger, KindBundle, subject, r)
		}
		return r, err
	}

	vr, err := b.validator.Validate(set)
	if err != nil {
		return nil, err
	}
	if vr.State == artifact.StateTrackedValid {
		return finish(logger, KindBundle, subject, AlreadyValid{
			Message:      fmt.Sprintf("ovpn file %s exists.", b.Path(subject)),
			Bootstrapped: artifactNames(vr.Bootstrapped),
		}), nil
	}
	if r, ok := fromValidation(vr); ok {
		return finish(logger, KindBundle, subject, r), nil
	}

	data, failed, err := b.render(subject)
	if err != nil {
		return nil, err
	}
	if failed != nil {
		return finish(logger, KindBundle, subject, *failed), nil
	}

	profile := set.Artifacts[0]
	content := b.validator.Store().Content()
	if err := afero.WriteFile(content, profile.Path, data, BundleFileMode); err != nil {
		return nil, fmt.Errorf("reconcile: failed to write %s: %w", b.Path(subject), err)
	}
	if err := content.Chmod(profile.Path, BundleFileMode); err != nil {
		return nil, fmt.Errorf("reconcile: failed to chmod %s: %w", b.Path(subject), err)
	}
	if err := b.validator.Record(set); err != nil {
		return nil, err
	}

	return finish(logger, KindBundle, subject, Created{
		Message: fmt.Sprintf("ovpn file successfully written as %s.", b.Path(subject)),
	}), nil
}

// Absent removes subject's profile, its checksum and the creates file.
func (b *Bundle) Absent(ctx context.Context, subject string, opts Options) (Result, error) {
	if err := validation.ValidateSubject(subject); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	unlock, err := b.locker.Lock(ctx, subject+".ovpn")
	if err != nil {
		return nil, err
	}
	defer func() { b.logger.MaybeError(unlock()) }()

	r, err := b.remove(subject, opts)
	if err != nil {
		return nil, err
	}
	return finish(b.logger.With("subject", subject), KindBundle, subject, r), nil
}

// remove deletes the profile without taking the lock.
func (b *Bundle) remove(subject string, opts Options) (Result, error) {
	set := artifact.BundleSet(subject)

	vr, err := b.validator.Inspect(set)
	if err != nil {
		return nil, err
	}
	existed := vr.State != artifact.StateAbsent

	if err := b.deleteProfile(set); err != nil {
		return nil, err
	}
	if opts.Creates != "" {
		if err := b.host.Remove(opts.Creates); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("reconcile: failed to remove %s: %w", opts.Creates, err)
		}
	}

	if !existed {
		return NoOp{Message: fmt.Sprintf("ovpn file %s does not exist.", b.Path(subject))}, nil
	}
	return Removed{Message: fmt.Sprintf("ovpn file %s successfully removed.", b.Path(subject))}, nil
}

func (b *Bundle) deleteProfile(set *artifact.Set) error {
	content := b.validator.Store().Content()
	for _, a := range set.Artifacts {
		if err := content.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("reconcile: failed to remove %s: %w", a.Path, err)
		}
	}
	return b.validator.Forget(set)
}

// render builds the profile. Missing or unusable inputs are a failed
// result; only I/O faults are errors.
func (b *Bundle) render(subject string) ([]byte, *Failed, error) {
	certs := artifact.ClientCertificateSet(subject)
	keyArtifact, _ := certs.Get(artifact.NameKey)
	crtArtifact, _ := certs.Get(artifact.NameCertificate)

	key, keyErr := afero.ReadFile(b.pki, keyArtifact.Path)
	crt, crtErr := afero.ReadFile(b.pki, crtArtifact.Path)
	if errors.Is(keyErr, os.ErrNotExist) || errors.Is(crtErr, os.ErrNotExist) {
		return nil, &Failed{
			Message: fmt.Sprintf("can not find key or certfile for user %s.", subject),
			Err:     fmt.Errorf("%w: key or certificate of %s", ErrMissingInput, subject),
		}, nil
	}
	if err := errors.Join(keyErr, crtErr); err != nil {
		return nil, nil, fmt.Errorf("reconcile: reading key material of %s: %w", subject, err)
	}

	cert, err := render.FirstCertificate(crt)
	if err != nil {
		return nil, &Failed{Message: fmt.Sprintf("%s: %v", crtArtifact.Path, err), Err: err}, nil
	}

	data := render.Data{
		Subject: subject,
		Key:     strings.TrimSuffix(string(key), "\n"),
		Cert:    cert,
	}
	if b.caPath != "" {
		ca, err := afero.ReadFile(b.pki, b.caPath)
		if err != nil {
			return nil, &Failed{Message: fmt.Sprintf("can not read CA certificate %s.", b.caPath), Err: fmt.Errorf("%w: %w", ErrMissingInput, err)}, nil
		}
		data.CA = strings.TrimSuffix(string(ca), "\n")
	}
	if b.tlsAuthPath != "" {
		ta, err := afero.ReadFile(b.host, b.tlsAuthPath)
		if err != nil {
			return nil, &Failed{Message: fmt.Sprintf("can not read tls-auth key %s.", b.tlsAuthPath), Err: fmt.Errorf("%w: %w", ErrMissingInput, err)}, nil
		}
		data.TLSAuth = strings.TrimSuffix(string(ta), "\n")
	}

	tmpl, err := render.Load(b.host, b.templatePath)
	if err != nil {
		return nil, &Failed{Message: err.Error(), Err: err}, nil
	}
	out, err := tmpl.Render(data)
	if err != nil {
		return nil, &Failed{Message: err.Error(), Err: err}, nil
	}
	return out, nil, nil
}
