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


// Package reconcile drives artifact sets to their desired state: it
// validates what exists against recorded checksums, runs the PKI tooling
// only when nothing exists yet, and records the new digests. Every entry
// point returns one Result; errors are reserved for faults that prevent
// reaching a verdict at all.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeremyhahn/go-ovpnpki/pkg/artifact"
	"github.com/jeremyhahn/go-ovpnpki/pkg/easyrsa"
	"github.com/jeremyhahn/go-ovpnpki/pkg/lock"
	"github.com/jeremyhahn/go-ovpnpki/pkg/logging"
	"github.com/jeremyhahn/go-ovpnpki/pkg/storage"
	"github.com/jeremyhahn/go-ovpnpki/pkg/validation"
)

// MessageCertificateCreated is reported after build-client-full succeeded.
const MessageCertificateCreated = "The client certificate has been successfully created."

// ClientCertificateConfig wires a ClientCertificate reconciler.
type ClientCertificateConfig struct {
	// EasyRSA runs in the easyrsa directory.
	EasyRSA *easyrsa.Client

	// Validator reads content relative to the easyrsa directory and keeps
	// sidecars in the checksum cache.
	Validator *artifact.Validator

	// Locker serializes runs per subject. Defaults to lock.Nop.
	Locker lock.Locker

	// Bundles, when set, has its rendered profile removed on revocation.
	Bundles *Bundle

	Logger *logging.Logger
}

// ClientCertificate reconciles the request, key and certificate of one
// client subject.
type ClientCertificate struct {
	easyrsa   *easyrsa.Client
	validator *artifact.Validator
	locker    lock.Locker
	bundles   *Bundle
	logger    *logging.Logger
}

// NewClientCertificate creates a ClientCertificate reconciler.
func NewClientCertificate(cfg ClientCertificateConfig) (*ClientCertificate, error) {
	if cfg.EasyRSA == nil {
		return nil, errors.New("reconcile: easyrsa client is required")
	}
	if cfg.Validator == nil {
		return nil, errors.New("reconcile: validator is required")
	}
	if cfg.Locker == nil {
		cfg.Locker = lock.Nop{}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	return &ClientCertificate{
		easyrsa:   cfg.EasyRSA,
		validator: cfg.Validator,
		locker:    cfg.Locker,
		bundles:   cfg.Bundles,
		logger:    cfg.Logger,
	}, nil
}

// Inspect reports the state of subject without writing anything.
func (c *ClientCertificate) Inspect(subject string) (*artifact.ValidationResult, error) {
	if err := validation.ValidateSubject(subject); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	return c.validator.Inspect(artifact.ClientCertificateSet(subject))
}

// Present ensures subject has a tracked, unmodified certificate set.
// Existing files are never regenerated: a drifted or incomplete set and a
// revoked subject are reported as failures.
func (c *ClientCertificate) Present(ctx context.Context, subject string, opts Options) (Result, error) {
	if err := validation.ValidateSubject(subject); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	unlock, err := c.locker.Lock(ctx, subject)
	if err != nil {
		return nil, err
	}
	defer func() { c.logger.MaybeError(unlock()) }()

	logger := c.logger.With("subject", subject)
	set := artifact.ClientCertificateSet(subject)

	if opts.Force {
		logger.Info("force mode, clearing recorded checksums")
		if err := c.validator.Clear(set); err != nil {
			return nil, err
		}
	}

	vr, err := c.validator.Validate(set)
	if err != nil {
		return nil, err
	}
	if r, ok := fromValidation(vr); ok {
		if vr.State == artifact.StateRevoked {
			r = Failed{
				Message: fmt.Sprintf("The certificate for the user %s has been revoked. Clear its state before issuing it again.", subject),
				Err:     vr.Err(),
			}
		}
		return finish(logger, KindClientCertificate, subject, r), nil
	}

	res, err := c.easyrsa.BuildClientFull(ctx, subject)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return finish(logger, KindClientCertificate, subject, commandFailed(res.Output(), res.Command, res.ExitCode)), nil
	}

	if err := c.validator.Record(set); err != nil {
		if errors.Is(err, artifact.ErrIncompleteArtifactSet) {
			return finish(logger, KindClientCertificate, subject, Failed{Message: err.Error(), Output: res.Output(), Err: err}), nil
		}
		return nil, err
	}

	return finish(logger, KindClientCertificate, subject, Created{Message: MessageCertificateCreated}), nil
}

// Absent revokes subject, regenerates the CRL, drops every recorded
// checksum and the rendered profile, and marks the subject revoked. Key
// and certificate files stay where easyrsa leaves them. A revocation whose
// CRL regeneration failed is retried on the next call.
func (c *ClientCertificate) Absent(ctx context.Context, subject string, opts Options) (Result, error) {
	if err := validation.ValidateSubject(subject); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	unlock, err := c.locker.Lock(ctx, subject)
	if err != nil {
		return nil, err
	}
	defer func() { c.logger.MaybeError(unlock()) }()

	logger := c.logger.With("subject", subject)
	set := artifact.ClientCertificateSet(subject)

	pending, err := c.validator.CRLPending(set)
	if err != nil {
		return nil, err
	}
	if pending {
		logger.Info("previous revocation left the CRL stale, regenerating")
		return c.regenerateCRL(ctx, logger, set)
	}

	revoked, err := c.validator.Revoked(set)
	if err != nil {
		return nil, err
	}
	if revoked && !opts.Force {
		return finish(logger, KindClientCertificate, subject, NoOp{
			Message: fmt.Sprintf("The certificate for the user %s has already been revoked.", subject),
		}), nil
	}

	req, err := set.Get(artifact.NameRequest)
	if err != nil {
		return nil, err
	}
	exists, err := c.validator.Store().Exists(req.Path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return finish(logger, KindClientCertificate, subject, NoOp{
			Message: fmt.Sprintf("There is no certificate request for the user %s.", subject),
		}), nil
	}

	res, err := c.easyrsa.Revoke(ctx, subject)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return finish(logger, KindClientCertificate, subject, commandFailed(res.Output(), res.Command, res.ExitCode)), nil
	}

	if err := c.validator.MarkCRLPending(set); err != nil {
		return nil, err
	}
	if err := c.validator.Revoke(set); err != nil {
		return nil, err
	}
	if c.bundles != nil {
		if _, err := c.bundles.remove(subject, Options{}); err != nil {
			return nil, err
		}
	}

	return c.regenerateCRL(ctx, logger, set)
}

// regenerateCRL runs gen-crl after a revocation and clears the pending
// marker once it succeeds.
func (c *ClientCertificate) regenerateCRL(ctx context.Context, logger *logging.Logger, set *artifact.Set) (Result, error) {
	subject := set.Subject

	res, err := c.easyrsa.GenCRL(ctx)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		f := commandFailed(res.Output(), res.Command, res.ExitCode)
		f.Message = fmt.Sprintf("The certificate for the user %s has been revoked but the CRL could not be regenerated: %s", subject, f.Message)
		return finish(logger, KindClientCertificate, subject, f), nil
	}
	if err := c.validator.ClearCRLPending(set); err != nil {
		return nil, err
	}

	return finish(logger, KindClientCertificate, subject, Revoked{
		Message: fmt.Sprintf("The certificate for the user %s has been revoked successfully.", subject),
	}), nil
}

// Clear deletes every checksum and the revocation marker of subject so the
// name can be provisioned again. PKI files are not touched.
func (c *ClientCertificate) Clear(ctx context.Context, subject string) (Result, error) {
	if err := validation.ValidateSubject(subject); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	unlock, err := c.locker.Lock(ctx, subject)
	if err != nil {
		return nil, err
	}
	defer func() { c.logger.MaybeError(unlock()) }()

	logger := c.logger.With("subject", subject)
	pending, err := c.validator.CRLPending(artifact.ClientCertificateSet(subject))
	if err != nil {
		return nil, err
	}
	if pending {
		return finish(logger, KindClientCertificate, subject, Failed{
			Message: fmt.Sprintf("The CRL does not reflect the revocation of the user %s yet. Run absent again before clearing its state.", subject),
		}), nil
	}

	n, err := storage.DeleteSubject(c.validator.Store().Sidecars(), subject)
	if err != nil {
		return nil, fmt.Errorf("reconcile: failed to clear %s: %w", subject, err)
	}

	if n == 0 {
		return finish(logger, KindClientCertificate, subject, NoOp{
			Message: fmt.Sprintf("No recorded state for the user %s.", subject),
		}), nil
	}
	return finish(logger, KindClientCertificate, subject, Removed{
		Message: fmt.Sprintf("Removed %d recorded entries for the user %s.", n, subject),
	}), nil
}
