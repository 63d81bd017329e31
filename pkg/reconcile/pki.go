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

	"github.com/jeremyhahn/go-ovpnpki/pkg/easyrsa"
	"github.com/jeremyhahn/go-ovpnpki/pkg/logging"
	"github.com/spf13/afero"
)

// PKI runs the easyrsa bootstrap steps under the creates/force convention.
type PKI struct {
	easyrsa *easyrsa.Client
	fs      afero.Fs
	dir     string
	logger  *logging.Logger
}

// NewPKI creates a PKI reconciler. Relative creates paths resolve against
// dir, the easyrsa directory.
func NewPKI(client *easyrsa.Client, fs afero.Fs, dir string, logger *logging.Logger) (*PKI, error) {
	if client == nil {
		return nil, errors.New("reconcile: easyrsa client is required")
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &PKI{easyrsa: client, fs: fs, dir: dir, logger: logger}, nil
}

// Step runs one bootstrap step unless its creates file already exists.
func (p *PKI) Step(ctx context.Context, step easyrsa.Step, stepOpts easyrsa.StepOptions, opts Options) (Result, error) {
	logger := p.logger.With("step", string(step))

	// Reject bad options before touching the creates file.
	if _, err := step.Args(stepOpts); err != nil {
		return nil, err
	}

	if r, err := guard(p.fs, p.dir, opts, step.AlreadyCreatedMessage(), logger); err != nil || r != nil {
		if r != nil {
			r = finish(logger, KindPKIStep, string(step), r)
		}
		return r, err
	}

	res, err := p.easyrsa.RunStep(ctx, step, stepOpts)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return finish(logger, KindPKIStep, string(step), commandFailed(res.Output(), res.Command, res.ExitCode)), nil
	}
	return finish(logger, KindPKIStep, string(step), Created{
		Message: fmt.Sprintf("easyrsa %s completed.", step),
		Output:  res.Output(),
	}), nil
}
