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
	"path/filepath"

	"github.com/jeremyhahn/go-ovpnpki/pkg/logging"
	"github.com/jeremyhahn/go-ovpnpki/pkg/openvpn"
	"github.com/spf13/afero"
)

// SecretFileMode is the permission of generated static keys.
const SecretFileMode = 0600

// TLSAuthKey generates the OpenVPN tls-auth static key.
type TLSAuthKey struct {
	openvpn *openvpn.Client
	fs      afero.Fs
	dir     string
	logger  *logging.Logger
}

// NewTLSAuthKey creates a TLSAuthKey reconciler. Relative paths resolve
// against dir.
func NewTLSAuthKey(client *openvpn.Client, fs afero.Fs, dir string, logger *logging.Logger) (*TLSAuthKey, error) {
	if client == nil {
		return nil, errors.New("reconcile: openvpn client is required")
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &TLSAuthKey{openvpn: client, fs: fs, dir: dir, logger: logger}, nil
}

// Present generates the key at secret unless opts.Creates exists, then
// restricts its permissions.
func (t *TLSAuthKey) Present(ctx context.Context, secret string, opts Options) (Result, error) {
	if secret == "" {
		return nil, errors.New("reconcile: secret path is required")
	}
	path := secret
	if !filepath.IsAbs(path) && t.dir != "" {
		path = filepath.Join(t.dir, path)
	}
	logger := t.logger.With("secret", path)

	if r, err := guard(t.fs, t.dir, opts, "tls-auth key already created", logger); err != nil || r != nil {
		if r != nil {
			r = finish(logger, KindTLSAuthKey, path, r)
		}
		return r, err
	}

	res, err := t.openvpn.GenKey(ctx, path)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return finish(logger, KindTLSAuthKey, path, commandFailed(res.Output(), res.Command, res.ExitCode)), nil
	}
	if err := t.fs.Chmod(path, SecretFileMode); err != nil {
		return nil, fmt.Errorf("reconcile: failed to chmod %s: %w", path, err)
	}
	return finish(logger, KindTLSAuthKey, path, Created{
		Message: fmt.Sprintf("tls-auth key written as %s.", path),
		Output:  res.Output(),
	}), nil
}
