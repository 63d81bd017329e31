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


// Package easyrsa drives the easyrsa shell tool. It only builds argument
// lists and runs them; deciding whether a command is needed is the job of
// the reconcilers.
package easyrsa

import (
	"context"
	"fmt"

	"github.com/jeremyhahn/go-ovpnpki/pkg/runner"
	"github.com/jeremyhahn/go-ovpnpki/pkg/validation"
)

// DefaultBinary is resolved against PATH when no binary is configured.
const DefaultBinary = "easyrsa"

// Client runs easyrsa commands.
type Client struct {
	runner runner.Runner
	binary string
}

// New creates a Client. The runner's working directory must be the
// easyrsa directory holding pki/.
func New(r runner.Runner, binary string) *Client {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Client{runner: r, binary: binary}
}

// Binary returns the configured easyrsa executable.
func (c *Client) Binary() string {
	return c.binary
}

// Exec runs easyrsa with raw arguments.
func (c *Client) Exec(ctx context.Context, args ...string) (*runner.Result, error) {
	res, err := c.runner.Run(ctx, c.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("easyrsa: %w", err)
	}
	return res, nil
}

// BuildClientFull issues a request, key and certificate for subject.
func (c *Client) BuildClientFull(ctx context.Context, subject string) (*runner.Result, error) {
	if err := validation.ValidateSubject(subject); err != nil {
		return nil, fmt.Errorf("easyrsa: %w", err)
	}
	return c.Exec(ctx, "--batch", "build-client-full", subject, "nopass")
}

// Revoke revokes the certificate of subject.
func (c *Client) Revoke(ctx context.Context, subject string) (*runner.Result, error) {
	if err := validation.ValidateSubject(subject); err != nil {
		return nil, fmt.Errorf("easyrsa: %w", err)
	}
	return c.Exec(ctx, "--batch", "revoke", subject)
}

// GenCRL regenerates the certificate revocation list.
func (c *Client) GenCRL(ctx context.Context) (*runner.Result, error) {
	return c.Exec(ctx, string(StepGenCRL))
}

// RunStep runs one PKI bootstrap step.
func (c *Client) RunStep(ctx context.Context, step Step, opts StepOptions) (*runner.Result, error) {
	args, err := step.Args(opts)
	if err != nil {
		return nil, err
	}
	return c.Exec(ctx, args...)
}
