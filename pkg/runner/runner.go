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

// Package runner executes the external PKI binaries (easyrsa, openvpn).
//
// Commands are blocking and never streamed. A non-zero exit code is reported
// in the Result rather than as an error so callers can surface the captured
// output; an error is only returned when the process could not be run.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Result is the outcome of one external command.
type Result struct {
	Command  string        `json:"command"`
	ExitCode int           `json:"rc"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Duration time.Duration `json:"-"`
}

// Success reports whether the command exited with code 0.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Output returns the captured output for a human readable message: stdout
// with trailing whitespace removed, falling back to stderr when stdout is
// empty.
func (r *Result) Output() string {
	out := strings.TrimRight(r.Stdout, " \t\r\n")
	if out == "" {
		out = strings.TrimRight(r.Stderr, " \t\r\n")
	}
	return out
}

// Runner runs an external command to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// Exec runs commands with os/exec.
type Exec struct {
	// Dir is the working directory of every command. Empty means the
	// current directory of the process.
	Dir string

	// Env holds extra KEY=VALUE pairs appended to the inherited environment.
	Env []string
}

// NewExec returns an Exec runner whose commands run in dir.
func NewExec(dir string) *Exec {
	return &Exec{Dir: dir}
}

// Run executes name with args and waits for it to exit.
func (e *Exec) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	var stdout, stderr bytes.Buffer

	// #nosec G204 - binary paths come from operator configuration
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = e.Dir
	if len(e.Env) > 0 {
		cmd.Env = append(cmd.Environ(), e.Env...)
	}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	result := &Result{
		Command:  Format(name, args...),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("runner: failed to run %s: %w", name, err)
	}

	return result, nil
}

// LookPath resolves a binary name against PATH the way the orchestrator's
// get_bin_path does, returning an error naming the binary when it is missing.
func LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("runner: required binary %q not found: %w", name, err)
	}
	return path, nil
}

// Format renders a command line for logs.
func Format(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}
