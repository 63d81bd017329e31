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


package runner

import (
	"context"
	"path/filepath"

	"github.com/jeremyhahn/go-ovpnpki/pkg/logging"
	"github.com/jeremyhahn/go-ovpnpki/pkg/metrics"
)

// Instrumented wraps a Runner with command logging and metrics.
type Instrumented struct {
	next   Runner
	logger *logging.Logger
}

// Instrument returns r wrapped so every command is logged and counted.
func Instrument(r Runner, logger *logging.Logger) *Instrumented {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Instrumented{next: r, logger: logger}
}

// Run logs the command line, delegates, then records rc and duration.
// Stderr is only logged, never returned as a message by itself.
func (i *Instrumented) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	binary := filepath.Base(name)
	i.logger.Debug("running command", "command", Format(name, args...))

	res, err := i.next.Run(ctx, name, args...)
	if err != nil {
		metrics.RecordError(binary, "exec")
		return nil, err
	}

	metrics.RecordCommand(binary, res.Success(), res.Duration)
	if !res.Success() {
		i.logger.Warn("command failed",
			"command", res.Command,
			"rc", res.ExitCode,
			"stdout", res.Stdout,
			"stderr", res.Stderr)
	} else {
		i.logger.Debug("command finished",
			"command", res.Command,
			"duration", res.Duration.String())
	}
	return res, nil
}
