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

package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLogger_TextLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "info", Writer: &buf})

	l.Debug("hidden")
	l.Info("shown", "subject", "alice")
	l.Warnf("drift on %s", "alice/key.sha256")
	l.Error(errors.New("boom"))
	l.MaybeError(nil)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "subject=alice")
	assert.Contains(t, out, "drift on alice/key.sha256")
	assert.Contains(t, out, "boom")
}

func TestLogger_DebugEnabled(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "debug", Writer: &buf})

	l.Debug("validating", "artifact", "req")
	l.Debugf("digest %s", "abc")

	assert.Contains(t, buf.String(), "validating")
	assert.Contains(t, buf.String(), "digest abc")
}

func TestLogger_JSONWith(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Format: "json", Writer: &buf}).With("run_id", "r-1")

	l.Info("reconciled", "changed", true)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "reconciled", record["msg"])
	assert.Equal(t, "r-1", record["run_id"])
	assert.Equal(t, true, record["changed"])
}

func TestLogger_Audit(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Writer: &buf})
	defer l.Close()

	l.Audit(false, "command", "cmd", "easyrsa gen-crl", "rc", 0)
	l.Audit(true, "result", "failed", true)

	out := buf.String()
	assert.Contains(t, out, "level=INFO msg=command")
	assert.Contains(t, out, "level=WARN msg=result")
}

func TestFormatAudit(t *testing.T) {
	assert.Equal(t, `command cmd="easyrsa gen-crl" rc="0"`, formatAudit("command", "cmd", "easyrsa gen-crl", "rc", 0))
	assert.Equal(t, "odd dangling", formatAudit("odd", "dangling"))
}

func TestDiscard(t *testing.T) {
	l := Discard()
	l.Info("nothing")
	l.Audit(true, "nothing")
}
