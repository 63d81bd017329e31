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


// Package correlation tags every log line and audit record of one ovpnpki
// run with a shared run ID. Orchestrators driving many invocations can
// pass their own ID through the environment to tie runs together.
package correlation

import (
	"context"
	"os"
	"strings"

	"github.com/google/uuid"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const (
	// RunIDKey is the context key for storing run IDs
	RunIDKey contextKey = "run-id"

	// EnvRunID is the environment variable an orchestrator may set to
	// supply the run ID.
	EnvRunID = "OVPNPKI_RUN_ID"

	// LogKey is the structured log attribute name.
	LogKey = "run_id"
)

// WithRunID adds a run ID to the context.
func WithRunID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, RunIDKey, id)
}

// GetRunID retrieves the run ID from context.
// Returns an empty string if no run ID is found.
func GetRunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(RunIDKey).(string); ok {
		return id
	}
	return ""
}

// NewID generates a new UUID v4 run ID.
func NewID() string {
	return uuid.New().String()
}

// GetOrGenerate retrieves an existing run ID from context
// or generates a new one if none exists.
func GetOrGenerate(ctx context.Context) string {
	if id := GetRunID(ctx); id != "" {
		return id
	}
	return NewID()
}

// FromEnvironment returns the run ID supplied in EnvRunID, or a new one
// when the variable is unset, blank or not a UUID.
func FromEnvironment() string {
	return fromLookup(os.LookupEnv)
}

func fromLookup(lookup func(string) (string, bool)) string {
	v, ok := lookup(EnvRunID)
	if !ok {
		return NewID()
	}
	id, err := uuid.Parse(strings.TrimSpace(v))
	if err != nil {
		return NewID()
	}
	return id.String()
}
