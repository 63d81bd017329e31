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
	"fmt"
	"sync"
)

// Handler scripts the behaviour of one mocked command. It may mutate test
// fixtures (for example write the files easyrsa would create) before
// returning the result.
type Handler func(args []string) *Result

// Call records one invocation made against a Mock.
type Call struct {
	Name string
	Args []string
}

// Mock is a scripted Runner for tests. A handler is keyed by a command
// argument, usually the easyrsa sub command ("build-client-full") or an
// openvpn flag ("--version"); the first argument with a handler wins and the
// binary name is the fallback key.
type Mock struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
}

// NewMock returns an empty Mock. Unscripted commands succeed with no output.
func NewMock() *Mock {
	return &Mock{handlers: make(map[string]Handler)}
}

// On registers a handler for the given key.
func (m *Mock) On(key string, h Handler) *Mock {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[key] = h
	return m
}

// Run records the call and dispatches it to a handler.
func (m *Mock) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}

	m.mu.Lock()
	m.calls = append(m.calls, Call{Name: name, Args: append([]string(nil), args...)})
	h := m.lookup(name, args)
	m.mu.Unlock()

	if h == nil {
		return &Result{Command: Format(name, args...)}, nil
	}
	result := h(args)
	if result == nil {
		result = &Result{}
	}
	result.Command = Format(name, args...)
	return result, nil
}

func (m *Mock) lookup(name string, args []string) Handler {
	for _, a := range args {
		if h, ok := m.handlers[a]; ok {
			return h
		}
	}
	return m.handlers[name]
}

// Calls returns a copy of the recorded invocations.
func (m *Mock) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CommandLines returns the recorded invocations formatted with Format.
func (m *Mock) CommandLines() []string {
	calls := m.Calls()
	lines := make([]string, len(calls))
	for i, c := range calls {
		lines[i] = Format(c.Name, c.Args...)
	}
	return lines
}

// Fail returns a handler that exits with code rc and writes stderr.
func Fail(rc int, stderr string) Handler {
	return func([]string) *Result {
		return &Result{ExitCode: rc, Stderr: stderr}
	}
}

// Succeed returns a handler that exits 0 and writes stdout.
func Succeed(stdout string) Handler {
	return func([]string) *Result {
		return &Result{Stdout: stdout}
	}
}
