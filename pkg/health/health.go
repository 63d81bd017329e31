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


// Package health runs the preflight checks behind "ovpnpki doctor": the
// tools, directories and files the reconcilers depend on.
package health

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Status represents the health status of a component.
type Status string

const (
	// StatusHealthy indicates the component is usable.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates an operation depending on the component will fail.
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates the component works but needs attention,
	// for example a CRL close to its next update.
	StatusDegraded Status = "degraded"
)

// CheckResult represents the result of a single health check.
type CheckResult struct {
	// Name is the identifier for this health check.
	Name string `json:"name" yaml:"name"`
	// Status is the health status of the component.
	Status Status `json:"status" yaml:"status"`
	// Message provides additional context about the status.
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
	// Latency is how long the check took to execute.
	Latency time.Duration `json:"latency" yaml:"latency"`
	// Error contains error details if the check failed.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// CheckFunc is a function that performs a health check.
type CheckFunc func(ctx context.Context) CheckResult

// Healthy, Degraded and Unhealthy build results for check functions.
func Healthy(format string, args ...any) CheckResult {
	return CheckResult{Status: StatusHealthy, Message: fmt.Sprintf(format, args...)}
}

func Degraded(format string, args ...any) CheckResult {
	return CheckResult{Status: StatusDegraded, Message: fmt.Sprintf(format, args...)}
}

func Unhealthy(err error, format string, args ...any) CheckResult {
	r := CheckResult{Status: StatusUnhealthy, Message: fmt.Sprintf(format, args...)}
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Report is the outcome of a Run.
type Report struct {
	Status Status        `json:"status" yaml:"status"`
	Checks []CheckResult `json:"checks" yaml:"checks"`
}

// Checker holds named checks and runs them in registration order.
type Checker struct {
	mu     sync.RWMutex
	names  []string
	checks map[string]CheckFunc
}

// NewChecker creates a new health checker.
func NewChecker() *Checker {
	return &Checker{
		checks: make(map[string]CheckFunc),
	}
}

// RegisterCheck adds a health check with the given name.
// If a check with this name already exists, it is replaced in place.
func (c *Checker) RegisterCheck(name string, check CheckFunc) {
	if check == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.checks[name]; !ok {
		c.names = append(c.names, name)
	}
	c.checks[name] = check
}

// UnregisterCheck removes a health check.
func (c *Checker) UnregisterCheck(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.checks[name]; !ok {
		return
	}
	delete(c.checks, name)
	for i, n := range c.names {
		if n == name {
			c.names = append(c.names[:i], c.names[i+1:]...)
			break
		}
	}
}

// Names returns the registered check names in run order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.names...)
}

// Run executes every check. A canceled context marks the remaining
// checks unhealthy without running them.
func (c *Checker) Run(ctx context.Context) *Report {
	c.mu.RLock()
	names := append([]string(nil), c.names...)
	checks := make(map[string]CheckFunc, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	results := make([]CheckResult, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			results = append(results, CheckResult{
				Name:    name,
				Status:  StatusUnhealthy,
				Message: "check not run",
				Error:   err.Error(),
			})
			continue
		}
		start := time.Now()
		result := checks[name](ctx)
		result.Latency = time.Since(start)
		// checks may leave the name empty
		if result.Name == "" {
			result.Name = name
		}
		results = append(results, result)
	}
	return &Report{Status: AggregateStatus(results), Checks: results}
}

// AggregateStatus returns the overall status based on check results.
// Any unhealthy result wins over degraded, which wins over healthy.
func AggregateStatus(results []CheckResult) Status {
	hasUnhealthy := false
	hasDegraded := false

	for _, result := range results {
		switch result.Status {
		case StatusUnhealthy:
			hasUnhealthy = true
		case StatusDegraded:
			hasDegraded = true
		}
	}

	if hasUnhealthy {
		return StatusUnhealthy
	}
	if hasDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}
