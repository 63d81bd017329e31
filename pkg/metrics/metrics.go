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


// Package metrics provides Prometheus instrumentation for ovpnpki runs.
// Every invocation is a short-lived process, so metrics are registered on a
// dedicated registry and written to a node_exporter textfile at exit instead
// of being scraped.
package metrics

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the Prometheus namespace for all ovpnpki metrics
	Namespace = "ovpnpki"

	// Label names
	LabelOperation = "operation"
	LabelStatus    = "status"
	LabelKind      = "kind"
	LabelOutcome   = "outcome"
	LabelCommand   = "command"
	LabelErrorType = "error_type"

	// Status values
	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusError   = "error"

	// Operation names
	OpClientPresent = "client_present"
	OpClientAbsent  = "client_absent"
	OpClientClear   = "client_clear"
	OpBundlePresent = "bundle_present"
	OpBundleAbsent  = "bundle_absent"
	OpPKIStep       = "pki_step"
	OpGenKey        = "genkey"
	OpVersion       = "version"
	OpCRLStatus     = "crl_status"
	OpChecksum      = "checksum"
	OpClients       = "clients"
	OpDoctor        = "doctor"
)

var (
	// Registry holds every ovpnpki collector. It is separate from the
	// default registry so textfile output only carries run metrics.
	Registry = prometheus.NewRegistry()

	factory = promauto.With(Registry)

	// OperationsTotal tracks CLI operations by name and status.
	OperationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "operations_total",
			Help:      "Total number of ovpnpki operations by type and status",
		},
		[]string{LabelOperation, LabelStatus},
	)

	// OperationDuration tracks the wall time of operations in seconds.
	OperationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of ovpnpki operations in seconds",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{LabelOperation},
	)

	// ReconcileOutcomes counts reconciliation results by artifact kind and
	// result variant (noop, created, already_valid, drifted, failed, revoked).
	ReconcileOutcomes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "reconcile_outcomes_total",
			Help:      "Reconciliation results by artifact kind and outcome",
		},
		[]string{LabelKind, LabelOutcome},
	)

	// DriftEventsTotal counts artifacts whose content no longer matches the
	// recorded digest.
	DriftEventsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "drift_events_total",
			Help:      "Artifacts detected with content differing from the recorded checksum",
		},
		[]string{LabelKind},
	)

	// CommandsTotal tracks external commands by binary and status.
	CommandsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "command",
			Name:      "runs_total",
			Help:      "External command invocations by binary and status",
		},
		[]string{LabelCommand, LabelStatus},
	)

	// CommandDuration tracks external command durations in seconds.
	CommandDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "command",
			Name:      "duration_seconds",
			Help:      "Duration of external commands in seconds",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{LabelCommand},
	)

	// ErrorsTotal tracks errors by operation and error type.
	ErrorsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "errors_total",
			Help:      "Total number of errors by operation and error type",
		},
		[]string{LabelOperation, LabelErrorType},
	)

	// CRLNextUpdate is the next_update of the CRL as a Unix timestamp.
	CRLNextUpdate = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "crl",
			Name:      "next_update_timestamp_seconds",
			Help:      "Next update time of the certificate revocation list",
		},
	)

	// CRLRevokedCertificates is the number of entries in the CRL.
	CRLRevokedCertificates = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "crl",
			Name:      "revoked_certificates",
			Help:      "Number of revoked certificates listed in the CRL",
		},
	)

	// LastRunTimestamp is set when the process writes its metrics.
	LastRunTimestamp = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last ovpnpki run",
		},
	)

	// enabled tracks whether metrics collection is enabled
	enabled atomic.Bool
)

func init() {
	enabled.Store(true)
}

// RecordOperation records an operation with its duration and status.
//
// Example:
//
//	start := time.Now()
//	res, err := reconciler.Present(ctx, "alice")
//	metrics.RecordOperation(metrics.OpClientPresent, metrics.StatusSuccess, time.Since(start).Seconds())
func RecordOperation(operation, status string, duration float64) {
	if !enabled.Load() {
		return
	}
	OperationsTotal.WithLabelValues(operation, status).Inc()
	OperationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordOutcome records a reconciliation result variant.
func RecordOutcome(kind, outcome string) {
	if !enabled.Load() {
		return
	}
	ReconcileOutcomes.WithLabelValues(kind, outcome).Inc()
}

// RecordDrift records n drifted artifacts of the given kind.
func RecordDrift(kind string, n int) {
	if !enabled.Load() || n <= 0 {
		return
	}
	DriftEventsTotal.WithLabelValues(kind).Add(float64(n))
}

// RecordCommand records an external command run.
func RecordCommand(command string, success bool, duration time.Duration) {
	if !enabled.Load() {
		return
	}
	status := StatusSuccess
	if !success {
		status = StatusFailed
	}
	CommandsTotal.WithLabelValues(command, status).Inc()
	CommandDuration.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordError records an error event with context about where it occurred.
func RecordError(operation, errorType string) {
	if !enabled.Load() {
		return
	}
	ErrorsTotal.WithLabelValues(operation, errorType).Inc()
}

// SetCRLStatus publishes the CRL next update time and entry count.
func SetCRLStatus(nextUpdate time.Time, revoked int) {
	if !enabled.Load() {
		return
	}
	CRLNextUpdate.Set(float64(nextUpdate.Unix()))
	CRLRevokedCertificates.Set(float64(revoked))
}

// WriteTextfile writes the registry in the text exposition format to path,
// atomically, for the node_exporter textfile collector.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	LastRunTimestamp.SetToCurrentTime()
	if err := prometheus.WriteToTextfile(path, Registry); err != nil {
		return fmt.Errorf("metrics: failed to write %s: %w", path, err)
	}
	return nil
}

// Enable enables metrics collection.
func Enable() {
	enabled.Store(true)
}

// Disable disables metrics collection.
// Useful for testing or when metrics are not desired.
func Disable() {
	enabled.Store(false)
}

// IsEnabled returns whether metrics collection is currently enabled.
func IsEnabled() bool {
	return enabled.Load()
}
