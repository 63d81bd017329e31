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
	"fmt"

	"github.com/jeremyhahn/go-ovpnpki/pkg/artifact"
)

// Outcome names, used as metric labels and in JSON output.
const (
	OutcomeNoOp         = "noop"
	OutcomeCreated      = "created"
	OutcomeAlreadyValid = "already_valid"
	OutcomeDrifted      = "drifted"
	OutcomeFailed       = "failed"
	OutcomeRevoked      = "revoked"
	OutcomeRemoved      = "removed"
)

// Report is the flat {changed, failed, message} view every result renders
// to for callers and orchestrators.
type Report struct {
	Outcome          string   `json:"outcome" yaml:"outcome"`
	Changed          bool     `json:"changed" yaml:"changed"`
	Failed           bool     `json:"failed" yaml:"failed"`
	Message          string   `json:"message" yaml:"message"`
	ChangedArtifacts []string `json:"changed_artifacts,omitempty" yaml:"changed_artifacts,omitempty"`
	Output           string   `json:"output,omitempty" yaml:"output,omitempty"`
}

// Result is the outcome of one reconciliation. The concrete types are
// NoOp, Created, AlreadyValid, Drifted, Failed, Revoked and Removed.
type Result interface {
	Report() Report
	Outcome() string
}

// NoOp means nothing needed to be done.
type NoOp struct {
	Message string
}

func (r NoOp) Outcome() string { return OutcomeNoOp }

func (r NoOp) Report() Report {
	return Report{Outcome: r.Outcome(), Message: r.Message}
}

// Created means the external tooling ran and its output is now tracked.
type Created struct {
	Message string
	Output  string
}

func (r Created) Outcome() string { return OutcomeCreated }

func (r Created) Report() Report {
	return Report{Outcome: r.Outcome(), Changed: true, Message: r.Message, Output: r.Output}
}

// AlreadyValid means every artifact matches its recorded digest.
// Bootstrapped lists artifacts whose digest was recorded by this run.
type AlreadyValid struct {
	Message      string
	Bootstrapped []string
}

func (r AlreadyValid) Outcome() string { return OutcomeAlreadyValid }

func (r AlreadyValid) Report() Report {
	return Report{Outcome: r.Outcome(), Message: r.Message}
}

// Drifted means tracked content was modified out of band. It is a failure
// and nothing is regenerated.
type Drifted struct {
	Changed []string
	Message string
}

func (r Drifted) Outcome() string { return OutcomeDrifted }

func (r Drifted) Report() Report {
	return Report{
		Outcome:          r.Outcome(),
		Failed:           true,
		Message:          r.Message,
		ChangedArtifacts: r.Changed,
	}
}

// Failed means the reconciliation could not reach the desired state.
type Failed struct {
	Message string
	Output  string
	Err     error
}

func (r Failed) Outcome() string { return OutcomeFailed }

func (r Failed) Report() Report {
	return Report{Outcome: r.Outcome(), Failed: true, Message: r.Message, Output: r.Output}
}

// Revoked means the subject's certificate was revoked by this run.
type Revoked struct {
	Message string
}

func (r Revoked) Outcome() string { return OutcomeRevoked }

func (r Revoked) Report() Report {
	return Report{Outcome: r.Outcome(), Changed: true, Message: r.Message}
}

// Removed means files or recorded state were deleted by this run.
type Removed struct {
	Message string
}

func (r Removed) Outcome() string { return OutcomeRemoved }

func (r Removed) Report() Report {
	return Report{Outcome: r.Outcome(), Changed: true, Message: r.Message}
}

// Err returns the error behind a failing result, or nil.
func Err(r Result) error {
	switch v := r.(type) {
	case Failed:
		if v.Err != nil {
			return v.Err
		}
		return fmt.Errorf("reconcile: %s", v.Message)
	case Drifted:
		return fmt.Errorf("%w: %s", artifact.ErrChecksumDrift, v.Message)
	default:
		return nil
	}
}

// fromValidation maps a non-actionable validation state to its result.
// ok is false for states the caller must act on (absent).
func fromValidation(vr *artifact.ValidationResult) (Result, bool) {
	switch vr.State {
	case artifact.StateTrackedValid:
		return AlreadyValid{Message: vr.Message, Bootstrapped: artifactNames(vr.Bootstrapped)}, true
	case artifact.StateDrifted:
		return Drifted{Changed: vr.ChangedNames(), Message: vr.Message}, true
	case artifact.StateIncomplete, artifact.StateRevoked:
		return Failed{Message: vr.Message, Err: vr.Err()}, true
	default:
		return nil, false
	}
}

func artifactNames(as []artifact.TrackedArtifact) []string {
	if len(as) == 0 {
		return nil
	}
	names := make([]string, len(as))
	for i, a := range as {
		names[i] = a.Name
	}
	return names
}

func commandFailed(output, command string, rc int) Failed {
	msg := output
	if msg == "" {
		msg = fmt.Sprintf("%s exited with %d", command, rc)
	}
	return Failed{
		Message: msg,
		Output:  output,
		Err:     fmt.Errorf("%w: %s exited with %d", ErrExternalCommand, command, rc),
	}
}
