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

// Package artifact decides whether a set of tracked PKI artifacts is intact.
//
// A Validator combines the per-file results of the checksum store into one
// lifecycle State for the set. It never regenerates anything: drift and
// incomplete sets are reported with a message naming the affected files and
// left for the operator to resolve.
package artifact

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jeremyhahn/go-ovpnpki/pkg/checksum"
	"github.com/jeremyhahn/go-ovpnpki/pkg/logging"
	"github.com/jeremyhahn/go-ovpnpki/pkg/storage"
)

// MessageAllValid is reported when every constituent matches its digest.
const MessageAllValid = "All Files are valid."

// Check is the validation outcome of one constituent.
type Check struct {
	Artifact TrackedArtifact `json:"artifact"`
	checksum.Validation
}

// ValidationResult is the combined outcome for a set.
type ValidationResult struct {
	Subject      string            `json:"subject"`
	State        State             `json:"state"`
	Checks       []Check           `json:"checks"`
	Changed      []TrackedArtifact `json:"changed,omitempty"`
	Missing      []TrackedArtifact `json:"missing,omitempty"`
	Bootstrapped []TrackedArtifact `json:"bootstrapped,omitempty"`
	Message      string            `json:"message"`
}

// Valid reports whether the set is tracked and unchanged.
func (r *ValidationResult) Valid() bool {
	return r.State == StateTrackedValid
}

// ChangedNames returns the names of the drifted artifacts.
func (r *ValidationResult) ChangedNames() []string {
	names := make([]string, len(r.Changed))
	for i, a := range r.Changed {
		names[i] = a.Name
	}
	return names
}

// Err maps failure states to their sentinel error, wrapped with the message.
func (r *ValidationResult) Err() error {
	switch r.State {
	case StateDrifted:
		return fmt.Errorf("%w: %s", ErrChecksumDrift, r.Message)
	case StateIncomplete:
		return fmt.Errorf("%w: %s", ErrIncompleteArtifactSet, r.Message)
	case StateRevoked:
		return fmt.Errorf("%w: %s", ErrRevoked, r.Message)
	default:
		return nil
	}
}

// Validator evaluates artifact sets against a checksum store.
type Validator struct {
	store       *checksum.Store
	sidecarRoot string
	logger      *logging.Logger
}

// NewValidator creates a Validator. sidecarRoot is only used to print full
// sidecar paths in messages; logger may be nil.
func NewValidator(store *checksum.Store, sidecarRoot string, logger *logging.Logger) *Validator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Validator{
		store:       store,
		sidecarRoot: sidecarRoot,
		logger:      logger,
	}
}

// Store returns the checksum store backing the validator.
func (v *Validator) Store() *checksum.Store {
	return v.store
}

// Inspect evaluates the set without writing anything.
func (v *Validator) Inspect(set *Set) (*ValidationResult, error) {
	result := &ValidationResult{
		Subject: set.Subject,
		Checks:  make([]Check, 0, len(set.Artifacts)),
	}

	revoked, err := v.Revoked(set)
	if err != nil {
		return nil, err
	}

	present, recorded, untracked := 0, 0, 0
	for _, a := range set.Artifacts {
		c, err := v.store.Check(a.ChecksumKey, a.Path)
		if err != nil {
			return nil, fmt.Errorf("artifact: validating %s %s: %w", set.Subject, a.Name, err)
		}
		result.Checks = append(result.Checks, Check{Artifact: a, Validation: *c})

		v.logger.Debug("checked artifact",
			"subject", set.Subject,
			"artifact", a.Name,
			"path", a.Path,
			"status", c.Status.String(),
			"current", c.Current.String(),
			"previous", c.Previous.String())

		if c.Current != nil {
			present++
		} else {
			result.Missing = append(result.Missing, a)
		}
		if c.Previous != nil {
			recorded++
		}
		switch c.Status {
		case checksum.StatusChanged:
			result.Changed = append(result.Changed, a)
		case checksum.StatusUntracked:
			untracked++
		}
	}

	switch {
	case revoked:
		result.State = StateRevoked
		result.Message = fmt.Sprintf("The certificate for %s has been revoked.", set.Subject)
	case present == 0 && recorded == 0:
		result.State = StateAbsent
		result.Missing = nil
		result.Message = fmt.Sprintf("No files for %s exist.", set.Subject)
	case len(result.Missing) > 0:
		result.State = StateIncomplete
		result.Message = v.incompleteMessage(set.Subject, result)
	case len(result.Changed) > 0:
		result.State = StateDrifted
		result.Message = v.driftMessage(result.Changed)
	case untracked > 0:
		result.State = StatePendingChecksum
		result.Message = fmt.Sprintf("%d of %d files for %s have no recorded checksum.", untracked, len(set.Artifacts), set.Subject)
	default:
		result.State = StateTrackedValid
		result.Message = MessageAllValid
	}

	return result, nil
}

// Validate evaluates the set and records digests for constituents seen for
// the first time. Bootstrapping happens per artifact whenever every content
// file exists; a set that was only pending becomes tracked and valid.
// Incomplete and revoked sets are never written to.
func (v *Validator) Validate(set *Set) (*ValidationResult, error) {
	result, err := v.Inspect(set)
	if err != nil {
		return nil, err
	}

	if result.State != StatePendingChecksum && result.State != StateDrifted {
		return result, nil
	}

	for i := range result.Checks {
		c := &result.Checks[i]
		if c.Status != checksum.StatusUntracked {
			continue
		}
		if err := v.store.Persist(c.Artifact.ChecksumKey, c.Current); err != nil {
			return nil, err
		}
		c.Status = checksum.StatusBootstrapped
		result.Bootstrapped = append(result.Bootstrapped, c.Artifact)
		v.logger.Info("recorded checksum on first observation",
			"subject", set.Subject,
			"artifact", c.Artifact.Name,
			"checksum", v.sidecarPath(c.Artifact.ChecksumKey))
	}

	if result.State == StatePendingChecksum {
		result.State = StateTrackedValid
		result.Message = MessageAllValid
	}
	return result, nil
}

// Record hashes every constituent and persists the digests. It is called
// after the external tooling created the set. Nothing is persisted unless
// every file exists.
func (v *Validator) Record(set *Set) error {
	records := make([]*checksum.Record, len(set.Artifacts))
	for i, a := range set.Artifacts {
		rec, err := v.store.Digest(a.Path)
		if err != nil {
			if errors.Is(err, checksum.ErrNotFound) {
				return fmt.Errorf("%w: %s was not created", ErrIncompleteArtifactSet, a.Path)
			}
			return err
		}
		records[i] = rec
	}

	for i, a := range set.Artifacts {
		if err := v.store.Persist(a.ChecksumKey, records[i]); err != nil {
			return errors.Join(err, v.Forget(set))
		}
		v.logger.Debug("recorded checksum",
			"subject", set.Subject,
			"artifact", a.Name,
			"digest", records[i].Digest)
	}
	return nil
}

// Forget removes every sidecar of the set.
func (v *Validator) Forget(set *Set) error {
	for _, a := range set.Artifacts {
		if err := v.store.Remove(a.ChecksumKey); err != nil {
			return err
		}
	}
	return nil
}

// Revoke removes every sidecar and marks the subject as revoked.
func (v *Validator) Revoke(set *Set) error {
	if err := v.Forget(set); err != nil {
		return err
	}
	if set.TombstoneKey == "" {
		return nil
	}
	if err := v.store.Sidecars().Put(set.TombstoneKey, []byte(set.Subject+"\n"), storage.DefaultOptions()); err != nil {
		return fmt.Errorf("artifact: failed to mark %s revoked: %w", set.Subject, err)
	}
	return nil
}

// Clear removes sidecars and the revocation marker so the subject can be
// provisioned again.
func (v *Validator) Clear(set *Set) error {
	if err := v.Forget(set); err != nil {
		return err
	}
	if set.TombstoneKey == "" {
		return nil
	}
	if err := v.store.Sidecars().Delete(set.TombstoneKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("artifact: failed to clear %s: %w", set.Subject, err)
	}
	return nil
}

// Revoked reports whether the subject carries a revocation marker.
func (v *Validator) Revoked(set *Set) (bool, error) {
	if set.TombstoneKey == "" {
		return false, nil
	}
	ok, err := v.store.Sidecars().Exists(set.TombstoneKey)
	if err != nil {
		return false, fmt.Errorf("artifact: failed to check revocation of %s: %w", set.Subject, err)
	}
	return ok, nil
}

// MarkCRLPending records that the subject was revoked but the CRL has not
// been regenerated since.
func (v *Validator) MarkCRLPending(set *Set) error {
	if set.CRLPendingKey == "" {
		return nil
	}
	if err := v.store.Sidecars().Put(set.CRLPendingKey, []byte(set.Subject+"\n"), storage.DefaultOptions()); err != nil {
		return fmt.Errorf("artifact: failed to mark CRL pending for %s: %w", set.Subject, err)
	}
	return nil
}

// ClearCRLPending removes the marker written by MarkCRLPending.
func (v *Validator) ClearCRLPending(set *Set) error {
	if set.CRLPendingKey == "" {
		return nil
	}
	if err := v.store.Sidecars().Delete(set.CRLPendingKey); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("artifact: failed to clear CRL marker of %s: %w", set.Subject, err)
	}
	return nil
}

// CRLPending reports whether a revocation of the subject still waits for
// the CRL to be regenerated.
func (v *Validator) CRLPending(set *Set) (bool, error) {
	if set.CRLPendingKey == "" {
		return false, nil
	}
	ok, err := v.store.Sidecars().Exists(set.CRLPendingKey)
	if err != nil {
		return false, fmt.Errorf("artifact: failed to check CRL marker of %s: %w", set.Subject, err)
	}
	return ok, nil
}

func (v *Validator) sidecarPath(key string) string {
	if v.sidecarRoot == "" {
		return key
	}
	return filepath.Join(v.sidecarRoot, filepath.FromSlash(key))
}

func (v *Validator) driftMessage(changed []TrackedArtifact) string {
	parts := make([]string, len(changed))
	for i, a := range changed {
		parts[i] = fmt.Sprintf("%s has changed", v.sidecarPath(a.ChecksumKey))
	}
	return strings.Join(parts, ", ")
}

func (v *Validator) incompleteMessage(subject string, r *ValidationResult) string {
	parts := make([]string, 0, len(r.Missing))
	for _, a := range r.Missing {
		parts = append(parts, fmt.Sprintf("%s is missing", a.Path))
	}
	return fmt.Sprintf("incomplete artifact set for %s: %s", subject, strings.Join(parts, ", "))
}
