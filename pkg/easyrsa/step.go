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


package easyrsa

import (
	"fmt"
	"strconv"

	"github.com/jeremyhahn/go-ovpnpki/pkg/validation"
)

// Step is one easyrsa PKI bootstrap command.
type Step string

const (
	StepInitPKI Step = "init-pki"
	StepBuildCA Step = "build-ca"
	StepGenCRL  Step = "gen-crl"
	StepGenDH   Step = "gen-dh"
	StepGenReq  Step = "gen-req"
	StepSignReq Step = "sign-req"
)

var steps = []Step{StepInitPKI, StepBuildCA, StepGenCRL, StepGenDH, StepGenReq, StepSignReq}

// Steps returns every supported step in bootstrap order.
func Steps() []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	return out
}

// ParseStep converts a name to a Step.
func ParseStep(name string) (Step, error) {
	for _, s := range steps {
		if string(s) == name {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStep, name)
}

// AlreadyCreatedMessage is reported when the step's output already exists.
func (s Step) AlreadyCreatedMessage() string {
	switch s {
	case StepInitPKI:
		return "PKI already created"
	case StepBuildCA:
		return "CA already created"
	case StepGenCRL:
		return "CRL already created"
	case StepGenDH:
		return "DH already created"
	case StepGenReq:
		return "keypair and request already created"
	case StepSignReq:
		return "certificate already signed"
	default:
		return "nothing to do."
	}
}

// StepOptions are the inputs a step may need.
type StepOptions struct {
	// CACommonName is passed as --req-cn to build-ca and gen-req.
	CACommonName string `yaml:"req_cn_ca" json:"req_cn_ca,omitempty"`

	// ServerCommonName names the server request for gen-req and sign-req.
	ServerCommonName string `yaml:"req_cn_server" json:"req_cn_server,omitempty"`

	// KeySize is passed as --keysize to build-ca and gen-dh. Zero leaves
	// the easyrsa default.
	KeySize int `yaml:"keysize" json:"keysize,omitempty"`
}

// Args builds the easyrsa arguments for a step.
func (s Step) Args(opts StepOptions) ([]string, error) {
	if err := validation.ValidateKeySize(opts.KeySize); err != nil {
		return nil, fmt.Errorf("easyrsa: %s: %w", s, err)
	}

	switch s {
	case StepInitPKI, StepGenCRL:
		return []string{string(s)}, nil

	case StepBuildCA:
		if err := requireCN(s, "req_cn_ca", opts.CACommonName); err != nil {
			return nil, err
		}
		args := []string{"--batch", "--req-cn=" + opts.CACommonName}
		if opts.KeySize > 0 {
			args = append(args, "--keysize="+strconv.Itoa(opts.KeySize))
		}
		return append(args, string(s), "nopass"), nil

	case StepGenDH:
		var args []string
		if opts.KeySize > 0 {
			args = append(args, "--keysize="+strconv.Itoa(opts.KeySize))
		}
		return append(args, string(s)), nil

	case StepGenReq:
		if err := requireCN(s, "req_cn_ca", opts.CACommonName); err != nil {
			return nil, err
		}
		if err := requireSubject(s, opts.ServerCommonName); err != nil {
			return nil, err
		}
		return []string{"--batch", "--req-cn=" + opts.CACommonName, string(s), opts.ServerCommonName, "nopass"}, nil

	case StepSignReq:
		if err := requireSubject(s, opts.ServerCommonName); err != nil {
			return nil, err
		}
		return []string{"--batch", string(s), "server", opts.ServerCommonName}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownStep, string(s))
}

func requireCN(s Step, option, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s requires %s", ErrMissingOption, s, option)
	}
	if err := validation.ValidateCommonName(value); err != nil {
		return fmt.Errorf("easyrsa: %s: %w", s, err)
	}
	return nil
}

func requireSubject(s Step, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s requires req_cn_server", ErrMissingOption, s)
	}
	if err := validation.ValidateSubject(value); err != nil {
		return fmt.Errorf("easyrsa: %s: %w", s, err)
	}
	return nil
}
