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


// Package clients filters the declarative client list that drives
// provisioning: which clients get a persistent address from the server's
// ifconfig pool and which are static sites versus roadrunners.
package clients

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	// StatePresent is the default desired state of a client.
	StatePresent = "present"

	// StateAbsent marks a client for revocation.
	StateAbsent = "absent"

	// TypeStatic selects clients that are not roadrunners.
	TypeStatic = "static"

	// TypeRoadrunner selects roaming clients.
	TypeRoadrunner = "roadrunner"
)

// ErrUnknownType is returned for a client type other than static or
// roadrunner.
var ErrUnknownType = errors.New("clients: unknown client type")

// Client is one entry of the list. Keys not modelled here are preserved
// in Extra so filtered output round trips.
type Client struct {
	Name       string         `yaml:"name" json:"name"`
	State      string         `yaml:"state,omitempty" json:"state,omitempty"`
	StaticIP   string         `yaml:"static_ip,omitempty" json:"static_ip,omitempty"`
	Roadrunner bool           `yaml:"roadrunner,omitempty" json:"roadrunner,omitempty"`
	Extra      map[string]any `yaml:",inline" json:"-"`
}

// PoolEntry is a client with a persistent address.
type PoolEntry struct {
	Name     string `yaml:"name" json:"name"`
	State    string `yaml:"state" json:"state"`
	StaticIP string `yaml:"static_ip" json:"static_ip"`
}

// List is the document read from a clients file. Both a bare sequence
// and a mapping with a "clients" key are accepted.
type List []Client

// Parse decodes a clients document.
func Parse(data []byte) (List, error) {
	var list List
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var doc struct {
		Clients List `yaml:"clients"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("clients: failed to parse client list: %w", err)
	}
	return doc.Clients, nil
}

// Load reads a clients document from fs. The path "-" reads stdin.
func Load(fs afero.Fs, path string) (List, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = afero.ReadFile(fs, path)
	}
	if err != nil {
		return nil, fmt.Errorf("clients: failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// PersistentPool returns the clients that have a static IP, with state
// defaulting to present.
func (l List) PersistentPool() []PoolEntry {
	pool := make([]PoolEntry, 0)
	for _, c := range l {
		if c.StaticIP == "" {
			continue
		}
		state := c.State
		if state == "" {
			state = StatePresent
		}
		pool = append(pool, PoolEntry{Name: c.Name, State: state, StaticIP: c.StaticIP})
	}
	return pool
}

// ByType returns the static or roadrunner clients.
func (l List) ByType(kind string) (List, error) {
	var roadrunner bool
	switch kind {
	case TypeStatic:
	case TypeRoadrunner:
		roadrunner = true
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, kind)
	}

	out := make(List, 0)
	for _, c := range l {
		if c.Roadrunner == roadrunner {
			out = append(out, c)
		}
	}
	return out, nil
}
