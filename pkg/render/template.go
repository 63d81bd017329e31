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


// Package render produces client .ovpn profiles from a text/template with
// the client key and certificate inlined.
package render

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/spf13/afero"
)

// DefaultTemplatePath is where the server role installs the client template.
const DefaultTemplatePath = "/etc/openvpn/client.ovpn.template"

// Data is the template context.
//
//	<key>
//	{{ .Key }}
//	</key>
//	<cert>
//	{{ .Cert }}
//	</cert>
type Data struct {
	Subject string
	Key     string
	Cert    string
	CA      string
	TLSAuth string
}

// Renderer executes a parsed client template.
type Renderer struct {
	tmpl *template.Template
}

// Parse parses template text.
func Parse(name, text string) (*Renderer, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrTemplate, name, err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Load reads and parses the template at path.
func Load(fs afero.Fs, path string) (*Renderer, error) {
	text, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("render: failed to read template %s: %w", path, err)
	}
	return Parse(path, string(text))
}

// Render executes the template.
func (r *Renderer) Render(data Data) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTemplate, err)
	}
	return buf.Bytes(), nil
}
