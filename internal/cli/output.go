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


package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jeremyhahn/go-ovpnpki/pkg/artifact"
	"github.com/jeremyhahn/go-ovpnpki/pkg/checksum"
	"github.com/jeremyhahn/go-ovpnpki/pkg/clients"
	"github.com/jeremyhahn/go-ovpnpki/pkg/crl"
	"github.com/jeremyhahn/go-ovpnpki/pkg/health"
	"github.com/jeremyhahn/go-ovpnpki/pkg/openvpn"
	"github.com/jeremyhahn/go-ovpnpki/pkg/reconcile"
	"gopkg.in/yaml.v3"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText  OutputFormat = "text"
	OutputFormatJSON  OutputFormat = "json"
	OutputFormatYAML  OutputFormat = "yaml"
	OutputFormatTable OutputFormat = "table"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(strings.ToLower(format)),
		writer: writer,
	}
}

// PrintReport prints a reconciliation report
func (p *Printer) PrintReport(r reconcile.Report) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(r)
	case OutputFormatYAML:
		return p.printYAML(r)
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintf(p.writer, "%s: %s\n", reportStatus(r), r.Message)
		if len(r.ChangedArtifacts) > 0 {
			fmt.Fprintf(p.writer, "Changed: %s\n", strings.Join(r.ChangedArtifacts, ", "))
		}
		if r.Output != "" && r.Output != r.Message {
			fmt.Fprintln(p.writer, r.Output)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

func reportStatus(r reconcile.Report) string {
	switch {
	case r.Failed:
		return "failed"
	case r.Changed:
		return "changed"
	default:
		return "ok"
	}
}

// PrintValidation prints the state of an artifact set
func (p *Printer) PrintValidation(vr *artifact.ValidationResult) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(vr)
	case OutputFormatYAML:
		return p.printYAML(validationDoc(vr))
	case OutputFormatTable:
		fmt.Fprintf(p.writer, "%-14s %-40s %-16s %-12s\n", "ARTIFACT", "PATH", "STATUS", "DIGEST")
		fmt.Fprintln(p.writer, strings.Repeat("-", 86))
		for _, c := range vr.Checks {
			fmt.Fprintf(p.writer, "%-14s %-40s %-16s %-12s\n",
				c.Artifact.Name, c.Artifact.Path, c.Status, shortDigest(c.Current))
		}
		fmt.Fprintf(p.writer, "\nState: %s\n", vr.State)
		return nil
	case OutputFormatText:
		fmt.Fprintf(p.writer, "%s: %s\n", vr.Subject, vr.State)
		for _, c := range vr.Checks {
			fmt.Fprintf(p.writer, "  - %s (%s): %s\n", c.Artifact.Name, c.Artifact.Path, c.Status)
		}
		if vr.Message != "" {
			fmt.Fprintln(p.writer, vr.Message)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// validationDoc flattens a ValidationResult for YAML, which does not
// honor the embedded json tags.
func validationDoc(vr *artifact.ValidationResult) map[string]interface{} {
	checks := make([]map[string]interface{}, 0, len(vr.Checks))
	for _, c := range vr.Checks {
		checks = append(checks, map[string]interface{}{
			"name":   c.Artifact.Name,
			"path":   c.Artifact.Path,
			"status": c.Status.String(),
			"digest": c.Current.String(),
		})
	}
	return map[string]interface{}{
		"subject": vr.Subject,
		"state":   vr.State.String(),
		"checks":  checks,
		"message": vr.Message,
	}
}

func shortDigest(r *checksum.Record) string {
	if r == nil {
		return "-"
	}
	if len(r.Digest) > 12 {
		return r.Digest[:12]
	}
	return r.Digest
}

// PrintSuccess prints a success message
func (p *Printer) PrintSuccess(message string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"status":  "success",
			"message": message,
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintln(p.writer, message)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"status": "error",
			"error":  err.Error(),
		})
	default:
		fmt.Fprintf(p.writer, "Error: %v\n", err)
		return nil
	}
}

// PrintOpenVPNVersion prints the result of openvpn --version
func (p *Printer) PrintOpenVPNVersion(info *openvpn.VersionInfo) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(info)
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"version":      info.Version,
			"stdout":       info.Stdout,
			"stdout_lines": info.StdoutLines,
			"failed":       info.Failed,
		})
	case OutputFormatTable, OutputFormatText:
		if info.Failed {
			fmt.Fprintln(p.writer, "failed: no OpenVPN version found")
			if info.Stdout != "" {
				fmt.Fprintln(p.writer, strings.TrimRight(info.Stdout, "\n"))
			}
			return nil
		}
		fmt.Fprintf(p.writer, "OpenVPN %s\n", info.Version)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintCRLStatus prints the state of the certificate revocation list
func (p *Printer) PrintCRLStatus(path string, s *crl.Status) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"path": path,
			"crl":  s,
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"path": path,
			"crl":  s,
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintf(p.writer, "CRL:            %s\n", path)
		fmt.Fprintf(p.writer, "Issuer:         %s\n", s.Issuer)
		fmt.Fprintf(p.writer, "Last update:    %s\n", s.LastUpdate.Parsed.Format(time.RFC3339))
		fmt.Fprintf(p.writer, "Next update:    %s (%d days)\n", s.NextUpdate.Parsed.Format(time.RFC3339), s.DaysRemaining)
		if s.Expired != nil {
			fmt.Fprintf(p.writer, "Expired:        %t\n", *s.Expired)
		}
		if s.Warn {
			fmt.Fprintln(p.writer, "Warning:        CRL expires soon, run gen-crl")
		}
		fmt.Fprintf(p.writer, "Revoked:        %d\n", s.RevokedCount)
		if len(s.RevokedCertificates) > 0 {
			fmt.Fprintf(p.writer, "\n%-40s %-25s\n", "SERIAL", "REVOKED AT")
			fmt.Fprintln(p.writer, strings.Repeat("-", 66))
			for _, rc := range s.RevokedCertificates {
				fmt.Fprintf(p.writer, "%-40s %-25s\n", rc.SerialNumber, rc.RevocationDate.Parsed.Format(time.RFC3339))
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintHealth prints doctor results
func (p *Printer) PrintHealth(r *health.Report) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(r)
	case OutputFormatYAML:
		return p.printYAML(r)
	case OutputFormatTable:
		fmt.Fprintf(p.writer, "%-10s %-10s %s\n", "CHECK", "STATUS", "MESSAGE")
		fmt.Fprintln(p.writer, strings.Repeat("-", 60))
		for _, c := range r.Checks {
			fmt.Fprintf(p.writer, "%-10s %-10s %s\n", c.Name, c.Status, c.Message)
		}
		return nil
	case OutputFormatText:
		for _, c := range r.Checks {
			fmt.Fprintf(p.writer, "%-10s %s: %s\n", c.Name, c.Status, c.Message)
			if c.Error != "" {
				fmt.Fprintf(p.writer, "%-10s %s\n", "", c.Error)
			}
		}
		fmt.Fprintf(p.writer, "\nOverall: %s\n", r.Status)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintClients prints a client list
func (p *Printer) PrintClients(list clients.List) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"clients": list,
		})
	case OutputFormatYAML:
		return p.printYAML(list)
	case OutputFormatTable:
		if len(list) == 0 {
			fmt.Fprintln(p.writer, "No clients found")
			return nil
		}
		fmt.Fprintf(p.writer, "%-30s %-10s %-16s %-10s\n", "NAME", "STATE", "STATIC IP", "ROADRUNNER")
		fmt.Fprintln(p.writer, strings.Repeat("-", 69))
		for _, c := range list {
			fmt.Fprintf(p.writer, "%-30s %-10s %-16s %-10t\n", c.Name, c.State, c.StaticIP, c.Roadrunner)
		}
		return nil
	case OutputFormatText:
		if len(list) == 0 {
			fmt.Fprintln(p.writer, "No clients found")
			return nil
		}
		fmt.Fprintln(p.writer, "Clients:")
		for _, c := range list {
			fmt.Fprintf(p.writer, "  - %s\n", c.Name)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintPool prints the clients with a persistent address
func (p *Printer) PrintPool(pool []clients.PoolEntry) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"persistent_pool": pool,
		})
	case OutputFormatYAML:
		return p.printYAML(pool)
	case OutputFormatTable, OutputFormatText:
		if len(pool) == 0 {
			fmt.Fprintln(p.writer, "No static clients found")
			return nil
		}
		fmt.Fprintf(p.writer, "%-30s %-10s %-16s\n", "NAME", "STATE", "STATIC IP")
		fmt.Fprintln(p.writer, strings.Repeat("-", 58))
		for _, e := range pool {
			fmt.Fprintf(p.writer, "%-30s %-10s %-16s\n", e.Name, e.State, e.StaticIP)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintDigest prints the digest of a file
func (p *Printer) PrintDigest(path string, r *checksum.Record) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"path":      path,
			"algorithm": r.Algorithm,
			"digest":    r.Digest,
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"path":      path,
			"algorithm": r.Algorithm,
			"digest":    r.Digest,
		})
	case OutputFormatTable, OutputFormatText:
		// Same layout as sha256sum.
		fmt.Fprintf(p.writer, "%s  %s\n", r.Digest, path)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintChecksumValidation prints the comparison of a file with its sidecar
func (p *Printer) PrintChecksumValidation(path, sidecar string, val *checksum.Validation) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"path":       path,
			"sidecar":    sidecar,
			"validation": val,
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"path":     path,
			"sidecar":  sidecar,
			"status":   val.Status.String(),
			"current":  val.Current.String(),
			"previous": val.Previous.String(),
		})
	case OutputFormatTable, OutputFormatText:
		fmt.Fprintf(p.writer, "%s: %s\n", path, val.Status)
		fmt.Fprintf(p.writer, "  current:  %s\n", val.Current)
		fmt.Fprintf(p.writer, "  recorded: %s (%s)\n", val.Previous, sidecar)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintSubjects prints the subjects tracked in the checksum cache
func (p *Printer) PrintSubjects(subjects []string) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]interface{}{
			"subjects": subjects,
		})
	case OutputFormatYAML:
		return p.printYAML(map[string]interface{}{
			"subjects": subjects,
		})
	case OutputFormatTable, OutputFormatText:
		if len(subjects) == 0 {
			fmt.Fprintln(p.writer, "No tracked subjects")
			return nil
		}
		fmt.Fprintln(p.writer, "Tracked subjects:")
		for _, s := range subjects {
			fmt.Fprintf(p.writer, "  - %s\n", s)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// printJSON prints data as JSON
func (p *Printer) printJSON(data interface{}) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// printYAML prints data as YAML
func (p *Printer) printYAML(data interface{}) error {
	encoder := yaml.NewEncoder(p.writer)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		return err
	}
	return encoder.Close()
}
