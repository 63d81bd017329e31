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
	"context"
	"fmt"
	"io"

	"github.com/jeremyhahn/go-ovpnpki/pkg/clients"
	"github.com/jeremyhahn/go-ovpnpki/pkg/metrics"
	"github.com/spf13/cobra"
)

// clientsCmd represents the clients command
var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Filter a YAML client list",
	Long: `Filter a YAML client list, either a bare sequence or a mapping with a
"clients" key. Use "-" to read the list from stdin.`,
}

var clientsPoolCmd = &cobra.Command{
	Use:   "pool <clients.yaml>",
	Short: "List clients with a static IP for the persistent address pool",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(metrics.OpClients, func(ctx context.Context, a *app, args []string) error {
		list, err := loadClients(a, args[0])
		if err != nil {
			return err
		}
		return a.printer.PrintPool(list.PersistentPool())
	}),
}

var clientsTypeCmd = &cobra.Command{
	Use:       "type <static|roadrunner> <clients.yaml>",
	Short:     "List static or roadrunner clients",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{clients.TypeStatic, clients.TypeRoadrunner},
	RunE: withApp(metrics.OpClients, func(ctx context.Context, a *app, args []string) error {
		list, err := loadClients(a, args[1])
		if err != nil {
			return err
		}
		filtered, err := list.ByType(args[0])
		if err != nil {
			return err
		}
		return a.printer.PrintClients(filtered)
	}),
}

func loadClients(a *app, path string) (clients.List, error) {
	if path != "-" {
		return clients.Load(a.fs, path)
	}
	data, err := io.ReadAll(host.stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read clients from stdin: %w", err)
	}
	return clients.Parse(data)
}

func init() {
	clientsCmd.AddCommand(clientsPoolCmd)
	clientsCmd.AddCommand(clientsTypeCmd)
}
