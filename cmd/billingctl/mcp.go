package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tiered-billing-engine/internal/setup"
)

func newMCPCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Register the billing MCP server with a desktop MCP client",
	}
	cmd.PersistentFlags().StringVar(&configPath, "client-config", "", "Client config file (defaults to the Claude Desktop location)")

	install := &cobra.Command{
		Use:   "install",
		Short: "Add or update the billing-mcp entry",
		Args:  cobra.NoArgs,
	}
	var binary, dataDir string
	install.Flags().StringVar(&binary, "binary", "", "Path to billing-mcp (searched when empty)")
	install.Flags().StringVar(&dataDir, "data-dir", "", "Ledger data directory for the server")
	install.RunE = func(cmd *cobra.Command, args []string) error {
		path, err := setup.Register(setup.Options{ConfigPath: configPath, BinaryPath: binary, DataDir: dataDir})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "registered %s in %s\n", setup.ServerName, path)
		return nil
	}

	uninstall := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the billing-mcp entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := setup.Unregister(configPath)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Fprintln(cmd.OutOrStdout(), "not registered")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", setup.ServerName)
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the registration and any problems with it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := setup.GetStatus(configPath)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}

	cmd.AddCommand(install, uninstall, status)
	return cmd
}
