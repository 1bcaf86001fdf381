package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tiered-billing-engine/internal/database"
)

func newMigrateCmd(opts *options) *cobra.Command {
	var migrationsPath string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database schema migrations",
	}
	cmd.PersistentFlags().StringVar(&migrationsPath, "migrations", "./migrations", "Migrations directory")

	runner := func() (*database.MigrationRunner, error) {
		if opts.databaseURL == "" {
			return nil, fmt.Errorf("--database-url or BILLING_DATABASE_URL is required")
		}
		return database.NewMigrationRunner(opts.databaseURL, migrationsPath, opts.logger())
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mr, err := runner()
			if err != nil {
				return err
			}
			defer mr.Close()
			if err := mr.Up(cmd.Context()); err != nil {
				return err
			}
			return printVersion(cmd, mr)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mr, err := runner()
			if err != nil {
				return err
			}
			defer mr.Close()
			if err := mr.Down(cmd.Context()); err != nil {
				return err
			}
			return printVersion(cmd, mr)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "goto VERSION",
		Short: "Migrate up or down to a specific version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return fmt.Errorf("invalid version %q: %w", args[0], err)
			}
			mr, err := runner()
			if err != nil {
				return err
			}
			defer mr.Close()
			if err := mr.Goto(cmd.Context(), uint(version)); err != nil {
				return err
			}
			return printVersion(cmd, mr)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mr, err := runner()
			if err != nil {
				return err
			}
			defer mr.Close()
			return printVersion(cmd, mr)
		},
	})

	return cmd
}

func printVersion(cmd *cobra.Command, mr *database.MigrationRunner) error {
	version, dirty, err := mr.Version()
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty)\n", version)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "version %d\n", version)
	return nil
}
