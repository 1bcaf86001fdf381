package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tiered-billing-engine/internal/catalog"
	"github.com/tiered-billing-engine/internal/database"
	"github.com/tiered-billing-engine/internal/domain"
	"github.com/tiered-billing-engine/internal/money"
	"github.com/tiered-billing-engine/internal/repository"
)

func newPlansCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plans",
		Short: "List or seed insurance plans",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List insurance plans (from the database when --database-url is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var plans []domain.InsurancePlan

			if opts.databaseURL == "" {
				plans = catalog.DefaultPlans()
			} else {
				db, err := database.NewConnectionFromURL(ctx, opts.databaseURL, opts.logger())
				if err != nil {
					return err
				}
				defer db.Close()

				if plans, err = repository.NewCatalogRepository(db.Pool, opts.logger()).ListPlans(ctx); err != nil {
					return err
				}
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCOVERAGE\tCOPAY\tDEDUCTIBLE")
			for _, p := range plans {
				fmt.Fprintf(tw, "%s\t%.1f%%\t%s\t%s\n", p.Name,
					money.FormatPercent(p.CoverageFraction), money.Format(p.Copay), money.Format(p.Deductible))
			}
			return tw.Flush()
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Load the built-in plans, packages and incentive rules into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.databaseURL == "" {
				return fmt.Errorf("--database-url or BILLING_DATABASE_URL is required")
			}
			ctx := cmd.Context()

			db, err := database.NewConnectionFromURL(ctx, opts.databaseURL, opts.logger())
			if err != nil {
				return err
			}
			defer db.Close()

			plans, pkgs, rules := catalog.DefaultPlans(), catalog.DefaultPackages(), catalog.DefaultIncentiveRules()
			repo := repository.NewCatalogRepository(db.Pool, opts.logger())
			if err := repo.Seed(ctx, plans, pkgs, rules); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d plans, %d packages, %d incentive rules\n", len(plans), len(pkgs), len(rules))
			return nil
		},
	})

	return cmd
}
