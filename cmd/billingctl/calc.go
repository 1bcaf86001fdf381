package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tiered-billing-engine/internal/catalog"
	"github.com/tiered-billing-engine/internal/domain"
	"github.com/tiered-billing-engine/internal/service"
)

// calcCommand builds a subcommand that decodes a request file into Req, runs it
// against a catalog-backed billing service and prints the API-format response.
func calcCommand[Req any](opts *options, use, short string, run func(context.Context, *service.BillingService, Req) (any, error)) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var req Req
			if err := decodeFile(cmd.InOrStdin(), file, &req); err != nil {
				return err
			}

			billing, err := service.NewBillingService(service.Dependencies{
				Catalog: catalog.Default(),
				Logger:  opts.logger(),
			})
			if err != nil {
				return err
			}

			resp, err := run(cmd.Context(), billing, req)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Request JSON file, or - for stdin (required)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newEstimateCmd(opts *options) *cobra.Command {
	return calcCommand(opts, "estimate", "Estimate a procedure's cost",
		func(ctx context.Context, b *service.BillingService, req service.EstimateRequest) (any, error) {
			return b.Estimate(ctx, req)
		})
}

func newReconcileCmd(opts *options) *cobra.Command {
	return calcCommand(opts, "reconcile", "Reconcile a package episode",
		func(ctx context.Context, b *service.BillingService, req service.ReconcileRequest) (any, error) {
			return b.ReconcilePackage(ctx, req)
		})
}

func newIncentiveCmd(opts *options) *cobra.Command {
	return calcCommand(opts, "incentive", "Compute a provider incentive payout",
		func(ctx context.Context, b *service.BillingService, req service.IncentiveRequest) (any, error) {
			return b.ComputeIncentive(ctx, req)
		})
}

func newSplitCmd(opts *options) *cobra.Command {
	return calcCommand(opts, "split", "Split a bill between parties",
		func(ctx context.Context, b *service.BillingService, req service.SplitRequest) (any, error) {
			return b.SplitBill(ctx, req)
		})
}

func decodeFile(stdin io.Reader, path string, dst any) error {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening request file: %w", err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("file", "malformed request JSON: "+err.Error(), path)
	}
	return nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
