// Command billingctl runs billing calculations from JSON files and administers
// the reference database.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tiered-billing-engine/internal/domain"
	"github.com/tiered-billing-engine/internal/logging"
)

// Exit codes
const (
	exitOK         = 0
	exitFailure    = 1
	exitValidation = 2
	exitNotFound   = 3
)

type options struct {
	logLevel    string
	logFormat   string
	databaseURL string
}

func (o *options) logger() *logrus.Logger {
	logger, err := logging.New(domain.LoggingConfig{Level: o.logLevel, Format: o.logFormat, Output: "stderr"})
	if err != nil {
		return logging.Discard()
	}
	return logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "billingctl",
		Short:         "Tiered billing calculations and database administration",
		Long:          "Runs estimates, package reconciliations, incentives and bill splits from JSON request files, and manages the reference catalog database.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	pf.StringVar(&opts.databaseURL, "database-url", os.Getenv("BILLING_DATABASE_URL"), "Postgres URL (or set BILLING_DATABASE_URL)")

	root.AddCommand(
		newEstimateCmd(opts),
		newReconcileCmd(opts),
		newIncentiveCmd(opts),
		newSplitCmd(opts),
		newMigrateCmd(opts),
		newPlansCmd(opts),
		newMCPCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitOK)
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return exitValidation
	case errors.Is(err, domain.ErrNotFound):
		return exitNotFound
	default:
		return exitFailure
	}
}
