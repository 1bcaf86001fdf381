// Command billing-mcp serves the billing tools to AI agents over MCP stdio.
// It requires no external databases.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tiered-billing-engine/internal/config"
	"github.com/tiered-billing-engine/internal/mcp"
	"github.com/tiered-billing-engine/internal/setup"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		path, err := setup.Register(setup.Options{BinaryPath: executable(), DataDir: os.Getenv(setup.DataDirEnv)})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Registered %s in %s\n", setup.ServerName, path)
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "billing-mcp: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.LoadLiteConfig()

	server, err := mcp.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func executable() string {
	path, err := os.Executable()
	if err != nil {
		return ""
	}
	return path
}
