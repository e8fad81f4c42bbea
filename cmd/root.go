// Package cmd defines the CLI commands for the leadgen executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skillverse/leadgen/internal/config"
	"github.com/skillverse/leadgen/internal/leads"
	"github.com/skillverse/leadgen/internal/logging"
	"github.com/skillverse/leadgen/internal/store/memory"
	"github.com/skillverse/leadgen/internal/store/postgres"
	"github.com/skillverse/leadgen/internal/store/sheets"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "leadgen",
		Short: "Discover business leads and dispatch outreach messages",
		Long: `leadgen crawls a map-search surface for business listings, extracts
contact and relevance signals from each listing and its website, and stores
deduplicated leads. A second engine walks the stored leads and dispatches
templated outreach messages through a messaging web client, tracking a
per-contact delivery status.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.AddCommand(newScrapeCmd(), newSendCmd(), newServeCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// openStore builds the configured lead store. The returned func releases the
// store's resources.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (leads.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendSheets:
		store, err := sheets.New(ctx, cfg.Sheets, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case config.BackendPostgres:
		store, err := postgres.New(ctx, cfg.Postgres.DSN, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return memory.New(), func() {}, nil
	}
}

// splitList parses a comma-separated override into trimmed entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
