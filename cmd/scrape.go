package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skillverse/leadgen/internal/browser"
	"github.com/skillverse/leadgen/internal/metrics"
	"github.com/skillverse/leadgen/internal/scraper"
)

func newScrapeCmd() *cobra.Command {
	var (
		limit     int
		locations []string
	)

	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run a lead discovery crawl",
		Long: `Walks the configured keyword and location combinations against the
map-search surface, deep-scrapes each listing's website for contact and
relevance signals, and appends accepted leads to the lead store.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if limit > 0 {
				cfg.Scraper.Limit = limit
			}
			if len(locations) > 0 {
				cfg.Scraper.Locations = locations
			}
			metrics.Init()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := openStore(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			session, err := browser.NewSession(ctx, cfg.Browser, logger)
			if err != nil {
				return err
			}
			defer session.Close()

			maps, err := scraper.NewMapsBrowser(session, logger)
			if err != nil {
				return err
			}

			pipeline := scraper.New(cfg.Scraper, maps, nil, store, logger)
			accepted, err := pipeline.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("scrape finished", zap.Int("accepted", accepted))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many accepted leads (0 = unlimited)")
	cmd.Flags().StringSliceVar(&locations, "locations", nil, "override configured search locations")
	return cmd
}
