package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/skillverse/leadgen/internal/api"
	"github.com/skillverse/leadgen/internal/browser"
	"github.com/skillverse/leadgen/internal/config"
	"github.com/skillverse/leadgen/internal/metrics"
	"github.com/skillverse/leadgen/internal/runs"
	"github.com/skillverse/leadgen/internal/scraper"
	"github.com/skillverse/leadgen/internal/whatsapp"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP control surface",
		Long: `Serves the start/stop/status API. Discovery and dispatch runs launched
through the API execute on background workers; at most one run of each kind
is active at a time.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			metrics.Init()

			registry := runs.NewRegistry()
			srv := api.NewServer(registry, discoverFunc(cfg, logger), dispatchFunc(cfg, logger), logger)

			httpServer := &http.Server{
				Addr:              cfg.Server.Addr,
				Handler:           srv,
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logger.Info("control surface listening", zap.String("addr", cfg.Server.Addr))
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			registry.Stop(runs.KindDiscover)
			registry.Stop(runs.KindDispatch)
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				return err
			}
			logger.Info("control surface stopped")
			return nil
		},
	}
	return cmd
}

// discoverFunc builds the discovery engine per request, applying the
// request's overrides on top of the configured defaults.
func discoverFunc(cfg config.Config, base *zap.Logger) api.DiscoverFunc {
	return func(ctx context.Context, run *runs.Run, req api.DiscoverRequest) error {
		logger := run.Logger(base)

		runCfg := cfg.Scraper
		if req.Keywords != "" {
			runCfg.Keywords = map[string][]string{"CUSTOM": splitList(req.Keywords)}
		}
		if req.RelevanceKeywords != "" {
			runCfg.RelevanceKeywords = splitList(req.RelevanceKeywords)
		}
		if req.City != "" {
			runCfg.Locations = []string{req.City}
		}
		if req.Limit > 0 {
			runCfg.Limit = req.Limit
		}

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

		pipeline := scraper.New(runCfg, maps, nil, store, logger)
		accepted, err := pipeline.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("discovery run finished", zap.Int("accepted", accepted))
		return nil
	}
}

// dispatchFunc builds the dispatch engine per request.
func dispatchFunc(cfg config.Config, base *zap.Logger) api.DispatchFunc {
	return func(ctx context.Context, run *runs.Run, req api.DispatchRequest) error {
		logger := run.Logger(base)

		runCfg := cfg.WhatsApp
		if req.MessageTemplate != "" {
			runCfg.Messages = []string{req.MessageTemplate}
		}
		if req.Limit > 0 {
			runCfg.Limit = req.Limit
		}

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

		conv := whatsapp.NewWebConversation(session, logger)
		dispatcher, err := whatsapp.NewDispatcher(runCfg, conv, store, logger)
		if err != nil {
			return err
		}

		sent, err := dispatcher.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("dispatch run finished", zap.Int("sent", sent))
		return nil
	}
}
