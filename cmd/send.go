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
	"github.com/skillverse/leadgen/internal/whatsapp"
)

func newSendCmd() *cobra.Command {
	var (
		limit   int
		message string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Dispatch outreach messages to pending leads",
		Long: `Walks the lead store rows still marked New, opens each contact's chat
in the messaging web client, verifies the thread, sends one message variant,
and writes a terminal status back. The browser profile persists between runs
so the login survives; scan the QR code on first use.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if limit > 0 {
				cfg.WhatsApp.Limit = limit
			}
			if message != "" {
				cfg.WhatsApp.Messages = []string{message}
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

			conv := whatsapp.NewWebConversation(session, logger)
			dispatcher, err := whatsapp.NewDispatcher(cfg.WhatsApp, conv, store, logger)
			if err != nil {
				return err
			}

			sent, err := dispatcher.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			logger.Info("send finished", zap.Int("sent", sent))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many sends (0 = all pending)")
	cmd.Flags().StringVar(&message, "message", "", "single message template overriding the configured variant pool")
	return cmd
}
