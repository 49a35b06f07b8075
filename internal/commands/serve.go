package commands

import (
	"context"

	"github.com/spf13/cobra"
	"gitlab.com/yelinaung/smart-finance/internal/api"
	"gitlab.com/yelinaung/smart-finance/internal/bot"
	"gitlab.com/yelinaung/smart-finance/internal/logger"
)

func newServeCommand(d deps) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return d.run(cmd, needs{daemon: true}, func(ctx context.Context, a *app) error {
				if addr != "" {
					a.cfg.HTTPAddr = addr
				}
				srv, err := api.New(a.cfg, a.ledger)
				if err != nil {
					return err
				}
				return srv.Run(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides HTTP_ADDR)")

	return cmd
}

func newBotCommand(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return d.run(cmd, needs{ai: true, telegram: true, daemon: true}, func(ctx context.Context, a *app) error {
				telegramBot, err := bot.New(a.cfg, a.ledger)
				if err != nil {
					return err
				}
				telegramBot.Start(ctx)
				logger.Log.Info().Msg("Shutting down...")
				return nil
			})
		},
	}
}
