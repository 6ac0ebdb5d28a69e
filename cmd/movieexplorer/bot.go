package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vadimtrunov/movieexplorer/internal/browser"
	"github.com/vadimtrunov/movieexplorer/internal/config"
	"github.com/vadimtrunov/movieexplorer/internal/frontend/telegram"
)

// newBotCmd returns the "bot" subcommand for running the Telegram bot.
func newBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Start the Telegram bot",
		Long:  "Start the Movie Explorer Telegram bot. Each chat browses with its own listing state.",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runBot()
		},
	}
}

// runBot starts the Telegram bot alone.
func runBot() error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if !cfg.TelegramEnabled() {
		return errors.New(
			"telegram configuration is required: set telegram.bot_token in config or MOVIEEXPLORER_TELEGRAM_BOT_TOKEN env var",
		)
	}

	logger := config.SetupLogger(cfg.App.LogLevel, os.Stderr)
	client := initTMDb(cfg, logger)

	bot, err := initTelegramBot(cfg, newBrowserFactory(client, cfg, logger), logger)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("telegram bot starting")
	if err := bot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// initTelegramBot creates and returns a Telegram bot instance.
func initTelegramBot(cfg *config.Config, factory func() *browser.Browser, logger *slog.Logger) (*telegram.Bot, error) {
	return telegram.New(
		cfg.Telegram.BotToken,
		cfg.Telegram.AllowedUserIDs,
		factory,
		newRenderer(cfg),
		logger,
	)
}
