package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	telegram "roadwatch/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	if cfg.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN is required")
	}

	c, err := openContainer()
	if err != nil {
		return err
	}
	defer c.Close()

	checkCtx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	if err := c.CheckDetector(checkCtx); err != nil {
		logger.Warn("detector is not reachable, uploads will fail until it is up", "error", err)
	}
	cancel()

	bot, err := telegram.NewBot(cfg.TelegramToken, c, cfg, logger.With("component", "bot"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("bot is running")
	return bot.Run(ctx)
}
