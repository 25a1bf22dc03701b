package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"roadwatch/config"
	"roadwatch/internal/container"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "roadwatch",
	Short: "Pothole detection and road defect reports",
	Long:  "Roadwatch finds potholes on road photos and videos, deduplicates them across frames,\nclassifies their severity and keeps a report log with a shared reward wallet.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(walletCmd)
	rootCmd.Version = version
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	cfg = c

	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return nil
}

func openContainer() (*container.Container, error) {
	return container.New(cfg, logger)
}
