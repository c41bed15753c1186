package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"octopus/internal/platform/config"
	"octopus/internal/platform/logger"
)

var (
	cfg config.Config
	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "octopus",
	Short: "Provider trust, lead attribution and booking engine",
	Long: `octopus verifies service providers with five automated agents, captures
leads with signed attribution links and settles commission on completed bookings.

Run without a subcommand to start the HTTP server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.FromEnv()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log = logger.New(cfg.Server.LogLevel, cfg.Server.LogFormat)
		return nil
	},
	RunE: runServe,
}

func main() {
	rootCmd.AddCommand(serveCmd, migrateCmd, evaluateCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
