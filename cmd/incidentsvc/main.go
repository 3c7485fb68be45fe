package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/you/incidentsvc/internal/config"
	"github.com/you/incidentsvc/internal/infrastructure/logging"
)

var configPath string

// rootCmd is the incidentsvc entry point
var rootCmd = &cobra.Command{
	Use:   "incidentsvc",
	Short: "Verified disaster report intake service",
	Long: `incidentsvc accepts disaster reports from the public, verifies the
reporter's phone number with a one-time code, and stores the report
for the admin dashboard.

Available subcommands:
  serve       - Run the HTTP API
  migrate     - Create report tables or indexes
  admin-token - Mint a bearer token for the admin API`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yml (default $CONFIG_PATH or config/config.yml)")
	rootCmd.AddCommand(serveCmd, migrateCmd, adminTokenCmd)
}

func main() {
	// A missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFrom(configPath)
	}
	return config.Load()
}

// setup loads the config and builds the logger every subcommand shares
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, logger, nil
}
