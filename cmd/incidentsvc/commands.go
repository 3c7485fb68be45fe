package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/you/incidentsvc/internal/app"
	"github.com/you/incidentsvc/internal/infrastructure/auth"
)

// serveCmd runs the API until interrupted
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		return app.Run(cmd.Context(), cfg, logger)
	},
}

// migrateCmd creates the report schema and exits
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create report tables or indexes",
	Long: `Runs the schema migration for the configured store driver.
Postgres and SQLite get their report table; MongoDB gets its indexes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup()
		if err != nil {
			return err
		}
		defer logger.Sync()

		store, err := app.NewStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		logger.Info("migration complete", zap.String("driver", cfg.StoreDriver))
		return store.Close()
	},
}

var (
	tokenSubject string
	tokenTTL     time.Duration
)

// adminTokenCmd mints an admin bearer token signed with the configured secret
var adminTokenCmd = &cobra.Command{
	Use:   "admin-token",
	Short: "Mint a bearer token for the admin API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		ttl := cfg.AdminTokenTTL
		if tokenTTL > 0 {
			ttl = tokenTTL
		}
		token, err := auth.NewJWTService(cfg.AdminJWTSecret, cfg.AdminJWTIssuer, ttl).GenerateAdminToken(tokenSubject)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	adminTokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "admin identity recorded in audit events")
	adminTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (default admin.token_ttl)")
	_ = adminTokenCmd.MarkFlagRequired("subject")
}
