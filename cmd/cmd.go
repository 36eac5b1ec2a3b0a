package cmd

import (
	"context"
	"os"

	"entrepreneur-connect-backend/internal/config"
	"entrepreneur-connect-backend/internal/database"
	"entrepreneur-connect-backend/internal/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "entrepreneur-connect",
		Short: "EntrepreneurConnect API server",
		Long: `EntrepreneurConnect serves the HTTP and WebSocket API of the
entrepreneur networking application, applies database migrations and runs
the push notification worker.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(workerCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads the configuration and sets up the logger
func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Setup(cfg.Log.Level, cfg.Log.Format)
	return cfg
}

// connectDatabase opens the pool and checks it answers
func connectDatabase(ctx context.Context, cfg *config.Config) *pgxpool.Pool {
	db, err := database.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	return db
}
