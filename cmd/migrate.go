package cmd

import (
	"context"

	"entrepreneur-connect-backend/internal/database"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		ctx := context.Background()

		db := connectDatabase(ctx, cfg)
		defer db.Close()

		if err := database.NewMigrator(db).Up(ctx); err != nil {
			return err
		}

		log.Info().Msg("Migrations applied")
		return nil
	},
}
