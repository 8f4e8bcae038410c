package commands

import (
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"shop-bot/internal/cli/output"
	"shop-bot/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(e *env, db *gorm.DB) error {
			if err := migrate(cmd, e, db); err != nil {
				return err
			}
			output.Success("Database schema is up to date")
			return nil
		})
	},
}

func migrate(cmd *cobra.Command, e *env, db *gorm.DB) error {
	connConfig, err := database.ConnConfig(e.cfg, e.log)
	if err != nil {
		return err
	}
	return database.Migrate(cmd.Context(), db, connConfig, e.log)
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
