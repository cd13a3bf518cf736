package main

import (
	"fmt"
	"github.com/maxaizer/scout-pipeline/internal/config"
	"github.com/maxaizer/scout-pipeline/internal/repositories"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg := config.Get()

		dbContext, err := repositories.NewDbContext(cfg.DB)
		if err != nil {
			return fmt.Errorf("can't create db context: %w", err)
		}
		defer dbContext.Close()

		if err = dbContext.Migrate(); err != nil {
			return fmt.Errorf("can't migrate db context: %w", err)
		}
		log.Info("Database migrated.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
