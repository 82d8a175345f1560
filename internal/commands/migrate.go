package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/takeshq/takes/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		logger := setupLogger(cfg.Logging)
		s, err := store.Open(cfg.Storage.Path, logger)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		defer s.Close()

		fmt.Printf("Database ready at %s\n", cfg.Storage.Path)
		return nil
	},
}
