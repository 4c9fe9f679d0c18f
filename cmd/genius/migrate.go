package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/at-ishikawa/genius/internal/database"
)

func newMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migration commands",
	}
	cmd.AddCommand(newMigrateDirectionCommand(database.MigrateUp, "Apply all pending migrations"))
	cmd.AddCommand(newMigrateDirectionCommand(database.MigrateDown, "Roll back the latest migration"))
	return cmd
}

func newMigrateDirectionCommand(direction database.MigrationDirection, short string) *cobra.Command {
	return &cobra.Command{
		Use:   string(direction),
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			db, err := database.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("database.Open > %w", err)
			}
			defer func() {
				_ = db.Close()
			}()
			return database.Migrate(db, direction)
		},
	}
}
