package cmd

import (
	"fmt"

	"github.com/renubu/renubu/internal/db"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		dbx, err := db.OpenSQL(cfg.Database)
		if err != nil {
			return err
		}
		defer dbx.Close()

		applied, err := db.Migrate(cmd.Context(), dbx, cfg.Database.Driver)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if cfg.ClickHouse.Enabled {
			ch, err := db.OpenClickHouse(cmd.Context(), cfg.ClickHouse)
			if err != nil {
				return err
			}
			_ = ch.Close()
		}

		if len(applied) == 0 {
			fmt.Println(">> Schema up to date")
			return nil
		}
		for _, name := range applied {
			fmt.Println(">> applied", name)
		}
		fmt.Println(">> Migration complete ✅")
		return nil
	},
}
