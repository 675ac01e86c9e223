package cmd

import (
	"fmt"
	"time"

	"github.com/renubu/renubu/internal/app"
	"github.com/renubu/renubu/internal/db"
	"github.com/renubu/renubu/internal/seed"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the demo dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, closeDB, err := app.Open(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		if _, err := db.Migrate(cmd.Context(), a.DB, cfg.Database.Driver); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		if err := seed.Demo(cmd.Context(), a, cfg.App.DemoKey, time.Now()); err != nil {
			return err
		}
		fmt.Println(">> Seed completed ✅")
		return nil
	},
}
