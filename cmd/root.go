package cmd

import (
	"fmt"
	"os"

	"github.com/renubu/renubu/cmd/worker"
	"github.com/renubu/renubu/internal/config"
	"github.com/renubu/renubu/internal/logger"
	"github.com/spf13/cobra"
)

// Version is stamped at build time with -ldflags.
var Version = "dev"

var (
	cfgPath string
	envPath string
	rootCmd = &cobra.Command{
		Use:   "renubu",
		Short: "Renubu customer success workflow service",
	}
)

func Execute() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file (embedded defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", "", "optional .env file exported before reading config")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(worker.NewWorkerCmd(loadConfig))
}

// loadConfig reads .env (if given) and config, then initializes logging.
func loadConfig() (config.Config, error) {
	if err := config.LoadDotEnv(envPath); err != nil {
		return config.Config{}, fmt.Errorf("load env: %w", err)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.App.LogLevel)
	return cfg, nil
}
