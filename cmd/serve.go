package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/renubu/renubu/internal/app"
	"github.com/renubu/renubu/internal/db"
	httpSrv "github.com/renubu/renubu/internal/http"
	"github.com/renubu/renubu/internal/logger"
	"github.com/renubu/renubu/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := logger.Named("serve")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, closeDB, err := app.Open(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeDB()

		if cfg.App.DemoMode {
			if err := seed.Demo(ctx, a, cfg.App.DemoKey, time.Now()); err != nil {
				return err
			}
			log.Info("demo mode", zap.String("database", cfg.Database.DSN), zap.String("api_key", cfg.App.DemoKey))
		}

		rds, err := db.OpenRedis(cfg.Redis)
		if err != nil {
			if !cfg.App.DemoMode {
				return err
			}
			log.Warn("rate limiting disabled", zap.Error(err))
			rds = nil
		}
		if rds != nil {
			defer func() { _ = rds.Close() }()
		}

		server := httpSrv.NewServer(cfg, a, rds)

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start(cfg.HTTP.Addr) }()

		select {
		case <-ctx.Done():
			log.Info("shutting down")
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	},
}
