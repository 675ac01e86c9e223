package worker

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/renubu/renubu/internal/app"
	"github.com/renubu/renubu/internal/config"
	"github.com/renubu/renubu/internal/kafka"
	"github.com/renubu/renubu/internal/metrics"
	"github.com/renubu/renubu/internal/worker"
	"github.com/spf13/cobra"
)

// NewWorkerCmd returns the parent "worker" command. load reads the config
// chosen by the root flags.
func NewWorkerCmd(load func() (config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run background workers",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "relay",
			Short: "Publish outbox events to Kafka",
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(load, func(ctx context.Context, cfg config.Config, a *app.App) error {
					prod := kafka.NewProducer(cfg.Kafka.Brokers)
					defer prod.Close()
					return worker.NewRelay(a.Outbox, prod, cfg.Workers.RelayBatchSize, cfg.Workers.RelayInterval).Run(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "scorer",
			Short: "Rescore customers when signals are recorded",
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(load, func(ctx context.Context, cfg config.Config, a *app.App) error {
					cons := kafka.NewConsumer(kafka.ReaderConfigFor(cfg.Kafka, cfg.Kafka.Topics.Signals, "scorer"))
					defer cons.Close()
					return worker.NewScorer(cons, a.Accounts, cfg.Workers.ScorerWorkers).Run(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "sweeper",
			Short: "Wake snoozed tasks, enforce snooze deadlines and escalate founder tasks",
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(load, func(ctx context.Context, cfg config.Config, a *app.App) error {
					return worker.NewSweeper(a.Tasks, a.Founder, cfg.Workers.SweepInterval).Run(ctx)
				})
			},
		},
	)
	return cmd
}

func run(load func() (config.Config, error), fn func(ctx context.Context, cfg config.Config, a *app.App) error) error {
	cfg, err := load()
	if err != nil {
		return err
	}
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, closeDB, err := app.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()
	return fn(ctx, cfg, a)
}
