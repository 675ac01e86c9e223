// Package app wires repositories and services together for the HTTP server,
// the MCP server and the workers.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/renubu/renubu/internal/config"
	"github.com/renubu/renubu/internal/db"
	"github.com/renubu/renubu/internal/dispatcher"
	"github.com/renubu/renubu/internal/repository"
	"github.com/renubu/renubu/internal/service/accounts"
	"github.com/renubu/renubu/internal/service/founder"
	"github.com/renubu/renubu/internal/service/schedule"
	"github.com/renubu/renubu/internal/service/tasks"
	"github.com/renubu/renubu/internal/service/workflows"
	"github.com/renubu/renubu/internal/slides"
)

type App struct {
	DB *sqlx.DB

	Users     *repository.UsersRepositoryImpl
	Outbox    *repository.OutboxRepositoryImpl
	Snapshots repository.CHSnapshotsRepository // nil when ClickHouse is disabled

	Accounts  *accounts.Service
	Tasks     *tasks.Service
	Schedule  *schedule.Service
	Workflows *workflows.Service
	Founder   *founder.Service
}

// New builds every service over dbx. ch may be nil; score history is then
// neither written nor queryable. notifier may be nil to use the configured
// webhook dispatcher.
func New(cfg config.Config, dbx, ch *sqlx.DB, notifier founder.Notifier) (*App, error) {
	library, err := slides.Builtin()
	if err != nil {
		return nil, fmt.Errorf("load workflows: %w", err)
	}
	if notifier == nil {
		notifier = dispatcher.FromConfig(cfg.Notifier)
	}

	a := &App{
		DB:     dbx,
		Users:  repository.NewUsersRepository(dbx),
		Outbox: repository.NewOutboxRepository(dbx),
	}
	customers := repository.NewCustomersRepository(dbx)
	contracts := repository.NewContractsRepository(dbx)

	var sink accounts.SnapshotSink = accounts.NopSink{}
	if ch != nil {
		a.Snapshots = repository.NewCHSnapshotsRepository(ch)
		sink = a.Snapshots
	}

	a.Accounts = accounts.New(
		dbx,
		customers,
		repository.NewSignalsRepository(dbx),
		contracts,
		a.Outbox,
		sink,
		cfg.Kafka.Topics.Signals,
		cfg.Workers.RescoreLookback,
	)
	a.Tasks = tasks.New(dbx, repository.NewTasksRepository(dbx), a.Outbox, cfg.Kafka.Topics.Tasks, cfg.Tasks.MaxSnoozeDays)
	a.Schedule = schedule.New(repository.NewCalendarEventsRepository(dbx), cfg.Calendar)
	a.Workflows = workflows.New(
		repository.NewExecutionsRepository(dbx),
		customers,
		a.Users,
		contracts,
		library,
		a.Accounts,
	)
	a.Founder = founder.New(
		dbx,
		repository.NewFounderTasksRepository(dbx),
		a.Outbox,
		notifier,
		cfg.Kafka.Topics.Founder,
		cfg.Founder.DefaultLayer,
	)
	return a, nil
}

// Open connects the SQL store (migrating it in demo mode) and ClickHouse
// when enabled, then builds the App. The returned close func releases both.
func Open(ctx context.Context, cfg config.Config) (*App, func(), error) {
	dbx, err := db.OpenSQL(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if cfg.App.DemoMode {
		if _, err := db.Migrate(ctx, dbx, cfg.Database.Driver); err != nil {
			_ = dbx.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
	}
	ch, err := db.OpenClickHouse(ctx, cfg.ClickHouse)
	if err != nil {
		_ = dbx.Close()
		return nil, nil, err
	}

	a, err := New(cfg, dbx, ch, nil)
	if err != nil {
		_ = dbx.Close()
		if ch != nil {
			_ = ch.Close()
		}
		return nil, nil, err
	}
	closeFn := func() {
		_ = dbx.Close()
		if ch != nil {
			_ = ch.Close()
		}
	}
	return a, closeFn, nil
}
