// Package worker holds the long-running background loops: the outbox relay,
// the signal scorer and the periodic sweeper.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/renubu/renubu/internal/kafka"
	"github.com/renubu/renubu/internal/logger"
	"github.com/renubu/renubu/internal/metrics"
	"github.com/renubu/renubu/internal/repository"
	"go.uber.org/zap"
)

// Publisher writes records to the broker.
type Publisher interface {
	Publish(ctx context.Context, recs ...kafka.Record) error
}

// Relay moves committed outbox rows to Kafka. A failed batch stays unpublished
// with its attempts bumped and is retried on the next tick.
type Relay struct {
	Outbox    repository.OutboxRepository
	Pub       Publisher
	BatchSize int
	Interval  time.Duration
	Now       func() time.Time
}

func NewRelay(outbox repository.OutboxRepository, pub Publisher, batchSize int, interval time.Duration) *Relay {
	return &Relay{
		Outbox:    outbox,
		Pub:       pub,
		BatchSize: batchSize,
		Interval:  interval,
		Now:       time.Now,
	}
}

// Run ticks until ctx is cancelled. Full batches are drained without waiting.
func (r *Relay) Run(ctx context.Context) error {
	if r.BatchSize <= 0 {
		r.BatchSize = 100
	}
	if r.Interval <= 0 {
		r.Interval = 500 * time.Millisecond
	}
	log := logger.Named("relay")
	log.Info("relay started", zap.Int("batch_size", r.BatchSize), zap.Duration("interval", r.Interval))

	tick := time.NewTicker(r.Interval)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
		for {
			n, err := r.Tick(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Warn("relay tick failed", zap.Error(err))
				break
			}
			if n < r.BatchSize {
				break
			}
		}
	}
}

// Tick publishes one batch and returns how many rows were relayed.
func (r *Relay) Tick(ctx context.Context) (int, error) {
	rows, err := r.Outbox.ListUnpublished(ctx, r.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("list outbox: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	recs := make([]kafka.Record, len(rows))
	ids := make([]string, len(rows))
	for i, row := range rows {
		recs[i] = kafka.Record{Topic: row.Topic, Key: row.AggregateID, Value: row.Payload}
		ids[i] = row.ID
	}

	if err := r.Pub.Publish(ctx, recs...); err != nil {
		if berr := r.Outbox.BumpAttempts(ctx, ids); berr != nil {
			logger.Named("relay").Error("bump attempts failed", zap.Error(berr))
		}
		return 0, fmt.Errorf("publish: %w", err)
	}
	if err := r.Outbox.MarkPublished(ctx, ids, r.Now()); err != nil {
		// rows will be sent again; consumers tolerate duplicates
		return 0, fmt.Errorf("mark published: %w", err)
	}
	metrics.OutboxPublished.Add(float64(len(rows)))
	return len(rows), nil
}
