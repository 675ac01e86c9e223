package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/renubu/renubu/internal/kafka"
	"github.com/renubu/renubu/internal/logger"
	"github.com/renubu/renubu/internal/service/accounts"
	"github.com/renubu/renubu/internal/service/events"
	"go.uber.org/zap"
)

// SignalRecorded is the only event type the scorer reacts to.
const SignalRecorded = "signal.recorded"

type Fetcher interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

type Rescorer interface {
	Rescore(ctx context.Context, id string) (*accounts.RescoreResult, error)
}

// Scorer rescores a customer for every recorded signal. Delivery is
// at-least-once: every message is committed after processing, including
// poison ones, and rescoring is idempotent.
type Scorer struct {
	Consumer Fetcher
	Accounts Rescorer
	Workers  int
}

func NewScorer(consumer Fetcher, acc Rescorer, workers int) *Scorer {
	return &Scorer{Consumer: consumer, Accounts: acc, Workers: workers}
}

// Run blocks until ctx is cancelled and all processors have returned.
func (s *Scorer) Run(ctx context.Context) error {
	if s.Workers <= 0 {
		s.Workers = 4
	}
	log := logger.Named("scorer")
	log.Info("scorer started", zap.Int("workers", s.Workers))

	msgCh := make(chan kafka.Message, s.Workers*2)
	go func() {
		defer close(msgCh)
		for {
			m, err := s.Consumer.Fetch(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("kafka fetch failed", zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(200 * time.Millisecond):
				}
				continue
			}
			select {
			case msgCh <- m:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < s.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range msgCh {
				s.process(ctx, m)
			}
		}()
	}
	wg.Wait()
	return nil
}

func (s *Scorer) process(ctx context.Context, m kafka.Message) {
	log := logger.Named("scorer")
	defer func() {
		if err := s.Consumer.Commit(ctx, m); err != nil && ctx.Err() == nil {
			log.Warn("commit failed", zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}()

	env, err := events.Decode(m.Value)
	if err != nil {
		log.Warn("skipping bad envelope", zap.Int64("offset", m.Offset), zap.Error(err))
		return
	}
	if env.Type != SignalRecorded {
		return
	}

	res, err := s.Accounts.Rescore(ctx, env.AggregateID)
	switch {
	case errors.Is(err, accounts.ErrNotFound):
		log.Warn("signal for unknown customer", zap.String("customer_id", env.AggregateID))
	case err != nil:
		log.Error("rescore failed", zap.String("customer_id", env.AggregateID), zap.Error(err))
	default:
		log.Debug("customer rescored",
			zap.String("customer_id", env.AggregateID),
			zap.String("quadrant", string(res.Score.Quadrant)),
			zap.Float64("priority", res.Score.PriorityScore),
		)
	}
}
