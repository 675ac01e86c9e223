package worker

import (
	"context"
	"time"

	"github.com/renubu/renubu/internal/logger"
	"github.com/renubu/renubu/internal/service/founder"
	"go.uber.org/zap"
)

type TaskSweeper interface {
	WakeDue(ctx context.Context) (int, error)
	EnforceDeadlines(ctx context.Context) (int, error)
}

type Escalator interface {
	EscalationCheck(ctx context.Context) (*founder.EscalationReport, error)
}

// SweepResult counts what one sweep changed.
type SweepResult struct {
	Woken     int
	Forced    int
	Escalated int
}

// Sweeper runs the time-driven transitions on a fixed interval.
type Sweeper struct {
	Tasks    TaskSweeper
	Founder  Escalator
	Interval time.Duration
}

func NewSweeper(tasks TaskSweeper, esc Escalator, interval time.Duration) *Sweeper {
	return &Sweeper{Tasks: tasks, Founder: esc, Interval: interval}
}

// Run sweeps once immediately, then every Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.Interval <= 0 {
		s.Interval = time.Minute
	}
	log := logger.Named("sweeper")
	log.Info("sweeper started", zap.Duration("interval", s.Interval))

	tick := time.NewTicker(s.Interval)
	defer tick.Stop()
	for {
		res := s.Tick(ctx)
		if res.Woken+res.Forced+res.Escalated > 0 {
			log.Info("sweep done", zap.Int("woken", res.Woken), zap.Int("forced", res.Forced), zap.Int("escalated", res.Escalated))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
		}
	}
}

// Tick runs every sweep step. A failing step is logged and does not stop the others.
func (s *Sweeper) Tick(ctx context.Context) SweepResult {
	log := logger.Named("sweeper")
	var res SweepResult
	var err error

	if s.Tasks != nil {
		if res.Woken, err = s.Tasks.WakeDue(ctx); err != nil {
			log.Error("wake due tasks", zap.Error(err))
		}
		if res.Forced, err = s.Tasks.EnforceDeadlines(ctx); err != nil {
			log.Error("enforce snooze deadlines", zap.Error(err))
		}
	}
	if s.Founder != nil {
		rep, err := s.Founder.EscalationCheck(ctx)
		if err != nil {
			log.Error("founder escalation check", zap.Error(err))
		} else {
			res.Escalated = rep.Escalated
		}
	}
	return res
}
